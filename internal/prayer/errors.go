package prayer

import "errors"

// Error kinds returned by the prayer core. Callers match them with errors.Is;
// the wrapped message carries the prayer and date involved.
var (
	// ErrInvalidTimeSeries means the provider returned incomplete or
	// non-monotonic instants. It is an upstream data defect and is not retried.
	ErrInvalidTimeSeries = errors.New("invalid prayer time series")

	// ErrOutOfRange means the requested date precedes account creation.
	ErrOutOfRange = errors.New("date precedes account creation")

	// ErrOutsideWindow means Complete was attempted while the prayer was not pending.
	ErrOutsideWindow = errors.New("prayer is outside its window")

	// ErrNotEligibleForQada means MarkQada was attempted on a prayer that is not missed.
	ErrNotEligibleForQada = errors.New("prayer is not eligible for qada")

	// ErrAlreadyCompleted means the prayer already has a completion record.
	// Well-behaved clients treat it as an idempotent success.
	ErrAlreadyCompleted = errors.New("prayer already completed")

	// ErrAlreadyExists is returned by a Ledger when the instance already has a record.
	ErrAlreadyExists = errors.New("completion record already exists")

	ErrUserNotFound     = errors.New("user not found")
	ErrInstanceNotFound = errors.New("prayer instance not found")
)

// IsConflict reports whether err is the benign outcome of a duplicate write.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyCompleted) || errors.Is(err, ErrAlreadyExists)
}
