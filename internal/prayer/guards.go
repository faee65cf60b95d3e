package prayer

import (
	"fmt"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
)

// GuardResult is the outcome of evaluating a user action against a prayer's
// resolved status. Guards are pure and have no side effects.
type GuardResult struct {
	Allowed bool
	Reason  error
}

// Error returns nil when the action is allowed.
func (r GuardResult) Error() error {
	if r.Allowed {
		return nil
	}
	return r.Reason
}

// ActionContext is what a guard needs to know about the prayer.
type ActionContext struct {
	Prayer model.PrayerType
	Date   model.CivilDate
	Status model.PrayerStatus
}

func allowed() GuardResult {
	return GuardResult{Allowed: true}
}

func denied(kind error, ctx ActionContext) GuardResult {
	return GuardResult{
		Allowed: false,
		Reason:  fmt.Errorf("%w: %s on %s is %s", kind, ctx.Prayer, ctx.Date, ctx.Status),
	}
}

// CanComplete evaluates whether a prayer can be marked completed.
// Rules:
// - only a pending prayer can be completed
// - a completed prayer reports ErrAlreadyCompleted
// - future, missed and qada prayers are outside their window
func CanComplete(ctx ActionContext) GuardResult {
	switch ctx.Status {
	case model.StatusPending:
		return allowed()
	case model.StatusCompleted:
		return denied(ErrAlreadyCompleted, ctx)
	default:
		return denied(ErrOutsideWindow, ctx)
	}
}

// CanMarkQada evaluates whether a prayer can be marked as qada.
// Rules:
// - only a missed prayer can be marked qada
// - a prayer already marked qada reports ErrAlreadyCompleted
// - future, pending and completed prayers are not eligible
func CanMarkQada(ctx ActionContext) GuardResult {
	switch ctx.Status {
	case model.StatusMissed:
		return allowed()
	case model.StatusQada:
		return denied(ErrAlreadyCompleted, ctx)
	default:
		return denied(ErrNotEligibleForQada, ctx)
	}
}
