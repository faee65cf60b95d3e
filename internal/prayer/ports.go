package prayer

import (
	"context"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
)

// Ledger is the append-only store of completion records. Insert must be
// atomic: uniqueness of PrayerInstanceID is enforced by the store itself and
// a duplicate returns ErrAlreadyExists. There is no update or delete.
type Ledger interface {
	// Get returns nil, nil when the instance has no record.
	Get(ctx context.Context, instanceID string) (*model.CompletionRecord, error)
	Insert(ctx context.Context, rec *model.CompletionRecord) error
}

// InstanceStore persists materialized prayer instances.
type InstanceStore interface {
	// ListDayInstances returns the user's instances for a date in prayer order.
	ListDayInstances(ctx context.Context, userID string, date model.CivilDate) ([]model.PrayerInstance, error)
	// SaveDayInstances inserts instances, skipping any (user, prayer, date)
	// that already exists.
	SaveDayInstances(ctx context.Context, instances []model.PrayerInstance) error
	// GetInstance returns ErrInstanceNotFound when id is unknown.
	GetInstance(ctx context.Context, id string) (*model.PrayerInstance, error)
	// ListCompletions returns the user's records for instances dated within
	// [from, to], ordered by date and prayer.
	ListCompletions(ctx context.Context, userID string, from, to model.CivilDate) ([]model.CompletionEntry, error)
}

// UserStore resolves the time context of a user. Unknown users return
// ErrUserNotFound.
type UserStore interface {
	GetUserTimeContext(ctx context.Context, userID string) (*model.UserTimeContext, error)
}

// Provider supplies the raw prayer instants for a locality and civil date.
// How they are computed is opaque to the core.
type Provider interface {
	DayTimings(ctx context.Context, locality model.Locality, date model.CivilDate) (model.DayTimings, error)
}

// Notifier is told about every completion record that reaches the ledger.
type Notifier interface {
	PublishCompletion(ctx context.Context, instance model.PrayerInstance, rec model.CompletionRecord) error
}

// Store is a backend that holds users, instances and the ledger together.
type Store interface {
	UserStore
	InstanceStore
	Ledger
}
