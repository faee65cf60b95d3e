package prayer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
)

// DefaultStreakDays bounds how far back Streak looks.
const DefaultStreakDays = 30

// Assembler answers day queries and records completions for users. It holds
// no locks: concurrent writers for the same instance are arbitrated by the
// ledger's uniqueness constraint.
type Assembler struct {
	users     UserStore
	instances InstanceStore
	ledger    Ledger
	provider  Provider
	notifier  Notifier
	newID     func() string
}

type Option func(*Assembler)

// WithNotifier publishes every new completion record to n.
func WithNotifier(n Notifier) Option {
	return func(a *Assembler) { a.notifier = n }
}

// WithIDGenerator replaces the uuid generator used for new rows.
func WithIDGenerator(gen func() string) Option {
	return func(a *Assembler) { a.newID = gen }
}

func NewAssembler(store Store, provider Provider, opts ...Option) *Assembler {
	a := &Assembler{
		users:     store,
		instances: store,
		ledger:    store,
		provider:  provider,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// GetDayStatus returns the five prayers of date for the user as seen at now.
// Instances are materialized from the provider the first time a date is asked
// for and read back from the store afterwards.
func (a *Assembler) GetDayStatus(ctx context.Context, userID string, date model.CivilDate, now time.Time) (*model.DayStatus, error) {
	tc, err := a.users.GetUserTimeContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	return a.dayStatus(ctx, tc, date, now)
}

// Summarize counts the prayers of date per status.
func (a *Assembler) Summarize(ctx context.Context, userID string, date model.CivilDate, now time.Time) (*model.DaySummary, error) {
	day, err := a.GetDayStatus(ctx, userID, date, now)
	if err != nil {
		return nil, err
	}

	summary := &model.DaySummary{Date: day.Date, Total: len(day.Prayers)}
	for _, p := range day.Prayers {
		switch p.Status {
		case model.StatusFuture:
			summary.Future++
		case model.StatusPending:
			summary.Pending++
		case model.StatusMissed:
			summary.Missed++
		case model.StatusCompleted:
			summary.Completed++
		case model.StatusQada:
			summary.Qada++
		}
	}
	return summary, nil
}

// Streak counts consecutive civil days, ending today in the user's zone, on
// which every prayer reached a terminal status. A day whose prayers are still
// ahead of or inside their windows is skipped rather than counted, so the
// streak holds between midnight and fajr while the previous isha is open.
// Only a missed prayer breaks it.
func (a *Assembler) Streak(ctx context.Context, userID string, now time.Time, maxDays int) (int, error) {
	tc, err := a.users.GetUserTimeContext(ctx, userID)
	if err != nil {
		return 0, err
	}
	if maxDays <= 0 {
		maxDays = DefaultStreakDays
	}

	first := tc.FirstDate()
	today := model.CivilDateOf(now, tc.Location)

	streak := 0
	for i := 0; i < maxDays; i++ {
		date := today.AddDays(-i)
		if date.Before(first) {
			break
		}

		day, err := a.dayStatus(ctx, tc, date, now)
		if err != nil {
			return 0, err
		}
		if allTerminal(day) {
			streak++
			continue
		}
		if anyMissed(day) {
			break
		}
	}
	return streak, nil
}

// ListCompletions returns the user's completion records for instances dated
// within [from, to]. The range is clamped to the account's first date.
func (a *Assembler) ListCompletions(ctx context.Context, userID string, from, to model.CivilDate) ([]model.CompletionEntry, error) {
	tc, err := a.users.GetUserTimeContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if first := tc.FirstDate(); from.Before(first) {
		from = first
	}
	if to.Before(from) {
		return []model.CompletionEntry{}, nil
	}
	return a.instances.ListCompletions(ctx, userID, from, to)
}

// Complete records an ordinary completion. It succeeds only while the prayer
// is pending.
func (a *Assembler) Complete(ctx context.Context, userID, instanceID string, now time.Time, notes *string) (*model.CompletionRecord, error) {
	return a.record(ctx, userID, instanceID, now, notes, model.CompletionCompleted)
}

// MarkQada records a make-up for a missed prayer. It succeeds only once the
// prayer's window has lapsed without a completion.
func (a *Assembler) MarkQada(ctx context.Context, userID, instanceID string, now time.Time, notes *string) (*model.CompletionRecord, error) {
	return a.record(ctx, userID, instanceID, now, notes, model.CompletionQada)
}

func (a *Assembler) record(ctx context.Context, userID, instanceID string, now time.Time, notes *string, status model.CompletionStatus) (*model.CompletionRecord, error) {
	in, err := a.instances.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if in.UserID != userID {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, instanceID)
	}

	tc, err := a.users.GetUserTimeContext(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := checkRange(tc, in.CivilDate); err != nil {
		return nil, err
	}

	existing, err := a.ledger.Get(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("load completion for %s: %w", in.ID, err)
	}

	actx := ActionContext{
		Prayer: in.PrayerType,
		Date:   in.CivilDate,
		Status: Resolve(WindowOf(*in), existing, now),
	}
	guard := CanComplete(actx)
	if status == model.CompletionQada {
		guard = CanMarkQada(actx)
	}
	if err := guard.Error(); err != nil {
		if errors.Is(err, ErrAlreadyCompleted) {
			log.Debug().Str("instance_id", in.ID).Str("status", string(status)).Msg("duplicate completion request")
		}
		return nil, err
	}

	rec := &model.CompletionRecord{
		ID:               a.newID(),
		PrayerInstanceID: in.ID,
		UserID:           userID,
		Status:           status,
		MarkedAt:         now.UTC(),
		Notes:            notes,
	}
	if err := a.ledger.Insert(ctx, rec); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			log.Debug().Str("instance_id", in.ID).Str("status", string(status)).Msg("completion lost race to concurrent writer")
			return nil, fmt.Errorf("%w: %s on %s", ErrAlreadyCompleted, in.PrayerType, in.CivilDate)
		}
		return nil, fmt.Errorf("record %s for %s: %w", status, in.ID, err)
	}

	log.Info().
		Str("user_id", userID).
		Str("prayer", in.PrayerType.String()).
		Str("date", in.CivilDate.String()).
		Str("status", string(status)).
		Msg("prayer recorded")

	if a.notifier != nil {
		if err := a.notifier.PublishCompletion(ctx, *in, *rec); err != nil {
			log.Warn().Err(err).Str("instance_id", in.ID).Msg("failed to publish completion")
		}
	}
	return rec, nil
}

func (a *Assembler) dayStatus(ctx context.Context, tc *model.UserTimeContext, date model.CivilDate, now time.Time) (*model.DayStatus, error) {
	if err := checkRange(tc, date); err != nil {
		return nil, err
	}

	instances, err := a.dayInstances(ctx, tc, date)
	if err != nil {
		return nil, err
	}

	day := &model.DayStatus{
		UserID:   tc.UserID,
		Date:     date,
		Timezone: tc.Timezone,
		Prayers:  make([]model.PrayerView, 0, len(instances)),
	}
	for _, in := range instances {
		rec, err := a.ledger.Get(ctx, in.ID)
		if err != nil {
			return nil, fmt.Errorf("load completion for %s: %w", in.ID, err)
		}
		day.Prayers = append(day.Prayers, view(in, rec, now))
	}
	return day, nil
}

// dayInstances loads the day's instances, materializing them on first use.
// Two concurrent first reads both insert; the store keeps whichever landed
// first and the reload returns it to both.
func (a *Assembler) dayInstances(ctx context.Context, tc *model.UserTimeContext, date model.CivilDate) ([]model.PrayerInstance, error) {
	existing, err := a.instances.ListDayInstances(ctx, tc.UserID, date)
	if err != nil {
		return nil, fmt.Errorf("load prayers for %s: %w", date, err)
	}
	if len(existing) == model.PrayerCount {
		return existing, nil
	}

	today, err := a.provider.DayTimings(ctx, tc.Locality, date)
	if err != nil {
		return nil, fmt.Errorf("prayer times for %s: %w", date, err)
	}
	if today.Date.IsZero() {
		today.Date = date
	}
	next, err := a.provider.DayTimings(ctx, tc.Locality, date.AddDays(1))
	if err != nil {
		return nil, fmt.Errorf("prayer times for %s: %w", date.AddDays(1), err)
	}

	windows, err := CalculateWindows(today, next.Instants[model.Fajr])
	if err != nil {
		log.Error().Err(err).Str("user_id", tc.UserID).Str("date", date.String()).Msg("provider returned unusable prayer times")
		return nil, err
	}

	created := time.Now().UTC()
	instances := make([]model.PrayerInstance, 0, model.PrayerCount)
	for _, w := range windows {
		instances = append(instances, model.PrayerInstance{
			ID:          a.newID(),
			UserID:      tc.UserID,
			PrayerType:  w.Prayer,
			CivilDate:   date,
			WindowStart: w.Start,
			WindowEnd:   w.End,
			CreatedAt:   created,
		})
	}
	if err := a.instances.SaveDayInstances(ctx, instances); err != nil {
		return nil, fmt.Errorf("save prayers for %s: %w", date, err)
	}

	saved, err := a.instances.ListDayInstances(ctx, tc.UserID, date)
	if err != nil {
		return nil, fmt.Errorf("load prayers for %s: %w", date, err)
	}
	if len(saved) != model.PrayerCount {
		return nil, fmt.Errorf("materialized %d prayers for %s, want %d", len(saved), date, model.PrayerCount)
	}
	return saved, nil
}

func view(in model.PrayerInstance, rec *model.CompletionRecord, now time.Time) model.PrayerView {
	status := Resolve(WindowOf(in), rec, now)
	actx := ActionContext{Prayer: in.PrayerType, Date: in.CivilDate, Status: status}
	return model.PrayerView{
		InstanceID:  in.ID,
		PrayerType:  in.PrayerType,
		WindowStart: in.WindowStart.UTC(),
		WindowEnd:   in.WindowEnd.UTC(),
		Status:      status,
		CanComplete: CanComplete(actx).Allowed,
		CanMarkQada: CanMarkQada(actx).Allowed,
		Completion:  rec,
	}
}

func checkRange(tc *model.UserTimeContext, date model.CivilDate) error {
	if first := tc.FirstDate(); date.Before(first) {
		return fmt.Errorf("%w: %s is before %s", ErrOutOfRange, date, first)
	}
	return nil
}

func allTerminal(day *model.DayStatus) bool {
	if len(day.Prayers) != model.PrayerCount {
		return false
	}
	for _, p := range day.Prayers {
		if !p.Status.Terminal() {
			return false
		}
	}
	return true
}

func anyMissed(day *model.DayStatus) bool {
	for _, p := range day.Prayers {
		if p.Status == model.StatusMissed {
			return true
		}
	}
	return false
}
