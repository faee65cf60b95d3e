package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

// Get returns the completion record of an instance, or nil when there is none.
func (s *Store) Get(ctx context.Context, instanceID string) (*model.CompletionRecord, error) {
	var rec model.CompletionRecord
	const query = `
	SELECT id, prayer_instance_id, user_id, status, marked_at, notes
	  FROM prayer_completions
	 WHERE prayer_instance_id = ?;`
	if err := s.db.GetContext(ctx, &rec, s.q(query), instanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		log.Error().Err(err).Str("instance_id", instanceID).Msg("get completion failed")
		return nil, err
	}
	return &rec, nil
}

// Insert appends a record. The unique key on prayer_instance_id decides
// between concurrent writers; the loser gets prayer.ErrAlreadyExists.
func (s *Store) Insert(ctx context.Context, rec *model.CompletionRecord) error {
	const query = `
	INSERT INTO prayer_completions (id, prayer_instance_id, user_id, status, marked_at, notes)
	VALUES (:id, :prayer_instance_id, :user_id, :status, :marked_at, :notes);`
	if _, err := s.db.NamedExecContext(ctx, query, rec); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", prayer.ErrAlreadyExists, rec.PrayerInstanceID)
		}
		log.Error().Err(err).Str("instance_id", rec.PrayerInstanceID).Msg("insert completion failed")
		return err
	}
	return nil
}

type completionRow struct {
	ID               string                 `db:"id"`
	PrayerInstanceID string                 `db:"prayer_instance_id"`
	UserID           string                 `db:"user_id"`
	Status           model.CompletionStatus `db:"status"`
	MarkedAt         time.Time              `db:"marked_at"`
	Notes            *string                `db:"notes"`
	PrayerType       model.PrayerType       `db:"prayer_type"`
	CivilDate        model.CivilDate        `db:"civil_date"`
	WindowStart      time.Time              `db:"window_start"`
	WindowEnd        time.Time              `db:"window_end"`
	InstanceCreated  time.Time              `db:"instance_created_at"`
}

func (s *Store) ListCompletions(ctx context.Context, userID string, from, to model.CivilDate) ([]model.CompletionEntry, error) {
	var rows []completionRow
	const query = `
	SELECT c.id, c.prayer_instance_id, c.user_id, c.status, c.marked_at, c.notes,
	       i.prayer_type, i.civil_date, i.window_start, i.window_end,
	       i.created_at AS instance_created_at
	  FROM prayer_completions c
	  JOIN prayer_instances i ON i.id = c.prayer_instance_id
	 WHERE c.user_id = ? AND i.civil_date >= ? AND i.civil_date <= ?
	 ORDER BY i.civil_date,
	          CASE i.prayer_type
	            WHEN 'fajr' THEN 0
	            WHEN 'dhuhr' THEN 1
	            WHEN 'asr' THEN 2
	            WHEN 'maghrib' THEN 3
	            ELSE 4
	          END;`
	if err := s.db.SelectContext(ctx, &rows, s.q(query), userID, from, to); err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("ListCompletions failed")
		return nil, err
	}

	out := make([]model.CompletionEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.CompletionEntry{
			Instance: model.PrayerInstance{
				ID:          r.PrayerInstanceID,
				UserID:      r.UserID,
				PrayerType:  r.PrayerType,
				CivilDate:   r.CivilDate,
				WindowStart: r.WindowStart,
				WindowEnd:   r.WindowEnd,
				CreatedAt:   r.InstanceCreated,
			},
			Record: model.CompletionRecord{
				ID:               r.ID,
				PrayerInstanceID: r.PrayerInstanceID,
				UserID:           r.UserID,
				Status:           r.Status,
				MarkedAt:         r.MarkedAt,
				Notes:            r.Notes,
			},
		})
	}
	return out, nil
}
