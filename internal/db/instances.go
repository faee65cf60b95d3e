package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

func (s *Store) ListDayInstances(ctx context.Context, userID string, date model.CivilDate) ([]model.PrayerInstance, error) {
	var out []model.PrayerInstance
	const query = `
	SELECT id, user_id, prayer_type, civil_date, window_start, window_end, created_at
	  FROM prayer_instances
	 WHERE user_id = ? AND civil_date = ?;`
	if err := s.db.SelectContext(ctx, &out, s.q(query), userID, date); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("date", date.String()).Msg("ListDayInstances failed")
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PrayerType < out[j].PrayerType })
	return out, nil
}

// SaveDayInstances inserts the day's instances in one transaction. Rows that
// collide on (user_id, prayer_type, civil_date) are left as they are, so two
// requests materializing the same day both end up reading the first writer's
// windows.
func (s *Store) SaveDayInstances(ctx context.Context, instances []model.PrayerInstance) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const query = `
	INSERT INTO prayer_instances
	  (id, user_id, prayer_type, civil_date, window_start, window_end, created_at)
	VALUES
	  (:id, :user_id, :prayer_type, :civil_date, :window_start, :window_end, :created_at)
	ON CONFLICT (user_id, prayer_type, civil_date) DO NOTHING;`
	for _, in := range instances {
		if _, err := tx.NamedExecContext(ctx, query, in); err != nil {
			log.Error().Err(err).
				Str("user_id", in.UserID).
				Str("prayer", in.PrayerType.String()).
				Str("date", in.CivilDate.String()).
				Msg("SaveDayInstances failed")
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) GetInstance(ctx context.Context, id string) (*model.PrayerInstance, error) {
	var in model.PrayerInstance
	const query = `
	SELECT id, user_id, prayer_type, civil_date, window_start, window_end, created_at
	  FROM prayer_instances
	 WHERE id = ?;`
	if err := s.db.GetContext(ctx, &in, s.q(query), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", prayer.ErrInstanceNotFound, id)
		}
		log.Error().Err(err).Str("instance_id", id).Msg("GetInstance failed")
		return nil, err
	}
	return &in, nil
}
