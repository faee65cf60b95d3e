package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

// CreateUser inserts a new user row. Accounts are owned by the auth service;
// this exists so local setups and tests can seed them.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	const query = `
	INSERT INTO users (id, email, timezone, latitude, longitude, created_at)
	VALUES (:id, :email, :timezone, :latitude, :longitude, :created_at);`
	if _, err := s.db.NamedExecContext(ctx, query, u); err != nil {
		log.Error().Err(err).Str("user_id", u.ID).Msg("failed to create user")
		return err
	}
	return nil
}

// GetUserByID returns prayer.ErrUserNotFound when no row matches.
func (s *Store) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	const query = `
	SELECT id, email, timezone, latitude, longitude, created_at
	FROM users
	WHERE id = ?;`
	err := s.db.GetContext(ctx, &u, s.q(query), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", prayer.ErrUserNotFound, id)
		}
		log.Error().Err(err).Str("user_id", id).Msg("failed to get user by id")
		return nil, err
	}
	return &u, nil
}

func (s *Store) GetUserTimeContext(ctx context.Context, userID string) (*model.UserTimeContext, error) {
	u, err := s.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.TimeContext()
}
