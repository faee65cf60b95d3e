package model

import (
	"fmt"
	"time"
)

type User struct {
	ID        string    `db:"id"         json:"id"`
	Email     string    `db:"email"      json:"email"`
	Timezone  string    `db:"timezone"   json:"timezone"`
	Latitude  *float64  `db:"latitude"   json:"latitude"`
	Longitude *float64  `db:"longitude"  json:"longitude"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// UserTimeContext is everything the prayer core needs to know about a user.
type UserTimeContext struct {
	UserID           string
	Timezone         string
	Location         *time.Location
	Locality         Locality
	AccountCreatedAt time.Time
}

// FirstDate is the earliest civil date for which state may be answered.
func (u UserTimeContext) FirstDate() CivilDate {
	return CivilDateOf(u.AccountCreatedAt, u.Location)
}

// TimeContext resolves the user's timezone. A user without coordinates gets a
// zero locality; the provider decides whether that is usable.
func (u User) TimeContext() (*UserTimeContext, error) {
	tz := u.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("user %s has invalid timezone %q: %w", u.ID, tz, err)
	}
	locality := Locality{Timezone: tz}
	if u.Latitude != nil && u.Longitude != nil {
		locality.Latitude = *u.Latitude
		locality.Longitude = *u.Longitude
	}
	return &UserTimeContext{
		UserID:           u.ID,
		Timezone:         tz,
		Location:         loc,
		Locality:         locality,
		AccountCreatedAt: u.CreatedAt.UTC(),
	}, nil
}
