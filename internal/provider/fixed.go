package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

// DefaultClock is used when no schedule is configured.
var DefaultClock = [model.PrayerCount]string{"05:00", "12:15", "15:45", "18:30", "19:45"}

// Fixed serves the same wall clock times every day in the locality's zone.
// It backs local setups without network access.
type Fixed struct {
	clock [model.PrayerCount]string
}

var _ prayer.Provider = (*Fixed)(nil)

// NewFixed validates the five "HH:MM" times, in prayer order.
func NewFixed(clock [model.PrayerCount]string) (*Fixed, error) {
	probe := model.CivilDate{Year: 2000, Month: time.January, Day: 1}
	for i, raw := range clock {
		if _, err := parseClock(raw, probe, time.UTC); err != nil {
			return nil, fmt.Errorf("%s: %w", model.PrayerType(i), err)
		}
	}
	return &Fixed{clock: clock}, nil
}

func (f *Fixed) DayTimings(ctx context.Context, locality model.Locality, date model.CivilDate) (model.DayTimings, error) {
	loc := time.UTC
	if locality.Timezone != "" {
		var err error
		if loc, err = time.LoadLocation(locality.Timezone); err != nil {
			return model.DayTimings{}, fmt.Errorf("locality timezone %q: %w", locality.Timezone, err)
		}
	}

	out := model.DayTimings{Date: date}
	for i, raw := range f.clock {
		at, err := parseClock(raw, date, loc)
		if err != nil {
			return model.DayTimings{}, fmt.Errorf("%w: %v", prayer.ErrInvalidTimeSeries, err)
		}
		out.Instants[i] = at.UTC()
	}
	return out, nil
}
