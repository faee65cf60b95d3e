// Package prayer is the time-driven state machine behind prayer tracking:
// window calculation, status resolution, action guards and the day assembler
// that ties them to a store and a prayer time provider.
package prayer

import (
	"fmt"
	"time"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
)

// Window is the time window of one prayer. Start and End are UTC and End is
// the next prayer's Start.
type Window struct {
	Prayer model.PrayerType
	Start  time.Time
	End    time.Time
}

// Contains reports whether at falls inside the window, both bounds included.
// Instants are compared at whole-second granularity.
func (w Window) Contains(at time.Time) bool {
	at = wholeSecond(at)
	return !at.Before(wholeSecond(w.Start)) && !at.After(wholeSecond(w.End))
}

func wholeSecond(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// WindowOf returns the window stored on a materialized instance.
func WindowOf(in model.PrayerInstance) Window {
	return Window{Prayer: in.PrayerType, Start: in.WindowStart.UTC(), End: in.WindowEnd.UTC()}
}

// CalculateWindows turns a day's five provider instants and the following
// day's Fajr into five contiguous windows: each window ends where the next
// begins and Isha ends at the next Fajr. Incomplete or non-monotonic input is
// rejected with ErrInvalidTimeSeries.
func CalculateWindows(day model.DayTimings, nextFajr time.Time) ([model.PrayerCount]Window, error) {
	var out [model.PrayerCount]Window

	var series [model.PrayerCount + 1]time.Time
	copy(series[:], day.Instants[:])
	series[model.PrayerCount] = nextFajr

	for i, at := range series {
		if at.IsZero() {
			name := "next fajr"
			if i < model.PrayerCount {
				name = model.PrayerType(i).String()
			}
			return out, fmt.Errorf("%w: %s missing for %s", ErrInvalidTimeSeries, name, day.Date)
		}
		series[i] = wholeSecond(at)
	}

	for i, p := range model.PrayerTypes {
		start, end := series[i], series[i+1]
		if !end.After(start) {
			return out, fmt.Errorf("%w: %s on %s starts at %s but ends at %s",
				ErrInvalidTimeSeries, p, day.Date, start.Format(time.RFC3339), end.Format(time.RFC3339))
		}
		out[i] = Window{Prayer: p, Start: start, End: end}
	}

	return out, nil
}
