package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// PrayerType is one of the five daily prayers. The declaration order is the
// order prayers occur in a day and defines which prayer's start closes the
// previous prayer's window.
type PrayerType int

const (
	Fajr PrayerType = iota
	Dhuhr
	Asr
	Maghrib
	Isha
)

// PrayerCount is the number of daily prayers tracked.
const PrayerCount = 5

// PrayerTypes lists every prayer in day order.
var PrayerTypes = [PrayerCount]PrayerType{Fajr, Dhuhr, Asr, Maghrib, Isha}

var prayerNames = [PrayerCount]string{"fajr", "dhuhr", "asr", "maghrib", "isha"}

func (p PrayerType) Valid() bool {
	return p >= Fajr && p <= Isha
}

func (p PrayerType) String() string {
	if !p.Valid() {
		return fmt.Sprintf("PrayerType(%d)", int(p))
	}
	return prayerNames[p]
}

// Title returns the capitalised name used by prayer time providers ("Dhuhr").
func (p PrayerType) Title() string {
	s := p.String()
	return strings.ToUpper(s[:1]) + s[1:]
}

// ParsePrayerType accepts the lower-case or capitalised prayer name.
func ParsePrayerType(s string) (PrayerType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range prayerNames {
		if n == name {
			return PrayerType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown prayer type %q", s)
}

func (p PrayerType) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid prayer type %d", int(p))
	}
	return []byte(p.String()), nil
}

func (p *PrayerType) UnmarshalText(b []byte) error {
	v, err := ParsePrayerType(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Value stores the prayer type by name so rows stay readable.
func (p PrayerType) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid prayer type %d", int(p))
	}
	return p.String(), nil
}

func (p *PrayerType) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	default:
		return fmt.Errorf("cannot scan %T into PrayerType", src)
	}
}

// PrayerInstance is one occurrence of one prayer on one civil date for one
// user. The window is [WindowStart, WindowEnd] in UTC and WindowEnd equals the
// next prayer's WindowStart.
type PrayerInstance struct {
	ID          string     `db:"id"           json:"id"`
	UserID      string     `db:"user_id"      json:"user_id"`
	PrayerType  PrayerType `db:"prayer_type"  json:"prayer_type"`
	CivilDate   CivilDate  `db:"civil_date"   json:"civil_date"`
	WindowStart time.Time  `db:"window_start" json:"window_start"`
	WindowEnd   time.Time  `db:"window_end"   json:"window_end"`
	CreatedAt   time.Time  `db:"created_at"   json:"created_at"`
}

// DayTimings holds the raw provider instants for the five prayers of one civil
// date, indexed by PrayerType. A zero instant means the provider did not
// return that prayer.
type DayTimings struct {
	Date     CivilDate
	Instants [PrayerCount]time.Time
}

// Locality is what a prayer time provider needs to compute a day's timings.
type Locality struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}
