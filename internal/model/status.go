package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

// PrayerStatus is the derived, mutually exclusive state of a prayer instance.
// It is recomputed on every read and never stored.
type PrayerStatus int

const (
	StatusFuture PrayerStatus = iota
	StatusPending
	StatusMissed
	StatusCompleted
	StatusQada
)

var statusNames = [...]string{"future", "pending", "missed", "completed", "qada"}

func (s PrayerStatus) String() string {
	if s < StatusFuture || s > StatusQada {
		return fmt.Sprintf("PrayerStatus(%d)", int(s))
	}
	return statusNames[s]
}

// Terminal reports whether no further status-changing action is accepted.
func (s PrayerStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusQada
}

func (s PrayerStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CompletionStatus is the terminal status written to the ledger.
type CompletionStatus string

const (
	CompletionCompleted CompletionStatus = "completed"
	CompletionQada      CompletionStatus = "qada"
)

// ParseCompletionStatus accepts "jamaat" as the legacy label for an ordinary
// completion.
func ParseCompletionStatus(s string) (CompletionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "jamaat":
		return CompletionCompleted, nil
	case "qada":
		return CompletionQada, nil
	default:
		return "", fmt.Errorf("unknown completion status %q", s)
	}
}

func (c CompletionStatus) Value() (driver.Value, error) {
	if c != CompletionCompleted && c != CompletionQada {
		return nil, fmt.Errorf("invalid completion status %q", string(c))
	}
	return string(c), nil
}

func (c *CompletionStatus) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into CompletionStatus", src)
	}
	parsed, err := ParseCompletionStatus(raw)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// CompletionRecord is the single terminal ledger entry for a prayer instance.
type CompletionRecord struct {
	ID               string           `db:"id"                 json:"id"`
	PrayerInstanceID string           `db:"prayer_instance_id" json:"prayer_instance_id"`
	UserID           string           `db:"user_id"            json:"user_id"`
	Status           CompletionStatus `db:"status"             json:"status"`
	MarkedAt         time.Time        `db:"marked_at"          json:"marked_at"`
	Notes            *string          `db:"notes"              json:"notes,omitempty"`
}

// PrayerView is one prayer of an assembled day, ready to be rendered without
// re-deriving the state machine.
type PrayerView struct {
	InstanceID  string            `json:"instance_id"`
	PrayerType  PrayerType        `json:"prayer_type"`
	WindowStart time.Time         `json:"window_start"`
	WindowEnd   time.Time         `json:"window_end"`
	Status      PrayerStatus      `json:"status"`
	CanComplete bool              `json:"can_complete"`
	CanMarkQada bool              `json:"can_mark_qada"`
	Completion  *CompletionRecord `json:"completion,omitempty"`
}

// DayStatus is the full status set for one user and civil date.
type DayStatus struct {
	UserID   string       `json:"user_id"`
	Date     CivilDate    `json:"date"`
	Timezone string       `json:"timezone"`
	Prayers  []PrayerView `json:"prayers"`
}

// DaySummary counts a day's prayers per status.
type DaySummary struct {
	Date      CivilDate `json:"date"`
	Total     int       `json:"total_prayers"`
	Future    int       `json:"future"`
	Pending   int       `json:"pending"`
	Missed    int       `json:"missed"`
	Completed int       `json:"completed"`
	Qada      int       `json:"qada"`
}

// CompletionEntry is a ledger record together with the instance it closes.
type CompletionEntry struct {
	Instance PrayerInstance   `json:"prayer"`
	Record   CompletionRecord `json:"completion"`
}
