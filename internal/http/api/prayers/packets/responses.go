package packets

import "time"

type CompletionResponse struct {
	ID               string    `json:"id"`
	PrayerInstanceID string    `json:"prayer_instance_id"`
	Status           string    `json:"status"`
	MarkedAt         time.Time `json:"marked_at"`
	Notes            *string   `json:"notes,omitempty"`
}

type PrayerResponse struct {
	InstanceID  string              `json:"instance_id"`
	PrayerType  string              `json:"prayer_type"`
	WindowStart time.Time           `json:"window_start"`
	WindowEnd   time.Time           `json:"window_end"`
	Status      string              `json:"status"`
	CanComplete bool                `json:"can_complete"`
	CanMarkQada bool                `json:"can_mark_qada"`
	Completion  *CompletionResponse `json:"completion,omitempty"`
}

type DayResponse struct {
	Date     string           `json:"date"`
	Timezone string           `json:"timezone"`
	Prayers  []PrayerResponse `json:"prayers"`
}

type SummaryResponse struct {
	Date      string `json:"date"`
	Total     int    `json:"total_prayers"`
	Future    int    `json:"future"`
	Pending   int    `json:"pending"`
	Missed    int    `json:"missed"`
	Completed int    `json:"completed"`
	Qada      int    `json:"qada"`
}

type StreakResponse struct {
	CurrentStreak int       `json:"current_streak"`
	LastUpdated   time.Time `json:"last_updated"`
}

type CompletionEntryResponse struct {
	Date       string             `json:"date"`
	PrayerType string             `json:"prayer_type"`
	Completion CompletionResponse `json:"completion"`
}
