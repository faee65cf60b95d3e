package packets

// DayURI addresses one civil date, e.g. /prayers/days/2025-03-04.
type DayURI struct {
	Date string `uri:"date" binding:"required,civildate"`
}

type InstanceURI struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// MarkRequest is the optional body of complete and qada calls.
type MarkRequest struct {
	Notes *string `json:"notes" binding:"omitempty,max=500"`
}

type StreakQuery struct {
	MaxDays int `form:"max_days" binding:"omitempty,min=1,max=365"`
}

type CompletionsQuery struct {
	From   string `form:"from"   binding:"required,civildate"`
	To     string `form:"to"     binding:"required,civildate"`
	Prayer string `form:"prayer" binding:"omitempty,prayertype"`
}
