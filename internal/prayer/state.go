package prayer

import (
	"time"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
)

// Resolve computes the status of a prayer from its window, its completion
// record (nil when absent) and the current instant.
//
// A record always wins. Without one, now and the window bounds are compared
// at whole-second granularity and the second at the window's end still belongs to the window,
// so a prayer ending at 15:45:00 is pending at 15:45:00 and missed at 15:45:01.
func Resolve(w Window, rec *model.CompletionRecord, now time.Time) model.PrayerStatus {
	if rec != nil {
		if rec.Status == model.CompletionQada {
			return model.StatusQada
		}
		return model.StatusCompleted
	}

	switch {
	case w.Contains(now):
		return model.StatusPending
	case wholeSecond(now).Before(wholeSecond(w.Start)):
		return model.StatusFuture
	default:
		return model.StatusMissed
	}
}
