package endpoints

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/http/api"
	"github.com/Nixie-Tech-LLC/salah/internal/http/api/prayers/packets"
	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

// PrayerService is the part of the prayer core the endpoints call.
type PrayerService interface {
	GetDayStatus(ctx context.Context, userID string, date model.CivilDate, now time.Time) (*model.DayStatus, error)
	Summarize(ctx context.Context, userID string, date model.CivilDate, now time.Time) (*model.DaySummary, error)
	Streak(ctx context.Context, userID string, now time.Time, maxDays int) (int, error)
	ListCompletions(ctx context.Context, userID string, from, to model.CivilDate) ([]model.CompletionEntry, error)
	Complete(ctx context.Context, userID, instanceID string, now time.Time, notes *string) (*model.CompletionRecord, error)
	MarkQada(ctx context.Context, userID, instanceID string, now time.Time, notes *string) (*model.CompletionRecord, error)
}

var _ PrayerService = (*prayer.Assembler)(nil)

type PrayerController struct {
	service PrayerService
	now     func() time.Time
}

func newPrayerController(service PrayerService, now func() time.Time) *PrayerController {
	if now == nil {
		now = time.Now
	}
	return &PrayerController{service: service, now: now}
}

// PrayerModule mounts all authenticated /prayers endpoints. now is read once
// per request and passed down as that request's current instant.
func PrayerModule(service PrayerService, now func() time.Time) api.Module {
	ctl := newPrayerController(service, now)
	return api.ModuleFunc(func(c *api.Controller) {
		c.GET("/prayers/days/:date", ctl.getDay)
		c.GET("/prayers/days/:date/summary", ctl.getSummary)
		c.POST("/prayers/:id/complete", ctl.complete)
		c.POST("/prayers/:id/qada", ctl.markQada)
		c.GET("/prayers/streak", ctl.getStreak)
		c.GET("/prayers/completions", ctl.listCompletions)
	})
}

// HealthModule mounts the public liveness probe.
func HealthModule() api.Module {
	return api.ModuleFunc(func(c *api.Controller) {
		c.PUBLIC_GET("/ping", func(ctx *gin.Context) (any, *api.APIError) {
			return gin.H{"status": "ok"}, nil
		})
	})
}

func mapCompletion(rec *model.CompletionRecord) *packets.CompletionResponse {
	if rec == nil {
		return nil
	}
	return &packets.CompletionResponse{
		ID:               rec.ID,
		PrayerInstanceID: rec.PrayerInstanceID,
		Status:           string(rec.Status),
		MarkedAt:         rec.MarkedAt.UTC(),
		Notes:            rec.Notes,
	}
}

func mapDay(day *model.DayStatus) packets.DayResponse {
	prayers := make([]packets.PrayerResponse, len(day.Prayers))
	for i, p := range day.Prayers {
		prayers[i] = packets.PrayerResponse{
			InstanceID:  p.InstanceID,
			PrayerType:  p.PrayerType.String(),
			WindowStart: p.WindowStart,
			WindowEnd:   p.WindowEnd,
			Status:      p.Status.String(),
			CanComplete: p.CanComplete,
			CanMarkQada: p.CanMarkQada,
			Completion:  mapCompletion(p.Completion),
		}
	}
	return packets.DayResponse{
		Date:     day.Date.String(),
		Timezone: day.Timezone,
		Prayers:  prayers,
	}
}

func bindDate(ctx *gin.Context) (model.CivilDate, *api.APIError) {
	var uri packets.DayURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		return model.CivilDate{}, &api.APIError{Code: http.StatusBadRequest, Message: "date must be YYYY-MM-DD"}
	}
	date, err := model.ParseCivilDate(uri.Date)
	if err != nil {
		return model.CivilDate{}, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	return date, nil
}

// ===== Handlers (AuthHandlerFunc signatures) =====

// GET /api/prayers/days/:date
func (p *PrayerController) getDay(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	date, apiErr := bindDate(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	day, err := p.service.GetDayStatus(ctx.Request.Context(), user.ID, date, p.now())
	if err != nil {
		return nil, api.FromError(err)
	}
	return mapDay(day), nil
}

// GET /api/prayers/days/:date/summary
func (p *PrayerController) getSummary(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	date, apiErr := bindDate(ctx)
	if apiErr != nil {
		return nil, apiErr
	}

	s, err := p.service.Summarize(ctx.Request.Context(), user.ID, date, p.now())
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.SummaryResponse{
		Date:      s.Date.String(),
		Total:     s.Total,
		Future:    s.Future,
		Pending:   s.Pending,
		Missed:    s.Missed,
		Completed: s.Completed,
		Qada:      s.Qada,
	}, nil
}

// POST /api/prayers/:id/complete
func (p *PrayerController) complete(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	return p.mark(ctx, user, p.service.Complete)
}

// POST /api/prayers/:id/qada
func (p *PrayerController) markQada(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	return p.mark(ctx, user, p.service.MarkQada)
}

type markFunc func(ctx context.Context, userID, instanceID string, now time.Time, notes *string) (*model.CompletionRecord, error)

func (p *PrayerController) mark(ctx *gin.Context, user *model.User, fn markFunc) (any, *api.APIError) {
	var uri packets.InstanceURI
	if err := ctx.ShouldBindUri(&uri); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: "invalid prayer id"}
	}

	// the body is optional
	var req packets.MarkRequest
	if err := ctx.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	rec, err := fn(ctx.Request.Context(), user.ID, uri.ID, p.now(), req.Notes)
	if err != nil {
		if prayer.IsConflict(err) {
			log.Debug().Str("user_id", user.ID).Str("instance_id", uri.ID).Msg("[prayers] duplicate mark")
		}
		return nil, api.FromError(err)
	}
	return mapCompletion(rec), nil
}

// GET /api/prayers/streak
func (p *PrayerController) getStreak(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var q packets.StreakQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	now := p.now()
	n, err := p.service.Streak(ctx.Request.Context(), user.ID, now, q.MaxDays)
	if err != nil {
		return nil, api.FromError(err)
	}
	return packets.StreakResponse{CurrentStreak: n, LastUpdated: now.UTC()}, nil
}

// GET /api/prayers/completions
func (p *PrayerController) listCompletions(ctx *gin.Context, user *model.User) (any, *api.APIError) {
	var q packets.CompletionsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	from, err := model.ParseCivilDate(q.From)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}
	to, err := model.ParseCivilDate(q.To)
	if err != nil {
		return nil, &api.APIError{Code: http.StatusBadRequest, Message: err.Error()}
	}

	entries, err := p.service.ListCompletions(ctx.Request.Context(), user.ID, from, to)
	if err != nil {
		return nil, api.FromError(err)
	}

	filter, _ := model.ParsePrayerType(q.Prayer)
	out := make([]packets.CompletionEntryResponse, 0, len(entries))
	for _, e := range entries {
		if q.Prayer != "" && e.Instance.PrayerType != filter {
			continue
		}
		out = append(out, packets.CompletionEntryResponse{
			Date:       e.Instance.CivilDate.String(),
			PrayerType: e.Instance.PrayerType.String(),
			Completion: *mapCompletion(&e.Record),
		})
	}
	return out, nil
}
