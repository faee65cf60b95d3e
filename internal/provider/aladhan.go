// Package provider supplies raw prayer instants to the prayer core.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

const DefaultAladhanURL = "https://api.aladhan.com/v1"

// AladhanOptions selects the calculation convention. Negative values leave
// the choice to the API.
type AladhanOptions struct {
	BaseURL string
	Method  int
	School  int
	Timeout time.Duration
}

// Aladhan fetches prayer times from the Al Adhan timings API.
type Aladhan struct {
	httpClient *http.Client
	baseURL    string
	method     int
	school     int
}

var _ prayer.Provider = (*Aladhan)(nil)

func NewAladhan(opts AladhanOptions) *Aladhan {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultAladhanURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Aladhan{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		method:     opts.Method,
		school:     opts.School,
	}
}

type aladhanResponse struct {
	Code   int    `json:"code"`
	Status string `json:"status"`
	Data   struct {
		Timings map[string]string `json:"timings"`
		Meta    struct {
			Timezone string `json:"timezone"`
		} `json:"meta"`
	} `json:"data"`
}

// DayTimings returns the five instants of date at the locality. Times are
// requested in the locality's zone and read as wall clock times on date.
func (a *Aladhan) DayTimings(ctx context.Context, locality model.Locality, date model.CivilDate) (model.DayTimings, error) {
	loc, err := time.LoadLocation(locality.Timezone)
	if err != nil {
		return model.DayTimings{}, fmt.Errorf("locality timezone %q: %w", locality.Timezone, err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(locality.Latitude, 'f', 6, 64))
	params.Set("longitude", strconv.FormatFloat(locality.Longitude, 'f', 6, 64))
	params.Set("timezonestring", loc.String())
	if a.method >= 0 {
		params.Set("method", strconv.Itoa(a.method))
	}
	if a.school >= 0 {
		params.Set("school", strconv.Itoa(a.school))
	}
	endpoint := fmt.Sprintf("%s/timings/%02d-%02d-%04d?%s", a.baseURL, date.Day, int(date.Month), date.Year, params.Encode())

	resp, err := a.fetch(ctx, endpoint)
	if err != nil {
		log.Error().Err(err).Str("date", date.String()).Msg("prayer times request failed")
		return model.DayTimings{}, err
	}

	out := model.DayTimings{Date: date}
	for _, p := range model.PrayerTypes {
		raw, ok := resp.Data.Timings[p.Title()]
		if !ok || strings.TrimSpace(raw) == "" {
			return model.DayTimings{}, fmt.Errorf("%w: %s missing for %s", prayer.ErrInvalidTimeSeries, p, date)
		}
		at, err := parseClock(raw, date, loc)
		if err != nil {
			return model.DayTimings{}, fmt.Errorf("%w: %s on %s: %v", prayer.ErrInvalidTimeSeries, p, date, err)
		}
		out.Instants[p] = at.UTC()
	}
	return out, nil
}

func (a *Aladhan) fetch(ctx context.Context, endpoint string) (*aladhanResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aladhan request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("aladhan returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out aladhanResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode aladhan response: %w", err)
	}
	if out.Code != http.StatusOK {
		return nil, fmt.Errorf("aladhan error: code=%d status=%s", out.Code, out.Status)
	}
	return &out, nil
}

// parseClock reads "HH:MM", optionally followed by a zone label such as
// " (IST)", as a wall clock time on date in loc.
func parseClock(raw string, date model.CivilDate, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, " "); idx != -1 {
		s = s[:idx]
	}

	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return time.Time{}, fmt.Errorf("invalid time %q", raw)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return time.Time{}, fmt.Errorf("invalid hour in %q", raw)
	}
	min, err := strconv.Atoi(mm)
	if err != nil || min < 0 || min > 59 {
		return time.Time{}, fmt.Errorf("invalid minute in %q", raw)
	}
	return time.Date(date.Year, date.Month, date.Day, hour, min, 0, 0, loc), nil
}
