package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/salah/internal/app"
	"github.com/Nixie-Tech-LLC/salah/internal/config"
	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

type harness struct {
	app *app.App
	now time.Time
	loc *time.Location
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("APP_ENV", "test")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("PRAYER_TIMES_PROVIDER", "fixed")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LOG_FILE", "")
	t.Setenv("REDIS_ADDRESS", "")
	t.Setenv("MQTT_BROKER_URL", "")

	noColor := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = noColor })

	cfg, err := config.Load()
	require.NoError(t, err)
	a, err := app.New(cfg)
	require.NoError(t, err)

	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)
	return &harness{app: a, loc: loc, now: time.Date(2025, time.March, 4, 13, 0, 0, 0, loc)}
}

func (h *harness) run(args ...string) (string, error) {
	open := func(*config.Config) (*app.App, error) { return h.app, nil }
	cmd := newRootCmd("test", open, func() time.Time { return h.now })

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// addUser creates u1 as if it had signed up at joined.
func (h *harness) addUser(t *testing.T, joined time.Time) {
	t.Helper()
	now := h.now
	h.now = joined
	out, err := h.run("user", "add", "--id", "u1", "--email", "u1@example.com", "--timezone", "Asia/Kolkata")
	h.now = now
	require.NoError(t, err)
	require.Contains(t, out, "user u1 created")
}

func (h *harness) instances(t *testing.T, day int) []model.PrayerView {
	t.Helper()
	date := model.CivilDate{Year: 2025, Month: time.March, Day: day}
	status, err := h.app.Assembler.GetDayStatus(context.Background(), "u1", date, h.now)
	require.NoError(t, err)
	return status.Prayers
}

func TestUserAdd(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, h.now)

	u, err := h.app.Store.GetUserByID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "Asia/Kolkata", u.Timezone)
	assert.Nil(t, u.Latitude)
	assert.True(t, u.CreatedAt.Equal(h.now))

	t.Run("coordinates", func(t *testing.T) {
		out, err := h.run("user", "add", "--id", "u2", "--email", "u2@example.com", "--latitude", "21.42", "--longitude", "39.83", "--json")
		require.NoError(t, err)
		var got model.User
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		require.NotNil(t, got.Latitude)
		assert.InDelta(t, 21.42, *got.Latitude, 1e-9)
		assert.Equal(t, "UTC", got.Timezone)
	})

	t.Run("latitude without longitude", func(t *testing.T) {
		_, err := h.run("user", "add", "--email", "x@example.com", "--latitude", "1")
		assert.ErrorContains(t, err, "together")
	})

	t.Run("bad timezone", func(t *testing.T) {
		_, err := h.run("user", "add", "--email", "x@example.com", "--timezone", "Mars/Olympus")
		assert.ErrorContains(t, err, "invalid timezone")
	})

	t.Run("duplicate id", func(t *testing.T) {
		_, err := h.run("user", "add", "--id", "u1", "--email", "u1@example.com")
		assert.Error(t, err)
	})
}

func TestUserToken(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, h.now)
	t.Setenv("JWT_SECRET", "local-secret")

	out, err := h.run("user", "token", "--user", "u1", "--ttl", "1h")
	require.NoError(t, err)

	token, err := jwt.Parse(strings.TrimSpace(out), func(*jwt.Token) (any, error) {
		return []byte("local-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "u1", claims["sub"])
	exp, ok := claims["exp"].(float64)
	require.True(t, ok)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), int64(exp), 60)

	t.Run("json", func(t *testing.T) {
		out, err := h.run("user", "token", "--user", "u1", "--json")
		require.NoError(t, err)
		var got tokenOutput
		require.NoError(t, json.Unmarshal([]byte(out), &got))
		assert.Equal(t, "u1", got.UserID)
		assert.NotEmpty(t, got.Token)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := h.run("user", "token", "--user", "nobody")
		assert.ErrorIs(t, err, prayer.ErrUserNotFound)
	})

	t.Run("no secret configured", func(t *testing.T) {
		t.Setenv("JWT_SECRET", "")
		_, err := h.run("user", "token", "--user", "u1")
		assert.ErrorContains(t, err, "JWT_SECRET")
	})
}

func TestDay(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, h.now)

	out, err := h.run("day", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "2025-03-04 (Asia/Kolkata)")
	assert.Regexp(t, `Fajr\s+05:00-12:15\s+\S+\s+missed`, out)
	assert.Regexp(t, `Dhuhr\s+12:15-15:45\s+\S+\s+pending`, out)
	assert.Regexp(t, `Isha\s+19:45-05:00\s+\S+\s+future`, out)
	assert.Contains(t, out, "0 completed, 0 qada, 1 missed, 1 pending, 3 future")

	t.Run("json", func(t *testing.T) {
		out, err := h.run("day", "--user", "u1", "--date", "2025-03-04", "--json")
		require.NoError(t, err)
		assert.Equal(t, model.StatusMissed, statusOf(t, out, 0))
		assert.Equal(t, model.StatusPending, statusOf(t, out, 1))
	})

	t.Run("before account creation", func(t *testing.T) {
		_, err := h.run("day", "--user", "u1", "--date", "2025-03-03")
		assert.ErrorIs(t, err, prayer.ErrOutOfRange)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := h.run("day", "--user", "ghost")
		assert.ErrorIs(t, err, prayer.ErrUserNotFound)
	})

	t.Run("user flag is required", func(t *testing.T) {
		_, err := h.run("day")
		assert.ErrorContains(t, err, `required flag(s) "user" not set`)
	})
}

// statusOf reads the raw status label of prayer i from day JSON.
func statusOf(t *testing.T, raw string, i int) model.PrayerStatus {
	t.Helper()
	var body struct {
		Prayers []struct {
			Status string `json:"status"`
		} `json:"prayers"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &body))
	require.Len(t, body.Prayers, model.PrayerCount)
	for s := model.StatusFuture; s <= model.StatusQada; s++ {
		if s.String() == body.Prayers[i].Status {
			return s
		}
	}
	t.Fatalf("unknown status %q", body.Prayers[i].Status)
	return 0
}

func TestCompleteAndQada(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, h.now)
	prayers := h.instances(t, 4)
	fajr, dhuhr, asr := prayers[0].InstanceID, prayers[1].InstanceID, prayers[2].InstanceID

	out, err := h.run("complete", "--user", "u1", "--instance", dhuhr, "--notes", "masjid")
	require.NoError(t, err)
	assert.Contains(t, out, "Dhuhr on 2025-03-04 recorded as completed")

	rec, err := h.app.Store.Get(context.Background(), dhuhr)
	require.NoError(t, err)
	require.NotNil(t, rec.Notes)
	assert.Equal(t, "masjid", *rec.Notes)

	out, err = h.run("complete", "--user", "u1", "--instance", dhuhr)
	require.NoError(t, err)
	assert.Contains(t, out, "already recorded")

	_, err = h.run("complete", "--user", "u1", "--instance", asr)
	assert.ErrorIs(t, err, prayer.ErrOutsideWindow)

	_, err = h.run("qada", "--user", "u1", "--instance", asr)
	assert.ErrorIs(t, err, prayer.ErrNotEligibleForQada)

	out, err = h.run("qada", "--user", "u1", "--instance", fajr, "--json")
	require.NoError(t, err)
	var got model.CompletionRecord
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, model.CompletionQada, got.Status)
	assert.Nil(t, got.Notes)
}

func TestStreakAndCompletions(t *testing.T) {
	h := newHarness(t)
	h.addUser(t, time.Date(2025, time.March, 1, 9, 0, 0, 0, h.loc))

	ctx := context.Background()
	for day := 1; day <= 3; day++ {
		for _, p := range h.instances(t, day) {
			_, err := h.app.Assembler.MarkQada(ctx, "u1", p.InstanceID, h.now, nil)
			require.NoError(t, err)
		}
	}

	out, err := h.run("streak", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "no streak", "today still has a missed prayer")

	_, err = h.app.Assembler.MarkQada(ctx, "u1", h.instances(t, 4)[0].InstanceID, h.now, nil)
	require.NoError(t, err)

	out, err = h.run("streak", "--user", "u1")
	require.NoError(t, err)
	assert.Contains(t, out, "3 day streak")

	out, err = h.run("streak", "--user", "u1", "--max-days", "2", "--json")
	require.NoError(t, err)
	var streak streakOutput
	require.NoError(t, json.Unmarshal([]byte(out), &streak))
	assert.Equal(t, 1, streak.CurrentStreak)
	assert.True(t, streak.LastUpdated.Equal(h.now))

	t.Run("completions", func(t *testing.T) {
		out, err := h.run("completions", "--user", "u1", "--from", "2025-02-01", "--to", "2025-03-04", "--prayer", "Fajr")
		require.NoError(t, err)
		for _, d := range []string{"2025-03-01", "2025-03-02", "2025-03-03", "2025-03-04"} {
			assert.Regexp(t, d+`\s+Fajr\s+\S+\s+qada`, out)
		}
		assert.NotContains(t, out, "Dhuhr")

		out, err = h.run("completions", "--user", "u1", "--from", "2025-03-02", "--to", "2025-03-02", "--json")
		require.NoError(t, err)
		var entries []model.CompletionEntry
		require.NoError(t, json.Unmarshal([]byte(out), &entries))
		assert.Len(t, entries, model.PrayerCount)

		out, err = h.run("completions", "--user", "u1", "--from", "2025-03-05", "--to", "2025-03-01")
		require.NoError(t, err)
		assert.Contains(t, out, "no prayers recorded")

		_, err = h.run("completions", "--user", "u1", "--from", "2025-03-01", "--to", "2025-03-02", "--prayer", "witr")
		assert.ErrorContains(t, err, "unknown prayer type")
	})
}

func TestMigrateNeedsSQL(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("migrate")
	assert.ErrorContains(t, err, "DATABASE_DRIVER is memory")
}
