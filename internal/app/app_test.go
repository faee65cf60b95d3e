package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/salah/internal/config"
	"github.com/Nixie-Tech-LLC/salah/internal/db"
	"github.com/Nixie-Tech-LLC/salah/internal/events"
	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/provider"
	cache "github.com/Nixie-Tech-LLC/salah/internal/redis"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:         "test",
		DatabaseDriver:      db.DriverMemory,
		MigrationsPath:      "../../migrations",
		PrayerTimesProvider: "fixed",
		TimingsCacheTTL:     time.Hour,
		LogLevel:            "debug",
	}
}

func seedAndRead(t *testing.T, a *App) {
	t.Helper()
	ctx := context.Background()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	require.NoError(t, a.Store.CreateUser(ctx, &model.User{
		ID:        "u1",
		Email:     "u1@example.com",
		Timezone:  "Asia/Kolkata",
		CreatedAt: time.Date(2025, time.March, 1, 8, 0, 0, 0, loc).UTC(),
	}))

	now := time.Date(2025, time.March, 4, 13, 0, 0, 0, loc)
	day, err := a.Assembler.GetDayStatus(ctx, "u1", model.CivilDateOf(now, loc), now)
	require.NoError(t, err)
	require.Len(t, day.Prayers, model.PrayerCount)
	assert.Equal(t, model.StatusPending, day.Prayers[model.Dhuhr].Status)
}

func TestNewMemory(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.DB)
	assert.IsType(t, &db.MemoryStore{}, a.Store)
	assert.IsType(t, &provider.Fixed{}, a.Provider)
	assert.IsType(t, events.Noop{}, a.Notifier)
	seedAndRead(t, a)
}

func TestNewSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseDriver = db.DriverSQLite
	cfg.DatabaseURL = ":memory:"

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	require.NotNil(t, a.DB)
	assert.IsType(t, &db.Store{}, a.Store)
	seedAndRead(t, a)
}

func TestNewMigrationFailure(t *testing.T) {
	cfg := testConfig()
	cfg.DatabaseDriver = db.DriverSQLite
	cfg.DatabaseURL = ":memory:"
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0001_broken.up.sql"), []byte("CREATE TABLE ("), 0o600))
	cfg.MigrationsPath = dir

	_, err := New(cfg)
	assert.ErrorContains(t, err, "db migrate")
}

func TestNewWithRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.RedisAddress = mr.Addr()

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &cache.TimingsCache{}, a.Provider)
	seedAndRead(t, a)
	assert.NotEmpty(t, mr.Keys())
}

func TestNewAladhanProvider(t *testing.T) {
	cfg := testConfig()
	cfg.PrayerTimesProvider = "aladhan"
	cfg.PrayerTimesMethod = 3

	a, err := New(cfg)
	require.NoError(t, err)
	defer a.Close()
	assert.IsType(t, &provider.Aladhan{}, a.Provider)
}

func TestLogger(t *testing.T) {
	dir := t.TempDir()
	var stderr bytes.Buffer

	cfg := testConfig()
	cfg.LogFile = filepath.Join(dir, "salah.log")
	logger, closer := newLogger(cfg, &stderr)
	logger.Info().Str("user_id", "u1").Msg("hello")
	require.NoError(t, closer.Close())

	assert.Contains(t, stderr.String(), `"user_id":"u1"`)
	raw, err := os.ReadFile(cfg.LogFile)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message":"hello"`)

	t.Run("unknown level falls back to info", func(t *testing.T) {
		cfg := testConfig()
		cfg.LogLevel = "chatty"
		var buf bytes.Buffer
		logger, _ := newLogger(cfg, &buf)
		logger.Debug().Msg("hidden")
		logger.Info().Msg("shown")
		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "shown")
	})
}
