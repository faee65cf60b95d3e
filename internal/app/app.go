// Package app wires configuration into a ready prayer core: storage backend,
// prayer time provider chain and completion notifier.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/config"
	"github.com/Nixie-Tech-LLC/salah/internal/db"
	"github.com/Nixie-Tech-LLC/salah/internal/events"
	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
	"github.com/Nixie-Tech-LLC/salah/internal/provider"
	cache "github.com/Nixie-Tech-LLC/salah/internal/redis"
)

// Backend is a storage backend as the binaries use it.
type Backend interface {
	prayer.Store
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	CreateUser(ctx context.Context, u *model.User) error
}

var (
	_ Backend = (*db.Store)(nil)
	_ Backend = (*db.MemoryStore)(nil)
)

type App struct {
	Config    *config.Config
	DB        *sqlx.DB // nil for the memory backend
	Store     Backend
	Provider  prayer.Provider
	Notifier  prayer.Notifier
	Assembler *prayer.Assembler

	closers []func()
}

// New connects every configured collaborator. SQL backends are migrated
// before New returns. On error everything opened so far is closed.
func New(cfg *config.Config) (*App, error) {
	a := &App{Config: cfg}

	if err := a.openStore(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openProvider(); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openNotifier(); err != nil {
		a.Close()
		return nil, err
	}

	a.Assembler = prayer.NewAssembler(a.Store, a.Provider, prayer.WithNotifier(a.Notifier))
	return a, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *App) openStore() error {
	if a.Config.DatabaseDriver == db.DriverMemory {
		log.Warn().Msg("using in-memory storage, nothing survives a restart")
		a.Store = db.NewMemoryStore()
		return nil
	}

	conn, err := db.Init(a.Config.DatabaseDriver, a.Config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("db init: %w", err)
	}
	a.closers = append(a.closers, func() { conn.Close() })

	if err := db.RunMigrations(conn, a.Config.MigrationsPath); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}
	a.DB = conn
	a.Store = db.NewStore(conn)
	return nil
}

func (a *App) openProvider() error {
	cfg := a.Config

	switch cfg.PrayerTimesProvider {
	case "fixed":
		fixed, err := provider.NewFixed(provider.DefaultClock)
		if err != nil {
			return err
		}
		a.Provider = fixed
	default:
		a.Provider = provider.NewAladhan(provider.AladhanOptions{
			BaseURL: cfg.PrayerTimesBaseURL,
			Method:  cfg.PrayerTimesMethod,
			School:  cfg.PrayerTimesSchool,
			Timeout: cfg.PrayerTimesTimeout,
		})
	}

	if cfg.RedisAddress == "" {
		return nil
	}

	rdb := cache.NewClient(cfg.RedisAddress, cfg.RedisUsername, cfg.RedisPassword)
	a.closers = append(a.closers, func() { rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn().Err(err).Str("address", cfg.RedisAddress).Msg("redis unreachable, timings cache will fall through")
	}

	namespace := fmt.Sprintf("%s:method=%d:school=%d", cfg.PrayerTimesProvider, cfg.PrayerTimesMethod, cfg.PrayerTimesSchool)
	a.Provider = cache.NewTimingsCache(rdb, a.Provider, namespace, cfg.TimingsCacheTTL)
	return nil
}

func (a *App) openNotifier() error {
	if a.Config.MQTTBrokerURL == "" {
		a.Notifier = events.Noop{}
		return nil
	}

	pub, err := events.Connect(a.Config.MQTTBrokerURL, a.Config.MQTTClientID)
	if err != nil {
		return err
	}
	a.closers = append(a.closers, pub.Close)
	a.Notifier = pub
	return nil
}
