package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds environment-based settings
type Config struct {
	Environment    string
	ServerAddress  string
	DatabaseDriver string
	DatabaseURL    string
	MigrationsPath string
	JWTSecret      string

	RedisAddress    string
	RedisUsername   string
	RedisPassword   string
	TimingsCacheTTL time.Duration

	PrayerTimesProvider string
	PrayerTimesBaseURL  string
	PrayerTimesMethod   int
	PrayerTimesSchool   int
	PrayerTimesTimeout  time.Duration

	MQTTBrokerURL string
	MQTTClientID  string

	LogLevel string
	LogFile  string
}

// Development reports whether APP_ENV selects local development.
func (c *Config) Development() bool {
	return c.Environment == "" || c.Environment == "development"
}

// LoadDotEnv reads variables from the given files, or ./.env when none are
// named. Missing files are ignored and existing variables are not replaced.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Environment:         getenv("APP_ENV", "development"),
		ServerAddress:       getenv("SERVER_ADDRESS", ":8080"),
		DatabaseDriver:      getenv("DATABASE_DRIVER", "postgres"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MigrationsPath:      getenv("MIGRATIONS_PATH", "./migrations"),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		RedisAddress:        os.Getenv("REDIS_ADDRESS"),
		RedisUsername:       os.Getenv("REDIS_USERNAME"),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
		PrayerTimesProvider: getenv("PRAYER_TIMES_PROVIDER", "aladhan"),
		PrayerTimesBaseURL:  getenv("PRAYER_TIMES_BASE_URL", "https://api.aladhan.com/v1"),
		MQTTBrokerURL:       os.Getenv("MQTT_BROKER_URL"),
		MQTTClientID:        getenv("MQTT_CLIENT_ID", "salah-server"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		LogFile:             os.Getenv("LOG_FILE"),
	}

	var err error
	if cfg.TimingsCacheTTL, err = durationEnv("TIMINGS_CACHE_TTL", 48*time.Hour); err != nil {
		return nil, err
	}
	if cfg.PrayerTimesTimeout, err = durationEnv("PRAYER_TIMES_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.PrayerTimesMethod, err = intEnv("PRAYER_TIMES_METHOD", 2); err != nil {
		return nil, err
	}
	if cfg.PrayerTimesSchool, err = intEnv("PRAYER_TIMES_SCHOOL", 0); err != nil {
		return nil, err
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite3":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	case "memory":
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER %q is not one of postgres, sqlite3, memory", cfg.DatabaseDriver)
	}

	switch cfg.PrayerTimesProvider {
	case "aladhan", "fixed":
	default:
		return nil, fmt.Errorf("PRAYER_TIMES_PROVIDER %q is not one of aladhan, fixed", cfg.PrayerTimesProvider)
	}

	return cfg, nil
}

// RequireJWT fails when no signing secret is configured.
func (c *Config) RequireJWT() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
