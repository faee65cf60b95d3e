package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

const DefaultTTL = 48 * time.Hour

func NewClient(address string, username string, password string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     address,
		Username: username,
		Password: password,
		DB:       0,
	})
}

// TimingsCache wraps a provider with a redis read-through cache. Redis
// failures are logged and the wrapped provider is asked instead.
type TimingsCache struct {
	rdb       *redis.Client
	next      prayer.Provider
	namespace string
	ttl       time.Duration
}

var _ prayer.Provider = (*TimingsCache)(nil)

// NewTimingsCache keys entries under namespace, which should identify the
// calculation settings of next so different conventions never share entries.
func NewTimingsCache(rdb *redis.Client, next prayer.Provider, namespace string, ttl time.Duration) *TimingsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &TimingsCache{rdb: rdb, next: next, namespace: namespace, ttl: ttl}
}

type cachedTimings struct {
	Date     model.CivilDate              `json:"date"`
	Instants [model.PrayerCount]time.Time `json:"instants"`
}

func (c *TimingsCache) key(locality model.Locality, date model.CivilDate) string {
	return fmt.Sprintf("salah:timings:%s:%.6f:%.6f:%s:%s",
		c.namespace, locality.Latitude, locality.Longitude, locality.Timezone, date)
}

func (c *TimingsCache) DayTimings(ctx context.Context, locality model.Locality, date model.CivilDate) (model.DayTimings, error) {
	key := c.key(locality, date)

	if day, ok := c.load(ctx, key); ok {
		return day, nil
	}

	day, err := c.next.DayTimings(ctx, locality, date)
	if err != nil {
		return day, err
	}

	payload, err := json.Marshal(cachedTimings{Date: day.Date, Instants: day.Instants})
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to encode timings for cache")
		return day, nil
	}
	if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("failed to cache timings")
	}
	return day, nil
}

func (c *TimingsCache) load(ctx context.Context, key string) (model.DayTimings, bool) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			log.Warn().Err(err).Str("key", key).Msg("timings cache read failed")
		}
		return model.DayTimings{}, false
	}

	var entry cachedTimings
	if err := json.Unmarshal(raw, &entry); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("discarding corrupt timings cache entry")
		return model.DayTimings{}, false
	}
	day := model.DayTimings{Date: entry.Date}
	for i, at := range entry.Instants {
		day.Instants[i] = at.UTC()
	}
	return day, true
}
