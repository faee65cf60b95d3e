package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

// setupTestDB opens an in-memory sqlite database with the real migrations
// applied. A single connection keeps every query on the same database.
func setupTestDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conn, err := sqlx.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	conn.SetMaxOpenConns(1)

	require.NoError(t, RunMigrations(conn, "../../migrations"))

	t.Cleanup(func() {
		conn.Close()
	})
	return conn
}

func seedUser(t *testing.T, store *Store, id string) *model.User {
	t.Helper()
	lat, lng := 22.5726, 88.3639
	u := &model.User{
		ID:        id,
		Email:     id + "@example.com",
		Timezone:  "Asia/Kolkata",
		Latitude:  &lat,
		Longitude: &lng,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.CreateUser(context.Background(), u))
	return u
}

func dayInstances(userID string, date model.CivilDate) []model.PrayerInstance {
	base := time.Date(date.Year, date.Month, date.Day, 0, 0, 0, 0, time.UTC)
	starts := []time.Duration{0, 6 * time.Hour, 10 * time.Hour, 13 * time.Hour, 14 * time.Hour, 24 * time.Hour}
	out := make([]model.PrayerInstance, 0, model.PrayerCount)
	for i, p := range model.PrayerTypes {
		out = append(out, model.PrayerInstance{
			ID:          uuid.NewString(),
			UserID:      userID,
			PrayerType:  p,
			CivilDate:   date,
			WindowStart: base.Add(starts[i]),
			WindowEnd:   base.Add(starts[i+1]),
			CreatedAt:   base,
		})
	}
	return out
}

func TestRunMigrationsWithMissingPath(t *testing.T) {
	conn, err := sqlx.Open(DriverSQLite, ":memory:")
	require.NoError(t, err)
	defer conn.Close()

	// an empty or missing directory is not an error
	assert.NoError(t, RunMigrations(conn, "./does-not-exist"))
}

func TestStore_Users(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	seedUser(t, store, "user-1")

	t.Run("resolves time context", func(t *testing.T) {
		tc, err := store.GetUserTimeContext(ctx, "user-1")
		require.NoError(t, err)
		assert.Equal(t, "Asia/Kolkata", tc.Timezone)
		assert.InDelta(t, 22.5726, tc.Locality.Latitude, 1e-9)
		assert.True(t, tc.AccountCreatedAt.Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err := store.GetUserTimeContext(ctx, "nobody")
		assert.ErrorIs(t, err, prayer.ErrUserNotFound)
	})
}

func TestStore_DayInstances(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	seedUser(t, store, "user-1")
	date := model.CivilDate{Year: 2025, Month: time.March, Day: 4}

	first := dayInstances("user-1", date)
	require.NoError(t, store.SaveDayInstances(ctx, first))

	t.Run("reads back in prayer order", func(t *testing.T) {
		got, err := store.ListDayInstances(ctx, "user-1", date)
		require.NoError(t, err)
		require.Len(t, got, model.PrayerCount)
		for i, in := range got {
			assert.Equal(t, model.PrayerTypes[i], in.PrayerType)
			assert.Equal(t, first[i].ID, in.ID)
			assert.Equal(t, date, in.CivilDate)
			assert.True(t, in.WindowStart.Equal(first[i].WindowStart))
			assert.True(t, in.WindowEnd.Equal(first[i].WindowEnd))
		}
	})

	t.Run("second materialization keeps the first rows", func(t *testing.T) {
		require.NoError(t, store.SaveDayInstances(ctx, dayInstances("user-1", date)))
		got, err := store.ListDayInstances(ctx, "user-1", date)
		require.NoError(t, err)
		require.Len(t, got, model.PrayerCount)
		assert.Equal(t, first[0].ID, got[0].ID)
	})

	t.Run("other dates are empty", func(t *testing.T) {
		got, err := store.ListDayInstances(ctx, "user-1", date.AddDays(1))
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("get by id", func(t *testing.T) {
		got, err := store.GetInstance(ctx, first[2].ID)
		require.NoError(t, err)
		assert.Equal(t, model.Asr, got.PrayerType)

		_, err = store.GetInstance(ctx, "missing")
		assert.ErrorIs(t, err, prayer.ErrInstanceNotFound)
	})
}

func TestStore_Ledger(t *testing.T) {
	store := NewStore(setupTestDB(t))
	ctx := context.Background()
	seedUser(t, store, "user-1")
	date := model.CivilDate{Year: 2025, Month: time.March, Day: 4}
	instances := dayInstances("user-1", date)
	require.NoError(t, store.SaveDayInstances(ctx, instances))

	t.Run("absent record", func(t *testing.T) {
		rec, err := store.Get(ctx, instances[0].ID)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("insert then get", func(t *testing.T) {
		notes := "prayed at the masjid"
		markedAt := time.Date(2025, 3, 4, 7, 0, 0, 0, time.UTC)
		rec := &model.CompletionRecord{
			ID:               uuid.NewString(),
			PrayerInstanceID: instances[1].ID,
			UserID:           "user-1",
			Status:           model.CompletionCompleted,
			MarkedAt:         markedAt,
			Notes:            &notes,
		}
		require.NoError(t, store.Insert(ctx, rec))

		got, err := store.Get(ctx, instances[1].ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.CompletionCompleted, got.Status)
		assert.True(t, got.MarkedAt.Equal(markedAt))
		require.NotNil(t, got.Notes)
		assert.Equal(t, notes, *got.Notes)
	})

	t.Run("duplicate insert is rejected by the unique key", func(t *testing.T) {
		rec := &model.CompletionRecord{
			ID:               uuid.NewString(),
			PrayerInstanceID: instances[1].ID,
			UserID:           "user-1",
			Status:           model.CompletionQada,
			MarkedAt:         time.Now().UTC(),
		}
		err := store.Insert(ctx, rec)
		assert.ErrorIs(t, err, prayer.ErrAlreadyExists)

		got, err := store.Get(ctx, instances[1].ID)
		require.NoError(t, err)
		assert.Equal(t, model.CompletionCompleted, got.Status)
	})

	t.Run("concurrent inserts leave exactly one record", func(t *testing.T) {
		target := instances[3].ID
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok, lost int
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := store.Insert(ctx, &model.CompletionRecord{
					ID:               uuid.NewString(),
					PrayerInstanceID: target,
					UserID:           "user-1",
					Status:           model.CompletionQada,
					MarkedAt:         time.Now().UTC(),
				})
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else if assert.ErrorIs(t, err, prayer.ErrAlreadyExists) {
					lost++
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, ok)
		assert.Equal(t, 7, lost)
	})

	t.Run("legacy jamaat rows read as completed", func(t *testing.T) {
		_, err := store.db.Exec(
			`INSERT INTO prayer_completions (id, prayer_instance_id, user_id, status, marked_at) VALUES (?, ?, ?, 'jamaat', ?)`,
			uuid.NewString(), instances[0].ID, "user-1", time.Now().UTC(),
		)
		require.NoError(t, err)

		got, err := store.Get(ctx, instances[0].ID)
		require.NoError(t, err)
		assert.Equal(t, model.CompletionCompleted, got.Status)
	})

	t.Run("list completions in day order", func(t *testing.T) {
		entries, err := store.ListCompletions(ctx, "user-1", date, date)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		assert.Equal(t, model.Fajr, entries[0].Instance.PrayerType)
		assert.Equal(t, model.Dhuhr, entries[1].Instance.PrayerType)
		assert.Equal(t, model.Maghrib, entries[2].Instance.PrayerType)
		assert.Equal(t, entries[1].Instance.ID, entries[1].Record.PrayerInstanceID)

		entries, err = store.ListCompletions(ctx, "user-1", date.AddDays(1), date.AddDays(5))
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
