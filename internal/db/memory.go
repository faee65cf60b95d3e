package db

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/Nixie-Tech-LLC/salah/internal/model"
	"github.com/Nixie-Tech-LLC/salah/internal/prayer"
)

type dayKey struct {
	userID string
	date   model.CivilDate
}

// MemoryStore keeps users, instances and the ledger in process memory. It is
// used for DATABASE_DRIVER=memory and in tests.
type MemoryStore struct {
	mu          sync.Mutex
	users       map[string]model.User
	instances   map[string]model.PrayerInstance
	days        map[dayKey][model.PrayerCount]string
	completions map[string]model.CompletionRecord
}

var _ prayer.Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:       make(map[string]model.User),
		instances:   make(map[string]model.PrayerInstance),
		days:        make(map[dayKey][model.PrayerCount]string),
		completions: make(map[string]model.CompletionRecord),
	}
}

// PutUser adds or replaces a user.
func (m *MemoryStore) PutUser(u model.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemoryStore) GetUserTimeContext(ctx context.Context, userID string) (*model.UserTimeContext, error) {
	m.mu.Lock()
	u, ok := m.users[userID]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", prayer.ErrUserNotFound, userID)
	}
	return u.TimeContext()
}

func (m *MemoryStore) ListDayInstances(ctx context.Context, userID string, date model.CivilDate) ([]model.PrayerInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.days[dayKey{userID: userID, date: date}]
	out := make([]model.PrayerInstance, 0, model.PrayerCount)
	for _, id := range ids {
		if id == "" {
			continue
		}
		out = append(out, m.instances[id])
	}
	return out, nil
}

func (m *MemoryStore) SaveDayInstances(ctx context.Context, instances []model.PrayerInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, in := range instances {
		if !in.PrayerType.Valid() {
			return fmt.Errorf("invalid prayer type %d", int(in.PrayerType))
		}
		key := dayKey{userID: in.UserID, date: in.CivilDate}
		ids := m.days[key]
		if ids[in.PrayerType] != "" {
			continue
		}
		ids[in.PrayerType] = in.ID
		m.days[key] = ids
		m.instances[in.ID] = in
	}
	return nil
}

func (m *MemoryStore) GetInstance(ctx context.Context, id string) (*model.PrayerInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	in, ok := m.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", prayer.ErrInstanceNotFound, id)
	}
	return &in, nil
}

func (m *MemoryStore) Get(ctx context.Context, instanceID string) (*model.CompletionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.completions[instanceID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *MemoryStore) Insert(ctx context.Context, rec *model.CompletionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.completions[rec.PrayerInstanceID]; ok {
		return fmt.Errorf("%w: %s", prayer.ErrAlreadyExists, rec.PrayerInstanceID)
	}
	m.completions[rec.PrayerInstanceID] = *rec
	return nil
}

func (m *MemoryStore) ListCompletions(ctx context.Context, userID string, from, to model.CivilDate) ([]model.CompletionEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []model.CompletionEntry{}
	for instanceID, rec := range m.completions {
		in := m.instances[instanceID]
		if in.UserID != userID || in.CivilDate.Before(from) || in.CivilDate.After(to) {
			continue
		}
		out = append(out, model.CompletionEntry{Instance: in, Record: rec})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i].Instance, out[j].Instance
		if a.CivilDate != b.CivilDate {
			return a.CivilDate.Before(b.CivilDate)
		}
		return a.PrayerType < b.PrayerType
	})
	return out, nil
}

// CompletionCount returns the number of records in the ledger.
func (m *MemoryStore) CompletionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.completions)
}

// GetUserByID returns a copy of the stored user.
func (m *MemoryStore) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", prayer.ErrUserNotFound, id)
	}
	return &u, nil
}

// CreateUser adds a user, failing when the id is taken.
func (m *MemoryStore) CreateUser(ctx context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[u.ID]; ok {
		return fmt.Errorf("user %s already exists", u.ID)
	}
	m.users[u.ID] = *u
	return nil
}
