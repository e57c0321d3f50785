package store

import (
	"context"
	"sort"
	"sync"
)

// Store is the day-keyed task store interface. Implementations replace whole
// buckets on write (last-writer-wins); there is no merge.
type Store interface {
	// Tasks returns the bucket for dayKey, empty when absent.
	Tasks(ctx context.Context, dayKey string) ([]Task, error)

	// SetTasks replaces the bucket for dayKey. An empty slice keeps the
	// bucket; use RemoveDayKeys to drop it.
	SetTasks(ctx context.Context, dayKey string, tasks []Task) error

	// DayKeys lists all existing day bucket keys in ascending order.
	DayKeys(ctx context.Context) ([]string, error)

	// RemoveDayKeys deletes the given buckets. Missing keys are ignored.
	RemoveDayKeys(ctx context.Context, keys []string) error

	// Preference returns the notification preference record, zero when unset.
	Preference(ctx context.Context) (Preference, error)

	// SetPreference replaces the notification preference record.
	SetPreference(ctx context.Context, pref Preference) error
}

// MemoryStore is an in-memory Store for tests and ephemeral runs.
type MemoryStore struct {
	mu      sync.RWMutex
	buckets map[string][]Task
	pref    Preference
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string][]Task),
	}
}

// Tasks returns a copy of the bucket so callers cannot mutate stored state.
func (s *MemoryStore) Tasks(_ context.Context, dayKey string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tasks := s.buckets[dayKey]
	out := make([]Task, len(tasks))
	copy(out, tasks)
	return out, nil
}

// SetTasks replaces the bucket for dayKey.
func (s *MemoryStore) SetTasks(_ context.Context, dayKey string, tasks []Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]Task, len(tasks))
	copy(stored, tasks)
	s.buckets[dayKey] = stored
	return nil
}

// DayKeys lists all bucket keys in ascending order.
func (s *MemoryStore) DayKeys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.buckets))
	for k := range s.buckets {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// RemoveDayKeys deletes the given buckets; unknown keys are ignored.
func (s *MemoryStore) RemoveDayKeys(_ context.Context, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.buckets, k)
	}
	return nil
}

// Preference returns the stored notification preference.
func (s *MemoryStore) Preference(_ context.Context) (Preference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pref, nil
}

// SetPreference replaces the stored notification preference.
func (s *MemoryStore) SetPreference(_ context.Context, pref Preference) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pref = pref
	return nil
}
