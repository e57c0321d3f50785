package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	bucketFileExt  = ".json"
	preferenceFile = "notify.json"
)

// FileStore persists each day bucket as a JSON file under a state directory.
// Writes replace the whole file, which gives the documented last-writer-wins
// semantics at bucket granularity when a popup process and the background
// process race.
type FileStore struct {
	dir string
}

// NewFileStore creates the state directory if needed and returns a store
// backed by it.
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("state directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the state directory backing the store.
func (s *FileStore) Dir() string {
	return s.dir
}

// Tasks reads the bucket for dayKey; a missing file is an empty bucket.
func (s *FileStore) Tasks(_ context.Context, dayKey string) ([]Task, error) {
	data, err := os.ReadFile(s.bucketPath(dayKey))
	if os.IsNotExist(err) {
		return []Task{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read bucket %s: %w", dayKey, err)
	}

	var tasks []Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode bucket %s: %w", dayKey, err)
	}
	return tasks, nil
}

// SetTasks replaces the bucket file for dayKey.
func (s *FileStore) SetTasks(_ context.Context, dayKey string, tasks []Task) error {
	if !IsDayKey(dayKey) {
		return fmt.Errorf("invalid day key %q", dayKey)
	}

	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("failed to encode bucket %s: %w", dayKey, err)
	}
	if err := os.WriteFile(s.bucketPath(dayKey), data, 0600); err != nil {
		return fmt.Errorf("failed to write bucket %s: %w", dayKey, err)
	}
	return nil
}

// DayKeys lists the day buckets present on disk in ascending order.
func (s *FileStore) DayKeys(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list state directory: %w", err)
	}

	var keys []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.TrimSuffix(entry.Name(), bucketFileExt)
		if name == entry.Name() || !IsDayKey(name) {
			continue
		}
		keys = append(keys, name)
	}
	sort.Strings(keys)
	return keys, nil
}

// RemoveDayKeys deletes bucket files; missing files are ignored.
func (s *FileStore) RemoveDayKeys(_ context.Context, keys []string) error {
	for _, key := range keys {
		if err := os.Remove(s.bucketPath(key)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove bucket %s: %w", key, err)
		}
	}
	return nil
}

// Preference reads the notification preference; a missing file is the zero
// preference.
func (s *FileStore) Preference(_ context.Context) (Preference, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, preferenceFile))
	if os.IsNotExist(err) {
		return Preference{}, nil
	}
	if err != nil {
		return Preference{}, fmt.Errorf("failed to read preference: %w", err)
	}

	var pref Preference
	if err := json.Unmarshal(data, &pref); err != nil {
		return Preference{}, fmt.Errorf("failed to decode preference: %w", err)
	}
	return pref, nil
}

// SetPreference replaces the notification preference file.
func (s *FileStore) SetPreference(_ context.Context, pref Preference) error {
	data, err := json.Marshal(pref)
	if err != nil {
		return fmt.Errorf("failed to encode preference: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, preferenceFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write preference: %w", err)
	}
	return nil
}

func (s *FileStore) bucketPath(dayKey string) string {
	return filepath.Join(s.dir, dayKey+bucketFileExt)
}
