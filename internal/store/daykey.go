package store

import (
	"strings"
	"time"
)

// dayKeyPrefix matches the persisted bucket layout: todos_YYYY-MM-DD.
const dayKeyPrefix = "todos_"

// DayKey derives the bucket key for the calendar day containing t, in t's
// location. It is the single source of day-key derivation so the
// synchronizer and the digest scheduler can never disagree on bucket
// identity.
func DayKey(t time.Time) string {
	return dayKeyPrefix + t.Format("2006-01-02")
}

// IsDayKey reports whether key names a day bucket (as opposed to the
// preference record or unrelated state).
func IsDayKey(key string) bool {
	if !strings.HasPrefix(key, dayKeyPrefix) {
		return false
	}
	_, err := time.Parse("2006-01-02", strings.TrimPrefix(key, dayKeyPrefix))
	return err == nil
}
