package todo_tools

import (
	"strings"
	"testing"
	"time"

	"github.com/teemow/taskdeck/internal/store"
)

func TestGetDayKeyFromArgs(t *testing.T) {
	// Explicit day key wins
	args := map[string]interface{}{"dayKey": "todos_2025-01-01"}
	if key := getDayKeyFromArgs(args); key != "todos_2025-01-01" {
		t.Errorf("expected explicit key, got %s", key)
	}

	// Missing key defaults to today's bucket
	args = map[string]interface{}{}
	key := getDayKeyFromArgs(args)
	if key != store.DayKey(time.Now()) {
		t.Errorf("expected today's key, got %s", key)
	}
	if !strings.HasPrefix(key, "todos_") {
		t.Errorf("expected todos_ prefix, got %s", key)
	}

	// Empty string also defaults
	args = map[string]interface{}{"dayKey": ""}
	if key := getDayKeyFromArgs(args); key != store.DayKey(time.Now()) {
		t.Errorf("expected today's key for empty string, got %s", key)
	}

	// Non-string value defaults
	args = map[string]interface{}{"dayKey": 42}
	if key := getDayKeyFromArgs(args); key != store.DayKey(time.Now()) {
		t.Errorf("expected today's key for non-string value, got %s", key)
	}
}

func TestGetIndexFromArgs(t *testing.T) {
	// JSON numbers arrive as float64
	args := map[string]interface{}{"index": float64(3)}
	index, ok := getIndexFromArgs(args)
	if !ok || index != 3 {
		t.Errorf("expected (3, true), got (%d, %v)", index, ok)
	}

	args = map[string]interface{}{"index": 5}
	index, ok = getIndexFromArgs(args)
	if !ok || index != 5 {
		t.Errorf("expected (5, true), got (%d, %v)", index, ok)
	}

	args = map[string]interface{}{}
	if _, ok := getIndexFromArgs(args); ok {
		t.Error("expected missing index to report false")
	}

	args = map[string]interface{}{"index": "first"}
	if _, ok := getIndexFromArgs(args); ok {
		t.Error("expected non-numeric index to report false")
	}
}
