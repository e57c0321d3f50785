package calendar

import (
	"fmt"
	"time"

	calendar "google.golang.org/api/calendar/v3"
)

// EventInput describes a new calendar event for a task.
type EventInput struct {
	Title    string
	Notes    string
	Start    time.Time
	End      time.Time
	TimeZone string // IANA name, e.g. "Europe/Berlin"
	ColorID  string // decimal color tag, empty for the calendar default
}

// Event is the subset of a remote event the rest of the system cares about.
type Event struct {
	ID           string
	Summary      string
	Description  string
	Start        time.Time
	End          time.Time
	ColorID      string
	Transparency string
	HTMLLink     string
}

// DeleteResult reports the outcome of a delete: Deleted for a confirmed
// removal, NotFound when the event was already gone. Both are acceptable
// outcomes for callers; only neither-flag-set accompanies an error.
type DeleteResult struct {
	Deleted  bool
	NotFound bool
}

// ValidationError reports event input rejected before any network call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event %s: %s", e.Field, e.Reason)
}

// toEvent converts a Google Calendar event to the local representation.
func toEvent(ev *calendar.Event) *Event {
	if ev == nil {
		return &Event{}
	}

	out := &Event{
		ID:           ev.Id,
		Summary:      ev.Summary,
		Description:  ev.Description,
		ColorID:      ev.ColorId,
		Transparency: ev.Transparency,
		HTMLLink:     ev.HtmlLink,
	}

	if ev.Start != nil && ev.Start.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, ev.Start.DateTime); err == nil {
			out.Start = t
		}
	}
	if ev.End != nil && ev.End.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, ev.End.DateTime); err == nil {
			out.End = t
		}
	}

	return out
}
