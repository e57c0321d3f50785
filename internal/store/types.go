package store

// Task is a single to-do entry in a day bucket. EventID is set iff the task
// is linked to a remote calendar event; a task without one is local-only and
// must never trigger a remote call.
type Task struct {
	Title string `json:"title"`
	Done  bool   `json:"done"`

	// CreatedAt is the creation time in Unix milliseconds.
	CreatedAt int64 `json:"ts"`

	EventID         string `json:"eventId,omitempty"`
	OriginalColorID string `json:"originalColorId,omitempty"`
}

// Linked reports whether the task mirrors a remote calendar event.
func (t Task) Linked() bool {
	return t.EventID != ""
}

// Preference is the process-wide notification opt-in record.
// Invariant: Enabled implies Email is a syntactically valid address;
// the notify package enforces this on every transition.
type Preference struct {
	Enabled bool   `json:"notifyEnabled"`
	Email   string `json:"notifyEmail"`
}
