package tasksync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/taskdeck/internal/calendar"
	"github.com/teemow/taskdeck/internal/instrumentation"
	"github.com/teemow/taskdeck/internal/logging"
	"github.com/teemow/taskdeck/internal/store"
)

// ErrTaskNotFound reports a day-key/index pair that names no task, e.g.
// because a concurrent writer replaced the bucket.
var ErrTaskNotFound = errors.New("task not found")

// ErrEmptyTitle reports a task created without a title.
var ErrEmptyTitle = errors.New("task title must not be empty")

// CalendarService is the remote calendar surface the synchronizer needs.
// *calendar.Client implements it; tests substitute a fake.
type CalendarService interface {
	CreateEvent(ctx context.Context, input calendar.EventInput) (*calendar.Event, error)
	PatchEventDoneState(ctx context.Context, eventID string, done bool, originalTitle, originalColorID string) (*calendar.Event, error)
	DeleteEvent(ctx context.Context, eventID string) (calendar.DeleteResult, error)
}

// Synchronizer orchestrates create/toggle/delete operations across the task
// store and the remote calendar.
type Synchronizer struct {
	store    store.Store
	calendar CalendarService
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	now      func() time.Time
}

// CreateResult is the outcome of CreateFromForm: the appended task, the day
// bucket it was stored under (the event's own date, not necessarily today),
// and the created remote event.
type CreateResult struct {
	Task   store.Task
	DayKey string
	Event  *calendar.Event
}

// NewSynchronizer creates a synchronizer. A nil logger uses slog.Default(),
// a nil metrics records nothing.
func NewSynchronizer(st store.Store, cal CalendarService, logger *slog.Logger, metrics *instrumentation.Metrics) *Synchronizer {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Synchronizer{
		store:    st,
		calendar: cal,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
	}
}

// ToggleDone flips a task's done flag optimistically and mirrors the change
// to the linked calendar event. When the remote patch fails the local flag is
// rolled back and re-persisted before the error is surfaced, so the stored
// value never stays diverged from the remote state.
func (s *Synchronizer) ToggleDone(ctx context.Context, dayKey string, index int, nextDone bool) (store.Task, error) {
	tasks, err := s.store.Tasks(ctx, dayKey)
	if err != nil {
		return store.Task{}, err
	}
	if index < 0 || index >= len(tasks) {
		return store.Task{}, fmt.Errorf("%w: %s[%d]", ErrTaskNotFound, dayKey, index)
	}

	prevDone := tasks[index].Done
	tasks[index].Done = nextDone
	if err := s.store.SetTasks(ctx, dayKey, tasks); err != nil {
		return store.Task{}, err
	}
	task := tasks[index]

	if !task.Linked() {
		// Local-only task: the store is authoritative, nothing to mirror
		return task, nil
	}

	_, patchErr := s.calendar.PatchEventDoneState(ctx, task.EventID, nextDone, task.Title, task.OriginalColorID)
	if patchErr == nil {
		s.logger.Debug("task toggled and synced",
			logging.DayKey(dayKey), "index", index, "done", nextDone)
		return task, nil
	}

	tasks[index].Done = prevDone
	if rbErr := s.store.SetTasks(ctx, dayKey, tasks); rbErr != nil {
		s.logger.Error("rollback after failed calendar patch did not persist",
			logging.DayKey(dayKey), logging.Err(rbErr))
	}
	return tasks[index], fmt.Errorf("calendar update failed: %w", patchErr)
}

// DeleteTask removes a task. Local-only tasks are removed without any
// network call. For linked tasks the remote event is deleted first; a remote
// "already gone" outcome still removes the task locally, while any other
// remote failure leaves the task untouched and surfaces the error.
func (s *Synchronizer) DeleteTask(ctx context.Context, dayKey string, index int) (store.Task, error) {
	tasks, err := s.store.Tasks(ctx, dayKey)
	if err != nil {
		return store.Task{}, err
	}
	if index < 0 || index >= len(tasks) {
		return store.Task{}, fmt.Errorf("%w: %s[%d]", ErrTaskNotFound, dayKey, index)
	}
	task := tasks[index]

	if task.Linked() {
		res, err := s.calendar.DeleteEvent(ctx, task.EventID)
		if err != nil {
			return task, err
		}
		if res.NotFound {
			s.logger.Debug("linked event already gone, removing task locally",
				logging.DayKey(dayKey), "index", index)
		}
	}

	remaining := append(tasks[:index], tasks[index+1:]...)
	if err := s.store.SetTasks(ctx, dayKey, remaining); err != nil {
		return task, err
	}
	return task, nil
}

// CreateFromForm creates the remote event and appends the mirroring task to
// the bucket of the event's own date. When the event is created but the
// local append fails, the error surfaces the inconsistency for the caller to
// resolve; the call is not re-attempted automatically.
func (s *Synchronizer) CreateFromForm(ctx context.Context, input calendar.EventInput) (*CreateResult, error) {
	event, err := s.calendar.CreateEvent(ctx, input)
	if err != nil {
		return nil, err
	}

	dayKey := dayKeyForEvent(input)
	task := store.Task{
		Title:           input.Title,
		Done:            false,
		CreatedAt:       s.now().UnixMilli(),
		EventID:         event.ID,
		OriginalColorID: input.ColorID,
	}

	result := &CreateResult{Task: task, DayKey: dayKey, Event: event}

	tasks, err := s.store.Tasks(ctx, dayKey)
	if err != nil {
		return result, fmt.Errorf("event %s created but task list could not be read: %w", event.ID, err)
	}
	if err := s.store.SetTasks(ctx, dayKey, append(tasks, task)); err != nil {
		return result, fmt.Errorf("event %s created but task not recorded: %w", event.ID, err)
	}
	if len(tasks) == 0 {
		s.metrics.AddDayBuckets(ctx, 1)
	}

	s.logger.Info("event created and task recorded",
		logging.DayKey(dayKey), logging.Operation("calendar.create"))
	return result, nil
}

// AddLocalTask appends a task with no event link to the given bucket.
func (s *Synchronizer) AddLocalTask(ctx context.Context, dayKey, title string) (store.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return store.Task{}, ErrEmptyTitle
	}
	if !store.IsDayKey(dayKey) {
		return store.Task{}, fmt.Errorf("invalid day key %q", dayKey)
	}

	tasks, err := s.store.Tasks(ctx, dayKey)
	if err != nil {
		return store.Task{}, err
	}

	task := store.Task{Title: title, CreatedAt: s.now().UnixMilli()}
	if err := s.store.SetTasks(ctx, dayKey, append(tasks, task)); err != nil {
		return store.Task{}, err
	}
	if len(tasks) == 0 {
		s.metrics.AddDayBuckets(ctx, 1)
	}
	return task, nil
}

// Tasks returns the bucket for dayKey.
func (s *Synchronizer) Tasks(ctx context.Context, dayKey string) ([]store.Task, error) {
	return s.store.Tasks(ctx, dayKey)
}

// ClearCompleted drops all finished tasks from a bucket and returns what
// remains. Linked calendar events are deliberately left alone; clearing is a
// local end-of-day tidy-up, not a deletion of the schedule.
func (s *Synchronizer) ClearCompleted(ctx context.Context, dayKey string) ([]store.Task, error) {
	tasks, err := s.store.Tasks(ctx, dayKey)
	if err != nil {
		return nil, err
	}

	remaining := tasks[:0]
	for _, t := range tasks {
		if !t.Done {
			remaining = append(remaining, t)
		}
	}
	if err := s.store.SetTasks(ctx, dayKey, remaining); err != nil {
		return nil, err
	}
	return remaining, nil
}

// dayKeyForEvent derives the bucket key from the event's start instant in
// its own named timezone.
func dayKeyForEvent(input calendar.EventInput) string {
	if loc, err := time.LoadLocation(input.TimeZone); err == nil {
		return store.DayKey(input.Start.In(loc))
	}
	return store.DayKey(input.Start)
}
