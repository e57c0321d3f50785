package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/taskdeck/internal/calendar"
	"github.com/teemow/taskdeck/internal/digest"
	"github.com/teemow/taskdeck/internal/gmail"
	"github.com/teemow/taskdeck/internal/notify"
	"github.com/teemow/taskdeck/internal/store"
	"github.com/teemow/taskdeck/internal/tasksync"
)

type stubCalendar struct {
	createResult *calendar.Event
	createErr    error
	patchErr     error
	deleteResult calendar.DeleteResult
	deleteErr    error
}

func (s *stubCalendar) CreateEvent(_ context.Context, _ calendar.EventInput) (*calendar.Event, error) {
	return s.createResult, s.createErr
}

func (s *stubCalendar) PatchEventDoneState(_ context.Context, _ string, _ bool, _, _ string) (*calendar.Event, error) {
	if s.patchErr != nil {
		return nil, s.patchErr
	}
	return &calendar.Event{}, nil
}

func (s *stubCalendar) DeleteEvent(_ context.Context, _ string) (calendar.DeleteResult, error) {
	return s.deleteResult, s.deleteErr
}

type stubMailer struct {
	sent int
	err  error
}

func (m *stubMailer) Send(_ context.Context, _, _, _ string) (*gmail.Receipt, error) {
	m.sent++
	if m.err != nil {
		return nil, m.err
	}
	return &gmail.Receipt{ID: "msg1"}, nil
}

type testEnv struct {
	store   *store.MemoryStore
	cal     *stubCalendar
	mailer  *stubMailer
	handler *CommandHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st := store.NewMemoryStore()
	cal := &stubCalendar{}
	mailer := &stubMailer{}
	sync := tasksync.NewSynchronizer(st, cal, nil, nil)
	gate := notify.NewGate(st, mailer, nil)
	scheduler := digest.NewScheduler(st, mailer, time.UTC, nil, nil)
	t.Cleanup(scheduler.Stop)

	sc := NewServerContext(context.Background(), Deps{
		Store:        st,
		Synchronizer: sync,
		Scheduler:    scheduler,
		Gate:         gate,
	})
	t.Cleanup(func() { _ = sc.Shutdown() })

	return &testEnv{
		store:   st,
		cal:     cal,
		mailer:  mailer,
		handler: NewCommandHandler(sc),
	}
}

func (e *testEnv) post(t *testing.T, body string) (*httptest.ResponseRecorder, CommandResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/commands", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)

	var resp CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestCommands_MethodNotAllowed(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/v1/commands", nil)
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	var resp CommandResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.Ok)
}

func TestCommands_InvalidJSON(t *testing.T) {
	env := newTestEnv(t)
	rec, resp := env.post(t, "{not json")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, "bad_request", resp.Code)
}

func TestCommands_UnknownType(t *testing.T) {
	env := newTestEnv(t)
	rec, resp := env.post(t, `{"type":"NOT_A_COMMAND"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, "bad_request", resp.Code)
}

func TestCommands_AddAndListTasks(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.post(t,
		`{"type":"ADD_TASK","payload":{"dayKey":"todos_2025-01-01","title":"buy milk"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ok)

	rec, resp = env.post(t,
		`{"type":"LIST_TASKS","payload":{"dayKey":"todos_2025-01-01"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Ok)

	data := resp.Data.(map[string]any)
	tasks := data["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].(map[string]any)["title"])
}

func TestCommands_ListTasks_EmptyBucketIsEmptyArray(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.post(t,
		`{"type":"LIST_TASKS","payload":{"dayKey":"todos_2025-01-01"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Ok)

	data := resp.Data.(map[string]any)
	tasks, ok := data["tasks"].([]any)
	require.True(t, ok, "tasks must serialize as an array, not null")
	assert.Empty(t, tasks)
}

func TestCommands_CreateEvent(t *testing.T) {
	env := newTestEnv(t)
	env.cal.createResult = &calendar.Event{ID: "evt1", Summary: "Dentist"}

	rec, resp := env.post(t, `{"type":"CREATE_EVENT","payload":{
		"title":"Dentist",
		"start":"2025-03-15T09:00:00Z",
		"end":"2025-03-15T10:00:00Z",
		"timeZone":"UTC"
	}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Ok)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "todos_2025-03-15", data["dayKey"])

	tasks, err := env.store.Tasks(context.Background(), "todos_2025-03-15")
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "evt1", tasks[0].EventID)
}

func TestCommands_CreateEvent_BadTimestamp(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.post(t, `{"type":"CREATE_EVENT","payload":{
		"title":"Dentist","start":"tomorrow","end":"later","timeZone":"UTC"
	}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, "bad_request", resp.Code)
}

func TestCommands_ToggleDone(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SetTasks(context.Background(), "todos_2025-01-01",
		[]store.Task{{Title: "A"}}))

	rec, resp := env.post(t,
		`{"type":"TOGGLE_DONE","payload":{"dayKey":"todos_2025-01-01","index":0,"done":true}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Ok)

	task := resp.Data.(map[string]any)
	assert.Equal(t, true, task["done"])
}

func TestCommands_ToggleDone_NotFound(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.post(t,
		`{"type":"TOGGLE_DONE","payload":{"dayKey":"todos_2025-01-01","index":5,"done":true}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, "not_found", resp.Code)
}

func TestCommands_DeleteEvent_RemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	env.cal.deleteErr = errors.New("calendar unavailable")
	require.NoError(t, env.store.SetTasks(context.Background(), "todos_2025-01-01",
		[]store.Task{{Title: "A", EventID: "evt1"}}))

	rec, resp := env.post(t,
		`{"type":"DELETE_EVENT","payload":{"dayKey":"todos_2025-01-01","index":0}}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.False(t, resp.Ok)

	tasks, err := env.store.Tasks(context.Background(), "todos_2025-01-01")
	require.NoError(t, err)
	assert.Len(t, tasks, 1, "failed remote delete leaves the task in place")
}

func TestCommands_NotifyToggle(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.post(t,
		`{"type":"NOTIFY_TOGGLE","payload":{"enabled":true,"email":"me@example.com"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Ok)
	assert.Equal(t, 1, env.mailer.sent, "welcome mail accompanies enabling")

	rec, resp = env.post(t,
		`{"type":"NOTIFY_TOGGLE","payload":{"enabled":true,"email":"nope"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, resp.Ok)
	assert.Equal(t, "bad_request", resp.Code)
}

func TestCommands_EmailUnfinishedNow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.SetPreference(ctx,
		store.Preference{Enabled: true, Email: "me@example.com"}))
	require.NoError(t, env.store.SetTasks(ctx, "todos_2025-01-01",
		[]store.Task{{Title: "A"}}))

	rec, resp := env.post(t, `{"type":"EMAIL_UNFINISHED_NOW"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, resp.Ok)
	assert.Equal(t, 1, env.mailer.sent)

	keys, err := env.store.DayKeys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 1, "manual digest removes nothing")
}

func TestCommands_ClearCompleted(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.SetTasks(context.Background(), "todos_2025-01-01",
		[]store.Task{{Title: "A", Done: true}, {Title: "B"}}))

	rec, resp := env.post(t,
		`{"type":"CLEAR_COMPLETED","payload":{"dayKey":"todos_2025-01-01"}}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Ok)

	data := resp.Data.(map[string]any)
	tasks := data["tasks"].([]any)
	require.Len(t, tasks, 1)
	assert.Equal(t, "B", tasks[0].(map[string]any)["title"])
}

func TestCommands_GetPreferences(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.post(t, `{"type":"GET_PREFERENCES"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.True(t, resp.Ok)

	data := resp.Data.(map[string]any)
	pref := data["preference"].(map[string]any)
	assert.Equal(t, false, pref["notifyEnabled"])
}
