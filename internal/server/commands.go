package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/taskdeck/internal/calendar"
	"github.com/teemow/taskdeck/internal/google"
	"github.com/teemow/taskdeck/internal/instrumentation"
	"github.com/teemow/taskdeck/internal/logging"
	"github.com/teemow/taskdeck/internal/notify"
	"github.com/teemow/taskdeck/internal/store"
	"github.com/teemow/taskdeck/internal/tasksync"
)

// Command types accepted on the /v1/commands endpoint.
const (
	CmdCreateEvent        = "CREATE_EVENT"
	CmdToggleDone         = "TOGGLE_DONE"
	CmdDeleteEvent        = "DELETE_EVENT"
	CmdAddTask            = "ADD_TASK"
	CmdListTasks          = "LIST_TASKS"
	CmdClearCompleted     = "CLEAR_COMPLETED"
	CmdEmailUnfinishedNow = "EMAIL_UNFINISHED_NOW"
	CmdNotifyToggle       = "NOTIFY_TOGGLE"
	CmdGetPreferences     = "GET_PREFERENCES"
)

// Error codes carried in ok:false envelopes.
const (
	codeBadRequest   = "bad_request"
	codeNotFound     = "not_found"
	codeUnauthorized = "unauthorized"
	codeRemote       = "remote_error"
	codeInternal     = "internal"
)

// CommandRequest is the inbound envelope.
type CommandRequest struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// CommandResponse is the outbound envelope. Ok is always present; Data is
// set on success, Error and Code on failure.
type CommandResponse struct {
	Ok    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
	Code  string `json:"code,omitempty"`
}

// CommandHandler dispatches command envelopes against the server context.
type CommandHandler struct {
	sc  *ServerContext
	now func() time.Time
}

// NewCommandHandler creates a command handler.
func NewCommandHandler(sc *ServerContext) *CommandHandler {
	return &CommandHandler{sc: sc, now: time.Now}
}

// RegisterCommandEndpoints registers the command endpoint on the given mux.
func (h *CommandHandler) RegisterCommandEndpoints(mux *http.ServeMux) {
	mux.Handle("/v1/commands", h)
}

// ServeHTTP handles POST /v1/commands.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeEnvelope(w, http.StatusMethodNotAllowed, CommandResponse{
			Ok: false, Error: "method not allowed", Code: codeBadRequest,
		})
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEnvelope(w, http.StatusBadRequest, CommandResponse{
			Ok: false, Error: "invalid JSON body: " + err.Error(), Code: codeBadRequest,
		})
		return
	}

	requestID := uuid.NewString()
	logger := h.sc.Logger().With(logging.Command(req.Type), logging.RequestID(requestID))

	ctx, span := instrumentation.StartCommandSpan(r.Context(), req.Type)
	defer span.End()

	start := h.now()
	data, err := h.dispatch(ctx, req)
	duration := time.Since(start)

	if err != nil {
		status, code := classifyError(err)
		instrumentation.SetSpanError(span, err)
		h.sc.Metrics().RecordCommand(ctx, req.Type, instrumentation.StatusError, duration)
		logger.Warn("command failed",
			logging.Err(err), logging.Status(code), logging.Duration(duration))
		writeEnvelope(w, status, CommandResponse{Ok: false, Error: err.Error(), Code: code})
		return
	}

	instrumentation.SetSpanSuccess(span)
	h.sc.Metrics().RecordCommand(ctx, req.Type, instrumentation.StatusSuccess, duration)
	logger.Info("command handled", logging.Duration(duration))
	writeEnvelope(w, http.StatusOK, CommandResponse{Ok: true, Data: data})
}

func writeEnvelope(w http.ResponseWriter, status int, resp CommandResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

// classifyError maps domain errors to an HTTP status and an envelope code.
func classifyError(err error) (int, string) {
	var validationErr *calendar.ValidationError
	switch {
	case errors.As(err, &validationErr),
		errors.Is(err, notify.ErrInvalidEmail),
		errors.Is(err, tasksync.ErrEmptyTitle),
		errors.Is(err, errBadPayload):
		return http.StatusBadRequest, codeBadRequest
	case errors.Is(err, tasksync.ErrTaskNotFound):
		return http.StatusNotFound, codeNotFound
	}

	var authErr *google.AuthError
	if errors.As(err, &authErr) {
		return http.StatusUnauthorized, codeUnauthorized
	}

	var remoteErr *google.RemoteRequestError
	if errors.As(err, &remoteErr) {
		return http.StatusBadGateway, codeRemote
	}

	return http.StatusInternalServerError, codeInternal
}

var errBadPayload = errors.New("invalid payload")

func decodePayload(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: payload required", errBadPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return nil
}

func (h *CommandHandler) dispatch(ctx context.Context, req CommandRequest) (any, error) {
	switch req.Type {
	case CmdCreateEvent:
		return h.createEvent(ctx, req.Payload)
	case CmdToggleDone:
		return h.toggleDone(ctx, req.Payload)
	case CmdDeleteEvent:
		return h.deleteEvent(ctx, req.Payload)
	case CmdAddTask:
		return h.addTask(ctx, req.Payload)
	case CmdListTasks:
		return h.listTasks(ctx, req.Payload)
	case CmdClearCompleted:
		return h.clearCompleted(ctx, req.Payload)
	case CmdEmailUnfinishedNow:
		return h.emailUnfinishedNow(ctx)
	case CmdNotifyToggle:
		return h.notifyToggle(ctx, req.Payload)
	case CmdGetPreferences:
		return h.getPreferences(ctx)
	default:
		return nil, fmt.Errorf("%w: unknown command type %q", errBadPayload, req.Type)
	}
}

type createEventPayload struct {
	Title    string `json:"title"`
	Notes    string `json:"notes,omitempty"`
	Start    string `json:"start"`
	End      string `json:"end"`
	TimeZone string `json:"timeZone"`
	ColorID  string `json:"colorId,omitempty"`
}

type createEventResult struct {
	DayKey string          `json:"dayKey"`
	Task   store.Task      `json:"task"`
	Event  *calendar.Event `json:"event"`
}

func (h *CommandHandler) createEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	var p createEventPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}

	start, err := time.Parse(time.RFC3339, p.Start)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", errBadPayload, err)
	}
	end, err := time.Parse(time.RFC3339, p.End)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", errBadPayload, err)
	}

	result, err := h.sc.Synchronizer().CreateFromForm(ctx, calendar.EventInput{
		Title:    p.Title,
		Notes:    p.Notes,
		Start:    start,
		End:      end,
		TimeZone: p.TimeZone,
		ColorID:  p.ColorID,
	})
	if err != nil {
		return nil, err
	}
	return createEventResult{DayKey: result.DayKey, Task: result.Task, Event: result.Event}, nil
}

type taskRefPayload struct {
	DayKey string `json:"dayKey"`
	Index  int    `json:"index"`
	Done   bool   `json:"done"`
}

func (h *CommandHandler) toggleDone(ctx context.Context, raw json.RawMessage) (any, error) {
	var p taskRefPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	task, err := h.sc.Synchronizer().ToggleDone(ctx, p.DayKey, p.Index, p.Done)
	if err != nil {
		return nil, err
	}
	return task, nil
}

func (h *CommandHandler) deleteEvent(ctx context.Context, raw json.RawMessage) (any, error) {
	var p taskRefPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	task, err := h.sc.Synchronizer().DeleteTask(ctx, p.DayKey, p.Index)
	if err != nil {
		return nil, err
	}
	return task, nil
}

type addTaskPayload struct {
	DayKey string `json:"dayKey"`
	Title  string `json:"title"`
}

func (h *CommandHandler) addTask(ctx context.Context, raw json.RawMessage) (any, error) {
	var p addTaskPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	if p.DayKey == "" {
		p.DayKey = store.DayKey(h.now())
	}
	task, err := h.sc.Synchronizer().AddLocalTask(ctx, p.DayKey, p.Title)
	if err != nil {
		if store.IsDayKey(p.DayKey) || errors.Is(err, tasksync.ErrEmptyTitle) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", errBadPayload, err)
	}
	return map[string]any{"dayKey": p.DayKey, "task": task}, nil
}

type listTasksPayload struct {
	DayKey string `json:"dayKey,omitempty"`
}

func (h *CommandHandler) listTasks(ctx context.Context, raw json.RawMessage) (any, error) {
	var p listTasksPayload
	if len(raw) > 0 {
		if err := decodePayload(raw, &p); err != nil {
			return nil, err
		}
	}
	if p.DayKey == "" {
		p.DayKey = store.DayKey(h.now())
	}
	tasks, err := h.sc.Synchronizer().Tasks(ctx, p.DayKey)
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []store.Task{}
	}
	return map[string]any{"dayKey": p.DayKey, "tasks": tasks}, nil
}

func (h *CommandHandler) clearCompleted(ctx context.Context, raw json.RawMessage) (any, error) {
	var p listTasksPayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	remaining, err := h.sc.Synchronizer().ClearCompleted(ctx, p.DayKey)
	if err != nil {
		return nil, err
	}
	if remaining == nil {
		remaining = []store.Task{}
	}
	return map[string]any{"dayKey": p.DayKey, "tasks": remaining}, nil
}

func (h *CommandHandler) emailUnfinishedNow(ctx context.Context) (any, error) {
	scheduler := h.sc.Scheduler()
	if scheduler == nil {
		return nil, errors.New("digest scheduler is not configured")
	}
	if err := scheduler.SendNow(ctx); err != nil {
		return nil, err
	}
	return map[string]any{"sent": true}, nil
}

type notifyTogglePayload struct {
	Enabled bool   `json:"enabled"`
	Email   string `json:"email,omitempty"`
}

func (h *CommandHandler) notifyToggle(ctx context.Context, raw json.RawMessage) (any, error) {
	var p notifyTogglePayload
	if err := decodePayload(raw, &p); err != nil {
		return nil, err
	}
	pref, err := h.sc.Gate().SetEnabled(ctx, p.Enabled, p.Email)
	if err != nil {
		return nil, err
	}
	return pref, nil
}

func (h *CommandHandler) getPreferences(ctx context.Context) (any, error) {
	pref, err := h.sc.Gate().Preference(ctx)
	if err != nil {
		return nil, err
	}
	result := map[string]any{"preference": pref}
	if s := h.sc.Scheduler(); s != nil && s.Armed() {
		result["nextDigest"] = s.NextFire().Format(time.RFC3339)
	}
	return result, nil
}
