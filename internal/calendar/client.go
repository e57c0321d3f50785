package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/teemow/taskdeck/internal/google"
	"github.com/teemow/taskdeck/internal/instrumentation"
)

const (
	// doneTitlePrefix is the completion glyph prepended to the summary of a
	// finished task's event.
	doneTitlePrefix = "✓ "

	// doneColorID is the neutral "muted" color tag forced onto done events.
	doneColorID = "8"

	transparencyDone   = "transparent" // done events do not block free/busy
	transparencyActive = "opaque"
)

// Client wraps the Google Calendar events API for a single calendar.
type Client struct {
	provider   google.TokenProvider
	calendarID string
	metrics    *instrumentation.Metrics
}

// NewClient creates a calendar client writing to the user's primary calendar.
func NewClient(provider google.TokenProvider) *Client {
	return NewClientForCalendar(provider, "primary", nil)
}

// NewClientForCalendar creates a calendar client for a specific calendar ID.
// A nil metrics records nothing.
func NewClientForCalendar(provider google.TokenProvider, calendarID string, metrics *instrumentation.Metrics) *Client {
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Client{
		provider:   provider,
		calendarID: calendarID,
		metrics:    metrics,
	}
}

// service builds a Calendar service bound to one access token, so a retry
// after invalidation really uses the fresh token.
func (c *Client) service(ctx context.Context, token *oauth2.Token) (*calendar.Service, error) {
	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}
	return svc, nil
}

// CreateEvent creates a new calendar event. The input is validated before
// any network call: a validation failure never triggers an auth retry.
func (c *Client) CreateEvent(ctx context.Context, input EventInput) (*Event, error) {
	if err := validateEventInput(input); err != nil {
		return nil, err
	}

	body := &calendar.Event{
		Summary:     input.Title,
		Description: input.Notes,
		Start: &calendar.EventDateTime{
			DateTime: input.Start.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: input.End.Format(time.RFC3339),
			TimeZone: input.TimeZone,
		},
	}
	if input.ColorID != "" {
		body.ColorId = input.ColorID
	}

	var created *calendar.Event
	err := google.WithAuthRetry(ctx, c.provider, c.metrics, "calendar.create", func(ctx context.Context, token *oauth2.Token) error {
		svc, err := c.service(ctx, token)
		if err != nil {
			return err
		}
		created, err = svc.Events.Insert(c.calendarID, body).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, google.WrapRemoteError("calendar.create", err)
	}

	return toEvent(created), nil
}

// PatchEventDoneState updates an event's presentation to match the linked
// task's done flag. Applying the same target state twice yields the same
// remote representation, so a duplicated call cannot double-apply.
func (c *Client) PatchEventDoneState(ctx context.Context, eventID string, done bool, originalTitle, originalColorID string) (*Event, error) {
	if eventID == "" {
		return nil, &ValidationError{Field: "eventId", Reason: "must not be empty"}
	}

	body := doneStatePatch(done, originalTitle, originalColorID)

	var patched *calendar.Event
	err := google.WithAuthRetry(ctx, c.provider, c.metrics, "calendar.patch", func(ctx context.Context, token *oauth2.Token) error {
		svc, err := c.service(ctx, token)
		if err != nil {
			return err
		}
		patched, err = svc.Events.Patch(c.calendarID, eventID, body).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, google.WrapRemoteError("calendar.patch", err)
	}

	return toEvent(patched), nil
}

// DeleteEvent removes an event. An empty eventID short-circuits to not-found
// without a network call, and a remote "already gone" response (404, 410, or
// an equivalent reason) is reported as NotFound, not as an error, since the
// event may have been deleted out-of-band.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) (DeleteResult, error) {
	if eventID == "" {
		return DeleteResult{NotFound: true}, nil
	}

	err := google.WithAuthRetry(ctx, c.provider, c.metrics, "calendar.delete", func(ctx context.Context, token *oauth2.Token) error {
		svc, err := c.service(ctx, token)
		if err != nil {
			return err
		}
		return svc.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
	})
	if err != nil {
		if google.IsGone(err) {
			return DeleteResult{NotFound: true}, nil
		}
		return DeleteResult{}, google.WrapRemoteError("calendar.delete", err)
	}

	return DeleteResult{Deleted: true}, nil
}

// doneStatePatch builds the patch body for a done-state transition.
func doneStatePatch(done bool, originalTitle, originalColorID string) *calendar.Event {
	if done {
		return &calendar.Event{
			Summary:      doneTitlePrefix + originalTitle,
			ColorId:      doneColorID,
			Transparency: transparencyDone,
		}
	}

	body := &calendar.Event{
		Summary:      originalTitle,
		Transparency: transparencyActive,
	}
	if originalColorID != "" {
		body.ColorId = originalColorID
	} else {
		// No original color tag: clear the override with an explicit null
		body.NullFields = append(body.NullFields, "ColorId")
	}
	return body
}

func validateEventInput(input EventInput) error {
	if input.Title == "" {
		return &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if !input.Start.Before(input.End) {
		return &ValidationError{Field: "end", Reason: "must be after start"}
	}
	if input.TimeZone == "" {
		return &ValidationError{Field: "timeZone", Reason: "must be a named timezone"}
	}
	if _, err := time.LoadLocation(input.TimeZone); err != nil {
		return &ValidationError{Field: "timeZone", Reason: fmt.Sprintf("unknown timezone %q", input.TimeZone)}
	}
	return nil
}
