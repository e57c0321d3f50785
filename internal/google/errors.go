package google

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

// AuthError indicates that an operation could not obtain usable credentials:
// consent was denied or unavailable, or a freshly obtained token was still
// rejected after the single 401 retry. It is fatal for the triggering
// operation and is never retried again.
type AuthError struct {
	Op  string
	Err error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: authentication failed: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s: authentication failed", e.Op)
}

func (e *AuthError) Unwrap() error { return e.Err }

// RemoteRequestError carries the status and body of a non-2xx response that
// survived the 401 retry. The body is preserved verbatim so callers can
// distinguish configuration problems: insufficient permission vs. unverified
// sender vs. malformed payload.
type RemoteRequestError struct {
	Op     string
	Status int
	Body   string
}

func (e *RemoteRequestError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Op, e.Status, e.Body)
}

// WrapRemoteError converts a googleapi error into a RemoteRequestError tagged
// with the logical operation name (e.g. "calendar.create"). Non-googleapi
// errors (transport failures, context cancellation) are wrapped as-is.
func WrapRemoteError(op string, err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return &RemoteRequestError{Op: op, Status: gerr.Code, Body: remoteBody(gerr)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func remoteBody(gerr *googleapi.Error) string {
	if gerr.Body != "" {
		return gerr.Body
	}
	return gerr.Message
}

// IsUnauthorized reports whether err represents a 401 response.
func IsUnauthorized(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusUnauthorized
	}
	var rerr *RemoteRequestError
	if errors.As(err, &rerr) {
		return rerr.Status == http.StatusUnauthorized
	}
	return false
}

// IsGone reports whether err indicates that the remote resource no longer
// exists. Calendar reports absence as 404, and events deleted out-of-band as
// 410 with a "deleted" or "resourceGone" reason; all are equivalent for
// callers that only need the resource to be gone.
func IsGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		if gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone {
			return true
		}
		for _, item := range gerr.Errors {
			switch item.Reason {
			case "notFound", "deleted", "resourceGone":
				return true
			}
		}
	}
	var rerr *RemoteRequestError
	if errors.As(err, &rerr) {
		return rerr.Status == http.StatusNotFound || rerr.Status == http.StatusGone
	}
	return false
}
