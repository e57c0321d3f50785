package google

import (
	"errors"
	"fmt"
	"testing"

	"google.golang.org/api/googleapi"
)

func TestWrapRemoteError(t *testing.T) {
	gerr := &googleapi.Error{
		Code: 403,
		Body: `{"error":{"errors":[{"reason":"insufficientPermissions"}]}}`,
	}

	err := WrapRemoteError("calendar.create", gerr)

	var rerr *RemoteRequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RemoteRequestError, got %T", err)
	}
	if rerr.Status != 403 {
		t.Errorf("Status = %d, want 403", rerr.Status)
	}
	if rerr.Body != gerr.Body {
		t.Errorf("Body = %q, want verbatim response body", rerr.Body)
	}
	if rerr.Op != "calendar.create" {
		t.Errorf("Op = %q, want calendar.create", rerr.Op)
	}
}

func TestWrapRemoteError_Nil(t *testing.T) {
	if err := WrapRemoteError("gmail.send", nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestWrapRemoteError_TransportError(t *testing.T) {
	cause := errors.New("connection refused")
	err := WrapRemoteError("gmail.send", cause)

	var rerr *RemoteRequestError
	if errors.As(err, &rerr) {
		t.Fatal("transport errors must not become RemoteRequestError")
	}
	if !errors.Is(err, cause) {
		t.Error("wrapped error lost its cause")
	}
}

func TestWrapRemoteError_BodyFallsBackToMessage(t *testing.T) {
	gerr := &googleapi.Error{Code: 400, Message: "invalid argument"}

	err := WrapRemoteError("calendar.patch", gerr)

	var rerr *RemoteRequestError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected RemoteRequestError, got %T", err)
	}
	if rerr.Body != "invalid argument" {
		t.Errorf("Body = %q, want message fallback", rerr.Body)
	}
}

func TestIsUnauthorized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"googleapi 401", &googleapi.Error{Code: 401}, true},
		{"googleapi 403", &googleapi.Error{Code: 403}, false},
		{"wrapped 401", fmt.Errorf("send: %w", &googleapi.Error{Code: 401}), true},
		{"remote request 401", &RemoteRequestError{Op: "gmail.send", Status: 401}, true},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnauthorized(tt.err); got != tt.want {
				t.Errorf("IsUnauthorized() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsGone(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"404", &googleapi.Error{Code: 404}, true},
		{"410 gone", &googleapi.Error{Code: 410}, true},
		{"500", &googleapi.Error{Code: 500}, false},
		{
			// Calendar reports out-of-band deletions with a reason rather
			// than a literal not-found status
			"deleted reason",
			&googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{{Reason: "deleted"}}},
			true,
		},
		{
			"resourceGone reason",
			&googleapi.Error{Code: 400, Errors: []googleapi.ErrorItem{{Reason: "resourceGone"}}},
			true,
		},
		{"remote request 404", &RemoteRequestError{Op: "calendar.delete", Status: 404}, true},
		{"remote request 403", &RemoteRequestError{Op: "calendar.delete", Status: 403}, false},
		{"plain error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsGone(tt.err); got != tt.want {
				t.Errorf("IsGone() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthErrorUnwrap(t *testing.T) {
	cause := errors.New("consent denied")
	err := &AuthError{Op: "calendar.create", Err: cause}
	if !errors.Is(err, cause) {
		t.Error("AuthError must unwrap to its cause")
	}
}
