package google

import (
	"context"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/teemow/taskdeck/internal/instrumentation"
)

// WithAuthRetry runs fn with a bearer token and applies the one-retry-on-401
// contract: when the remote rejects the token, it is invalidated and the
// request is retried exactly once with a freshly obtained token
// (non-interactive refresh first, interactive consent as fallback). A second
// 401 becomes a fatal AuthError for the operation.
//
// The op string names the remote call as "service.operation" (for example
// "calendar.create") and labels the span and the API operation metrics. A
// nil metrics records nothing.
//
// All remote calls in taskdeck go through this combinator rather than
// duplicating the retry policy per call site.
func WithAuthRetry(ctx context.Context, provider TokenProvider, metrics *instrumentation.Metrics, op string, fn func(ctx context.Context, token *oauth2.Token) error) error {
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	service, operation := splitOp(op)

	ctx, span := instrumentation.StartGoogleAPISpan(ctx, service, operation)
	defer span.End()

	start := time.Now()
	err := runWithRetry(ctx, provider, op, fn)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		instrumentation.SetSpanError(span, err)
	} else {
		instrumentation.SetSpanSuccess(span)
	}
	metrics.RecordGoogleAPIOperation(ctx, service, operation, status, time.Since(start))

	return err
}

func runWithRetry(ctx context.Context, provider TokenProvider, op string, fn func(ctx context.Context, token *oauth2.Token) error) error {
	token, err := provider.GetToken(ctx, true)
	if err != nil {
		return &AuthError{Op: op, Err: err}
	}

	err = fn(ctx, token)
	if err == nil || !IsUnauthorized(err) {
		return err
	}

	provider.Invalidate(token)

	token, err = provider.GetToken(ctx, true)
	if err != nil {
		return &AuthError{Op: op, Err: err}
	}

	err = fn(ctx, token)
	if err != nil && IsUnauthorized(err) {
		return &AuthError{Op: op, Err: err}
	}
	return err
}

// splitOp separates a "service.operation" op name into its metric labels.
func splitOp(op string) (service, operation string) {
	if i := strings.IndexByte(op, '.'); i > 0 {
		return op[:i], op[i+1:]
	}
	return op, op
}
