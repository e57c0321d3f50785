package google

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
)

// fakeProvider hands out a scripted sequence of tokens and records
// invalidations.
type fakeProvider struct {
	tokens      []string
	gets        int
	invalidated []string
}

func (f *fakeProvider) GetToken(_ context.Context, _ bool) (*oauth2.Token, error) {
	if f.gets >= len(f.tokens) {
		return nil, errors.New("consent denied")
	}
	tok := &oauth2.Token{AccessToken: f.tokens[f.gets]}
	f.gets++
	return tok, nil
}

func (f *fakeProvider) Invalidate(token *oauth2.Token) {
	f.invalidated = append(f.invalidated, token.AccessToken)
}

func TestWithAuthRetry_SuccessFirstTry(t *testing.T) {
	provider := &fakeProvider{tokens: []string{"tok1"}}
	calls := 0

	err := WithAuthRetry(context.Background(), provider, nil, "calendar.create", func(_ context.Context, token *oauth2.Token) error {
		calls++
		if token.AccessToken != "tok1" {
			t.Errorf("token = %q, want tok1", token.AccessToken)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if len(provider.invalidated) != 0 {
		t.Errorf("unexpected invalidations: %v", provider.invalidated)
	}
}

func TestWithAuthRetry_RetriesOnceOn401(t *testing.T) {
	provider := &fakeProvider{tokens: []string{"stale", "fresh"}}
	calls := 0

	err := WithAuthRetry(context.Background(), provider, nil, "gmail.send", func(_ context.Context, token *oauth2.Token) error {
		calls++
		if token.AccessToken == "stale" {
			return &googleapi.Error{Code: 401}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
	if len(provider.invalidated) != 1 || provider.invalidated[0] != "stale" {
		t.Errorf("invalidated = %v, want exactly [stale]", provider.invalidated)
	}
}

func TestWithAuthRetry_SecondUnauthorizedIsFatal(t *testing.T) {
	provider := &fakeProvider{tokens: []string{"tok1", "tok2"}}
	calls := 0

	err := WithAuthRetry(context.Background(), provider, nil, "calendar.patch", func(_ context.Context, _ *oauth2.Token) error {
		calls++
		return &googleapi.Error{Code: 401}
	})

	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthError after two 401s, got %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want exactly 2 (no second retry)", calls)
	}
	if len(provider.invalidated) != 1 {
		t.Errorf("invalidated %d tokens, want exactly 1", len(provider.invalidated))
	}
}

func TestWithAuthRetry_NonAuthErrorsPassThrough(t *testing.T) {
	provider := &fakeProvider{tokens: []string{"tok1"}}
	remote := fmt.Errorf("calendar.create: %w", &googleapi.Error{Code: 403})

	err := WithAuthRetry(context.Background(), provider, nil, "calendar.create", func(_ context.Context, _ *oauth2.Token) error {
		return remote
	})
	if !errors.Is(err, remote) {
		t.Errorf("err = %v, want the remote error untouched", err)
	}
	if len(provider.invalidated) != 0 {
		t.Errorf("403 must not invalidate the token, got %v", provider.invalidated)
	}
}

func TestWithAuthRetry_ConsentDenied(t *testing.T) {
	provider := &fakeProvider{} // no tokens available at all

	err := WithAuthRetry(context.Background(), provider, nil, "gmail.send", func(_ context.Context, _ *oauth2.Token) error {
		t.Fatal("fn must not run without a token")
		return nil
	})

	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
}

func TestWithAuthRetry_RefreshDeniedAfter401(t *testing.T) {
	provider := &fakeProvider{tokens: []string{"stale"}} // nothing left for the retry
	calls := 0

	err := WithAuthRetry(context.Background(), provider, nil, "gmail.send", func(_ context.Context, _ *oauth2.Token) error {
		calls++
		return &googleapi.Error{Code: 401}
	})

	var aerr *AuthError
	if !errors.As(err, &aerr) {
		t.Fatalf("expected AuthError, got %v", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}
