package gmail

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/taskdeck/internal/google"
	"github.com/teemow/taskdeck/internal/instrumentation"
)

// Receipt identifies an accepted outgoing message.
type Receipt struct {
	ID       string
	ThreadID string
}

// Client wraps the Gmail raw send API.
type Client struct {
	provider google.TokenProvider
	metrics  *instrumentation.Metrics
	now      func() time.Time
}

// NewClient creates a Gmail client using the given token provider. A nil
// metrics records nothing.
func NewClient(provider google.TokenProvider, metrics *instrumentation.Metrics) *Client {
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Client{
		provider: provider,
		metrics:  metrics,
		now:      time.Now,
	}
}

// service builds a Gmail service bound to one access token, so a retry after
// invalidation really uses the fresh token.
func (c *Client) service(ctx context.Context, token *oauth2.Token) (*gmail.Service, error) {
	svc, err := gmail.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}
	return svc, nil
}

// Send submits a single plain-text message. The sender address is resolved
// from the authenticated profile at call time.
func (c *Client) Send(ctx context.Context, to, subject, body string) (*Receipt, error) {
	if to == "" {
		return nil, fmt.Errorf("recipient must not be empty")
	}

	var sent *gmail.Message
	err := google.WithAuthRetry(ctx, c.provider, c.metrics, "gmail.send", func(ctx context.Context, token *oauth2.Token) error {
		svc, err := c.service(ctx, token)
		if err != nil {
			return err
		}

		profile, err := svc.Users.GetProfile("me").Context(ctx).Do()
		if err != nil {
			return err
		}

		raw := encodeRaw(buildMessage(profile.EmailAddress, to, subject, body, c.now()))
		sent, err = svc.Users.Messages.Send("me", &gmail.Message{Raw: raw}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, google.WrapRemoteError("gmail.send", err)
	}

	return &Receipt{ID: sent.Id, ThreadID: sent.ThreadId}, nil
}
