package google

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"golang.org/x/oauth2"

	"github.com/teemow/taskdeck/internal/instrumentation"
	"github.com/teemow/taskdeck/internal/logging"
)

// TokenProvider supplies OAuth bearer tokens and supports explicit eviction
// of tokens that a remote API has rejected.
type TokenProvider interface {
	// GetToken returns a cached or freshly refreshed token. When interactive
	// is true and refresh is impossible, user consent is requested; when it
	// is false the call fails instead.
	GetToken(ctx context.Context, interactive bool) (*oauth2.Token, error)

	// Invalidate evicts the given token from the cache so the next GetToken
	// obtains a fresh one. Idempotent; never fails visibly to the caller.
	Invalidate(token *oauth2.Token)
}

// ConsentFunc obtains an authorization code from the user for the given
// consent URL.
type ConsentFunc func(ctx context.Context, authURL string) (string, error)

// CachedTokenProvider caches the current access token in memory and falls
// back to the on-disk refresh credential, then to interactive consent.
type CachedTokenProvider struct {
	conf    *oauth2.Config
	consent ConsentFunc
	logger  *slog.Logger
	metrics *instrumentation.Metrics

	mu     sync.Mutex
	cached *oauth2.Token
}

// NewCachedTokenProvider creates a token provider. A nil conf uses
// OAuthConfig(), a nil consent func prompts on the terminal, a nil logger
// uses slog.Default(), a nil metrics records nothing.
func NewCachedTokenProvider(conf *oauth2.Config, consent ConsentFunc, logger *slog.Logger, metrics *instrumentation.Metrics) *CachedTokenProvider {
	if conf == nil {
		conf = OAuthConfig()
	}
	if consent == nil {
		consent = StdinConsent
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &CachedTokenProvider{
		conf:    conf,
		consent: consent,
		logger:  logger,
		metrics: metrics,
	}
}

// GetToken returns the cached token if still valid, otherwise refreshes from
// the stored credential, otherwise (when interactive) runs the consent flow.
func (p *CachedTokenProvider) GetToken(ctx context.Context, interactive bool) (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cached != nil && p.cached.Valid() {
		return p.cached, nil
	}

	tok, err := p.refresh(ctx)
	if err == nil {
		p.cached = tok
		return tok, nil
	}

	if !interactive {
		return nil, fmt.Errorf("no valid Google OAuth token: %w", err)
	}

	p.logger.Debug("token refresh failed, requesting consent", logging.Err(err))

	tok, err = p.interactiveConsent(ctx)
	if err != nil {
		return nil, err
	}
	p.cached = tok
	return tok, nil
}

// Invalidate drops the cached token if it matches the one the caller saw
// rejected. Calling it with an unknown or nil token is a no-op.
func (p *CachedTokenProvider) Invalidate(token *oauth2.Token) {
	if token == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cached != nil && p.cached.AccessToken == token.AccessToken {
		p.logger.Debug("invalidating cached token",
			"token", logging.SanitizeToken(token.AccessToken))
		p.cached = nil
	}
}

// refresh exchanges the stored refresh credential for a fresh access token.
func (p *CachedTokenProvider) refresh(ctx context.Context) (*oauth2.Token, error) {
	stored, err := loadTokenFile()
	if err != nil {
		return nil, err
	}

	ts := p.conf.TokenSource(ctx, stored)
	tok, err := ts.Token()
	if err != nil {
		p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultFailure)
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	p.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)

	// Persist rotated credentials so the next process start can refresh too.
	if tok.AccessToken != stored.AccessToken {
		if werr := writeTokenFile(tok); werr != nil {
			p.logger.Warn("failed to persist refreshed token", logging.Err(werr))
		}
	}

	return tok, nil
}

func (p *CachedTokenProvider) interactiveConsent(ctx context.Context) (*oauth2.Token, error) {
	code, err := p.consent(ctx, p.conf.AuthCodeURL("state"))
	if err != nil {
		return nil, fmt.Errorf("consent denied or unavailable: %w", err)
	}

	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}

	if werr := writeTokenFile(tok); werr != nil {
		p.logger.Warn("failed to persist token", logging.Err(werr))
	}

	return tok, nil
}

// StdinConsent prints the consent URL and reads the authorization code from
// standard input. Used by the CLI; headless deployments inject their own
// ConsentFunc or run non-interactively.
func StdinConsent(_ context.Context, authURL string) (string, error) {
	fmt.Fprintf(os.Stderr, "Authorize taskdeck by visiting:\n\n  %s\n\nEnter the authorization code: ", authURL)

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read authorization code: %w", err)
	}

	code := strings.TrimSpace(line)
	if code == "" {
		return "", fmt.Errorf("empty authorization code")
	}
	return code, nil
}
