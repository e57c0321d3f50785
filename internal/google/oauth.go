package google

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	cacheDirName  = "taskdeck"
	tokenFileName = "google.token"

	// OOB is the out-of-band redirect for installed applications: the user
	// copies the authorization code from the browser into the CLI.
	OOB = "urn:ietf:wg:oauth:2.0:oob"
)

// OAuthConfig returns the OAuth2 configuration for all Google services.
// Client credentials come from GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET
// (a local .env file is loaded at startup).
func OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		Endpoint:     google.Endpoint,
		RedirectURL:  OOB,
		Scopes:       Scopes(),
	}
}

// GetAuthURL returns the OAuth URL for user authorization
func GetAuthURL() string {
	conf := OAuthConfig()
	return conf.AuthCodeURL("state")
}

// HasToken checks if a stored OAuth refresh credential exists
func HasToken() bool {
	_, err := os.ReadFile(tokenFilePath())
	return err == nil
}

// SaveToken exchanges an authorization code for tokens and saves them
func SaveToken(ctx context.Context, authCode string) error {
	conf := OAuthConfig()

	t, err := conf.Exchange(ctx, authCode)
	if err != nil {
		return fmt.Errorf("failed to exchange auth code: %w", err)
	}

	return writeTokenFile(t)
}

// loadTokenFile reads the stored credential pair. The returned token carries
// an expiry in the past so the oauth2 token source always refreshes it.
func loadTokenFile() (*oauth2.Token, error) {
	slurp, err := os.ReadFile(tokenFilePath())
	if err != nil {
		return nil, fmt.Errorf("no stored Google OAuth token: %w", err)
	}

	f := strings.Fields(strings.TrimSpace(string(slurp)))
	if len(f) != 2 {
		return nil, fmt.Errorf("invalid token file format")
	}

	return &oauth2.Token{
		AccessToken:  f[0],
		TokenType:    "Bearer",
		RefreshToken: f[1],
		Expiry:       time.Unix(1, 0),
	}, nil
}

func writeTokenFile(t *oauth2.Token) error {
	dir := filepath.Dir(tokenFilePath())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	tokenData := t.AccessToken + " " + t.RefreshToken
	if err := os.WriteFile(tokenFilePath(), []byte(tokenData), 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}

	return nil
}

func tokenFilePath() string {
	return filepath.Join(userCacheDir(), cacheDirName, tokenFileName)
}

func userCacheDir() string {
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(homeDir(), "Library", "Caches")
	case "windows":
		for _, ev := range []string{"TEMP", "TMP"} {
			if v := os.Getenv(ev); v != "" {
				return v
			}
		}
		panic("No Windows TEMP or TMP environment variables found")
	}
	if xdg := os.Getenv("XDG_CACHE_HOME"); xdg != "" {
		return xdg
	}
	return filepath.Join(homeDir(), ".cache")
}

func homeDir() string {
	if runtime.GOOS == "windows" {
		return os.Getenv("HOMEDRIVE") + os.Getenv("HOMEPATH")
	}
	return os.Getenv("HOME")
}
