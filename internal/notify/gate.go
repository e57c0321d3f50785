package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"

	"github.com/teemow/taskdeck/internal/gmail"
	"github.com/teemow/taskdeck/internal/logging"
	"github.com/teemow/taskdeck/internal/store"
)

// ErrInvalidEmail reports an address that does not look like an email.
var ErrInvalidEmail = errors.New("invalid email address")

// emailPattern accepts anything of the shape local@domain.tld with no
// whitespace. Deliverability is the mail provider's problem, not ours.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const (
	welcomeSubject = "Taskdeck: Notifications enabled"
	welcomeBody    = "You will now receive a daily digest of your unfinished tasks at this address.\n\nTo stop receiving these emails, disable notifications in Taskdeck."
	goodbyeSubject = "Taskdeck: Notifications disabled"
	goodbyeBody    = "You will no longer receive daily digest emails from Taskdeck.\n\nYou can re-enable notifications at any time."
)

// Mailer sends a plain-text mail. *gmail.Client implements it.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (*gmail.Receipt, error)
}

// Gate owns the notification preference and the welcome/goodbye mails that
// accompany changes to it.
type Gate struct {
	store  store.Store
	mailer Mailer
	logger *slog.Logger
}

// NewGate creates a gate. A nil logger uses slog.Default().
func NewGate(st store.Store, mailer Mailer, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: st, mailer: mailer, logger: logger}
}

// ValidEmail reports whether addr has the shape of an email address.
func ValidEmail(addr string) bool {
	return emailPattern.MatchString(addr)
}

// Preference returns the current notification preference.
func (g *Gate) Preference(ctx context.Context) (store.Preference, error) {
	return g.store.Preference(ctx)
}

// SetEnabled turns digest notifications on or off.
//
// Enabling requires a valid address and persists it. Disabling keeps the
// previously stored address and ignores the email argument. In both cases
// the preference is persisted first; the confirmation mail is best effort
// and a send failure is logged but never fails the call or reverts the
// stored preference.
func (g *Gate) SetEnabled(ctx context.Context, enabled bool, email string) (store.Preference, error) {
	prev, err := g.store.Preference(ctx)
	if err != nil {
		return store.Preference{}, err
	}

	var next store.Preference
	if enabled {
		if !ValidEmail(email) {
			return prev, fmt.Errorf("%w: %q", ErrInvalidEmail, email)
		}
		next = store.Preference{Enabled: true, Email: email}
	} else {
		next = store.Preference{Enabled: false, Email: prev.Email}
	}

	if err := g.store.SetPreference(ctx, next); err != nil {
		return prev, err
	}

	if enabled {
		g.sendConfirmation(ctx, next.Email, welcomeSubject, welcomeBody)
	} else if prev.Email != "" {
		g.sendConfirmation(ctx, prev.Email, goodbyeSubject, goodbyeBody)
	}
	return next, nil
}

func (g *Gate) sendConfirmation(ctx context.Context, to, subject, body string) {
	if g.mailer == nil {
		return
	}
	if _, err := g.mailer.Send(ctx, to, subject, body); err != nil {
		g.logger.Warn("confirmation mail not sent",
			logging.UserHash(to), "subject", subject, logging.Err(err))
		return
	}
	g.logger.Debug("confirmation mail sent", logging.UserHash(to), "subject", subject)
}
