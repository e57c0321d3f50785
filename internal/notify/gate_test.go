package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/taskdeck/internal/gmail"
	"github.com/teemow/taskdeck/internal/store"
)

type recordingMailer struct {
	sendErr  error
	sent     []string
	subjects []string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _ string) (*gmail.Receipt, error) {
	m.sent = append(m.sent, to)
	m.subjects = append(m.subjects, subject)
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	return &gmail.Receipt{ID: "msg1"}, nil
}

func TestValidEmail(t *testing.T) {
	valid := []string{"a@b.co", "user.name+tag@example.org", "x@sub.domain.io"}
	for _, addr := range valid {
		assert.True(t, ValidEmail(addr), addr)
	}
	invalid := []string{"", "plain", "a b@c.de", "a@b", "@b.co", "a@", "a@b.", "a @b.co"}
	for _, addr := range invalid {
		assert.False(t, ValidEmail(addr), addr)
	}
}

func TestSetEnabled_PersistsAndSendsWelcome(t *testing.T) {
	st := store.NewMemoryStore()
	mailer := &recordingMailer{}
	gate := NewGate(st, mailer, nil)

	pref, err := gate.SetEnabled(context.Background(), true, "me@example.com")
	require.NoError(t, err)
	assert.True(t, pref.Enabled)
	assert.Equal(t, "me@example.com", pref.Email)

	stored, err := st.Preference(context.Background())
	require.NoError(t, err)
	assert.Equal(t, pref, stored)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "me@example.com", mailer.sent[0])
	assert.Equal(t, "Taskdeck: Notifications enabled", mailer.subjects[0])
}

func TestSetEnabled_InvalidEmailRejectedBeforePersisting(t *testing.T) {
	st := store.NewMemoryStore()
	mailer := &recordingMailer{}
	gate := NewGate(st, mailer, nil)

	_, err := gate.SetEnabled(context.Background(), true, "not-an-email")
	assert.ErrorIs(t, err, ErrInvalidEmail)

	stored, serr := st.Preference(context.Background())
	require.NoError(t, serr)
	assert.False(t, stored.Enabled)
	assert.Empty(t, stored.Email)
	assert.Empty(t, mailer.sent)
}

func TestSetEnabled_MailFailureDoesNotRevertPreference(t *testing.T) {
	st := store.NewMemoryStore()
	mailer := &recordingMailer{sendErr: errors.New("smtp down")}
	gate := NewGate(st, mailer, nil)

	pref, err := gate.SetEnabled(context.Background(), true, "me@example.com")
	require.NoError(t, err, "confirmation mail is best effort")
	assert.True(t, pref.Enabled)

	stored, serr := st.Preference(context.Background())
	require.NoError(t, serr)
	assert.True(t, stored.Enabled)
}

func TestSetEnabled_DisableKeepsAddressAndSendsGoodbye(t *testing.T) {
	st := store.NewMemoryStore()
	mailer := &recordingMailer{}
	gate := NewGate(st, mailer, nil)
	require.NoError(t, st.SetPreference(context.Background(),
		store.Preference{Enabled: true, Email: "me@example.com"}))

	pref, err := gate.SetEnabled(context.Background(), false, "ignored@example.com")
	require.NoError(t, err)
	assert.False(t, pref.Enabled)
	assert.Equal(t, "me@example.com", pref.Email, "disable keeps the stored address")

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "me@example.com", mailer.sent[0], "goodbye goes to the previous address")
	assert.Equal(t, "Taskdeck: Notifications disabled", mailer.subjects[0])
}

func TestSetEnabled_DisableWithoutStoredAddressSendsNothing(t *testing.T) {
	st := store.NewMemoryStore()
	mailer := &recordingMailer{}
	gate := NewGate(st, mailer, nil)

	pref, err := gate.SetEnabled(context.Background(), false, "")
	require.NoError(t, err)
	assert.False(t, pref.Enabled)
	assert.Empty(t, mailer.sent)
}

func TestSetEnabled_NilMailer(t *testing.T) {
	st := store.NewMemoryStore()
	gate := NewGate(st, nil, nil)

	pref, err := gate.SetEnabled(context.Background(), true, "me@example.com")
	require.NoError(t, err)
	assert.True(t, pref.Enabled)
}
