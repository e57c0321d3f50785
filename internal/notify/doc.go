// Package notify holds the notification preference gate: whether digest mail
// is enabled and which address receives it.
//
// The preference is persisted before any confirmation mail is sent, so a mail
// failure never loses the user's choice. Disabling keeps the stored address
// so re-enabling does not require typing it again.
package notify
