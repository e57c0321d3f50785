package gmail

import (
	"encoding/base64"
	"strings"
	"time"
)

// rfc2822Date renders t in the fixed textual timestamp format mail headers
// use, e.g. "Fri, 12 Sep 2025 12:34:56 -0700".
func rfc2822Date(t time.Time) string {
	return t.Format("Mon, 02 Jan 2006 15:04:05 -0700")
}

// buildMessage assembles a minimal, standards-friendly single-part plain
// text message. Headers and body are joined with CRLF with one blank line
// before the body.
func buildMessage(from, to, subject, body string, date time.Time) string {
	lines := []string{
		"From: " + from,
		"To: " + to,
		"Subject: " + subject,
		"Date: " + rfc2822Date(date),
		"MIME-Version: 1.0",
		`Content-Type: text/plain; charset="UTF-8"`,
		"Content-Transfer-Encoding: 8bit",
		"",
		body,
	}
	return strings.Join(lines, "\r\n")
}

// encodeRaw base64url-encodes a message without padding, as the Gmail raw
// send endpoint expects.
func encodeRaw(message string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(message))
}
