package google

import (
	calendar "google.golang.org/api/calendar/v3"
	gmail "google.golang.org/api/gmail/v1"
)

// Scopes returns the OAuth scopes taskdeck requests during consent.
func Scopes() []string {
	return []string{
		calendar.CalendarEventsScope, // create, patch and delete events
		gmail.GmailSendScope,         // send digest and welcome/goodbye mail
		gmail.GmailMetadataScope,     // resolve the sender address via users.getProfile
	}
}
