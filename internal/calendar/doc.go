// Package calendar provides the remote calendar client used to mirror tasks
// as Google Calendar events.
//
// The client covers exactly the three operations the synchronizer needs:
// creating an event for a new task, patching an event's done-state
// presentation (completion glyph, muted color, free/busy transparency), and
// deleting an event. Every call follows the system-wide one-retry-on-401
// contract via google.WithAuthRetry, and absence during delete is a success
// variant rather than an error.
package calendar
