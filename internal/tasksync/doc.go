// Package tasksync keeps the day-keyed task store and the remote calendar
// consistent.
//
// Mutations are optimistic: the local record is updated and persisted first,
// the remote event second, and the local change is rolled back and
// re-persisted when the remote call fails. Tasks without an event link are
// authoritative locally and never trigger a remote call. During deletion a
// remote event that is already gone counts as successfully deleted, since
// the resource is absent either way.
package tasksync
