// Package todo_tools provides MCP tools for managing taskdeck day-keyed
// tasks and their linked calendar events.
//
// This package implements MCP (Model Context Protocol) tools that wrap the
// task-event synchronizer, digest scheduler, and notification gate, exposing
// the same operations the HTTP command endpoint offers.
//
// # Available Tools
//
// Task Management:
//   - todo_list_tasks: List tasks in a day bucket
//   - todo_add_task: Add a local task with no calendar link
//   - todo_create_event: Create a calendar event with a linked task
//   - todo_toggle_done: Toggle a task's done state (mirrored to the event)
//   - todo_delete_task: Delete a task (and its linked event, if any)
//   - todo_clear_completed: Clear all finished tasks from a day bucket
//
// Digest and Notifications:
//   - todo_email_unfinished_now: Send the unfinished-task digest immediately
//   - todo_notify_toggle: Enable or disable digest notifications
//
// # Day Keys
//
// Tasks are organized in day buckets keyed "todos_YYYY-MM-DD". Tools that
// take a dayKey default to today's bucket when it is omitted.
package todo_tools
