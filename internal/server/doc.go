// Package server hosts the HTTP surfaces of taskdeck: the command envelope
// endpoint used by companion front ends, health endpoints for probes, and a
// dedicated Prometheus metrics server.
//
// Commands arrive as POST /v1/commands with a JSON body of the form
//
//	{"type": "TOGGLE_DONE", "payload": {"dayKey": "todos_2025-01-01", "index": 0, "done": true}}
//
// and are answered with an envelope that always carries an ok flag:
//
//	{"ok": true, "data": {...}}
//	{"ok": false, "error": "task not found", "code": "not_found"}
//
// Every command is handled even when it fails; a failed command is a
// well-formed ok:false response, not a dropped connection.
package server
