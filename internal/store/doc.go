// Package store implements the day-keyed task store: a keyed persistent
// store mapping a calendar day to its ordered list of task records, plus the
// single process-wide notification preference record.
//
// The store is the one shared mutable resource in the system. It offers no
// transactional guarantees: writes replace a whole day bucket and the last
// writer wins, so callers must read-modify-write rather than cache buckets
// across user actions.
//
// Two backends are provided: FileStore persists each bucket as a JSON file
// under a state directory, MemoryStore keeps everything in process memory
// (tests and ephemeral runs).
package store
