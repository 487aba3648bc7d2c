// Package queue persists the per-user FIFO of pending jobs in SQLite. Each
// user's jobs run strictly in order; enqueueing past the configured depth cap
// is rejected so one session cannot build an unbounded backlog. Jobs left in
// a processing status by a crash are failed on the next open.
package queue
