package queue

import "errors"

var (
	// ErrQueueFull is returned when a user's pending backlog is at the cap.
	ErrQueueFull = errors.New("queue full")
	// ErrNotFound is returned when no matching entry exists.
	ErrNotFound = errors.New("queue entry not found")
)
