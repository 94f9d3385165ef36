package jobqueue

import "errors"

// Sentinel errors for queue operations.
var (
	// ErrJobNotFound indicates the id was never submitted or has been reaped.
	// Distinct from a failed job, which still has a record.
	ErrJobNotFound = errors.New("job not found")

	// ErrQueueFull indicates the work queue cannot accept another submission.
	ErrQueueFull = errors.New("job queue is full")

	// ErrQueueClosed indicates the queue has been shut down.
	ErrQueueClosed = errors.New("job queue is closed")
)
