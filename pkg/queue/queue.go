package queue

import (
	"context"
	"time"
)

// Enqueuer publishes work for asynchronous processing.
type Enqueuer interface {
	Enqueue(ctx context.Context, msgType string, payload interface{}) error
}

// Config contains the configuration for the queue.
type Config struct {
	Workers    int           // number of consumer goroutines
	RetryLimit int           // attempts before the dead-letter list
	RetryDelay time.Duration // delay before a failed message is re-queued
	KeyPrefix  string
}
