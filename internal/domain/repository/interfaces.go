package repository

import (
	"context"
	"errors"

	"FinTrend/internal/domain/models"
)

// ResultStore persists finished batch runs.
type ResultStore interface {
	Init(ctx context.Context) error // ensure tables
	SaveRun(ctx context.Context, run *models.BatchRun) error
	Health(ctx context.Context) error
	Close() error
}

// ResultPublisher fans finished batch runs out to downstream consumers.
type ResultPublisher interface {
	PublishRun(ctx context.Context, run *models.BatchRun) error
	Close() error
}

// ErrJobNotFound is returned for unknown or expired job ids.
var ErrJobNotFound = errors.New("job not found")

// JobStore keeps the status of asynchronous decompositions.
type JobStore interface {
	PutStatus(ctx context.Context, st *models.JobStatus) error
	GetStatus(ctx context.Context, id string) (*models.JobStatus, error)
}

type Metrics interface {
	RecordSeriesOutcome(outcome string)
	RecordError(kind string)
	RecordSinkWrite(sink string, n int)
	RecordBatchSize(n int)
	RecordLatency(op string, seconds float64)
}
