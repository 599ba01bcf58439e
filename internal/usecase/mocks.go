package usecase

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	"FinTrend/pkg/queue"
)

// MockMetrics is a testify mock of domrepo.Metrics.
type MockMetrics struct {
	mock.Mock
}

func (m *MockMetrics) RecordSeriesOutcome(outcome string) { m.Called(outcome) }
func (m *MockMetrics) RecordError(kind string)            { m.Called(kind) }
func (m *MockMetrics) RecordSinkWrite(sink string, n int) { m.Called(sink, n) }
func (m *MockMetrics) RecordBatchSize(n int)              { m.Called(n) }
func (m *MockMetrics) RecordLatency(op string, s float64) { m.Called(op, s) }

// MockResultStore is a testify mock of domrepo.ResultStore.
type MockResultStore struct {
	mock.Mock
}

func (m *MockResultStore) Init(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *MockResultStore) SaveRun(ctx context.Context, run *models.BatchRun) error {
	return m.Called(ctx, run).Error(0)
}
func (m *MockResultStore) Health(ctx context.Context) error { return m.Called(ctx).Error(0) }
func (m *MockResultStore) Close() error                     { return m.Called().Error(0) }

// MockResultPublisher is a testify mock of domrepo.ResultPublisher.
type MockResultPublisher struct {
	mock.Mock
}

func (m *MockResultPublisher) PublishRun(ctx context.Context, run *models.BatchRun) error {
	return m.Called(ctx, run).Error(0)
}
func (m *MockResultPublisher) Close() error { return m.Called().Error(0) }

// MockCandleStore is a testify mock of domrepo.CandleStore.
type MockCandleStore struct {
	mock.Mock
}

func (m *MockCandleStore) GetCandles(ctx context.Context, symbol string, from, to time.Time, tf domrepo.Timeframe) ([]models.Candle, error) {
	args := m.Called(ctx, symbol, from, to, tf)
	c, _ := args.Get(0).([]models.Candle)
	return c, args.Error(1)
}

func (m *MockCandleStore) GetLatestNCandles(ctx context.Context, symbol string, n int, tf domrepo.Timeframe) ([]models.Candle, error) {
	args := m.Called(ctx, symbol, n, tf)
	c, _ := args.Get(0).([]models.Candle)
	return c, args.Error(1)
}

// MockJobStore is a testify mock of domrepo.JobStore.
type MockJobStore struct {
	mock.Mock
}

func (m *MockJobStore) PutStatus(ctx context.Context, st *models.JobStatus) error {
	return m.Called(ctx, st).Error(0)
}

func (m *MockJobStore) GetStatus(ctx context.Context, id string) (*models.JobStatus, error) {
	args := m.Called(ctx, id)
	st, _ := args.Get(0).(*models.JobStatus)
	return st, args.Error(1)
}

// MockEnqueuer is a testify mock of queue.Enqueuer.
type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, msgType string, payload interface{}) error {
	return m.Called(ctx, msgType, payload).Error(0)
}

var (
	_ domrepo.JobStore        = (*MockJobStore)(nil)
	_ queue.Enqueuer          = (*MockEnqueuer)(nil)
	_ domrepo.Metrics         = (*MockMetrics)(nil)
	_ domrepo.ResultStore     = (*MockResultStore)(nil)
	_ domrepo.ResultPublisher = (*MockResultPublisher)(nil)
	_ domrepo.CandleStore     = (*MockCandleStore)(nil)
)
