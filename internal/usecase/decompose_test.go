package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
)

func candles(symbol string, closes ...float64) []models.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{Bucket: base.Add(time.Duration(i) * time.Minute), Symbol: symbol, Close: c}
	}
	return out
}

func availableRunner() *BatchRunner {
	return NewBatchRunner(domsvc.Present(echoTrend), nil)
}

func TestDecomposeUseCase_Capability(t *testing.T) {
	uc := NewDecomposeUseCase(NewBatchRunner(domsvc.Absent("engine not installed"), nil), nil)
	assert.Equal(t, models.CapabilityResponse{Available: false, Reason: "engine not installed"}, uc.Capability())

	uc = NewDecomposeUseCase(availableRunner(), nil)
	assert.Equal(t, models.CapabilityResponse{Available: true}, uc.Capability())
}

func TestDecomposeUseCase_DatasetDeliversToSinks(t *testing.T) {
	store := &MockResultStore{}
	pub := &MockResultPublisher{}
	metrics := &MockMetrics{}
	store.On("SaveRun", mock.Anything, mock.AnythingOfType("*models.BatchRun")).Return(nil).Once()
	pub.On("PublishRun", mock.Anything, mock.AnythingOfType("*models.BatchRun")).Return(errors.New("broker down")).Once()
	metrics.On("RecordSinkWrite", "clickhouse", 2).Once()
	metrics.On("RecordError", "result_publish").Once()

	uc := NewDecomposeUseCase(availableRunner(), nil,
		WithResultStore(store), WithResultPublisher(pub), WithDecomposeMetrics(metrics))
	run, err := uc.DecomposeDataset(context.Background(), priceDataset())
	require.NoError(t, err)
	assert.Equal(t, 2, run.Succeeded)

	store.AssertExpectations(t)
	pub.AssertExpectations(t)
	metrics.AssertExpectations(t)
}

func TestDecomposeUseCase_UnavailableSkipsSinks(t *testing.T) {
	store := &MockResultStore{}
	uc := NewDecomposeUseCase(NewBatchRunner(domsvc.Absent(""), nil), nil, WithResultStore(store))
	_, err := uc.DecomposeDataset(context.Background(), priceDataset())
	assert.True(t, domsvc.IsUnavailable(err))
	store.AssertNotCalled(t, "SaveRun", mock.Anything, mock.Anything)
}

func TestDecomposeUseCase_Symbols(t *testing.T) {
	cs := &MockCandleStore{}
	cs.On("GetLatestNCandles", mock.Anything, "AAPL", 3, domrepo.TF1m).Return(candles("AAPL", 1, 2, 3), nil).Once()
	cs.On("GetLatestNCandles", mock.Anything, "MSFT", 3, domrepo.TF1m).Return(candles("MSFT", 10, 11), nil).Once()

	uc := NewDecomposeUseCase(availableRunner(), nil, WithCandleStore(cs))
	run, err := uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{
		Symbols:   []string{"aapl", "MSFT", "AAPL"},
		N:         3,
		Timeframe: domrepo.TF1m,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, run.Results.Names())

	aapl, _ := run.Results.Get("AAPL")
	assert.Equal(t, []float64{1, 2, 3}, aapl.Trend)
	msft, _ := run.Results.Get("MSFT")
	assert.Equal(t, []float64{10, 11}, msft.Trend)
	cs.AssertExpectations(t)
}

func TestDecomposeUseCase_SymbolDefaults(t *testing.T) {
	cs := &MockCandleStore{}
	cs.On("GetLatestNCandles", mock.Anything, "GOOG", 4, domrepo.TF5m).Return(candles("GOOG", 5, 6, 7, 8), nil).Once()

	uc := NewDecomposeUseCase(availableRunner(), nil,
		WithCandleStore(cs), WithSymbolDefaults([]string{"goog"}, 4, domrepo.TF5m))
	run, err := uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"GOOG"}, run.Results.Names())
	cs.AssertExpectations(t)
}

func TestDecomposeUseCase_SymbolsWindow(t *testing.T) {
	to := time.Date(2024, 1, 1, 0, 10, 30, 0, time.UTC)
	from := time.Date(2024, 1, 1, 0, 7, 0, 0, time.UTC)
	cs := &MockCandleStore{}
	cs.On("GetCandles", mock.Anything, "AAPL", from, to.Truncate(time.Minute), domrepo.TF1m).
		Return(candles("AAPL", 1, 2, 3), nil).Once()

	uc := NewDecomposeUseCase(availableRunner(), nil, WithCandleStore(cs))
	run, err := uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{
		Symbols: []string{"AAPL"}, N: 3, Timeframe: domrepo.TF1m, To: to,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, run.Succeeded)
	cs.AssertExpectations(t)
	cs.AssertNotCalled(t, "GetLatestNCandles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	_, err = uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{
		Symbols: []string{"AAPL"}, N: 3, From: to, To: from,
	})
	assert.ErrorIs(t, err, domsvc.ErrInvalidDataset)
}

func TestDecomposeUseCase_SymbolsFailFastWithoutEngine(t *testing.T) {
	cs := &MockCandleStore{}
	uc := NewDecomposeUseCase(NewBatchRunner(domsvc.Absent(""), nil), nil, WithCandleStore(cs))
	_, err := uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{Symbols: []string{"AAPL"}})
	assert.True(t, domsvc.IsUnavailable(err))
	cs.AssertNotCalled(t, "GetLatestNCandles", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDecomposeUseCase_SymbolsErrors(t *testing.T) {
	_, err := NewDecomposeUseCase(availableRunner(), nil).
		DecomposeSymbols(context.Background(), DecomposeSymbolsParams{Symbols: []string{"AAPL"}})
	assert.Error(t, err)

	cs := &MockCandleStore{}
	cs.On("GetLatestNCandles", mock.Anything, "AAPL", 600, domrepo.TF1m).Return(nil, errors.New("timeout")).Once()
	uc := NewDecomposeUseCase(availableRunner(), nil, WithCandleStore(cs))

	_, err = uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{Symbols: []string{" "}})
	assert.ErrorIs(t, err, domsvc.ErrInvalidDataset)

	_, err = uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{Symbols: []string{"AAPL"}})
	assert.ErrorContains(t, err, "load candles AAPL")
}

func TestDecomposeUseCase_CandleErrorCancelsSiblings(t *testing.T) {
	cs := &MockCandleStore{}
	cs.On("GetLatestNCandles", mock.Anything, "AAPL", 600, domrepo.TF1m).Return(nil, errors.New("timeout")).Once()
	cs.On("GetLatestNCandles", mock.Anything, "MSFT", 600, domrepo.TF1m).
		Run(func(args mock.Arguments) {
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()

	uc := NewDecomposeUseCase(availableRunner(), nil, WithCandleStore(cs))
	_, err := uc.DecomposeSymbols(context.Background(), DecomposeSymbolsParams{Symbols: []string{"AAPL", "MSFT"}})
	assert.ErrorContains(t, err, "load candles AAPL")
	cs.AssertExpectations(t)
}

func TestJobsUseCase_Submit(t *testing.T) {
	jobs := &MockJobStore{}
	enq := &MockEnqueuer{}
	jobs.On("PutStatus", mock.Anything, mock.MatchedBy(func(st *models.JobStatus) bool {
		return st.State == models.JobQueued && st.ID != ""
	})).Return(nil).Once()
	enq.On("Enqueue", mock.Anything, JobTypeDecompose, mock.AnythingOfType("usecase.DecomposeJobPayload")).Return(nil).Once()

	uc := NewJobsUseCase(enq, jobs, NewDecomposeUseCase(availableRunner(), nil))
	id, err := uc.Submit(context.Background(), models.DecomposeJobRequest{Symbols: []string{"AAPL"}, N: 10, TF: "1m"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	payload := enq.Calls[0].Arguments.Get(2).(DecomposeJobPayload)
	assert.Equal(t, id, payload.JobID)
	jobs.AssertExpectations(t)
	enq.AssertExpectations(t)
}

func TestJobsUseCase_SubmitFailures(t *testing.T) {
	_, err := NewJobsUseCase(nil, nil, NewDecomposeUseCase(availableRunner(), nil)).
		Submit(context.Background(), models.DecomposeJobRequest{})
	assert.ErrorIs(t, err, ErrJobsDisabled)

	_, err = NewJobsUseCase(&MockEnqueuer{}, &MockJobStore{}, NewDecomposeUseCase(NewBatchRunner(domsvc.Absent(""), nil), nil)).
		Submit(context.Background(), models.DecomposeJobRequest{})
	assert.True(t, domsvc.IsUnavailable(err))

	jobs := &MockJobStore{}
	enq := &MockEnqueuer{}
	jobs.On("PutStatus", mock.Anything, mock.Anything).Return(nil).Twice()
	enq.On("Enqueue", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("queue not running")).Once()
	_, err = NewJobsUseCase(enq, jobs, NewDecomposeUseCase(availableRunner(), nil)).
		Submit(context.Background(), models.DecomposeJobRequest{Symbols: []string{"AAPL"}})
	assert.ErrorContains(t, err, "queue not running")
	last := jobs.Calls[1].Arguments.Get(1).(*models.JobStatus)
	assert.Equal(t, models.JobFailed, last.State)
}

func TestDecomposeJob_Handle(t *testing.T) {
	cs := &MockCandleStore{}
	cs.On("GetLatestNCandles", mock.Anything, "AAPL", 3, domrepo.TF5m).Return(candles("AAPL", 1, 2, 3), nil)

	var states []string
	jobs := &MockJobStore{}
	jobs.On("PutStatus", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		states = append(states, args.Get(1).(*models.JobStatus).State)
	}).Return(nil)

	job := NewDecomposeJob(NewDecomposeUseCase(availableRunner(), nil, WithCandleStore(cs)), jobs, nil)
	assert.Equal(t, JobTypeDecompose, job.Type())

	raw, _ := json.Marshal(DecomposeJobPayload{JobID: "j1", Symbols: []string{"AAPL"}, N: 3, TF: "5m"})
	require.NoError(t, job.Handle(context.Background(), raw))
	assert.Equal(t, []string{models.JobRunning, models.JobDone}, states)

	done := jobs.Calls[1].Arguments.Get(1).(*models.JobStatus)
	require.NotNil(t, done.Run)
	assert.Equal(t, []string{"AAPL"}, done.Run.Results.Names())
}

func TestDecomposeJob_UnavailableIsNotRetried(t *testing.T) {
	jobs := &MockJobStore{}
	jobs.On("PutStatus", mock.Anything, mock.Anything).Return(nil)
	job := NewDecomposeJob(NewDecomposeUseCase(NewBatchRunner(domsvc.Absent(""), nil), nil), jobs, nil)

	raw, _ := json.Marshal(DecomposeJobPayload{JobID: "j2", Symbols: []string{"AAPL"}})
	assert.NoError(t, job.Handle(context.Background(), raw))
	failed := jobs.Calls[1].Arguments.Get(1).(*models.JobStatus)
	assert.Equal(t, models.JobFailed, failed.State)

	assert.Error(t, job.Handle(context.Background(), []byte("{")))
}

func TestKafkaRequestsHandler(t *testing.T) {
	pub := &MockResultPublisher{}
	pub.On("PublishRun", mock.Anything, mock.Anything).Return(nil).Once()
	metrics := &MockMetrics{}
	metrics.On("RecordSinkWrite", "kafka", 2).Once()
	metrics.On("RecordError", mock.Anything)

	uc := NewDecomposeUseCase(availableRunner(), nil, WithResultPublisher(pub), WithDecomposeMetrics(metrics))
	h := NewKafkaRequestsHandler("requests", uc, metrics, nil)
	assert.Equal(t, "requests", h.Topic())

	body, _ := json.Marshal(map[string]interface{}{"dataset": priceDataset()})
	require.NoError(t, h.Handle(context.Background(), body))
	pub.AssertExpectations(t)

	assert.Error(t, h.Handle(context.Background(), []byte("not json")))
	assert.NoError(t, h.Handle(context.Background(), []byte(`{}`)))
	metrics.AssertCalled(t, "RecordError", "consumer_unmarshal")
	metrics.AssertCalled(t, "RecordError", "consumer_empty")
}

func TestKafkaRequestsHandler_UnavailableDropped(t *testing.T) {
	uc := NewDecomposeUseCase(NewBatchRunner(domsvc.Absent(""), nil), nil)
	h := NewKafkaRequestsHandler("requests", uc, nil, nil)
	assert.NoError(t, h.Handle(context.Background(), []byte(`{"symbols":["AAPL"]}`)))
}
