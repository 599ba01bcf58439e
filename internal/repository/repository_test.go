package repository

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	"FinTrend/pkg/cache"
	pkgkafka "FinTrend/pkg/kafka"
)

func sampleRun() *models.BatchRun {
	res := models.NewResultsMapping()
	res.Put("MSFT", models.EstimationResult{
		Success:    true,
		Trend:      []float64{1, 2},
		Components: map[string][]float64{"slope": {1, 1}},
	})
	res.Put("AAPL", models.Failure("error processing AAPL: boom"))
	return &models.BatchRun{
		ID:        uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		StartedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Columns:   2,
		Succeeded: 1,
		Failed:    1,
		Results:   res,
	}
}

func TestResultRows(t *testing.T) {
	rows, err := resultRows(sampleRun())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "MSFT", rows[0][1])
	assert.Equal(t, uint32(0), rows[0][2])
	assert.Equal(t, uint8(1), rows[0][4])
	assert.Equal(t, []float64{1, 2}, rows[0][6])
	assert.JSONEq(t, `{"slope":[1,1]}`, rows[0][7].(string))
	assert.Equal(t, "{}", rows[0][8])

	assert.Equal(t, "AAPL", rows[1][1])
	assert.Equal(t, uint8(0), rows[1][4])
	assert.Equal(t, "error processing AAPL: boom", rows[1][5])
	assert.Equal(t, []float64{}, rows[1][6])
}

func TestResultRows_NilResults(t *testing.T) {
	rows, err := resultRows(&models.BatchRun{})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCHResultStore_Schema(t *testing.T) {
	s := NewCHResultStore(nil, "fintrend")
	stmts := s.Schema()
	require.Len(t, stmts, 2)
	assert.Contains(t, stmts[0], "fintrend.decomposition_runs")
	assert.Contains(t, stmts[1], "fintrend.decompositions")
	assert.Contains(t, stmts[1], "trend       Array(Float64)")
}

func TestCHCandleStore_TableForTF(t *testing.T) {
	s := NewCHCandleStore(nil, "market", nil)
	tbl, err := s.tableForTF(domrepo.TF1m)
	require.NoError(t, err)
	assert.Equal(t, "market.rt_candles_1m", tbl)

	_, err = s.tableForTF("1h")
	assert.Error(t, err)
}

type captureWriter struct {
	msgs []kafka.Message
}

func (w *captureWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *captureWriter) Close() error { return nil }

func TestKafkaResultPublisher_OneMessagePerSeries(t *testing.T) {
	w := &captureWriter{}
	p := NewKafkaResultPublisher(pkgkafka.NewProducerWithWriter(w, "none"), "results")

	require.NoError(t, p.PublishRun(context.Background(), sampleRun()))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "MSFT", string(w.msgs[0].Key))
	assert.Equal(t, "AAPL", string(w.msgs[1].Key))
	assert.Equal(t, "results", w.msgs[0].Topic)

	var ev SeriesResultEvent
	require.NoError(t, json.Unmarshal(w.msgs[1].Value, &ev))
	assert.Equal(t, "AAPL", ev.Series)
	assert.False(t, ev.Result.Success)
	assert.True(t, strings.HasPrefix(ev.Result.Message, "error processing AAPL"))

	require.NoError(t, p.PublishRun(context.Background(), &models.BatchRun{}))
	assert.Len(t, w.msgs, 2)
}

func TestCacheJobStore(t *testing.T) {
	c := cache.NewMemoryCache()
	defer c.Close()
	s := NewCacheJobStore(c, time.Minute)
	ctx := context.Background()

	_, err := s.GetStatus(ctx, "missing")
	assert.ErrorIs(t, err, domrepo.ErrJobNotFound)

	run := sampleRun()
	require.NoError(t, s.PutStatus(ctx, &models.JobStatus{ID: "j1", State: models.JobDone, Run: run}))
	got, err := s.GetStatus(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, got.State)
	require.NotNil(t, got.Run)
	assert.Equal(t, []string{"MSFT", "AAPL"}, got.Run.Results.Names())

	assert.Error(t, s.PutStatus(ctx, &models.JobStatus{}))
}
