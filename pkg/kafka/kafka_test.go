package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"FinTrend/pkg/logger"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type countingHandler struct {
	failures int
	calls    int
	panics   bool
}

func (h *countingHandler) Topic() string { return "t" }

func (h *countingHandler) Handle(context.Context, []byte) error {
	h.calls++
	if h.panics {
		panic("boom")
	}
	if h.calls <= h.failures {
		return errors.New("transient")
	}
	return nil
}

func TestProducer_PublishBatchEncodesJSON(t *testing.T) {
	w := &fakeWriter{}
	p := NewProducerWithWriter(w, "gzip")

	err := p.PublishBatch(context.Background(), "fintrend.decompositions", []Message{
		{Key: []byte("AAPL"), Value: map[string]bool{"success": true}},
		{Key: []byte("MSFT"), Value: "raw"},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "fintrend.decompositions", w.msgs[0].Topic)
	assert.Equal(t, []byte("AAPL"), w.msgs[0].Key)

	var v map[string]bool
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &v))
	assert.True(t, v["success"])
	assert.Equal(t, "raw", string(w.msgs[1].Value))
}

func TestProducer_WrapsWriteError(t *testing.T) {
	p := NewProducerWithWriter(&fakeWriter{err: errors.New("broker down")}, "gzip")
	err := p.PublishMessage(context.Background(), "logs", []int{1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")

	assert.NoError(t, p.PublishBatch(context.Background(), "logs", nil))
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	_, err := NewProducer()
	assert.Error(t, err)
}

func TestConsumer_HandleWithRetry(t *testing.T) {
	c, err := NewConsumer(logger.Nop(),
		WithConsumerBrokers([]string{"localhost:9092"}),
		WithConsumerRetry(2, time.Millisecond, 2*time.Millisecond))
	require.NoError(t, err)

	h := &countingHandler{failures: 2}
	attempts, err := c.handleWithRetry(h, nil)
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)

	h = &countingHandler{failures: 10}
	attempts, err = c.handleWithRetry(h, nil)
	assert.Error(t, err)
	assert.Equal(t, 3, attempts)

	h = &countingHandler{panics: true}
	_, err = c.handleWithRetry(h, nil)
	assert.ErrorContains(t, err, "panic")
}

func TestBackoffWithJitter_Bounds(t *testing.T) {
	min, max := 10*time.Millisecond, 80*time.Millisecond
	for attempt := 1; attempt <= 40; attempt++ {
		d := backoffWithJitter(min, max, attempt)
		assert.Greater(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}
