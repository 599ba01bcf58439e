package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_CountsOutcomes(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.RecordSeriesOutcome("ok")
	r.RecordSeriesOutcome("ok")
	r.RecordSeriesOutcome("raised")
	r.RecordSinkWrite("kafka", 3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.seriesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.seriesTotal.WithLabelValues("raised")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.sinkWrites.WithLabelValues("kafka")))
}

func TestRecorder_Capability(t *testing.T) {
	r := NewWithRegistry(prometheus.NewRegistry())

	r.SetCapability(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(r.capability))
	r.SetCapability(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(r.capability))
}
