package estimation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"FinTrend/internal/domain/models"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/pkg/cache"
	"FinTrend/pkg/config"
	"FinTrend/pkg/logger"
)

func testConfig(url string) *config.Config {
	cfg := &config.Config{}
	cfg.Estimation.EngineURL = url
	cfg.Estimation.Timeout = 2 * time.Second
	cfg.Estimation.Model.Level = "local linear trend"
	return cfg
}

func TestDecodeResult(t *testing.T) {
	t.Run("success with components", func(t *testing.T) {
		res, err := DecodeResult([]byte(`{"success":true,"trend":[1,2],"slope":[0.5,0.5],"components":{"seasonal":[0,0]},"aic":12.5,"params":{"sigma":1}}`))
		require.NoError(t, err)
		assert.True(t, res.Success)
		assert.Equal(t, []float64{1, 2}, res.Trend)
		assert.Equal(t, []float64{0.5, 0.5}, res.Components["slope"])
		assert.Equal(t, []float64{0, 0}, res.Components["seasonal"])
		assert.Equal(t, 12.5, res.Extra["aic"])
		assert.Contains(t, res.Extra, "params")
	})

	t.Run("signaled failure", func(t *testing.T) {
		res, err := DecodeResult([]byte(`{"success":false,"message":"did not converge"}`))
		require.NoError(t, err)
		assert.False(t, res.Success)
		assert.Equal(t, "did not converge", res.Message)
	})

	malformed := map[string]string{
		"not json":          `nope`,
		"null":              `null`,
		"no success":        `{"trend":[1]}`,
		"success not bool":  `{"success":"yes","trend":[1]}`,
		"success no trend":  `{"success":true}`,
		"trend not numeric": `{"success":true,"trend":["a"]}`,
	}
	for name, body := range malformed {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeResult([]byte(body))
			assert.ErrorIs(t, err, domsvc.ErrMalformedResult)
		})
	}
}

func TestHTTPGateway_Estimate(t *testing.T) {
	var got estimateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, estimatePath, r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true,"trend":[10,11,12]}`))
	}))
	defer srv.Close()

	g := NewHTTPGateway(testConfig(srv.URL))
	res, err := g.Estimate(context.Background(), models.Series{10, 11, 12})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, []float64{10, 11, 12}, res.Trend)
	assert.Equal(t, models.Series{10, 11, 12}, got.Values)
	assert.Equal(t, "local linear trend", got.Model.Level)
}

func TestHTTPGateway_EmptySeriesSendsArray(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := new(bytes.Buffer)
		_, _ = buf.ReadFrom(r.Body)
		body = buf.Bytes()
		_, _ = w.Write([]byte(`{"success":false,"message":"empty series"}`))
	}))
	defer srv.Close()

	res, err := NewHTTPGateway(testConfig(srv.URL)).Estimate(context.Background(), nil)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, string(body), `"values":[]`)
}

func TestHTTPGateway_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"success":true,"trend":[1]}`))
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Estimation.RetryAttempts = 2
	res, err := NewHTTPGateway(cfg).Estimate(context.Background(), models.Series{1})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestHTTPGateway_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.Estimation.RetryAttempts = 3
	_, err := NewHTTPGateway(cfg).Estimate(context.Background(), models.Series{1})
	assert.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestHTTPGateway_Probe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != healthPath {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	assert.NoError(t, NewHTTPGateway(testConfig(srv.URL)).Probe(context.Background()))
	assert.Error(t, NewHTTPGateway(testConfig("")).Probe(context.Background()))
}

type probeFunc func(ctx context.Context) error

func (f probeFunc) Probe(ctx context.Context) error { return f(ctx) }

type capabilityRecorder struct{ values []bool }

func (c *capabilityRecorder) SetCapability(v bool) { c.values = append(c.values, v) }

func TestAvailabilityGuard_ResolvesOnceAndWarnsOnce(t *testing.T) {
	var logs bytes.Buffer
	l := logger.NewWithWriter(&logs, "debug")
	var probes int32
	gw := FuncGateway(func(context.Context, models.Series) (models.EstimationResult, error) {
		return models.EstimationResult{}, nil
	})
	rec := &capabilityRecorder{}
	guard := NewAvailabilityGuard(gw, probeFunc(func(context.Context) error {
		atomic.AddInt32(&probes, 1)
		return errors.New("connection refused")
	}), time.Second, l, rec)

	for i := 0; i < 3; i++ {
		c := guard.Resolve(context.Background())
		assert.False(t, c.Available())
		assert.Contains(t, c.Reason(), "connection refused")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&probes))
	assert.Equal(t, 1, bytes.Count(logs.Bytes(), []byte("estimation engine unavailable")))
	assert.Equal(t, []bool{false}, rec.values)
}

func TestAvailabilityGuard_Present(t *testing.T) {
	gw := FuncGateway(func(context.Context, models.Series) (models.EstimationResult, error) {
		return models.EstimationResult{Success: true, Trend: []float64{}}, nil
	})
	c := NewAvailabilityGuard(gw, nil, 0, nil, nil).Resolve(context.Background())
	require.True(t, c.Available())
	g, err := c.Gateway()
	require.NoError(t, err)
	assert.NotNil(t, g)

	absent := NewAvailabilityGuard(nil, nil, 0, nil, nil).Resolve(context.Background())
	assert.False(t, absent.Available())
}

func TestCachedGateway_CachesSuccessOnly(t *testing.T) {
	m := &MockGateway{}
	ok := models.EstimationResult{Success: true, Trend: []float64{1, 2}}
	m.On("Estimate", mock.Anything, models.Series{1, 2}).Return(ok, nil).Once()
	m.On("Estimate", mock.Anything, models.Series{3}).Return(models.Failure("no"), nil).Twice()

	c := cache.NewMemoryCache()
	defer c.Close()
	g := NewCachedGateway(m, c, time.Minute, ModelNamespace(config.ModelConfig{Level: "x"}), nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		res, err := g.Estimate(ctx, models.Series{1, 2})
		require.NoError(t, err)
		assert.Equal(t, ok, res)

		res, err = g.Estimate(ctx, models.Series{3})
		require.NoError(t, err)
		assert.False(t, res.Success)
	}
	m.AssertExpectations(t)
}

func TestModelNamespace_Stable(t *testing.T) {
	a := ModelNamespace(config.ModelConfig{Level: "ll"})
	assert.Equal(t, a, ModelNamespace(config.ModelConfig{Level: "ll"}))
	assert.NotEqual(t, a, ModelNamespace(config.ModelConfig{Level: "rw"}))
}
