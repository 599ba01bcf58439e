package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinTrend/internal/domain/models"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/internal/repository"
	"FinTrend/internal/service/ratelimit"
	"FinTrend/internal/services/estimation"
	"FinTrend/internal/usecase"
	"FinTrend/pkg/cache"
	xlogger "FinTrend/pkg/logger"
)

var echoGateway = estimation.FuncGateway(func(_ context.Context, s models.Series) (models.EstimationResult, error) {
	if len(s) == 0 {
		return models.Failure("empty series"), nil
	}
	return models.EstimationResult{Success: true, Trend: append([]float64{}, s...)}, nil
})

func newTestServer(t *testing.T, capability domsvc.Capability, jobs *usecase.JobsUseCase) *echo.Echo {
	t.Helper()
	uc := usecase.NewDecomposeUseCase(usecase.NewBatchRunner(capability, nil), nil)
	if jobs == nil {
		jobs = usecase.NewJobsUseCase(nil, nil, uc)
	}
	e := echo.New()
	NewDecomposeEchoHandler(xlogger.Nop(), uc, jobs).RegisterRoutes(e)
	return e
}

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func do(t *testing.T, e *echo.Echo, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec, env
}

const datasetBody = `{"columns":[
	{"name":"MSFT","values":[1,2,null,4]},
	{"name":"AAPL","values":[5,6]},
	{"name":"EMPTY","values":[null]}
]}`

func TestCapability(t *testing.T) {
	rec, env := do(t, newTestServer(t, domsvc.Absent("engine not installed"), nil), http.MethodGet, "/api/capability", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"available":false,"reason":"engine not installed"}`, string(env.Data))
}

func TestDecomposeDataset_OK(t *testing.T) {
	rec, env := do(t, newTestServer(t, domsvc.Present(echoGateway), nil), http.MethodPost, "/api/decompose", datasetBody)
	require.Equal(t, http.StatusOK, rec.Code)

	var run models.BatchRun
	require.NoError(t, json.Unmarshal(env.Data, &run))
	assert.Equal(t, []string{"MSFT", "AAPL"}, run.Results.Names())
	assert.Equal(t, 1, run.Omitted)
	msft, _ := run.Results.Get("MSFT")
	assert.Equal(t, []float64{1, 2, 4}, msft.Trend)

	// Keys keep column order on the wire.
	assert.Less(t, strings.Index(string(env.Data), `"MSFT"`), strings.Index(string(env.Data), `"AAPL"`))
}

func TestDecomposeDataset_Unavailable(t *testing.T) {
	rec, env := do(t, newTestServer(t, domsvc.Absent("no engine"), nil), http.MethodPost, "/api/decompose", datasetBody)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_UNAVAILABLE")
	assert.Contains(t, string(env.Data), "no engine")
}

func TestDecomposeDataset_BadRequest(t *testing.T) {
	e := newTestServer(t, domsvc.Present(echoGateway), nil)

	rec, _ := do(t, e, http.MethodPost, "/api/decompose", `{"columns":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodPost, "/api/decompose", `{"columns":[{"name":"A"},{"name":"A"}]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecomposeSymbols_Validation(t *testing.T) {
	e := newTestServer(t, domsvc.Present(echoGateway), nil)

	rec, _ := do(t, e, http.MethodGet, "/api/decompose", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/decompose?symbols=AAPL&tf=1h", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, e, http.MethodGet, "/api/decompose?symbols=AAPL&to=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecomposeSymbols_Unavailable(t *testing.T) {
	rec, _ := do(t, newTestServer(t, domsvc.Absent(""), nil), http.MethodGet, "/api/decompose?symbols=AAPL", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestJobs_DisabledAndNotFound(t *testing.T) {
	rec, _ := do(t, newTestServer(t, domsvc.Present(echoGateway), nil), http.MethodPost, "/api/decompose/jobs", `{"symbols":["AAPL"]}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	c := cache.NewMemoryCache()
	defer c.Close()
	uc := usecase.NewDecomposeUseCase(usecase.NewBatchRunner(domsvc.Present(echoGateway), nil), nil)
	jobs := usecase.NewJobsUseCase(&usecase.MockEnqueuer{}, repository.NewCacheJobStore(c, 0), uc)
	rec, _ = do(t, newTestServer(t, domsvc.Present(echoGateway), jobs), http.MethodGet, "/api/decompose/jobs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDecompose_RateLimited(t *testing.T) {
	uc := usecase.NewDecomposeUseCase(usecase.NewBatchRunner(domsvc.Present(echoGateway), nil), nil)
	e := echo.New()
	NewDecomposeEchoHandler(xlogger.Nop(), uc, usecase.NewJobsUseCase(nil, nil, uc)).
		WithLimiter(ratelimit.New(1, 0)).
		RegisterRoutes(e)

	rec, _ := do(t, e, http.MethodPost, "/api/decompose", datasetBody)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, env := do(t, e, http.MethodPost, "/api/decompose", datasetBody)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, string(env.Data), "ERR_RATE_LIMITED")

	rec, _ = do(t, e, http.MethodGet, "/api/capability", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}
