package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/internal/services/features"
	"FinTrend/pkg/config"
	"FinTrend/pkg/logger"
)

// outcomeKind tags how a single series' estimation ended.
type outcomeKind int

const (
	outcomeOK outcomeKind = iota
	outcomeSignaled
	outcomeRaised
)

func (k outcomeKind) String() string {
	switch k {
	case outcomeOK:
		return "ok"
	case outcomeSignaled:
		return "signaled"
	default:
		return "raised"
	}
}

// seriesOutcome is the uniform shape every per-series boundary returns.
type seriesOutcome struct {
	kind   outcomeKind
	result models.EstimationResult
	err    error
	points int
	took   time.Duration
}

// BatchRunner estimates every column of a dataset independently. One
// series failing never aborts the others; only an unavailable engine is
// fatal, and that is checked before any series is touched.
type BatchRunner struct {
	capability  domsvc.Capability
	extractor   domsvc.SeriesExtractor
	logger      *logger.Logger
	metrics     domrepo.Metrics
	policy      string
	callTimeout time.Duration
	workers     int
}

type BatchRunnerOption func(*BatchRunner)

// WithSignaledFailurePolicy selects what happens to series the engine
// declined: config.SignaledOmit drops them, config.SignaledRecord keeps
// the engine's failure entry.
func WithSignaledFailurePolicy(policy string) BatchRunnerOption {
	return func(r *BatchRunner) { r.policy = policy }
}

// WithCallTimeout bounds each engine call. Zero means no per-call bound.
func WithCallTimeout(d time.Duration) BatchRunnerOption {
	return func(r *BatchRunner) { r.callTimeout = d }
}

// WithWorkers estimates up to n series concurrently. Output order is
// unaffected.
func WithWorkers(n int) BatchRunnerOption {
	return func(r *BatchRunner) {
		if n > 0 {
			r.workers = n
		}
	}
}

func WithMetrics(m domrepo.Metrics) BatchRunnerOption {
	return func(r *BatchRunner) { r.metrics = m }
}

func WithExtractor(e domsvc.SeriesExtractor) BatchRunnerOption {
	return func(r *BatchRunner) { r.extractor = e }
}

func NewBatchRunner(capability domsvc.Capability, l *logger.Logger, opts ...BatchRunnerOption) *BatchRunner {
	if l == nil {
		l = logger.Nop()
	}
	r := &BatchRunner{
		capability: capability,
		extractor:  features.Extractor{},
		logger:     l,
		policy:     config.SignaledOmit,
		workers:    1,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Available reports whether Run can do any work.
func (r *BatchRunner) Available() bool { return r.capability.Available() }

// Reason explains why the runner is unavailable; empty when available.
func (r *BatchRunner) Reason() string { return r.capability.Reason() }

// Run estimates every column of ds and returns results keyed by column
// name in column order.
func (r *BatchRunner) Run(ctx context.Context, ds *models.Dataset) (*models.ResultsMapping, error) {
	run, err := r.Execute(ctx, ds)
	if err != nil {
		return nil, err
	}
	return run.Results, nil
}

// Execute is Run plus the bookkeeping of a BatchRun.
func (r *BatchRunner) Execute(ctx context.Context, ds *models.Dataset) (*models.BatchRun, error) {
	gw, err := r.capability.Gateway()
	if err != nil {
		r.recordError("capability")
		return nil, err
	}
	if err := ds.Validate(); err != nil {
		r.recordError("dataset")
		return nil, fmt.Errorf("%w: %v", domsvc.ErrInvalidDataset, err)
	}

	run := &models.BatchRun{
		ID:        uuid.New(),
		StartedAt: time.Now().UTC(),
		Results:   models.NewResultsMapping(),
	}
	names := ds.Names()
	run.Columns = len(names)
	if r.metrics != nil {
		r.metrics.RecordBatchSize(len(names))
	}
	l := r.logger.With(logger.String("run_id", run.ID.String()))

	outcomes := r.estimateAll(ctx, gw, ds, names)

	for i, name := range names {
		o := outcomes[i]
		if r.metrics != nil {
			r.metrics.RecordSeriesOutcome(o.kind.String())
		}
		switch o.kind {
		case outcomeOK:
			run.Results.Put(name, o.result)
			run.Succeeded++
		case outcomeRaised:
			l.Error("series estimation raised",
				logger.String("series", name),
				logger.Int("points", o.points),
				logger.Error(o.err),
			)
			run.Results.Put(name, models.Failure(fmt.Sprintf("error processing %s: %v", name, seriesCause(o.err))))
			run.Failed++
		case outcomeSignaled:
			l.Warn("series estimation failed",
				logger.String("series", name),
				logger.Int("points", o.points),
				logger.String("message", o.result.Message),
			)
			if r.policy == config.SignaledRecord {
				run.Results.Put(name, models.Failure(o.result.Message))
				run.Failed++
			} else {
				run.Omitted++
			}
		}
	}

	run.FinishedAt = time.Now().UTC()
	if r.metrics != nil {
		r.metrics.RecordLatency("batch_run", run.FinishedAt.Sub(run.StartedAt).Seconds())
	}
	l.Info("batch run finished",
		logger.Int("columns", run.Columns),
		logger.Int("succeeded", run.Succeeded),
		logger.Int("failed", run.Failed),
		logger.Int("omitted", run.Omitted),
		logger.Duration("duration_ms", run.FinishedAt.Sub(run.StartedAt)),
	)
	return run, nil
}

func (r *BatchRunner) estimateAll(ctx context.Context, gw domsvc.EstimationGateway, ds *models.Dataset, names []string) []seriesOutcome {
	outcomes := make([]seriesOutcome, len(names))
	if r.workers <= 1 {
		for i, name := range names {
			outcomes[i] = r.estimateOne(ctx, gw, ds, name)
		}
		return outcomes
	}

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			outcomes[i] = r.estimateOne(ctx, gw, ds, name)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

// estimateOne is the failure boundary for a single series: extraction
// errors, engine errors, panics, timeouts and malformed results all come
// back as outcomeRaised.
func (r *BatchRunner) estimateOne(ctx context.Context, gw domsvc.EstimationGateway, ds *models.Dataset, name string) (out seriesOutcome) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			out = seriesOutcome{kind: outcomeRaised, err: &domsvc.EstimationError{Name: name, Err: fmt.Errorf("%w: %v", domsvc.ErrEstimationPanic, rec)}}
		}
		out.took = time.Since(start)
		if r.metrics != nil {
			r.metrics.RecordLatency("estimate_series", out.took.Seconds())
		}
	}()

	series, err := r.extractor.Extract(ds, name)
	if err != nil {
		return seriesOutcome{kind: outcomeRaised, err: err}
	}
	if err := ctx.Err(); err != nil {
		return seriesOutcome{kind: outcomeRaised, err: &domsvc.EstimationError{Name: name, Err: err}, points: len(series)}
	}

	callCtx := ctx
	if r.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, r.callTimeout)
		defer cancel()
	}

	res, err := gw.Estimate(callCtx, series)
	if err != nil {
		return seriesOutcome{kind: outcomeRaised, err: &domsvc.EstimationError{Name: name, Err: err}, points: len(series)}
	}
	if !res.Success {
		if res.Message == "" {
			res.Message = "estimation failed"
		}
		return seriesOutcome{kind: outcomeSignaled, result: res, points: len(series)}
	}
	if err := validateResult(res, len(series)); err != nil {
		return seriesOutcome{kind: outcomeRaised, err: &domsvc.EstimationError{Name: name, Err: err}, points: len(series)}
	}
	return seriesOutcome{kind: outcomeOK, result: res, points: len(series)}
}

// validateResult enforces that a successful result carries a trend, and
// that the trend and every other component are aligned with the cleaned input.
func validateResult(res models.EstimationResult, n int) error {
	if res.Trend == nil {
		return fmt.Errorf("%w: missing trend", domsvc.ErrMalformedResult)
	}
	if len(res.Trend) != n {
		return fmt.Errorf("%w: trend has %d points, series has %d", domsvc.ErrMalformedResult, len(res.Trend), n)
	}
	names := make([]string, 0, len(res.Components))
	for k := range res.Components {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		if got := len(res.Components[k]); got != n {
			return fmt.Errorf("%w: component %s has %d points, series has %d", domsvc.ErrMalformedResult, k, got, n)
		}
	}
	return nil
}

// seriesCause strips the per-series wrappers so failure messages name the
// series once.
func seriesCause(err error) error {
	var est *domsvc.EstimationError
	if errors.As(err, &est) {
		return est.Err
	}
	var ext *domsvc.ExtractionError
	if errors.As(err, &ext) {
		return ext.Err
	}
	return err
}

func (r *BatchRunner) recordError(kind string) {
	if r.metrics != nil {
		r.metrics.RecordError(kind)
	}
}
