package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"FinTrend/internal/domain/models"
	domrepo "FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/internal/services/features"
	"FinTrend/pkg/logger"
	"FinTrend/pkg/util"
)

// DecomposeUseCase runs batches over inline datasets or stored candles and
// fans finished runs out to the configured sinks.
type DecomposeUseCase struct {
	runner  *BatchRunner
	candles domrepo.CandleStore
	store   domrepo.ResultStore
	pub     domrepo.ResultPublisher
	metrics domrepo.Metrics
	logger  *logger.Logger
	timeout time.Duration

	defaultSymbols []string
	defaultN       int
	defaultTF      domrepo.Timeframe
}

type DecomposeOption func(*DecomposeUseCase)

func WithCandleStore(s domrepo.CandleStore) DecomposeOption {
	return func(uc *DecomposeUseCase) { uc.candles = s }
}

func WithResultStore(s domrepo.ResultStore) DecomposeOption {
	return func(uc *DecomposeUseCase) { uc.store = s }
}

func WithResultPublisher(p domrepo.ResultPublisher) DecomposeOption {
	return func(uc *DecomposeUseCase) { uc.pub = p }
}

func WithDecomposeMetrics(m domrepo.Metrics) DecomposeOption {
	return func(uc *DecomposeUseCase) { uc.metrics = m }
}

// WithDecomposeTimeout bounds a whole request, including candle loading.
func WithDecomposeTimeout(d time.Duration) DecomposeOption {
	return func(uc *DecomposeUseCase) { uc.timeout = d }
}

// WithSymbolDefaults fills symbol requests that leave symbols, n or tf unset.
func WithSymbolDefaults(symbols []string, n int, tf domrepo.Timeframe) DecomposeOption {
	return func(uc *DecomposeUseCase) {
		uc.defaultSymbols = util.NormalizeSymbols(symbols)
		uc.defaultN = n
		uc.defaultTF = tf
	}
}

func NewDecomposeUseCase(runner *BatchRunner, l *logger.Logger, opts ...DecomposeOption) *DecomposeUseCase {
	if l == nil {
		l = logger.Nop()
	}
	uc := &DecomposeUseCase{runner: runner, logger: l, defaultN: 600, defaultTF: domrepo.DefaultTimeframe()}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Capability reports whether decomposition can run in this process.
func (uc *DecomposeUseCase) Capability() models.CapabilityResponse {
	return models.CapabilityResponse{Available: uc.runner.Available(), Reason: uc.runner.Reason()}
}

func (uc *DecomposeUseCase) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if uc.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, uc.timeout)
}

// DecomposeDataset runs the batch over ds. Sink failures are logged and
// never fail the request.
func (uc *DecomposeUseCase) DecomposeDataset(ctx context.Context, ds *models.Dataset) (*models.BatchRun, error) {
	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()
	return uc.execute(ctx, ds)
}

func (uc *DecomposeUseCase) execute(ctx context.Context, ds *models.Dataset) (*models.BatchRun, error) {
	run, err := uc.runner.Execute(ctx, ds)
	if err != nil {
		return nil, err
	}
	uc.deliver(ctx, run)
	return run, nil
}

type DecomposeSymbolsParams struct {
	Symbols   []string
	N         int
	Timeframe domrepo.Timeframe
	// To selects a historical window ending at To instead of the latest N
	// candles. From defaults to N buckets before To.
	From, To time.Time
}

// DecomposeSymbols loads the latest N closes per symbol (or the [From, To]
// window), aligns them into one dataset and runs the batch over it.
func (uc *DecomposeUseCase) DecomposeSymbols(ctx context.Context, p DecomposeSymbolsParams) (*models.BatchRun, error) {
	if !uc.runner.Available() {
		return nil, &domsvc.UnavailableError{Reason: uc.runner.Reason()}
	}
	symbols := util.NormalizeSymbols(p.Symbols)
	if len(symbols) == 0 {
		symbols = uc.defaultSymbols
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: symbols required", domsvc.ErrInvalidDataset)
	}
	if uc.candles == nil {
		return nil, fmt.Errorf("candle store not configured")
	}
	if p.N <= 0 {
		p.N = uc.defaultN
	}
	if p.Timeframe == "" {
		p.Timeframe = uc.defaultTF
	}

	ctx, cancel := uc.withTimeout(ctx)
	defer cancel()

	var window *[2]time.Time
	if !p.To.IsZero() {
		step := p.Timeframe.Step()
		from := p.From
		if from.IsZero() {
			from = p.To.Add(-time.Duration(p.N) * step)
		}
		if !from.Before(p.To) {
			return nil, fmt.Errorf("%w: from must be before to", domsvc.ErrInvalidDataset)
		}
		from, to := util.AlignRange(from, p.To, step)
		window = &[2]time.Time{from, to}
	}

	candles, err := uc.loadCandles(ctx, symbols, p.N, p.Timeframe, window)
	if err != nil {
		return nil, err
	}
	ds := features.PivotCloses(symbols, candles, string(p.Timeframe))
	return uc.execute(ctx, ds)
}

func (uc *DecomposeUseCase) loadCandles(ctx context.Context, symbols []string, n int, tf domrepo.Timeframe, window *[2]time.Time) (map[string][]models.Candle, error) {
	g, gctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(map[string][]models.Candle, len(symbols))
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			var (
				cs  []models.Candle
				err error
			)
			if window != nil {
				cs, err = uc.candles.GetCandles(gctx, sym, window[0], window[1], tf)
			} else {
				cs, err = uc.candles.GetLatestNCandles(gctx, sym, n, tf)
			}
			if err != nil {
				return fmt.Errorf("load candles %s: %w", sym, err)
			}
			mu.Lock()
			out[sym] = cs
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		uc.recordError("candle_store")
		return nil, err
	}
	return out, nil
}

// deliver writes run to every configured sink.
func (uc *DecomposeUseCase) deliver(ctx context.Context, run *models.BatchRun) {
	l := uc.logger.With(logger.String("run_id", run.ID.String()))
	if uc.store != nil {
		if err := uc.store.SaveRun(ctx, run); err != nil {
			uc.recordError("result_store")
			l.Warn("persist decomposition run failed", logger.Error(err))
		} else if uc.metrics != nil {
			uc.metrics.RecordSinkWrite("clickhouse", run.Results.Len())
		}
	}
	if uc.pub != nil {
		if err := uc.pub.PublishRun(ctx, run); err != nil {
			uc.recordError("result_publish")
			l.Warn("publish decomposition run failed", logger.Error(err))
		} else if uc.metrics != nil {
			uc.metrics.RecordSinkWrite("kafka", run.Results.Len())
		}
	}
}

func (uc *DecomposeUseCase) recordError(kind string) {
	if uc.metrics != nil {
		uc.metrics.RecordError(kind)
	}
}
