package estimation

import (
	"context"
	"sync"
	"time"

	domsvc "FinTrend/internal/domain/service"
	"FinTrend/pkg/logger"
)

// Prober reports whether the engine behind a gateway can be reached.
type Prober interface {
	Probe(ctx context.Context) error
}

// CapabilityMetrics is the slice of the metrics recorder the guard uses.
type CapabilityMetrics interface {
	SetCapability(available bool)
}

// AvailabilityGuard resolves engine availability exactly once. Every later
// Resolve returns the cached capability without probing again.
type AvailabilityGuard struct {
	gateway domsvc.EstimationGateway
	prober  Prober
	timeout time.Duration
	logger  *logger.Logger
	metrics CapabilityMetrics

	once sync.Once
	cap  domsvc.Capability
}

// NewAvailabilityGuard builds a guard. A nil prober means the gateway is
// assumed reachable; a nil gateway always resolves absent.
func NewAvailabilityGuard(gateway domsvc.EstimationGateway, prober Prober, timeout time.Duration, l *logger.Logger, m CapabilityMetrics) *AvailabilityGuard {
	if l == nil {
		l = logger.Nop()
	}
	return &AvailabilityGuard{gateway: gateway, prober: prober, timeout: timeout, logger: l, metrics: m}
}

func (g *AvailabilityGuard) Resolve(ctx context.Context) domsvc.Capability {
	g.once.Do(func() {
		g.cap = g.resolve(ctx)
		if g.metrics != nil {
			g.metrics.SetCapability(g.cap.Available())
		}
		if !g.cap.Available() {
			g.logger.Warn("estimation engine unavailable, decomposition disabled",
				logger.String("reason", g.cap.Reason()))
			return
		}
		g.logger.Info("estimation engine available")
	})
	return g.cap
}

func (g *AvailabilityGuard) resolve(ctx context.Context) domsvc.Capability {
	if g.gateway == nil {
		return domsvc.Absent("no estimation gateway configured")
	}
	if g.prober == nil {
		return domsvc.Present(g.gateway)
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}
	if err := g.prober.Probe(ctx); err != nil {
		return domsvc.Absent("probe failed: " + err.Error())
	}
	return domsvc.Present(g.gateway)
}
