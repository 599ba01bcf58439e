package estimation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"FinTrend/internal/domain/models"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/pkg/cache"
	"FinTrend/pkg/logger"
)

// CachedGateway memoizes successful estimates keyed by series content and
// model namespace. Failures are never cached.
type CachedGateway struct {
	next      domsvc.EstimationGateway
	cache     cache.Service
	ttl       time.Duration
	namespace string
	logger    *logger.Logger
}

func NewCachedGateway(next domsvc.EstimationGateway, c cache.Service, ttl time.Duration, namespace string, l *logger.Logger) *CachedGateway {
	if l == nil {
		l = logger.Nop()
	}
	return &CachedGateway{next: next, cache: c, ttl: ttl, namespace: namespace, logger: l}
}

// ModelNamespace derives a stable cache namespace from any JSON-encodable
// model description.
func ModelNamespace(model interface{}) string {
	b, err := json.Marshal(model)
	if err != nil {
		return "default"
	}
	return cache.HashKey(b)[:16]
}

func (g *CachedGateway) key(series models.Series) (string, error) {
	b, err := json.Marshal(series)
	if err != nil {
		return "", err
	}
	return cache.Key("estimate", g.namespace, cache.HashKey(b)), nil
}

func (g *CachedGateway) Estimate(ctx context.Context, series models.Series) (models.EstimationResult, error) {
	key, err := g.key(series)
	if err != nil {
		return g.next.Estimate(ctx, series)
	}

	var hit models.EstimationResult
	if err := g.cache.Get(ctx, key, &hit); err == nil {
		return hit, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		g.logger.Debug("estimate cache read failed", logger.Error(err))
	}

	res, err := g.next.Estimate(ctx, series)
	if err != nil || !res.Success {
		return res, err
	}
	if err := g.cache.Set(ctx, key, res, g.ttl); err != nil {
		g.logger.Debug("estimate cache write failed", logger.Error(err))
	}
	return res, nil
}

var _ domsvc.EstimationGateway = (*CachedGateway)(nil)
