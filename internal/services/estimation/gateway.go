package estimation

import (
	"context"
	"fmt"

	"FinTrend/internal/domain/models"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/pkg/config"
)

const (
	estimatePath = "/ssl/estimate"
	healthPath   = "/health"
)

// HTTPGateway calls a remote structural time-series engine.
type HTTPGateway struct {
	base  *engineClient
	model config.ModelConfig
}

func NewHTTPGateway(cfg *config.Config) *HTTPGateway {
	return &HTTPGateway{
		base:  newEngineClient(cfg.Estimation.EngineURL, cfg.Estimation.Timeout, cfg.Estimation.RetryAttempts+1),
		model: cfg.Estimation.Model,
	}
}

type estimateRequest struct {
	Values models.Series      `json:"values"`
	Model  config.ModelConfig `json:"model"`
}

// Estimate posts the series and validates the engine's loose payload.
// Transport and malformed-payload problems are returned as errors; an
// engine that declines returns Success=false with its message.
func (g *HTTPGateway) Estimate(ctx context.Context, series models.Series) (models.EstimationResult, error) {
	values := series
	if values == nil {
		values = models.Series{}
	}
	var raw []byte
	if err := g.base.postJSONWithRetry(ctx, estimatePath, estimateRequest{Values: values, Model: g.model}, &raw); err != nil {
		return models.EstimationResult{}, fmt.Errorf("estimate: %w", err)
	}
	return DecodeResult(raw)
}

// Probe checks that the engine answers its health endpoint.
func (g *HTTPGateway) Probe(ctx context.Context) error {
	return g.base.get(ctx, healthPath)
}

// Model returns the model settings sent with every request.
func (g *HTTPGateway) Model() config.ModelConfig { return g.model }

var _ domsvc.EstimationGateway = (*HTTPGateway)(nil)
