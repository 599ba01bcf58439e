package service

import (
	"context"

	"FinTrend/internal/domain/models"
)

// EstimationGateway fits a structural time-series model to one series.
//
// Implementations report failure on two channels: a returned error (the
// engine raised) or a result with Success=false (the engine declined and
// said why). Callers must handle both.
type EstimationGateway interface {
	Estimate(ctx context.Context, series models.Series) (models.EstimationResult, error)
}

// SeriesExtractor turns a named dataset column into a clean series.
type SeriesExtractor interface {
	Extract(ds *models.Dataset, name string) (models.Series, error)
}

// Capability is the startup-resolved handle to the estimation engine.
// It is either present and wraps a gateway, or absent with a reason.
// The zero value is absent.
type Capability struct {
	gateway EstimationGateway
	reason  string
}

// Present wraps a usable gateway.
func Present(g EstimationGateway) Capability {
	if g == nil {
		return Absent("nil gateway")
	}
	return Capability{gateway: g}
}

// Absent records why the engine cannot be used.
func Absent(reason string) Capability {
	if reason == "" {
		reason = "estimation engine not available"
	}
	return Capability{reason: reason}
}

func (c Capability) Available() bool { return c.gateway != nil }

// Gateway returns the wrapped gateway, or ErrCapabilityUnavailable.
func (c Capability) Gateway() (EstimationGateway, error) {
	if c.gateway == nil {
		return nil, &UnavailableError{Reason: c.Reason()}
	}
	return c.gateway, nil
}

func (c Capability) Reason() string {
	if c.gateway != nil {
		return ""
	}
	if c.reason == "" {
		return "estimation engine not available"
	}
	return c.reason
}
