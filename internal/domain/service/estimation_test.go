package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FinTrend/internal/domain/models"
)

type stubGateway struct{}

func (stubGateway) Estimate(context.Context, models.Series) (models.EstimationResult, error) {
	return models.EstimationResult{Success: true}, nil
}

func TestCapability_Present(t *testing.T) {
	c := Present(stubGateway{})
	assert.True(t, c.Available())
	assert.Empty(t, c.Reason())

	g, err := c.Gateway()
	require.NoError(t, err)
	assert.NotNil(t, g)
}

func TestCapability_AbsentAndZeroValue(t *testing.T) {
	for name, c := range map[string]Capability{
		"absent": Absent("health probe failed"),
		"zero":   {},
		"nil":    Present(nil),
	} {
		t.Run(name, func(t *testing.T) {
			assert.False(t, c.Available())
			assert.NotEmpty(t, c.Reason())
			_, err := c.Gateway()
			assert.True(t, IsUnavailable(err))
		})
	}
}

func TestErrors_Unwrap(t *testing.T) {
	ex := fmt.Errorf("wrapped: %w", &ExtractionError{Name: "AAPL", Err: ErrSeriesNotFound})
	assert.True(t, errors.Is(ex, ErrSeriesNotFound))
	var target *ExtractionError
	require.True(t, errors.As(ex, &target))
	assert.Equal(t, "AAPL", target.Name)

	es := &EstimationError{Name: "MSFT", Err: ErrMalformedResult}
	assert.True(t, errors.Is(es, ErrMalformedResult))
	assert.Contains(t, es.Error(), "MSFT")

	un := &UnavailableError{Reason: "down"}
	assert.True(t, errors.Is(un, ErrCapabilityUnavailable))
	assert.Contains(t, un.Error(), "down")
}
