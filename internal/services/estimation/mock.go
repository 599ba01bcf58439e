package estimation

import (
	"context"

	"github.com/stretchr/testify/mock"

	"FinTrend/internal/domain/models"
	domsvc "FinTrend/internal/domain/service"
)

// FuncGateway adapts a plain function to EstimationGateway.
type FuncGateway func(ctx context.Context, series models.Series) (models.EstimationResult, error)

func (f FuncGateway) Estimate(ctx context.Context, series models.Series) (models.EstimationResult, error) {
	return f(ctx, series)
}

// MockGateway is a testify mock of EstimationGateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) Estimate(ctx context.Context, series models.Series) (models.EstimationResult, error) {
	args := m.Called(ctx, series)
	return args.Get(0).(models.EstimationResult), args.Error(1)
}

var (
	_ domsvc.EstimationGateway = FuncGateway(nil)
	_ domsvc.EstimationGateway = (*MockGateway)(nil)
)
