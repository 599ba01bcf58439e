//go:build wireinject
// +build wireinject

package di

import (
	"FinTrend/pkg/config"
	"FinTrend/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedisClient,
		ProvideCache,

		// Estimation engine
		ProvideHTTPGateway,
		ProvideCapability,

		// Use cases
		ProvideBatchRunner,
		ProvideDecomposeUseCase,
		ProvideJobStore,
		ProvideQueue,
		ProvideDecomposeJob,
		ProvideJobsUseCase,
		ProvideKafkaRequestsHandler,

		// Application server
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
