package di

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"FinTrend/internal/domain/repository"
	domsvc "FinTrend/internal/domain/service"
	"FinTrend/internal/handler/api"
	internalrepo "FinTrend/internal/repository"
	"FinTrend/internal/service/ratelimit"
	"FinTrend/internal/services/estimation"
	"FinTrend/internal/usecase"
	"FinTrend/pkg/cache"
	pkgch "FinTrend/pkg/clickhouse"
	"FinTrend/pkg/config"
	xhttp "FinTrend/pkg/http"
	pkgkafka "FinTrend/pkg/kafka"
	"FinTrend/pkg/logger"
	"FinTrend/pkg/metrics"
	"FinTrend/pkg/queue"
	"FinTrend/pkg/server"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() *metrics.Recorder {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithAddr(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stmts := append([]string{"CREATE DATABASE IF NOT EXISTS " + chDatabase(cfg)},
		internalrepo.NewCHResultStore(nil, chDatabase(cfg)).Schema()...)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func chDatabase(cfg *config.Config) string {
	if cfg.ClickHouse.Database == "" {
		return "fintrend"
	}
	return cfg.ClickHouse.Database
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config, l *logger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideRedisClient dials Redis, or returns nil when disabled.
func ProvideRedisClient(cfg *config.Config) (*redis.Client, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	client, _, err := cache.NewRedisClient(
		cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
		cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
		cache.WithRedisPrefix(cfg.Redis.Prefix),
	)
	if err != nil {
		return nil, fmt.Errorf("redis client: %w", err)
	}
	return client, nil
}

// ProvideCache layers an in-process LRU over Redis, or falls back to memory only.
func ProvideCache(cfg *config.Config, rc *redis.Client) cache.Service {
	if rc == nil {
		return cache.NewMemoryCache(cache.WithMemoryMaxSize(2000))
	}
	return cache.NewLayeredCache(cache.NewRedisCache(rc, cfg.Redis.Prefix), 2000, time.Minute)
}

// ProvideHTTPGateway creates the engine client.
func ProvideHTTPGateway(cfg *config.Config) *estimation.HTTPGateway {
	return estimation.NewHTTPGateway(cfg)
}

// ProvideCapability probes the engine once and returns the startup handle.
// Successful estimates are memoized when estimation.cache_ttl is set.
func ProvideCapability(cfg *config.Config, gw *estimation.HTTPGateway, c cache.Service, l *logger.Logger, m *metrics.Recorder) domsvc.Capability {
	var gateway domsvc.EstimationGateway = gw
	if cfg.Estimation.CacheTTL > 0 {
		gateway = estimation.NewCachedGateway(gw, c, cfg.Estimation.CacheTTL, estimation.ModelNamespace(gw.Model()), l)
	}
	guard := estimation.NewAvailabilityGuard(gateway, gw, cfg.Estimation.ProbeTimeout, l, m)
	return guard.Resolve(context.Background())
}

// ProvideBatchRunner creates the batch orchestrator.
func ProvideBatchRunner(cfg *config.Config, capability domsvc.Capability, l *logger.Logger, m *metrics.Recorder) *usecase.BatchRunner {
	return usecase.NewBatchRunner(capability, l,
		usecase.WithSignaledFailurePolicy(cfg.Batch.SignaledFailure),
		usecase.WithCallTimeout(cfg.Estimation.CallTimeout),
		usecase.WithWorkers(cfg.Batch.Workers),
		usecase.WithMetrics(m),
	)
}

// ProvideDecomposeUseCase wires the optional candle source and result sinks.
func ProvideDecomposeUseCase(
	cfg *config.Config,
	runner *usecase.BatchRunner,
	ch *pkgch.Client,
	producer *pkgkafka.Producer,
	l *logger.Logger,
	m *metrics.Recorder,
) *usecase.DecomposeUseCase {
	opts := []usecase.DecomposeOption{
		usecase.WithDecomposeMetrics(m),
		usecase.WithDecomposeTimeout(cfg.Estimation.Timeout * 10),
		usecase.WithSymbolDefaults(cfg.Batch.DefaultSymbols, cfg.Batch.DefaultN, repository.NormalizeTimeframe(cfg.Batch.DefaultTF)),
	}
	if ch != nil {
		opts = append(opts,
			usecase.WithCandleStore(internalrepo.NewCHCandleStore(ch.DB(), chDatabase(cfg), l)),
			usecase.WithResultStore(internalrepo.NewCHResultStore(ch.DB(), chDatabase(cfg))),
		)
	}
	if producer != nil {
		opts = append(opts, usecase.WithResultPublisher(internalrepo.NewKafkaResultPublisher(producer, cfg.Kafka.ResultsTopic)))
	}
	return usecase.NewDecomposeUseCase(runner, l, opts...)
}

// ProvideJobStore keeps job statuses in the shared cache.
func ProvideJobStore(c cache.Service) repository.JobStore {
	return internalrepo.NewCacheJobStore(c, 24*time.Hour)
}

// ProvideQueue creates the Redis job queue, or nil without Redis.
func ProvideQueue(cfg *config.Config, rc *redis.Client, l *logger.Logger) *queue.RedisQueue {
	if rc == nil {
		return nil
	}
	return queue.NewRedisQueue(l, queue.Config{
		Workers:    cfg.Redis.QueueWorkers,
		RetryLimit: 3,
		RetryDelay: 5 * time.Second,
		KeyPrefix:  cfg.Redis.Prefix + "jobs",
	}, rc)
}

// ProvideDecomposeJob registers the decomposition job on q.
func ProvideDecomposeJob(q *queue.RedisQueue, uc *usecase.DecomposeUseCase, jobs repository.JobStore, l *logger.Logger) *usecase.DecomposeJob {
	job := usecase.NewDecomposeJob(uc, jobs, l)
	if q != nil {
		q.RegisterJob(job)
	}
	return job
}

// ProvideJobsUseCase exposes job submission; disabled without a queue.
func ProvideJobsUseCase(q *queue.RedisQueue, jobs repository.JobStore, uc *usecase.DecomposeUseCase, _ *usecase.DecomposeJob) *usecase.JobsUseCase {
	if q == nil {
		return usecase.NewJobsUseCase(nil, nil, uc)
	}
	return usecase.NewJobsUseCase(q, jobs, uc)
}

// ProvideKafkaRequestsHandler consumes decomposition requests.
func ProvideKafkaRequestsHandler(cfg *config.Config, uc *usecase.DecomposeUseCase, m *metrics.Recorder, l *logger.Logger) *usecase.KafkaRequestsHandler {
	return usecase.NewKafkaRequestsHandler(cfg.Kafka.RequestsTopic, uc, m, l)
}

// ProvideHTTPServer builds the Echo server with the decomposition routes.
func ProvideHTTPServer(cfg *config.Config, l *logger.Logger, uc *usecase.DecomposeUseCase, jobs *usecase.JobsUseCase) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	}
	h := api.NewDecomposeEchoHandler(l, uc, jobs)
	if rl := cfg.Server.RateLimit; rl.PerSecond > 0 {
		h.WithLimiter(ratelimit.New(rl.Burst, rl.PerSecond))
	}
	return xhttp.NewServer(l, []xhttp.Handler{h}, opts...)
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaRequestsHandler,
	q *queue.RedisQueue,
	producer *pkgkafka.Producer,
	ch *pkgch.Client,
	rc *redis.Client,
	c cache.Service,
) *server.App {
	return server.New(cfg, l, server.Components{
		HTTP:       httpServer,
		Consumer:   consumer,
		Handler:    kh,
		Queue:      q,
		Producer:   producer,
		ClickHouse: ch,
		Redis:      rc,
		Cache:      c,
	})
}
