package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"FinTrend/pkg/cache"
	pkgch "FinTrend/pkg/clickhouse"
	"FinTrend/pkg/config"
	xhttp "FinTrend/pkg/http"
	pkgkafka "FinTrend/pkg/kafka"
	applogger "FinTrend/pkg/logger"
	"FinTrend/pkg/queue"
)

// Components are the long-lived parts the App starts and stops. Every
// field except HTTP is optional.
type Components struct {
	HTTP       *xhttp.Server
	Consumer   *pkgkafka.Consumer
	Handler    pkgkafka.MessageHandler
	Queue      *queue.RedisQueue
	Producer   *pkgkafka.Producer
	ClickHouse *pkgch.Client
	Redis      *redis.Client
	Cache      cache.Service
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg *config.Config
	log *applogger.Logger
	c   Components
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, c Components) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, log: l, c: c}
}

// Start brings up the log digest, background consumers and the HTTP server.
func (a *App) Start() error {
	if a.cfg.Log.Digest.Enabled && a.c.Producer != nil {
		a.log.AttachDigest(&applogger.DigestConfig{
			FlushInterval: a.cfg.Log.Digest.FlushInterval,
			MaxEntries:    a.cfg.Log.Digest.MaxEntries,
			Topic:         a.cfg.Log.Digest.Topic,
			Publisher:     a.c.Producer,
		})
		a.log.Info("log digest attached", applogger.String("topic", a.cfg.Log.Digest.Topic))
	}

	if a.c.Queue != nil {
		if err := a.c.Queue.Start(); err != nil {
			return err
		}
		a.log.Info("job queue started", applogger.Int("workers", a.cfg.Redis.QueueWorkers))
	}

	if a.c.Consumer != nil && a.c.Handler != nil {
		a.c.Consumer.RegisterHandler(a.c.Handler)
		if err := a.c.Consumer.Start(); err != nil {
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.c.Handler.Topic()))
	}

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Start(); err != nil {
			a.log.Error("http server start error", applogger.Error(err))
			return err
		}
	}
	return nil
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.Start(); err != nil {
		_ = a.Shutdown(context.Background())
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops intake first, then drains workers, then closes clients.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.c.HTTP != nil {
		if err := a.c.HTTP.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.c.Consumer != nil {
		if err := a.c.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.c.Queue != nil {
		if err := a.c.Queue.Stop(ctx); err != nil {
			a.log.Warn("job queue stop error", applogger.Error(err))
		}
	}

	// Flush the digest while the producer is still open.
	a.log.DetachDigest()

	if a.c.Producer != nil {
		if err := a.c.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	if a.c.ClickHouse != nil {
		if err := a.c.ClickHouse.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.c.Cache != nil {
		if err := a.c.Cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.c.Redis != nil {
		if err := a.c.Redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
