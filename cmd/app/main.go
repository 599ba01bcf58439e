package main

import (
	"flag"
	"log"
	"os"

	"FinTrend/internal/di"
	"FinTrend/pkg/config"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	log.Printf("env=%s engine=%s workers=%d signaled_failure=%s",
		cfg.Environment, cfg.Estimation.EngineURL, cfg.Batch.Workers, cfg.Batch.SignaledFailure)

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Fatalf("app initialization failed: %v", err)
	}

	// Blocks until SIGINT/SIGTERM.
	if err := app.Run(); err != nil {
		log.Printf("app error: %v", err)
		os.Exit(1)
	}
}
