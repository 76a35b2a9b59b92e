package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pisciapp/backend/internal/app"
	"github.com/pisciapp/backend/internal/config"
	"github.com/pisciapp/backend/internal/observability/logger"
)

func main() {
	// .env es opcional: en prod las variables vienen del entorno
	_ = godotenv.Load()

	cfg, err := config.Load(envOr("CONFIG_PATH", "configs/config.yaml"))
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: cfg.App.Name,
		Version:     app.Version,
	})
	defer func() { _ = logger.Sync() }()
	lg := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		lg.Fatal("wiring failed", logger.Err(err))
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil {
		lg.Error("server stopped with error", logger.Err(err))
		return
	}
	lg.Info("bye")
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
