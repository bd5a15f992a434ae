package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"slideshow/internal/app"
	"slideshow/internal/config"
	"slideshow/internal/logger"
)

func main() {
	cfg := config.Load()

	appLogger, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.NewApp(ctx, cfg, appLogger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	if err := application.Run(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
