package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/trainrup/billing/internal/app/sweeper"
	"github.com/trainrup/billing/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting trial sweeper",
		slog.String("env", cfg.Env),
		slog.String("schedule", cfg.SweepCronSpec))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := sweeper.New(cfg, logger)
	if err != nil {
		logger.Error("failed to initialize sweeper", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("sweeper stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}
