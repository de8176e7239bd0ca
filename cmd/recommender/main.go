package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/baechuer/property-recs/internal/bootstrap"
	"github.com/baechuer/property-recs/internal/logger"
)

func main() {
	logger.Init()
	log := logger.Component("main")

	// Root ctx with signal cancellation
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, cleanup, err := bootstrap.NewApp(rootCtx)
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer cleanup()

	log.Info().
		Str("env", app.Config.Env).
		Str("notifier", app.Config.Notifier).
		Str("view_guard", app.Config.ViewGuard).
		Dur("sweep_interval", app.Config.SweepInterval).
		Msg("recommender starting")

	if err := app.Start(rootCtx); err != nil {
		log.Error().Err(err).Msg("service stopped with error")
		cleanup()
		os.Exit(1)
	}
	log.Info().Msg("shutdown complete")
}
