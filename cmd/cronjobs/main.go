package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shortlyhq/shortly/internal/app"
)

// Runs periodic maintenance against the same database the server uses.
// Currently the only job is purging expired refresh tokens.
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	m, err := app.NewMaintenance(ctx)
	if err != nil {
		return err
	}
	defer m.Shutdown()

	logger := m.Logger

	c := cron.New()

	// Hourly purge of expired refresh tokens
	if _, err := c.AddFunc("@hourly", func() {
		removed, err := m.Tokens.DeleteExpired(context.Background(), time.Now())
		if err != nil {
			logger.Error("refresh token purge failed", "error", err)
			return
		}
		logger.Info("refresh token purge completed", "removed", removed)
	}); err != nil {
		return err
	}

	c.Start()
	logger.Info("cron scheduler started")

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	sig := <-shutdown

	logger.Info("stopping cron scheduler", "signal", sig.String())
	<-c.Stop().Done()
	return nil
}
