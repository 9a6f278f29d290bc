// Command recurring runs one pass of the recurrence scheduler and exits.
// It suits hosts that trigger jobs from an external cron instead of
// running the in-process schedule.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Manudeeprao/expense-tracker/internal/clock"
	"github.com/Manudeeprao/expense-tracker/internal/config"
	"github.com/Manudeeprao/expense-tracker/internal/database"
	"github.com/Manudeeprao/expense-tracker/internal/events"
	"github.com/Manudeeprao/expense-tracker/internal/logger"
	"github.com/Manudeeprao/expense-tracker/internal/recurrence"
	"github.com/Manudeeprao/expense-tracker/internal/storage/gormstore"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Recurring run failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbConfig, err := database.NewConfig(cfg)
	if err != nil {
		return err
	}
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return err
	}
	defer dbManager.Close()

	if err := dbManager.Migrate(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		p, err := events.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Get().Warnw("AMQP unavailable, continuing without events", "error", err)
		} else {
			publisher = p
		}
	}
	defer publisher.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := recurrence.NewScheduler(
		gormstore.New(dbManager.DB()),
		clock.System{Location: cfg.RecurrenceLocation},
		publisher,
	)
	result := scheduler.RunDueRecurrences(ctx)

	logger.Get().Infow("Recurring run complete",
		"date", result.Date,
		"checked", result.Checked,
		"generated", result.Generated,
		"skipped", result.Skipped,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	if result.Failed > 0 {
		return fmt.Errorf("%d template(s) failed", result.Failed)
	}
	return nil
}
