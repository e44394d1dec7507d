package main

import (
	"context"
	"errors"
	"os"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	"ledger/internal/config"
	"ledger/internal/log"
	gsheet "ledger/internal/sheets/google"
	"ledger/internal/worker"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, logger := cli.MustSetup(log.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting ledger-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext()
	defer stop()

	creds, err := cfg.ServiceAccountJSON()
	if err != nil {
		return err
	}
	sheets, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, creds, logger)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized",
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	mirror := worker.NewMirrorWorker(sheets, logger)
	if err := mirror.Prepare(ctx); err != nil {
		return err
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer consumer.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := consumer.ConsumeTransactionEvents(gctx, mirror.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		return nil
	})
	return g.Wait()
}
