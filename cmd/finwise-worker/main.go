package main

import (
	"context"
	"os"
	"time"

	"finwise/internal/amqp"
	"finwise/internal/cli"
	"finwise/internal/log"
	"finwise/internal/notify/telegram"
	gsheet "finwise/internal/sheets/google"
	"finwise/internal/worker"
)

func main() {
	cfg, logger := cli.MustSetup()
	logger.Info("Starting finwise-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	var mirror worker.Mirror
	if cfg.SheetsEnabled() {
		creds, err := gsheet.Credentials(cfg.GoogleServiceAccountJSON, cfg.GoogleServiceAccountFile)
		if err != nil {
			logger.Error("Failed to read Google credentials", log.FieldError, err)
			os.Exit(1)
		}
		client, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, cfg.DateFormat, creds)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
			os.Exit(1)
		}
		mirror = client
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)
	} else {
		logger.Info("Google Sheets disabled, transactions are only logged")
	}

	var notifier worker.Notifier
	if cfg.TelegramEnabled() {
		n, err := telegram.New(cfg.TelegramToken, cfg.TelegramChatID, cfg.CurrencySymbol)
		if err != nil {
			logger.Error("Failed to initialize Telegram bot", log.FieldError, err)
			os.Exit(1)
		}
		notifier = n
		logger.Info("Telegram alerts enabled")
	} else {
		logger.Info("Telegram disabled, budget alerts are only logged")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPTransactionsQueue, cfg.AMQPAlertsQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)
	if err := worker.New(mirror, notifier, logger).Run(ctx, client); err != nil {
		logger.Error("Worker stopped", log.FieldError, err)
		_ = client.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	if err := client.Close(); err != nil {
		logger.Error("AMQP close error", log.FieldError, err)
	}
	logger.Info("Worker stopped gracefully")
}
