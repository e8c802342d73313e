// Package worker consumes ledger events and fans them out to the mirror and
// alert sinks.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"finwise/internal/amqp"
	"finwise/internal/log"
)

// Mirror keeps an external copy of every ledger.
type Mirror interface {
	AppendTransaction(ctx context.Context, msg *amqp.TransactionRecordedMessage) error
	ClearLedger(ctx context.Context, msg *amqp.LedgerClearedMessage) error
}

// Notifier tells a human about budget alerts.
type Notifier interface {
	NotifyBudget(ctx context.Context, msg *amqp.BudgetAlertMessage) error
}

// Consumer is implemented by *amqp.Client.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler amqp.Handler) error
	TransactionsQueue() string
	AlertsQueue() string
}

type Worker struct {
	mirror   Mirror
	notifier Notifier
	logger   *log.Logger
}

// New falls back to logging sinks for whichever of mirror and notifier is nil.
func New(mirror Mirror, notifier Notifier, logger *log.Logger) *Worker {
	logger = logger.WithComponent(log.ComponentWorker)
	if mirror == nil {
		mirror = LogSink{logger: logger}
	}
	if notifier == nil {
		notifier = LogSink{logger: logger}
	}
	return &Worker{mirror: mirror, notifier: notifier, logger: logger}
}

// HandleTransactions is the amqp.Handler of the transactions queue.
func (w *Worker) HandleTransactions(ctx context.Context, eventType string, body []byte) error {
	switch eventType {
	case amqp.EventTransactionRecorded:
		msg, err := amqp.Decode[amqp.TransactionRecordedMessage](body)
		if err != nil {
			return err
		}
		if err := w.mirror.AppendTransaction(ctx, msg); err != nil {
			w.fail(ctx, log.OpMirror, msg.ID, msg.UserID, err)
			return fmt.Errorf("mirror transaction %d: %w", msg.TransactionID, err)
		}
		w.logger.InfoContext(ctx, "Transaction mirrored",
			log.FieldMessageID, msg.ID, log.FieldUserID, msg.UserID, log.FieldCategory, msg.Category)
		return nil

	case amqp.EventLedgerCleared:
		msg, err := amqp.Decode[amqp.LedgerClearedMessage](body)
		if err != nil {
			return err
		}
		if err := w.mirror.ClearLedger(ctx, msg); err != nil {
			w.fail(ctx, log.OpClear, msg.ID, msg.UserID, err)
			return fmt.Errorf("clear mirrored ledger of user %d: %w", msg.UserID, err)
		}
		return nil

	default:
		return fmt.Errorf("%w: unexpected event %q on transactions queue", amqp.ErrMalformed, eventType)
	}
}

// HandleAlerts is the amqp.Handler of the alerts queue.
func (w *Worker) HandleAlerts(ctx context.Context, eventType string, body []byte) error {
	if eventType != amqp.EventBudgetAlert {
		return fmt.Errorf("%w: unexpected event %q on alerts queue", amqp.ErrMalformed, eventType)
	}
	msg, err := amqp.Decode[amqp.BudgetAlertMessage](body)
	if err != nil {
		return err
	}
	if err := w.notifier.NotifyBudget(ctx, msg); err != nil {
		w.fail(ctx, log.OpNotify, msg.ID, msg.UserID, err)
		return fmt.Errorf("notify budget alert for %s: %w", msg.Category, err)
	}
	return nil
}

func (w *Worker) fail(ctx context.Context, op, messageID string, userID int64, err error) {
	w.logger.LogFields(ctx, slog.LevelError, "Sink failed",
		log.NewFields().
			WithOperation(op).
			WithUser(userID).
			WithError(err, log.ErrorTypeNetwork).
			With(log.FieldMessageID, messageID))
}

// Run consumes both queues until ctx is done or one consumer fails.
func (w *Worker) Run(ctx context.Context, c Consumer) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.Consume(ctx, c.TransactionsQueue(), w.HandleTransactions)
	})
	g.Go(func() error {
		return c.Consume(ctx, c.AlertsQueue(), w.HandleAlerts)
	})
	w.logger.InfoContext(ctx, "Worker started",
		"transactions_queue", c.TransactionsQueue(), "alerts_queue", c.AlertsQueue())

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// LogSink stands in for an unconfigured mirror or notifier.
type LogSink struct {
	logger *log.Logger
}

func (s LogSink) AppendTransaction(ctx context.Context, msg *amqp.TransactionRecordedMessage) error {
	s.logger.LogFields(ctx, slog.LevelInfo, "Transaction recorded (no mirror configured)",
		log.NewFields().
			WithOperation(log.OpMirror).
			WithUser(msg.UserID).
			WithTransaction(msg.Category, msg.Kind, msg.Amount))
	return nil
}

func (s LogSink) ClearLedger(ctx context.Context, msg *amqp.LedgerClearedMessage) error {
	s.logger.InfoContext(ctx, "Ledger cleared (no mirror configured)",
		log.FieldUserID, msg.UserID, "removed", msg.Removed)
	return nil
}

func (s LogSink) NotifyBudget(ctx context.Context, msg *amqp.BudgetAlertMessage) error {
	s.logger.LogFields(ctx, slog.LevelWarn, "Budget alert (no notifier configured)",
		log.NewFields().
			WithOperation(log.OpNotify).
			WithUser(msg.UserID).
			With(log.FieldCategory, msg.Category).
			WithBudget(msg.Status, msg.Limit, msg.RunningTotal))
	return nil
}
