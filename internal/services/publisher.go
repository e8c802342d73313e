package services

import (
	"context"
	"log/slog"

	"finwise/internal/amqp"
	"finwise/internal/log"
)

// Publisher sends domain events to the worker. *amqp.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, msg amqp.Message) error
}

// publish never fails the caller: the write it describes is already stored.
func publish(ctx context.Context, p Publisher, logger *log.Logger, msg amqp.Message) {
	if p == nil {
		logger.DebugContext(ctx, "Publisher not configured, skipping event", "type", msg.EventType())
		return
	}
	if err := p.Publish(ctx, msg); err != nil {
		logger.LogFields(ctx, slog.LevelError, "Failed to publish event",
			log.NewFields().
				WithOperation(log.OpPublish).
				WithError(err, log.ErrorTypeNetwork).
				With(log.FieldMessageID, msg.MessageID()))
	}
}
