package sink

import (
	"context"
	"log/slog"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/errors"
)

// ArchiveSink hands relayed messages to the archive worker.
// It is registered as a permanent sink, so it must stay non-blocking.
type ArchiveSink struct {
	log      *slog.Logger
	messages chan<- domain.ChatMessage
}

func NewArchiveSink(log *slog.Logger, messages chan<- domain.ChatMessage) ArchiveSink {
	return ArchiveSink{log: log, messages: messages}
}

func (a ArchiveSink) Consume(ctx context.Context, e event.Outbound) error {
	switch evt := e.(type) {
	case event.MessageReceived:
		select {
		case a.messages <- evt.Message:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		default:
			return errors.ErrSlowConsumer
		}
	default:
		a.log.Debug("Not archived", "event", e.Name())
		return nil
	}
}
