package sink

import (
	"context"
	"presence-hub/domain/event"
	"presence-hub/errors"
)

// ConnectionSink is the outbound queue of one connection.
// The transport's write pump drains Events.
type ConnectionSink struct {
	events chan event.Outbound
}

func NewConnectionSink(bufferSize int) *ConnectionSink {
	return &ConnectionSink{events: make(chan event.Outbound, bufferSize)}
}

func (s *ConnectionSink) Events() <-chan event.Outbound {
	return s.events
}

// Consume is called by the broadcaster and never blocks.
// A full queue means the client is not reading: the event is lost for it only.
func (s *ConnectionSink) Consume(ctx context.Context, e event.Outbound) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSlowConsumer
	}
}
