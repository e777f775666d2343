package runtime

import (
	"context"
	"log/slog"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/observability"
	"time"
)

// Broadcaster computes rosters from the registry and pushes outbound events
// to a room. Targets are snapshotted at push time, after the registry
// mutation that caused the push has been committed.
//
// Delivery is best-effort: a sink that fails or times out loses that event,
// the other recipients are unaffected.
type Broadcaster struct {
	log             *slog.Logger
	registry        contract.IRegistry
	monitor         *observability.Monitor
	deliveryTimeout time.Duration
}

func NewBroadcaster(log *slog.Logger, registry contract.IRegistry,
	monitor *observability.Monitor, deliveryTimeout time.Duration) *Broadcaster {
	return &Broadcaster{
		log:             log,
		registry:        registry,
		monitor:         monitor,
		deliveryTimeout: deliveryTimeout,
	}
}

// Roster returns the de-duplicated identities present in a room.
func (b *Broadcaster) Roster(roomID domain.RoomID) []domain.Identity {
	return b.registry.MembersOf(roomID)
}

// PushRoster sends the current roster to every member of the room.
func (b *Broadcaster) PushRoster(ctx context.Context, roomID domain.RoomID) {
	sinks := b.registry.SinksOf(roomID, "")
	if len(sinks) == 0 {
		return
	}
	b.deliver(ctx, sinks, event.RoomUsers{Room: roomID, Users: b.Roster(roomID)})
}

// Relay sends evt to every member of the room except the originating connection.
func (b *Broadcaster) Relay(ctx context.Context, roomID domain.RoomID, exclude domain.ConnectionID, evt event.Outbound) {
	b.deliver(ctx, b.registry.SinksOf(roomID, exclude), evt)
}

// deliver consumes sequentially so each connection sees events in emission order.
func (b *Broadcaster) deliver(ctx context.Context, sinks []contract.EventSink, evt event.Outbound) {
	for _, sink := range sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, b.deliveryTimeout)
		err := sink.Consume(sinkCtx, evt)
		cancel()
		if err != nil {
			b.monitor.IncrDropped()
			b.log.Warn("Outbound event dropped", "event", evt.Name(), "error", err)
			continue
		}
		b.monitor.IncrDelivered()
	}
}
