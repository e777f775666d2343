package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/errors"
	"presence-hub/observability"
	"time"
)

// Router applies inbound events to the registry and emits the resulting
// outbound events through the broadcaster.
//
// Per connection: UNADMITTED -> ADMITTED -> IN_ROOM -> (ADMITTED | DISCONNECTED).
// A switch between rooms is a leave then a join, never two rooms at once.
//
// Handlers are not safe to run concurrently with each other; the dispatch
// worker serializes them. Errors are diagnostics only and never close the
// connection, except for admission.
type Router struct {
	log            *slog.Logger
	registry       contract.IRegistry
	broadcaster    *Broadcaster
	monitor        *observability.Monitor
	permanentSinks []contract.EventSink
	now            func() time.Time
}

func NewRouter(log *slog.Logger, registry contract.IRegistry,
	broadcaster *Broadcaster, monitor *observability.Monitor) *Router {
	return &Router{
		log:         log,
		registry:    registry,
		broadcaster: broadcaster,
		monitor:     monitor,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Add registers sinks notified of every relayed message (history archive).
func (r *Router) Add(sinks ...contract.EventSink) {
	r.permanentSinks = append(r.permanentSinks, sinks...)
}

// OnAdmit registers a connection. A missing identity is fatal for that
// connection only: the caller must terminate it.
func (r *Router) OnAdmit(id domain.ConnectionID, identity domain.Identity, sink contract.EventSink) error {
	connection, err := r.registry.Admit(id, identity, sink)
	if err != nil {
		return err
	}
	r.log.Info("Connection admitted", "connection_id", id, "user_id", identity.ID, "state", connection.State())
	return nil
}

func (r *Router) Handle(ctx context.Context, in event.Inbound) error {
	switch e := in.(type) {
	case event.JoinRoom:
		return r.OnJoin(ctx, e.Connection, e.Room)
	case event.LeaveRoom:
		return r.OnLeave(ctx, e.Connection, e.Room)
	case event.NewMessage:
		return r.OnMessage(ctx, e.Connection, e.Message)
	case event.Typing:
		return r.OnTyping(ctx, e.Connection, e.Room, e.Stopped)
	case event.Disconnect:
		return r.OnDisconnect(ctx, e.Connection)
	default:
		return fmt.Errorf("%w: unsupported event %T", errors.ErrMalformedEvent, in)
	}
}

// OnJoin moves the connection into roomID.
// An empty room is ignored and joining the current room again emits nothing.
func (r *Router) OnJoin(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error {
	if roomID.IsZero() {
		return nil
	}
	connection, err := r.registry.Lookup(id)
	if err != nil {
		return err
	}
	if connection.In(roomID) {
		r.log.Debug("Already in room", "connection_id", id, "room_id", roomID)
		return nil
	}
	previous, err := r.registry.SetRoom(id, roomID)
	if err != nil {
		return err
	}

	identity := connection.Identity
	if !previous.IsZero() {
		r.broadcaster.Relay(ctx, previous, id, event.NewLeftNotification(identity))
		r.broadcaster.PushRoster(ctx, previous)
	}
	r.broadcaster.PushRoster(ctx, roomID)
	r.broadcaster.Relay(ctx, roomID, id, event.NewJoinedNotification(identity))
	return nil
}

// OnLeave clears the room association. A leave for a room the connection is
// not in is stale and ignored.
func (r *Router) OnLeave(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID) error {
	if roomID.IsZero() {
		return fmt.Errorf("%w: leave without room", errors.ErrMalformedEvent)
	}
	connection, err := r.registry.Lookup(id)
	if err != nil {
		return err
	}
	if !connection.In(roomID) {
		r.log.Debug("Stale leave ignored", "connection_id", id, "room_id", roomID, "current_room_id", connection.Room)
		return nil
	}
	if _, err = r.registry.ClearRoom(id); err != nil {
		return err
	}
	r.broadcaster.Relay(ctx, roomID, id, event.NewLeftNotification(connection.Identity))
	r.broadcaster.PushRoster(ctx, roomID)
	return nil
}

// OnMessage relays a chat message to the other members of the sender's room.
// The declared room must match the registry; the sender is always the
// admitted identity, whatever the payload says.
func (r *Router) OnMessage(ctx context.Context, id domain.ConnectionID, message domain.ChatMessage) error {
	if err := domain.ValidateMessage(message); err != nil {
		return err
	}
	connection, err := r.registry.Lookup(id)
	if err != nil {
		return err
	}
	if !connection.In(message.RoomID) {
		return fmt.Errorf("%w: %s", errors.ErrNotInRoom, message.RoomID)
	}

	message.Sender = connection.Identity
	if message.SentAt.IsZero() {
		message.SentAt = r.now()
	}
	if message.ID == "" {
		message.ID = domain.NewMessageID(message.SentAt)
	}

	evt := event.MessageReceived{Message: message}
	r.broadcaster.Relay(ctx, connection.Room, id, evt)
	r.monitor.IncrRelayed()
	r.notifyPermanentSinks(ctx, evt)
	return nil
}

// OnTyping relays typing or stop-typing with the sender's display name.
// Nothing is retained.
func (r *Router) OnTyping(ctx context.Context, id domain.ConnectionID, roomID domain.RoomID, stopped bool) error {
	if roomID.IsZero() {
		return fmt.Errorf("%w: typing without room", errors.ErrMalformedEvent)
	}
	connection, err := r.registry.Lookup(id)
	if err != nil {
		return err
	}
	if !connection.In(roomID) {
		return fmt.Errorf("%w: %s", errors.ErrNotInRoom, roomID)
	}
	r.broadcaster.Relay(ctx, roomID, id, event.TypingSignal{
		Room:        roomID,
		DisplayName: connection.Identity.DisplayName,
		Stopped:     stopped,
	})
	return nil
}

// OnDisconnect removes the connection. Repeated signals for the same
// connection are no-ops.
func (r *Router) OnDisconnect(ctx context.Context, id domain.ConnectionID) error {
	removed, err := r.registry.Remove(id)
	if err != nil {
		r.log.Debug("Disconnect for unknown connection", "connection_id", id)
		return nil
	}
	r.log.Info("Connection removed", "connection_id", id, "user_id", removed.Identity.ID,
		"room_id", removed.Room, "state", removed.State())

	if removed.Room.IsZero() {
		return nil
	}
	r.broadcaster.Relay(ctx, removed.Room, id, event.NewDisconnectedNotification(removed.Identity))
	r.broadcaster.PushRoster(ctx, removed.Room)
	return nil
}

func (r *Router) notifyPermanentSinks(ctx context.Context, evt event.Outbound) {
	for _, sink := range r.permanentSinks {
		sinkCtx, cancel := context.WithTimeout(ctx, r.broadcaster.deliveryTimeout)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			r.log.Warn("Permanent sink failed", "event", evt.Name(), "error", err)
		}
		cancel()
	}
}
