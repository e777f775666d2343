package runtime

import (
	"context"
	"log/slog"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/errors"
	"presence-hub/mocks"
	"presence-hub/observability"
	"sync"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type RecordingSink struct {
	mu     sync.Mutex
	events []event.Outbound
}

func (s *RecordingSink) Consume(_ context.Context, e event.Outbound) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *RecordingSink) Events() []event.Outbound {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.Outbound(nil), s.events...)
}

func (s *RecordingSink) Named(name event.Name) []event.Outbound {
	var res []event.Outbound
	for _, e := range s.Events() {
		if e.Name() == name {
			res = append(res, e)
		}
	}
	return res
}

func (s *RecordingSink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

type FailingSink struct{}

func (FailingSink) Consume(context.Context, event.Outbound) error { return errors.ErrSlowConsumer }

type participant struct {
	id       domain.ConnectionID
	identity domain.Identity
	sink     *RecordingSink
}

type fixture struct {
	router   *Router
	registry *Registry
	monitor  *observability.Monitor
}

func newFixture() fixture {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewRegistry()
	monitor := observability.NewMonitor(log)
	broadcaster := NewBroadcaster(log, registry, monitor, 100*time.Millisecond)
	return fixture{
		router:   NewRouter(log, registry, broadcaster, monitor),
		registry: registry,
		monitor:  monitor,
	}
}

func (f fixture) admit(t *testing.T, name string) participant {
	p := participant{id: connectionID(), identity: identity(name), sink: &RecordingSink{}}
	require.NoError(t, f.router.OnAdmit(p.id, p.identity, p.sink))
	return p
}

func (f fixture) join(t *testing.T, p participant, room domain.RoomID) {
	require.NoError(t, f.router.Handle(context.Background(), event.JoinRoom{Connection: p.id, Room: room}))
}

func roster(e event.Outbound) []domain.Identity {
	return e.(event.RoomUsers).Users
}

func notification(e event.Outbound) event.Notification {
	return e.(event.Notification)
}

func TestRouter_OnAdmit_Without_Identity(t *testing.T) {
	req := require.New(t)
	f := newFixture()

	err := f.router.OnAdmit(connectionID(), domain.Identity{ID: "u-1"}, &RecordingSink{})

	req.ErrorIs(err, errors.ErrIdentityRequired)
	req.Zero(f.registry.Size())
}

func TestRouter_OnJoin_Pushes_Roster_And_Notifies_Others(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")

	// Given X is alone in R1
	f.join(t, x, "R1")
	req.Len(x.sink.Events(), 1)
	req.Equal([]domain.Identity{x.identity}, roster(x.sink.Events()[0]))
	x.sink.Reset()

	// When Y joins R1
	f.join(t, y, "R1")

	// Then X receives the refreshed roster then the joined notification
	events := x.sink.Events()
	req.Len(events, 2)
	req.Equal(event.RoomUsersName, events[0].Name())
	req.Equal([]domain.Identity{x.identity, y.identity}, roster(events[0]))
	req.Equal(event.Joined, notification(events[1]).Type)
	req.Equal("yuna joined the room", notification(events[1]).Message)
	req.Equal(y.identity, notification(events[1]).Identity)

	// And Y receives the roster but no notification about itself
	req.Len(y.sink.Events(), 1)
	req.Equal(event.RoomUsersName, y.sink.Events()[0].Name())
}

func TestRouter_OnJoin_Empty_Room_Is_Noop(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")

	f.join(t, x, "")

	req.Empty(x.sink.Events())
	connection, err := f.registry.Lookup(x.id)
	req.NoError(err)
	req.Equal(domain.Admitted, connection.State())
}

func TestRouter_OnJoin_Twice_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	f.join(t, x, "R1")

	// When Y joins R1 twice in a row
	f.join(t, y, "R1")
	f.join(t, y, "R1")

	// Then there is a single membership entry
	req.Len(f.registry.MembersOf("R1"), 2)

	// And X got a single joined notification
	req.Len(x.sink.Named(event.NotificationName), 1)
}

func TestRouter_OnJoin_Switch_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	z := f.admit(t, "zoe")

	// Given X and Y in A, Z in B
	f.join(t, x, "A")
	f.join(t, y, "A")
	f.join(t, z, "B")
	y.sink.Reset()
	z.sink.Reset()

	// When X joins B
	f.join(t, x, "B")

	// Then Y is told X left and gets a roster without X
	yEvents := y.sink.Events()
	req.Len(yEvents, 2)
	req.Equal(event.Left, notification(yEvents[0]).Type)
	req.Equal("xavier left the room", notification(yEvents[0]).Message)
	req.Equal([]domain.Identity{y.identity}, roster(yEvents[1]))

	// And Z gets the new roster then the joined notification
	zEvents := z.sink.Events()
	req.Len(zEvents, 2)
	req.Equal([]domain.Identity{x.identity, z.identity}, roster(zEvents[0]))
	req.Equal(event.Joined, notification(zEvents[1]).Type)

	// And X is a member of B only
	req.NotContains(f.registry.MembersOf("A"), x.identity)
	req.Contains(f.registry.MembersOf("B"), x.identity)
}

func TestRouter_OnLeave(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	f.join(t, x, "R1")
	f.join(t, y, "R1")
	y.sink.Reset()

	// When X leaves R1
	err := f.router.Handle(context.Background(), event.LeaveRoom{Connection: x.id, Room: "R1"})

	// Then Y is notified and gets a refreshed roster
	req.NoError(err)
	events := y.sink.Events()
	req.Len(events, 2)
	req.Equal(event.Left, notification(events[0]).Type)
	req.Equal([]domain.Identity{y.identity}, roster(events[1]))

	// And X stays admitted without room
	connection, err := f.registry.Lookup(x.id)
	req.NoError(err)
	req.Equal(domain.Admitted, connection.State())
}

func TestRouter_OnLeave_Stale_Room_Is_Ignored(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	f.join(t, x, "R1")
	f.join(t, y, "R1")
	y.sink.Reset()

	// When X leaves a room it is not in
	err := f.router.Handle(context.Background(), event.LeaveRoom{Connection: x.id, Room: "R2"})

	// Then nothing happens
	req.NoError(err)
	req.Empty(y.sink.Events())
	req.Len(f.registry.MembersOf("R1"), 2)
}

func TestRouter_OnMessage_Relays_To_Others_Only(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	f.join(t, x, "R1")
	f.join(t, y, "R1")
	x.sink.Reset()
	y.sink.Reset()

	// When X sends "hi" claiming to be someone else
	err := f.router.Handle(context.Background(), event.NewMessage{
		Connection: x.id,
		Message: domain.ChatMessage{
			RoomID:  "R1",
			Content: "hi",
			Sender:  domain.Identity{ID: "spoofed", DisplayName: "mallory"},
		},
	})

	// Then Y receives exactly one copy, attributed to X
	req.NoError(err)
	received := y.sink.Named(event.MessageReceivedName)
	req.Len(received, 1)
	message := received[0].(event.MessageReceived).Message
	req.Equal("hi", message.Content)
	req.Equal(x.identity, message.Sender)
	req.NotEmpty(message.ID)
	req.False(message.SentAt.IsZero())

	// And X receives none of its own message
	req.Empty(x.sink.Events())
	req.Equal(uint64(1), f.monitor.Snapshot(nil).Relayed)
}

func TestRouter_OnMessage_Room_Mismatch_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	w := f.admit(t, "walt")
	f.join(t, x, "R1")
	f.join(t, y, "R2")
	f.join(t, w, "R1")
	y.sink.Reset()
	w.sink.Reset()

	// When X declares R2 while being in R1
	err := f.router.Handle(context.Background(), event.NewMessage{
		Connection: x.id,
		Message:    domain.ChatMessage{RoomID: "R2", Content: "hi"},
	})

	// Then nobody receives anything
	req.ErrorIs(err, errors.ErrNotInRoom)
	req.Empty(y.sink.Events())
	req.Empty(w.sink.Events())
}

func TestRouter_OnMessage_Without_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")

	err := f.router.OnMessage(context.Background(), x.id, domain.ChatMessage{Content: "hi"})
	req.ErrorIs(err, errors.ErrMalformedEvent)

	// And a connection outside any room can't send either
	err = f.router.OnMessage(context.Background(), x.id, domain.ChatMessage{RoomID: "R1", Content: "hi"})
	req.ErrorIs(err, errors.ErrNotInRoom)
}

func TestRouter_OnMessage_Notifies_Permanent_Sinks(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()
	f := newFixture()
	archive := mocks.NewMockEventSink(ctrl)
	f.router.Add(archive)
	x := f.admit(t, "xavier")
	f.join(t, x, "R1")

	// Given the archive expects one relayed message
	archive.EXPECT().
		Consume(gomock.Any(), gomock.AssignableToTypeOf(event.MessageReceived{})).
		Return(nil).
		Times(1)

	// When X sends a message, even with nobody to relay to
	err := f.router.OnMessage(context.Background(), x.id, domain.ChatMessage{RoomID: "R1", Content: "hi"})

	// Then the archive was notified
	req.NoError(err)
}

func TestRouter_OnTyping_Then_StopTyping(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	f.join(t, x, "R1")
	f.join(t, y, "R1")
	x.sink.Reset()
	y.sink.Reset()

	// When X starts then stops typing
	req.NoError(f.router.Handle(context.Background(), event.Typing{Connection: x.id, Room: "R1"}))
	req.NoError(f.router.Handle(context.Background(), event.Typing{Connection: x.id, Room: "R1", Stopped: true}))

	// Then Y observes typing then stop-typing carrying X's display name
	events := y.sink.Events()
	req.Len(events, 2)
	req.Equal(event.TypingName, events[0].Name())
	req.Equal("xavier", events[0].Payload())
	req.Equal(event.StopTypingName, events[1].Name())
	req.Equal("xavier", events[1].Payload())

	// And X gets no echo
	req.Empty(x.sink.Events())
}

func TestRouter_OnTyping_Other_Room_Is_Dropped(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	f.join(t, x, "R1")
	f.join(t, y, "R2")
	y.sink.Reset()

	err := f.router.Handle(context.Background(), event.Typing{Connection: x.id, Room: "R2"})

	req.ErrorIs(err, errors.ErrNotInRoom)
	req.Empty(y.sink.Events())
}

func TestRouter_OnDisconnect(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	f.join(t, x, "R1")
	f.join(t, y, "R1")
	y.sink.Reset()

	// When X disconnects
	req.NoError(f.router.Handle(context.Background(), event.Disconnect{Connection: x.id}))

	// Then Y gets one DISCONNECTED notification and a roster without X
	events := y.sink.Events()
	req.Len(events, 2)
	req.Equal(event.Disconnected, notification(events[0]).Type)
	req.Equal("xavier disconnected", notification(events[0]).Message)
	req.Equal([]domain.Identity{y.identity}, roster(events[1]))
	req.NotContains(f.registry.MembersOf("R1"), x.identity)

	// When the disconnect signal is repeated
	y.sink.Reset()
	err := f.router.Handle(context.Background(), event.Disconnect{Connection: x.id})

	// Then nothing else happens and no error is reported
	req.NoError(err)
	req.Empty(y.sink.Events())
}

func TestRouter_OnDisconnect_Without_Room(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")

	req.NoError(f.router.OnDisconnect(context.Background(), x.id))
	req.Zero(f.registry.Size())
}

func TestRouter_Events_After_Disconnect_Are_Unknown(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	req.NoError(f.router.OnDisconnect(context.Background(), x.id))

	err := f.router.Handle(context.Background(), event.JoinRoom{Connection: x.id, Room: "R1"})

	req.ErrorIs(err, errors.ErrUnknownConnection)
	req.Zero(f.registry.Rooms())
}

func TestRouter_Failing_Sink_Does_Not_Affect_Others(t *testing.T) {
	req := require.New(t)
	f := newFixture()
	x := f.admit(t, "xavier")
	y := f.admit(t, "yuna")
	slowID := connectionID()
	req.NoError(f.router.OnAdmit(slowID, identity("slow"), FailingSink{}))
	f.join(t, x, "R1")
	f.join(t, y, "R1")
	req.NoError(f.router.OnJoin(context.Background(), slowID, "R1"))
	y.sink.Reset()

	// When X sends a message
	req.NoError(f.router.OnMessage(context.Background(), x.id, domain.ChatMessage{RoomID: "R1", Content: "hi"}))

	// Then Y still receives it and the failure is counted
	req.Len(y.sink.Named(event.MessageReceivedName), 1)
	req.Positive(f.monitor.Snapshot(nil).Dropped)
}

type unsupported struct{}

func (unsupported) ConnectionID() domain.ConnectionID { return "" }
func (unsupported) Kind() event.Kind                  { return "unsupported" }

func TestRouter_Handle_Unsupported_Event(t *testing.T) {
	req := require.New(t)
	f := newFixture()

	err := f.router.Handle(context.Background(), unsupported{})

	req.ErrorIs(err, errors.ErrMalformedEvent)
}
