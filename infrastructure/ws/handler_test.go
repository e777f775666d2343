package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"presence-hub/auth"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/mocks"
	"presence-hub/observability"
	"presence-hub/runtime"
	"presence-hub/runtime/workers"
	"presence-hub/services"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

const (
	secret = "a_test_secret_long_enough_for_hs256"
	issuer = "presence-hub"
	origin = "https://chat.example.com"
)

var (
	xavier = domain.Identity{ID: "u-x", DisplayName: "xavier"}
	yuna   = domain.Identity{ID: "u-y", DisplayName: "yuna"}
)

type receivedFrame struct {
	Event event.Name      `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type HandlerSuite struct {
	suite.Suite
	server *httptest.Server
	cancel context.CancelFunc
	done   chan struct{}
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(s.T())
	repository := mocks.NewMockIMessageRepository(ctrl)
	repository.EXPECT().StoreMessage(gomock.Any()).Return(nil).AnyTimes()

	o := runtime.NewOrchestrator(log,
		workers.NewSupervisor(log, 10*time.Millisecond),
		runtime.NewRegistry(),
		repository,
		observability.NewMonitor(log),
		64, 64, 200*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})
	go func() {
		o.Start(ctx)
		close(s.done)
	}()

	handler := NewHandler(log, services.NewPresenceService(o), auth.NewTokenValidator(secret, issuer), Options{
		AllowedOrigins:       []string{origin},
		ConnectionBufferSize: 16,
		MaxMessageSize:       4096,
		RateLimitBurst:       100,
		RateLimitInterval:    time.Second,
		DispatchTimeout:      time.Second,
	})
	s.server = httptest.NewServer(handler)
}

func (s *HandlerSuite) TearDownTest() {
	s.server.Close()
	s.cancel()
	<-s.done
}

func (s *HandlerSuite) url() string {
	return "ws" + strings.TrimPrefix(s.server.URL, "http")
}

func (s *HandlerSuite) token(identity domain.Identity) string {
	token, err := auth.GenerateToken(secret, issuer, identity, time.Hour)
	s.Require().NoError(err)
	return token
}

func (s *HandlerSuite) dial(identity domain.Identity) *websocket.Conn {
	header := http.Header{"Authorization": []string{"Bearer " + s.token(identity)}}
	conn, _, err := websocket.DefaultDialer.Dial(s.url(), header)
	s.Require().NoError(err)
	s.T().Cleanup(func() { _ = conn.Close() })
	return conn
}

func (s *HandlerSuite) send(conn *websocket.Conn, name event.Kind, data any) {
	s.Require().NoError(conn.WriteJSON(map[string]any{"event": name, "data": data}))
}

func (s *HandlerSuite) expect(conn *websocket.Conn, name event.Name) receivedFrame {
	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, raw, err := conn.ReadMessage()
	s.Require().NoError(err)
	var frame receivedFrame
	s.Require().NoError(json.Unmarshal(raw, &frame))
	s.Require().Equal(name, frame.Event, string(raw))
	return frame
}

func (s *HandlerSuite) expectRoster(conn *websocket.Conn, want ...domain.Identity) {
	var users []domain.Identity
	s.Require().NoError(json.Unmarshal(s.expect(conn, event.RoomUsersName).Data, &users))
	s.Require().Equal(want, users)
}

func (s *HandlerSuite) expectNotification(conn *websocket.Conn, want event.Notification) {
	var got event.Notification
	s.Require().NoError(json.Unmarshal(s.expect(conn, event.NotificationName).Data, &got))
	s.Require().Equal(want, got)
}

// bothInRoom connects X then Y to room and consumes the join traffic.
func (s *HandlerSuite) bothInRoom(room string) (*websocket.Conn, *websocket.Conn) {
	x := s.dial(xavier)
	s.send(x, event.JoinRoomKind, room)
	s.expectRoster(x, xavier)

	y := s.dial(yuna)
	s.send(y, event.JoinRoomKind, room)
	s.expectRoster(x, xavier, yuna)
	s.expectNotification(x, event.NewJoinedNotification(yuna))
	s.expectRoster(y, xavier, yuna)
	return x, y
}

func (s *HandlerSuite) TestRejects_Handshake_Without_Token() {
	_, resp, err := websocket.DefaultDialer.Dial(s.url(), nil)

	s.Require().ErrorIs(err, websocket.ErrBadHandshake)
	s.Require().Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *HandlerSuite) TestRejects_Handshake_From_Unknown_Origin() {
	header := http.Header{
		"Authorization": []string{"Bearer " + s.token(xavier)},
		"Origin":        []string{"https://evil.example.com"},
	}

	_, resp, err := websocket.DefaultDialer.Dial(s.url(), header)

	s.Require().ErrorIs(err, websocket.ErrBadHandshake)
	s.Require().Equal(http.StatusForbidden, resp.StatusCode)
}

func (s *HandlerSuite) TestAccepts_Token_From_Query_And_Allowed_Origin() {
	header := http.Header{"Origin": []string{origin}}
	conn, _, err := websocket.DefaultDialer.Dial(s.url()+"?token="+s.token(xavier), header)
	s.Require().NoError(err)
	defer conn.Close()

	s.send(conn, event.JoinRoomKind, "R1")
	s.expectRoster(conn, xavier)
}

func (s *HandlerSuite) TestCloses_Connection_When_Identity_Is_Incomplete() {
	conn := s.dial(domain.Identity{ID: "u-1"})

	s.Require().NoError(conn.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := conn.ReadMessage()

	s.Require().True(websocket.IsCloseError(err, websocket.ClosePolicyViolation), "got %v", err)
}

func (s *HandlerSuite) TestRelays_Messages_And_Typing_To_Others_Only() {
	x, y := s.bothInRoom("R1")

	// When X sends a message pretending to be someone else
	s.send(x, event.NewMessageKind, map[string]any{
		"roomId":  "R1",
		"content": "hello",
		"sender":  map[string]string{"id": "u-9", "displayName": "mallory"},
	})

	// Then Y receives it from X's admitted identity
	var message domain.ChatMessage
	s.Require().NoError(json.Unmarshal(s.expect(y, event.MessageReceivedName).Data, &message))
	s.Require().Equal(xavier, message.Sender)
	s.Require().Equal("hello", message.Content)
	s.Require().NotEmpty(message.ID)
	s.Require().False(message.SentAt.IsZero())

	// And typing is relayed as a display name
	s.send(x, event.TypingKind, "R1")
	s.Require().Equal(`"xavier"`, string(s.expect(y, event.TypingName).Data))

	// And X never got its own message: the next frame X sees is Y's typing
	s.send(y, event.StopTypingKind, "R1")
	s.Require().Equal(`"yuna"`, string(s.expect(x, event.StopTypingName).Data))
}

func (s *HandlerSuite) TestDrops_Message_For_Another_Room() {
	x, y := s.bothInRoom("R1")

	s.send(x, event.NewMessageKind, map[string]any{"roomId": "R2", "content": "first"})
	s.send(x, event.NewMessageKind, map[string]any{"roomId": "R1", "content": "second"})

	var message domain.ChatMessage
	s.Require().NoError(json.Unmarshal(s.expect(y, event.MessageReceivedName).Data, &message))
	s.Require().Equal("second", message.Content)
}

func (s *HandlerSuite) TestIgnores_Malformed_Frames() {
	x := s.dial(xavier)

	s.Require().NoError(x.WriteMessage(websocket.TextMessage, []byte("garbage")))
	s.send(x, "shout", "R1")
	s.send(x, event.JoinRoomKind, "R1")

	s.expectRoster(x, xavier)
}

func (s *HandlerSuite) TestRoom_Switch_Notifies_Previous_Room() {
	x, y := s.bothInRoom("A")

	s.send(x, event.JoinRoomKind, "B")

	s.expectNotification(y, event.NewLeftNotification(xavier))
	s.expectRoster(y, yuna)
	s.expectRoster(x, xavier)
}

func (s *HandlerSuite) TestLeave_Room() {
	x, y := s.bothInRoom("R1")

	s.send(y, event.LeaveRoomKind, "R1")

	s.expectNotification(x, event.NewLeftNotification(yuna))
	s.expectRoster(x, xavier)
}

func (s *HandlerSuite) TestAbrupt_Close_Notifies_Room() {
	x, y := s.bothInRoom("R1")

	s.Require().NoError(y.Close())

	s.expectNotification(x, event.NewDisconnectedNotification(yuna))
	s.expectRoster(x, xavier)
}

func (s *HandlerSuite) TestDisconnect_Event_Closes_Connection() {
	x, y := s.bothInRoom("R1")

	s.send(y, event.DisconnectKind, nil)

	s.expectNotification(x, event.NewDisconnectedNotification(yuna))
	s.expectRoster(x, xavier)
	s.Require().NoError(y.SetReadDeadline(time.Now().Add(2 * time.Second)))
	_, _, err := y.ReadMessage()
	s.Require().Error(err)
}
