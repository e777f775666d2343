package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"presence-hub/domain"
	"presence-hub/errors"
	"presence-hub/mocks"
	"presence-hub/observability"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var xavier = domain.Identity{ID: "u-x", DisplayName: "xavier"}

type fixture struct {
	router    http.Handler
	service   *mocks.MockIPresenceService
	validator *mocks.MockIdentityValidator
}

func newFixture(t *testing.T) fixture {
	ctrl := gomock.NewController(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	service := mocks.NewMockIPresenceService(ctrl)
	validator := mocks.NewMockIdentityValidator(ctrl)
	ws := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTeapot) })
	return fixture{
		router:    NewRouter(log, service, validator, ws, []string{"https://chat.example.com"}),
		service:   service,
		validator: validator,
	}
}

func (f fixture) get(target string, authorized bool) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodGet, target, nil)
	if authorized {
		r.Header.Set("Authorization", "Bearer good")
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, r)
	return w
}

func (f fixture) authorize() {
	f.validator.EXPECT().Validate("good").Return(xavier, nil)
}

func TestRouter_Healthz(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	req.Equal(http.StatusOK, f.get("/healthz", false).Code)
}

func TestRouter_Mounts_WebSocket_Handler(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	req.Equal(http.StatusTeapot, f.get("/ws", false).Code)
}

func TestRouter_Api_Requires_Token(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.validator.EXPECT().Validate("").Return(domain.Identity{}, errors.ErrUnauthenticated)

	req.Equal(http.StatusUnauthorized, f.get("/api/stats", false).Code)
}

func TestRouter_Users(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.authorize()
	f.service.EXPECT().Roster(domain.RoomID("R1")).Return([]domain.Identity{xavier}, nil)

	w := f.get("/api/rooms/R1/users", true)

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"roomId":"R1","users":[{"id":"u-x","displayName":"xavier"}]}`, w.Body.String())
}

func TestRouter_Messages(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.authorize()
	cursor := "01JC0000000000000000000001"
	next := "01JC0000000000000000000000"
	f.service.EXPECT().
		History(domain.RoomID("R1"), &cursor).
		Return([]domain.ChatMessage{{ID: next, RoomID: "R1", Content: "hi", Sender: xavier}}, &next, nil)

	w := f.get("/api/rooms/R1/messages?cursor="+cursor, true)

	req.Equal(http.StatusOK, w.Code)
	var body messagesResponse
	req.NoError(json.Unmarshal(w.Body.Bytes(), &body))
	req.Len(body.Messages, 1)
	req.Equal(xavier, body.Messages[0].Sender)
	req.Equal(&next, body.Cursor)
}

func TestRouter_Messages_Empty_History(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.authorize()
	f.service.EXPECT().History(domain.RoomID("R1"), nil).Return(nil, nil, nil)

	w := f.get("/api/rooms/R1/messages", true)

	req.Equal(http.StatusOK, w.Code)
	req.JSONEq(`{"messages":[],"cursor":null}`, w.Body.String())
}

func TestRouter_Messages_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid cursor", fmt.Errorf("%w: bad", errors.ErrInvalidCursor), http.StatusBadRequest},
		{"store failure", fmt.Errorf("badger closed"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.authorize()
			f.service.EXPECT().History(gomock.Any(), gomock.Any()).Return(nil, nil, tt.err)

			require.Equal(t, tt.want, f.get("/api/rooms/R1/messages?cursor=x", true).Code)
		})
	}
}

func TestRouter_Stats(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	f.authorize()
	f.service.EXPECT().Stats().Return(observability.Stats{Connections: 2, Rooms: 1, Relayed: 5})

	w := f.get("/api/stats", true)

	req.Equal(http.StatusOK, w.Code)
	var stats observability.Stats
	req.NoError(json.Unmarshal(w.Body.Bytes(), &stats))
	req.Equal(2, stats.Connections)
	req.Equal(1, stats.Rooms)
	req.Equal(uint64(5), stats.Relayed)
}

func TestRouter_Cors_Preflight(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	r := httptest.NewRequest(http.MethodOptions, "/api/stats", nil)
	r.Header.Set("Origin", "https://chat.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()

	f.router.ServeHTTP(w, r)

	req.Equal("https://chat.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}
