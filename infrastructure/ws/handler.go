// Package ws adapts WebSocket connections to the presence service:
// handshake admission, frame decoding and per-connection pumps.
package ws

import (
	"log/slog"
	"net/http"
	"presence-hub/auth"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/errors"
	"presence-hub/services"
	"presence-hub/sink"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultConnectionBufferSize = 64
	defaultDispatchTimeout      = 5 * time.Second
)

type Options struct {
	AllowedOrigins       []string
	ConnectionBufferSize int
	MaxMessageSize       int64
	RateLimitBurst       int
	RateLimitInterval    time.Duration
	DispatchTimeout      time.Duration
}

type Handler struct {
	log       *slog.Logger
	service   services.IPresenceService
	validator contract.IdentityValidator
	upgrader  websocket.Upgrader
	options   Options
}

func NewHandler(log *slog.Logger, service services.IPresenceService,
	validator contract.IdentityValidator, options Options) *Handler {
	if options.ConnectionBufferSize <= 0 {
		options.ConnectionBufferSize = defaultConnectionBufferSize
	}
	if options.DispatchTimeout <= 0 {
		options.DispatchTimeout = defaultDispatchTimeout
	}
	policy := newOriginPolicy(log, options.AllowedOrigins)
	return &Handler{
		log:       log,
		service:   service,
		validator: validator,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     policy.check,
		},
		options: options,
	}
}

// ServeHTTP authenticates the handshake, upgrades and admits the connection,
// then hands it to its pumps. Admission completes before the first frame is read.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := h.validator.Validate(auth.BearerToken(r))
	identityMissing := errors.Is(err, errors.ErrIdentityRequired)
	if err != nil && !identityMissing {
		h.log.Debug("Handshake rejected", "remote_addr", r.RemoteAddr, "error", err)
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already wrote the HTTP error.
		h.log.Debug("Upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	id := domain.ConnectionID(uuid.NewString())
	out := sink.NewConnectionSink(h.options.ConnectionBufferSize)
	if identityMissing {
		h.reject(conn, id, websocket.ClosePolicyViolation, "identity required")
		return
	}
	if err := h.service.Admit(id, identity, out); err != nil {
		code := websocket.CloseInternalServerErr
		if errors.Is(err, errors.ErrIdentityRequired) {
			code = websocket.ClosePolicyViolation
		}
		h.reject(conn, id, code, err.Error())
		return
	}
	h.log.Info("Connection opened", "connection_id", id, "user_id", identity.ID, "remote_addr", r.RemoteAddr)

	if h.options.MaxMessageSize > 0 {
		conn.SetReadLimit(h.options.MaxMessageSize)
	}
	c := &client{
		log:             h.log,
		id:              id,
		conn:            conn,
		service:         h.service,
		sink:            out,
		limiter:         newLimiter(h.options.RateLimitBurst, h.options.RateLimitInterval),
		dispatchTimeout: h.options.DispatchTimeout,
		done:            make(chan struct{}),
	}
	go c.writePump()
	go c.readPump()
}

func (h *Handler) reject(conn *websocket.Conn, id domain.ConnectionID, code int, reason string) {
	h.log.Info("Connection refused", "connection_id", id, "code", code, "reason", reason)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), time.Now().Add(writeWait))
	_ = conn.Close()
}
