package ws

import (
	"context"
	"log/slog"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/errors"
	"presence-hub/services"
	"presence-hub/sink"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// client pumps frames between one WebSocket and the presence service.
// readPump owns the connection lifetime: when it returns, the disconnect is
// dispatched and the write pump stops.
type client struct {
	log             *slog.Logger
	id              domain.ConnectionID
	conn            *websocket.Conn
	service         services.IPresenceService
	sink            *sink.ConnectionSink
	limiter         *rate.Limiter
	dispatchTimeout time.Duration
	done            chan struct{}
}

func newLimiter(burst int, interval time.Duration) *rate.Limiter {
	if burst <= 0 || interval <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	return rate.NewLimiter(rate.Every(interval/time.Duration(burst)), burst)
}

func (c *client) readPump() {
	defer c.close()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			c.logReadError(err)
			return
		}
		if !c.limiter.Allow() {
			c.log.Debug("Rate limit exceeded, frame discarded", "connection_id", c.id)
			continue
		}
		in, err := DecodeFrame(c.id, raw)
		if err != nil {
			c.log.Debug("Frame dropped", "connection_id", c.id, "error", err)
			continue
		}
		if in == nil {
			continue
		}
		if in.Kind() == event.DisconnectKind {
			return
		}
		if err := c.dispatch(in); err != nil {
			c.log.Warn("Inbound event not dispatched", "connection_id", c.id, "event", in.Kind(), "error", err)
		}
	}
}

func (c *client) dispatch(in event.Inbound) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.dispatchTimeout)
	defer cancel()
	return c.service.Dispatch(ctx, in)
}

// close runs once per connection, whatever ended it.
func (c *client) close() {
	close(c.done)
	if err := c.service.Dispatch(context.Background(), event.Disconnect{Connection: c.id}); err != nil {
		c.log.Error("Disconnect not dispatched", "connection_id", c.id, "error", err)
	}
	_ = c.conn.Close()
	c.log.Info("Connection closed", "connection_id", c.id)
}

func (c *client) logReadError(err error) {
	switch {
	case errors.Is(err, websocket.ErrReadLimit):
		c.log.Warn("Frame exceeded maximum size", "connection_id", c.id)
	case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
		c.log.Debug("Client closed the connection", "connection_id", c.id)
	case websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure):
		c.log.Warn("Unexpected close", "connection_id", c.id, "error", err)
	default:
		c.log.Debug("Read ended", "connection_id", c.id, "error", err)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	events := c.sink.Events()
	for {
		select {
		case <-c.done:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case evt := <-events:
			if !c.write(evt) {
				return
			}
			// Drain what queued up meanwhile before going back to select.
			for n := len(events); n > 0; n-- {
				if !c.write(<-events) {
					return
				}
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.log.Debug("Ping failed", "connection_id", c.id, "error", err)
				return
			}
		}
	}
}

func (c *client) write(evt event.Outbound) bool {
	frame, err := EncodeFrame(evt)
	if err != nil {
		c.log.Error("Frame not encoded", "connection_id", c.id, "event", evt.Name(), "error", err)
		return true
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.log.Debug("Write failed", "connection_id", c.id, "error", err)
		return false
	}
	return true
}
