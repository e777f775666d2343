// Package http exposes the read side of presence over REST and mounts the
// WebSocket endpoint.
package http

import (
	"log/slog"
	"net/http"
	"presence-hub/auth"
	"presence-hub/contract"
	"presence-hub/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func NewRouter(log *slog.Logger, service services.IPresenceService,
	validator contract.IdentityValidator, wsHandler http.Handler, allowedOrigins []string) http.Handler {
	h := NewRoomHandler(log, service)

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(log), middleware.Recoverer)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Method(http.MethodGet, "/ws", wsHandler)

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(validator))
		r.Get("/rooms/{roomId}/users", h.Users)
		r.Get("/rooms/{roomId}/messages", h.Messages)
		r.Get("/stats", h.Stats)
	})

	return r
}
