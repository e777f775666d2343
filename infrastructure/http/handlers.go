package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"presence-hub/domain"
	"presence-hub/errors"
	"presence-hub/services"
	"strings"

	"github.com/go-chi/chi/v5"
)

type errorResponse struct {
	Message string `json:"message"`
}

type usersResponse struct {
	RoomID domain.RoomID     `json:"roomId"`
	Users  []domain.Identity `json:"users"`
}

type messagesResponse struct {
	Messages []domain.ChatMessage `json:"messages"`
	Cursor   *string              `json:"cursor"`
}

type RoomHandler struct {
	log     *slog.Logger
	service services.IPresenceService
}

func NewRoomHandler(log *slog.Logger, service services.IPresenceService) *RoomHandler {
	return &RoomHandler{log: log, service: service}
}

// Users returns the roster snapshot of a room.
func (h *RoomHandler) Users(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(strings.TrimSpace(chi.URLParam(r, "roomId")))
	users, err := h.service.Roster(roomID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	h.respondJSON(w, http.StatusOK, usersResponse{RoomID: roomID, Users: users})
}

// Messages returns a page of a room's history, newest first.
func (h *RoomHandler) Messages(w http.ResponseWriter, r *http.Request) {
	roomID := domain.RoomID(strings.TrimSpace(chi.URLParam(r, "roomId")))
	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}
	messages, next, err := h.service.History(roomID, cursor)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []domain.ChatMessage{}
	}
	h.respondJSON(w, http.StatusOK, messagesResponse{Messages: messages, Cursor: next})
}

func (h *RoomHandler) Stats(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, h.service.Stats())
}

func (h *RoomHandler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidCursor), errors.Is(err, errors.ErrMalformedEvent):
		h.respondJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
	default:
		h.log.Error("Request failed", "error", err)
		h.respondJSON(w, http.StatusInternalServerError, errorResponse{Message: http.StatusText(http.StatusInternalServerError)})
	}
}

func (h *RoomHandler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.log.Warn("Failed to encode response", "error", err)
	}
}
