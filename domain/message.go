package domain

import (
	"crypto/rand"
	"fmt"
	"presence-hub/errors"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// ChatMessage is a transient payload relayed to the other members of a room.
// The core never owns it; history is kept by a separate collaborator.
type ChatMessage struct {
	ID      string    `json:"id"`
	RoomID  RoomID    `json:"roomId" validate:"required"`
	Content string    `json:"content"`
	Sender  Identity  `json:"sender" validate:"-"`
	SentAt  time.Time `json:"sentAt"`
}

// ValidateMessage only checks what is needed to route the message.
func ValidateMessage(message ChatMessage) error {
	if err := validate.Struct(message); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedEvent, err)
	}
	return nil
}

// NewMessageID returns a lexicographically sortable id, monotonic within the process.
func NewMessageID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at.UTC()), entropy).String()
}
