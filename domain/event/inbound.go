package event

import (
	"presence-hub/domain"
)

// Kind names an inbound event as it appears on the wire.
type Kind string

const (
	AdmitKind      Kind = "admit"
	JoinRoomKind   Kind = "join-room"
	LeaveRoomKind  Kind = "leave-room"
	NewMessageKind Kind = "new-message"
	TypingKind     Kind = "typing"
	StopTypingKind Kind = "stop-typing"
	DisconnectKind Kind = "disconnect"
)

// Inbound is an event delivered by the transport on behalf of one connection.
type Inbound interface {
	ConnectionID() domain.ConnectionID
	Kind() Kind
}

type JoinRoom struct {
	Connection domain.ConnectionID
	Room       domain.RoomID
}

func (e JoinRoom) ConnectionID() domain.ConnectionID { return e.Connection }
func (e JoinRoom) Kind() Kind                        { return JoinRoomKind }

type LeaveRoom struct {
	Connection domain.ConnectionID
	Room       domain.RoomID
}

func (e LeaveRoom) ConnectionID() domain.ConnectionID { return e.Connection }
func (e LeaveRoom) Kind() Kind                        { return LeaveRoomKind }

type NewMessage struct {
	Connection domain.ConnectionID
	Message    domain.ChatMessage
}

func (e NewMessage) ConnectionID() domain.ConnectionID { return e.Connection }
func (e NewMessage) Kind() Kind                        { return NewMessageKind }

// Typing covers both typing and stop-typing; Stopped selects the variant.
type Typing struct {
	Connection domain.ConnectionID
	Room       domain.RoomID
	Stopped    bool
}

func (e Typing) ConnectionID() domain.ConnectionID { return e.Connection }
func (e Typing) Kind() Kind {
	if e.Stopped {
		return StopTypingKind
	}
	return TypingKind
}

type Disconnect struct {
	Connection domain.ConnectionID
}

func (e Disconnect) ConnectionID() domain.ConnectionID { return e.Connection }
func (e Disconnect) Kind() Kind                        { return DisconnectKind }
