// Package event defines what flows into and out of the coordination core.
package event

import (
	"fmt"
	"presence-hub/domain"
)

// Name identifies an outbound event on the wire.
type Name string

const (
	RoomUsersName       Name = "room-users"
	NotificationName    Name = "notification"
	MessageReceivedName Name = "message-received"
	TypingName          Name = "typing"
	StopTypingName      Name = "stop-typing"
)

// Outbound is pushed to connections through their sink.
// Payload returns the value serialized as the event data.
type Outbound interface {
	Name() Name
	Payload() any
}

// RoomUsers carries the roster of a room.
type RoomUsers struct {
	Room  domain.RoomID
	Users []domain.Identity
}

func (e RoomUsers) Name() Name   { return RoomUsersName }
func (e RoomUsers) Payload() any { return e.Users }

type NotificationType string

const (
	Joined       NotificationType = "JOINED"
	Left         NotificationType = "LEFT"
	Disconnected NotificationType = "DISCONNECTED"
)

type Notification struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Identity domain.Identity  `json:"identity"`
}

func (e Notification) Name() Name   { return NotificationName }
func (e Notification) Payload() any { return e }

func NewJoinedNotification(identity domain.Identity) Notification {
	return Notification{Type: Joined, Message: fmt.Sprintf("%s joined the room", identity.DisplayName), Identity: identity}
}

func NewLeftNotification(identity domain.Identity) Notification {
	return Notification{Type: Left, Message: fmt.Sprintf("%s left the room", identity.DisplayName), Identity: identity}
}

func NewDisconnectedNotification(identity domain.Identity) Notification {
	return Notification{Type: Disconnected, Message: fmt.Sprintf("%s disconnected", identity.DisplayName), Identity: identity}
}

type MessageReceived struct {
	Message domain.ChatMessage
}

func (e MessageReceived) Name() Name   { return MessageReceivedName }
func (e MessageReceived) Payload() any { return e.Message }

// TypingSignal is relayed as the sender's display name only.
type TypingSignal struct {
	Room        domain.RoomID
	DisplayName string
	Stopped     bool
}

func (e TypingSignal) Name() Name {
	if e.Stopped {
		return StopTypingName
	}
	return TypingName
}
func (e TypingSignal) Payload() any { return e.DisplayName }
