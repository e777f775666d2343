package domain

// ConnectionID is issued by the transport for one live session.
type ConnectionID string

// RoomID is an opaque room identifier. The zero value means "no room".
type RoomID string

func (r RoomID) IsZero() bool { return r == "" }

type State int

const (
	Unadmitted State = iota
	Admitted
	InRoom
	Disconnected
)

func (s State) String() string {
	switch s {
	case Unadmitted:
		return "UNADMITTED"
	case Admitted:
		return "ADMITTED"
	case InRoom:
		return "IN_ROOM"
	case Disconnected:
		return "DISCONNECTED"
	default:
		return "UNKNOWN"
	}
}

// Connection is a registered session and the room it currently sits in.
// Once closed, Room keeps the last room the connection was in.
type Connection struct {
	ID       ConnectionID
	Identity Identity
	Room     RoomID
	closed   bool
}

func (c Connection) InRoom() bool { return !c.closed && !c.Room.IsZero() }

// Close returns the terminal snapshot of c.
func (c Connection) Close() Connection {
	c.closed = true
	return c
}

func (c Connection) State() State {
	switch {
	case c.closed:
		return Disconnected
	case ValidateIdentity(c.Identity) != nil:
		return Unadmitted
	case c.InRoom():
		return InRoom
	default:
		return Admitted
	}
}

// In reports whether c currently sits in roomID.
func (c Connection) In(roomID RoomID) bool {
	return c.State() == InRoom && c.Room == roomID
}
