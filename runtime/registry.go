package runtime

import (
	"cmp"
	"fmt"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/errors"
	"slices"
	"sync"

	"github.com/samber/lo"
)

type set map[domain.ConnectionID]struct{}

type session struct {
	connection domain.Connection
	sink       contract.EventSink
}

// Registry owns every live connection, its identity and its current room.
// The room directory (roomMembers) is maintained under the same lock so a
// reader never observes a connection in two rooms or a half-applied move.
type Registry struct {
	mu          sync.RWMutex
	sessions    map[domain.ConnectionID]*session // map connection -> session
	roomMembers map[domain.RoomID]set            // map room to connections
}

func NewRegistry() *Registry {
	return &Registry{
		sessions:    make(map[domain.ConnectionID]*session),
		roomMembers: make(map[domain.RoomID]set),
	}
}

// Admit records a new connection with no room.
// It fails with ErrIdentityRequired when the identity lacks an id or a display name.
func (r *Registry) Admit(id domain.ConnectionID, identity domain.Identity, sink contract.EventSink) (domain.Connection, error) {
	if err := domain.ValidateIdentity(identity); err != nil {
		return domain.Connection{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[id]; ok {
		return domain.Connection{}, fmt.Errorf("%w: %s", errors.ErrConnectionExists, id)
	}
	connection := domain.Connection{ID: id, Identity: identity}
	r.sessions[id] = &session{connection: connection, sink: sink}
	return connection, nil
}

// SetRoom moves a connection to roomID and returns the room it was in, if any.
// Both directory entries are updated in the same critical section.
func (r *Registry) SetRoom(id domain.ConnectionID, roomID domain.RoomID) (domain.RoomID, error) {
	if roomID.IsZero() {
		return "", fmt.Errorf("%w: empty room", errors.ErrMalformedEvent)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrUnknownConnection, id)
	}
	previous := s.connection.Room
	if previous == roomID {
		return previous, nil
	}
	r.leave(id, previous)
	s.connection.Room = roomID
	if _, ok := r.roomMembers[roomID]; !ok {
		r.roomMembers[roomID] = make(set)
	}
	r.roomMembers[roomID][id] = struct{}{}
	return previous, nil
}

// ClearRoom removes the room association but keeps the connection admitted.
func (r *Registry) ClearRoom(id domain.ConnectionID) (domain.RoomID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", errors.ErrUnknownConnection, id)
	}
	previous := s.connection.Room
	r.leave(id, previous)
	s.connection.Room = ""
	return previous, nil
}

// Remove deregisters a connection and returns its closed snapshot, whose
// Room is the room it was in.
// Removing an unknown connection returns ErrUnknownConnection and changes nothing.
func (r *Registry) Remove(id domain.ConnectionID) (domain.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok {
		return domain.Connection{}, fmt.Errorf("%w: %s", errors.ErrUnknownConnection, id)
	}
	r.leave(id, s.connection.Room)
	delete(r.sessions, id)
	return s.connection.Close(), nil
}

func (r *Registry) Lookup(id domain.ConnectionID) (domain.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return domain.Connection{}, fmt.Errorf("%w: %s", errors.ErrUnknownConnection, id)
	}
	return s.connection, nil
}

// MembersOf returns a snapshot of the identities present in a room.
// An identity connected several times is listed once.
// The result is sorted by display name, though callers must not depend on it.
func (r *Registry) MembersOf(roomID domain.RoomID) []domain.Identity {
	r.mu.RLock()
	identities := make([]domain.Identity, 0, len(r.roomMembers[roomID]))
	for id := range r.roomMembers[roomID] {
		if s, ok := r.sessions[id]; ok {
			identities = append(identities, s.connection.Identity)
		}
	}
	r.mu.RUnlock()

	identities = lo.UniqBy(identities, func(i domain.Identity) string { return i.ID })
	slices.SortFunc(identities, func(a, b domain.Identity) int {
		return cmp.Or(cmp.Compare(a.DisplayName, b.DisplayName), cmp.Compare(a.ID, b.ID))
	})
	return identities
}

// SinksOf snapshots the sinks of every connection in a room except exclude.
// Pass an empty exclude to target the whole room.
func (r *Registry) SinksOf(roomID domain.RoomID, exclude domain.ConnectionID) []contract.EventSink {
	r.mu.RLock()
	defer r.mu.RUnlock()

	members, ok := r.roomMembers[roomID]
	if !ok {
		return nil
	}
	var activeSinks []contract.EventSink
	for id := range members {
		if id == exclude {
			continue
		}
		if s, exists := r.sessions[id]; exists && s.sink != nil {
			activeSinks = append(activeSinks, s.sink)
		}
	}
	return activeSinks
}

// Size is the number of admitted connections.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Rooms is the number of rooms with at least one member.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roomMembers)
}

// leave drops id from roomID's member set. Callers hold the write lock.
// Empty sets are removed so the directory doesn't grow with dead rooms.
func (r *Registry) leave(id domain.ConnectionID, roomID domain.RoomID) {
	if roomID.IsZero() {
		return
	}
	if members, ok := r.roomMembers[roomID]; ok {
		delete(members, id)
		if len(members) == 0 {
			delete(r.roomMembers, roomID)
		}
	}
}
