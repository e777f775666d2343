//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Used for logging during supervision, avoiding manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives outbound events for one connection, or for every relayed
// event when registered as a permanent sink. Consume must never block on I/O.
type EventSink interface {
	Consume(ctx context.Context, e event.Outbound) error
}

// IRegistry is the single owner of liveness state: which connection is
// present, under which identity, in which room.
type IRegistry interface {
	Admit(id domain.ConnectionID, identity domain.Identity, sink EventSink) (domain.Connection, error)
	SetRoom(id domain.ConnectionID, roomID domain.RoomID) (domain.RoomID, error)
	ClearRoom(id domain.ConnectionID) (domain.RoomID, error)
	Remove(id domain.ConnectionID) (domain.Connection, error)
	Lookup(id domain.ConnectionID) (domain.Connection, error)
	MembersOf(roomID domain.RoomID) []domain.Identity
	SinksOf(roomID domain.RoomID, exclude domain.ConnectionID) []EventSink
	Size() int
	Rooms() int
}

// IRouter applies one inbound event to the registry and emits the resulting
// outbound events.
type IRouter interface {
	OnAdmit(id domain.ConnectionID, identity domain.Identity, sink EventSink) error
	Handle(ctx context.Context, in event.Inbound) error
}

// IdentityValidator turns a credential into an identity or fails with ErrUnauthenticated.
type IdentityValidator interface {
	Validate(credential string) (domain.Identity, error)
}
