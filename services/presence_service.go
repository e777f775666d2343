//go:generate go run go.uber.org/mock/mockgen -source=presence_service.go -destination=../mocks/mock_presence_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/errors"
	"presence-hub/observability"
	"presence-hub/runtime"
)

type IPresenceService interface {
	Admit(id domain.ConnectionID, identity domain.Identity, sink contract.EventSink) error
	Dispatch(ctx context.Context, in event.Inbound) error
	Roster(roomID domain.RoomID) ([]domain.Identity, error)
	History(roomID domain.RoomID, cursor *string) ([]domain.ChatMessage, *string, error)
	Stats() observability.Stats
}

type PresenceService struct {
	orchestrator *runtime.Orchestrator
}

func NewPresenceService(o *runtime.Orchestrator) *PresenceService {
	return &PresenceService{orchestrator: o}
}

func (s *PresenceService) Admit(id domain.ConnectionID, identity domain.Identity, sink contract.EventSink) error {
	return s.orchestrator.Admit(id, identity, sink)
}

func (s *PresenceService) Dispatch(ctx context.Context, in event.Inbound) error {
	return s.orchestrator.Dispatch(ctx, in)
}

func (s *PresenceService) Roster(roomID domain.RoomID) ([]domain.Identity, error) {
	if roomID.IsZero() {
		return nil, fmt.Errorf("%w: room is required", errors.ErrMalformedEvent)
	}
	return s.orchestrator.Roster(roomID), nil
}

func (s *PresenceService) History(roomID domain.RoomID, cursor *string) ([]domain.ChatMessage, *string, error) {
	if roomID.IsZero() {
		return nil, nil, fmt.Errorf("%w: room is required", errors.ErrMalformedEvent)
	}
	return s.orchestrator.History(roomID, cursor)
}

func (s *PresenceService) Stats() observability.Stats {
	return s.orchestrator.Stats()
}
