package workers

import (
	"context"
	"log/slog"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/observability"
	"presence-hub/repositories"
)

var _ contract.Worker = (*ArchiveWorker)(nil)

// ArchiveWorker writes relayed messages to the history store.
// It runs off the relay path: a slow or failing store never delays delivery.
type ArchiveWorker struct {
	log        *slog.Logger
	repository repositories.IMessageRepository
	monitor    *observability.Monitor
	messages   <-chan domain.ChatMessage
}

func NewArchiveWorker(log *slog.Logger, repository repositories.IMessageRepository,
	monitor *observability.Monitor, messages <-chan domain.ChatMessage) *ArchiveWorker {
	return &ArchiveWorker{log: log, repository: repository, monitor: monitor, messages: messages}
}

func (w *ArchiveWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping archive")
			return nil
		case message := <-w.messages:
			if err := w.repository.StoreMessage(repositories.ToDiskMessage(message)); err != nil {
				w.log.Error("Message not archived", "message_id", message.ID, "room_id", message.RoomID, "error", err)
				continue
			}
			w.monitor.IncrArchived()
		}
	}
}
