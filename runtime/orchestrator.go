// Package runtime owns live presence: the connection registry, the event
// router and the room broadcaster, and the workers that drive them.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"presence-hub/contract"
	"presence-hub/domain"
	"presence-hub/domain/event"
	"presence-hub/errors"
	"presence-hub/observability"
	"presence-hub/repositories"
	"presence-hub/runtime/workers"
	"presence-hub/sink"
	"sync"
	"time"

	"github.com/samber/lo"
)

// Orchestrator is the entry point used by transports.
// Admission is synchronous; every other inbound event goes through a single
// dispatch queue so they are applied one at a time.
type Orchestrator struct {
	log               *slog.Logger
	supervisor        contract.ISupervisor
	registry          *Registry
	broadcaster       *Broadcaster
	router            *Router
	monitor           *observability.Monitor
	messageRepository repositories.IMessageRepository
	inbound           chan event.Inbound
	archived          chan domain.ChatMessage
	metricInterval    time.Duration
	stopped           chan struct{}
	stopOnce          sync.Once
}

func NewOrchestrator(log *slog.Logger, supervisor contract.ISupervisor,
	registry *Registry, messageRepository repositories.IMessageRepository,
	monitor *observability.Monitor, bufferSize, archiveBufferSize int,
	deliveryTimeout, metricInterval time.Duration) *Orchestrator {
	broadcaster := NewBroadcaster(log, registry, monitor, deliveryTimeout)
	router := NewRouter(log, registry, broadcaster, monitor)
	archived := make(chan domain.ChatMessage, archiveBufferSize)
	router.Add(sink.NewArchiveSink(log, archived))

	return &Orchestrator{
		log:               log,
		supervisor:        supervisor,
		registry:          registry,
		broadcaster:       broadcaster,
		router:            router,
		monitor:           monitor,
		messageRepository: messageRepository,
		inbound:           make(chan event.Inbound, bufferSize),
		archived:          archived,
		metricInterval:    metricInterval,
		stopped:           make(chan struct{}),
	}
}

// Admit registers an authenticated connection before any of its events is read.
func (o *Orchestrator) Admit(id domain.ConnectionID, identity domain.Identity, out contract.EventSink) error {
	return o.router.OnAdmit(id, identity, out)
}

// Dispatch queues an inbound event. It blocks while the queue is full,
// until ctx is done.
// A disconnect ignores ctx and is never dropped while the orchestrator runs:
// when the queue is full it is handed over to a pending send.
func (o *Orchestrator) Dispatch(ctx context.Context, in event.Inbound) error {
	if in.Kind() == event.DisconnectKind {
		o.departure(in)
		return nil
	}
	select {
	case o.inbound <- in:
		return nil
	case <-ctx.Done():
		o.log.Warn("Inbound event not queued", "connection_id", in.ConnectionID(), "event", in.Kind())
		return fmt.Errorf("%w: %v", errors.ErrDispatchClosed, ctx.Err())
	}
}

// departure queues a disconnect behind every event its connection already
// queued. The pending send only gives up once the orchestrator has stopped.
func (o *Orchestrator) departure(in event.Inbound) {
	select {
	case o.inbound <- in:
		return
	default:
	}
	o.log.Warn("Dispatch queue full, disconnect pending", "connection_id", in.ConnectionID())
	go func() {
		select {
		case o.inbound <- in:
		case <-o.stopped:
			o.log.Debug("Orchestrator stopped before disconnect was queued", "connection_id", in.ConnectionID())
		}
	}()
}

func (o *Orchestrator) Roster(roomID domain.RoomID) []domain.Identity {
	return o.broadcaster.Roster(roomID)
}

// History returns a page of archived messages of a room, newest first.
func (o *Orchestrator) History(roomID domain.RoomID, cursor *string) ([]domain.ChatMessage, *string, error) {
	messages, next, err := o.messageRepository.GetMessages(roomID, cursor)
	if err != nil {
		return nil, nil, err
	}
	return lo.Map(messages, func(item repositories.DiskMessage, _ int) domain.ChatMessage {
		return repositories.ToChatMessage(item)
	}), next, nil
}

func (o *Orchestrator) Stats() observability.Stats {
	return o.monitor.Snapshot(o.registry)
}

// Start registers the workers and blocks until ctx is done.
func (o *Orchestrator) Start(ctx context.Context) {
	o.supervisor.Add(
		workers.NewDispatchWorker(o.log, o.router, o.inbound),
		workers.NewArchiveWorker(o.log, o.messageRepository, o.monitor, o.archived),
		workers.NewTelemetryWorker(o.log, o.monitor, o.registry, o.metricInterval),
		workers.NewChannelCapacityWorker(o.log, []workers.NamedChannel{
			{Name: "dispatch", Channel: o.inbound},
			{Name: "archive", Channel: o.archived},
		}, o.metricInterval),
	)
	o.log.Info("Starting orchestrator and all supervised workers")
	o.supervisor.Run(ctx)
	o.markStopped()
}

func (o *Orchestrator) Stop() {
	o.supervisor.Stop()
	o.markStopped()
}

func (o *Orchestrator) markStopped() {
	o.stopOnce.Do(func() { close(o.stopped) })
}
