package workers

import (
	"context"
	"log/slog"
	"presence-hub/contract"
	"presence-hub/domain/event"
)

var _ contract.Worker = (*DispatchWorker)(nil)

// DispatchWorker is the single consumer of inbound events.
// Running one instance serializes every registry mutation with the roster
// snapshots that follow it, and keeps each connection's arrival order.
type DispatchWorker struct {
	log     *slog.Logger
	router  contract.IRouter
	inbound <-chan event.Inbound
}

func NewDispatchWorker(log *slog.Logger, router contract.IRouter, inbound <-chan event.Inbound) *DispatchWorker {
	return &DispatchWorker{log: log, router: router, inbound: inbound}
}

func (w *DispatchWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping dispatch")
			return nil
		case in := <-w.inbound:
			w.handle(ctx, in)
		}
	}
}

// handle never fails the worker: a rejected event is scoped to itself.
func (w *DispatchWorker) handle(ctx context.Context, in event.Inbound) {
	if err := w.router.Handle(ctx, in); err != nil {
		w.log.Debug("Inbound event dropped",
			"connection_id", in.ConnectionID(),
			"event", in.Kind(),
			"error", err)
	}
}
