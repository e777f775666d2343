package workers

import (
	"context"
	"log/slog"
	"presence-hub/contract"
	"reflect"
	"time"
)

var _ contract.Worker = (*ChannelCapacityWorker)(nil)

// highWaterMark is the fill ratio above which a queue is reported at Warn.
const highWaterMark = 0.8

type NamedChannel struct {
	Name    string
	Channel any
}

// ChannelCapacity is one sample of a queue.
type ChannelCapacity struct {
	Name     string
	Length   int
	Capacity int
}

func (c ChannelCapacity) Saturated() bool {
	return c.Capacity > 0 && float64(c.Length) >= highWaterMark*float64(c.Capacity)
}

// ChannelCapacityWorker periodically reports the length and capacity of the
// internal queues. Reading len and cap never blocks the producers.
type ChannelCapacityWorker struct {
	log            *slog.Logger
	channels       []NamedChannel
	metricInterval time.Duration
}

func NewChannelCapacityWorker(log *slog.Logger, channels []NamedChannel,
	metricInterval time.Duration) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{log: log, channels: channels, metricInterval: metricInterval}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, c := range w.Sample() {
				if c.Saturated() {
					w.log.Warn("Queue almost full", "queue", c.Name, "length", c.Length, "capacity", c.Capacity)
					continue
				}
				w.log.Debug("Queue depth", "queue", c.Name, "length", c.Length, "capacity", c.Capacity)
			}
		}
	}
}

func (w *ChannelCapacityWorker) Sample() []ChannelCapacity {
	res := make([]ChannelCapacity, 0, len(w.channels))
	for _, nc := range w.channels {
		v := reflect.ValueOf(nc.Channel)
		if v.Kind() != reflect.Chan {
			w.log.Error("Provided object is not a channel", "name", nc.Name)
			continue
		}
		res = append(res, ChannelCapacity{Name: nc.Name, Length: v.Len(), Capacity: v.Cap()})
	}
	return res
}
