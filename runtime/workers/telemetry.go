package workers

import (
	"context"
	"log/slog"
	"presence-hub/contract"
	"presence-hub/observability"
	"time"
)

var _ contract.Worker = (*TelemetryWorker)(nil)

// TelemetryWorker samples the process every metricInterval and logs a stats line.
type TelemetryWorker struct {
	log            *slog.Logger
	monitor        *observability.Monitor
	gauge          observability.Gauge
	metricInterval time.Duration
}

func NewTelemetryWorker(log *slog.Logger, monitor *observability.Monitor,
	gauge observability.Gauge, metricInterval time.Duration) *TelemetryWorker {
	return &TelemetryWorker{
		log:            log,
		monitor:        monitor,
		gauge:          gauge,
		metricInterval: metricInterval,
	}
}

func (w *TelemetryWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := w.monitor.Sample(); err != nil {
				w.log.Warn("Failed to collect self stats", "error", err)
			}
			stats := w.monitor.Snapshot(w.gauge)
			w.log.Debug("Presence stats",
				"connections", stats.Connections,
				"rooms", stats.Rooms,
				"delivered", stats.Delivered,
				"dropped", stats.Dropped,
				"relayed", stats.Relayed,
				"archived", stats.Archived,
				"rss_bytes", stats.RSSBytes,
				"cpu_percent", stats.CPUPercent)
		}
	}
}
