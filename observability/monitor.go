package observability

import (
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/process"
)

// Stats is the snapshot served on the stats endpoint.
type Stats struct {
	Connections int       `json:"connections"`
	Rooms       int       `json:"rooms"`
	Delivered   uint64    `json:"delivered"`
	Dropped     uint64    `json:"dropped"`
	Relayed     uint64    `json:"relayed"`
	Archived    uint64    `json:"archived"`
	Goroutines  int       `json:"goroutines"`
	RSSBytes    uint64    `json:"rss_bytes"`
	CPUPercent  float64   `json:"cpu_percent"`
	SampledAt   time.Time `json:"sampled_at"`
}

// Gauge exposes the live presence counts.
type Gauge interface {
	Size() int
	Rooms() int
}

// Monitor aggregates delivery counters and the last process sample.
// Counters are updated from the hot path, so they are atomics.
type Monitor struct {
	log       *slog.Logger
	mu        sync.RWMutex
	process   *process.Process
	rss       uint64
	cpu       float64
	sampledAt time.Time

	delivered atomic.Uint64
	dropped   atomic.Uint64
	relayed   atomic.Uint64
	archived  atomic.Uint64
}

func NewMonitor(log *slog.Logger) *Monitor {
	return &Monitor{log: log}
}

func (m *Monitor) IncrDelivered() { m.delivered.Add(1) }
func (m *Monitor) IncrDropped()   { m.dropped.Add(1) }
func (m *Monitor) IncrRelayed()   { m.relayed.Add(1) }
func (m *Monitor) IncrArchived()  { m.archived.Add(1) }

// Sample reads RSS and CPU usage of the current process.
func (m *Monitor) Sample() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.process == nil {
		p, err := process.NewProcess(int32(os.Getpid()))
		if err != nil {
			return err
		}
		m.process = p
	}
	memInfo, err := m.process.MemoryInfo()
	if err != nil {
		return err
	}
	cpuPercent, err := m.process.CPUPercent()
	if err != nil {
		return err
	}
	m.rss = memInfo.RSS
	m.cpu = cpuPercent
	m.sampledAt = time.Now().UTC()
	m.log.Debug("Process sampled", "rss_bytes", m.rss, "cpu_percent", m.cpu)
	return nil
}

func (m *Monitor) Snapshot(gauge Gauge) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := Stats{
		Delivered:  m.delivered.Load(),
		Dropped:    m.dropped.Load(),
		Relayed:    m.relayed.Load(),
		Archived:   m.archived.Load(),
		Goroutines: runtime.NumGoroutine(),
		RSSBytes:   m.rss,
		CPUPercent: m.cpu,
		SampledAt:  m.sampledAt,
	}
	if gauge != nil {
		stats.Connections = gauge.Size()
		stats.Rooms = gauge.Rooms()
	}
	return stats
}
