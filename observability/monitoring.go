package observability

import (
	"log/slog"
	"runtime"
	"sync/atomic"
	"time"
)

// RelayStats is a point-in-time view of the relay counters.
type RelayStats struct {
	Received       uint64 `json:"received"`
	Delivered      uint64 `json:"delivered"`
	Unreachable    uint64 `json:"unreachable"`
	PersistFailed  uint64 `json:"persist_failed"`
	DeliveryFailed uint64 `json:"delivery_failed"`
	Rejected       uint64 `json:"rejected"`
	Participants   int    `json:"participants"`
	AllocMemMb     uint64 `json:"alloc_mem_mb"`
	NumGC          uint32 `json:"num_gc"`
}

// RelayMonitor keeps in-process counters alongside the Prometheus metrics,
// so the stats worker can log a summary without scraping itself.
type RelayMonitor struct {
	log            *slog.Logger
	received       atomic.Uint64
	delivered      atomic.Uint64
	unreachable    atomic.Uint64
	persistFailed  atomic.Uint64
	deliveryFailed atomic.Uint64
	rejected       atomic.Uint64
	participants   atomic.Int64
}

func NewRelayMonitor(log *slog.Logger) *RelayMonitor {
	return &RelayMonitor{log: log}
}

func (m *RelayMonitor) RecordEvent(kind string) {
	if kind == "message" {
		m.received.Add(1)
	}
	RecordInboundEvent(kind)
}

func (m *RelayMonitor) RecordOutcome(outcome string) {
	switch outcome {
	case "delivered", "delivered_raw":
		m.delivered.Add(1)
	case "unreachable":
		m.unreachable.Add(1)
	case "persist_failed":
		m.persistFailed.Add(1)
	case "delivery_failed":
		m.deliveryFailed.Add(1)
	case "rejected":
		m.rejected.Add(1)
	}
	RecordOutcome(outcome)
}

func (m *RelayMonitor) RecordPersist(duration time.Duration, err error) {
	RecordPersist(duration, err == nil)
}

func (m *RelayMonitor) SetParticipants(n int) {
	m.participants.Store(int64(n))
	SetConnectedParticipants(n)
}

func (m *RelayMonitor) Snapshot() RelayStats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	return RelayStats{
		Received:       m.received.Load(),
		Delivered:      m.delivered.Load(),
		Unreachable:    m.unreachable.Load(),
		PersistFailed:  m.persistFailed.Load(),
		DeliveryFailed: m.deliveryFailed.Load(),
		Rejected:       m.rejected.Load(),
		Participants:   int(m.participants.Load()),
		AllocMemMb:     mem.Alloc / 1024 / 1024,
		NumGC:          mem.NumGC,
	}
}

// LogSummary writes the current counters at info level.
func (m *RelayMonitor) LogSummary() RelayStats {
	s := m.Snapshot()
	m.log.Info("Relay stats",
		"received", s.Received,
		"delivered", s.Delivered,
		"unreachable", s.Unreachable,
		"persist_failed", s.PersistFailed,
		"delivery_failed", s.DeliveryFailed,
		"rejected", s.Rejected,
		"participants", s.Participants,
		"mem_mb", s.AllocMemMb,
	)
	return s
}
