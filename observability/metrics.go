package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	inboundEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatrelay",
			Subsystem: "relay",
			Name:      "inbound_events_total",
			Help:      "Inbound events received from connections.",
		},
		[]string{"kind"},
	)
	relayOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatrelay",
			Subsystem: "relay",
			Name:      "outcomes_total",
			Help:      "Final outcome of each relayed message.",
		},
		[]string{"outcome"},
	)
	persistDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chatrelay",
			Subsystem: "storage",
			Name:      "persist_duration_seconds",
			Help:      "Time spent waiting for the message store.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"success"},
	)
	connectedParticipants = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatrelay",
			Subsystem: "registry",
			Name:      "participants",
			Help:      "Participants currently reachable through a live connection.",
		},
	)
	openConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatrelay",
			Subsystem: "transport",
			Name:      "open_connections",
			Help:      "Open websocket connections.",
		},
	)
	workerRestarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chatrelay",
			Subsystem: "supervisor",
			Name:      "worker_restarts_total",
			Help:      "Workers restarted after a crash or a panic.",
		},
		[]string{"worker"},
	)
	processRSS = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatrelay",
			Subsystem: "process",
			Name:      "rss_bytes",
			Help:      "Resident memory reported by the stats worker.",
		},
	)
	processCPU = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "chatrelay",
			Subsystem: "process",
			Name:      "cpu_percent",
			Help:      "CPU usage reported by the stats worker.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			inboundEvents, relayOutcomes, persistDuration, connectedParticipants,
			openConnections, workerRestarts, processRSS, processCPU,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordInboundEvent(kind string) {
	RegisterMetrics()
	inboundEvents.WithLabelValues(kind).Inc()
}

func RecordOutcome(outcome string) {
	RegisterMetrics()
	relayOutcomes.WithLabelValues(outcome).Inc()
}

func RecordPersist(duration time.Duration, success bool) {
	RegisterMetrics()
	persistDuration.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}

func SetConnectedParticipants(n int) {
	RegisterMetrics()
	connectedParticipants.Set(float64(n))
}

func ConnectionOpened() {
	RegisterMetrics()
	openConnections.Inc()
}

func ConnectionClosed() {
	RegisterMetrics()
	openConnections.Dec()
}

func RecordWorkerRestart(worker string) {
	RegisterMetrics()
	workerRestarts.WithLabelValues(worker).Inc()
}

func SetProcessStats(rss uint64, cpu float64) {
	RegisterMetrics()
	processRSS.Set(float64(rss))
	processCPU.Set(cpu)
}
