// Package metrics exposes Prometheus metrics for calls, tool dispatch,
// signaling and the engagement clock. A nil *Metrics records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics of a process.
type Metrics struct {
	registry *prometheus.Registry

	// Live session metrics
	SessionsActive     prometheus.Gauge
	SessionsTotal      *prometheus.CounterVec
	SessionDuration    prometheus.Histogram
	InterruptionsTotal prometheus.Counter
	AudioBytesTotal    *prometheus.CounterVec

	// Tool metrics
	ToolCallsTotal     *prometheus.CounterVec
	OutboxRecordsTotal *prometheus.CounterVec

	// Peer call metrics
	PeerCallsTotal           *prometheus.CounterVec
	SignalingViolationsTotal *prometheus.CounterVec
	RelayMessagesTotal       *prometheus.CounterVec

	// Engagement metrics
	EngagementTriggersTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "lovecall"
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Number of active live sessions",
		}),
		SessionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_total",
			Help:      "Total number of ended live sessions",
		}, []string{"reason"}),
		SessionDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_duration_seconds",
			Help:      "Live session duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}),
		InterruptionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interruptions_total",
			Help:      "Total number of model turns interrupted by the user",
		}),
		AudioBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audio_bytes_total",
			Help:      "Total audio bytes exchanged with the speech model",
		}, []string{"direction"}),
		ToolCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Total number of dispatched tool calls",
		}, []string{"tool", "outcome"}),
		OutboxRecordsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "outbox_records_total",
			Help:      "Total number of records handled by the persistence outbox",
		}, []string{"kind", "outcome"}),
		PeerCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_calls_total",
			Help:      "Total number of ended peer calls",
		}, []string{"role", "outcome"}),
		SignalingViolationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signaling_violations_total",
			Help:      "Total number of ignored signaling protocol violations",
		}, []string{"event"}),
		RelayMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relay_messages_total",
			Help:      "Total number of relayed signaling messages",
		}, []string{"direction"}),
		EngagementTriggersTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engagement_triggers_total",
			Help:      "Total number of incoming calls triggered by the engagement clock",
		}, []string{"kind"}),
	}

	registry.MustRegister(
		m.SessionsActive,
		m.SessionsTotal,
		m.SessionDuration,
		m.InterruptionsTotal,
		m.AudioBytesTotal,
		m.ToolCallsTotal,
		m.OutboxRecordsTotal,
		m.PeerCallsTotal,
		m.SignalingViolationsTotal,
		m.RelayMessagesTotal,
		m.EngagementTriggersTotal,
	)

	return m
}

// Registry returns the registry all metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSessionStart() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

func (m *Metrics) RecordSessionEnd(reason string, duration time.Duration) {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
	m.SessionsTotal.WithLabelValues(reason).Inc()
	m.SessionDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordInterruption() {
	if m == nil {
		return
	}
	m.InterruptionsTotal.Inc()
}

// RecordAudio records audio bytes; direction is "in" or "out".
func (m *Metrics) RecordAudio(direction string, bytes int) {
	if m == nil {
		return
	}
	m.AudioBytesTotal.WithLabelValues(direction).Add(float64(bytes))
}

func (m *Metrics) RecordToolCall(tool, outcome string) {
	if m == nil {
		return
	}
	m.ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
}

func (m *Metrics) RecordOutbox(kind, outcome string) {
	if m == nil {
		return
	}
	m.OutboxRecordsTotal.WithLabelValues(kind, outcome).Inc()
}

func (m *Metrics) RecordPeerCall(role, outcome string) {
	if m == nil {
		return
	}
	m.PeerCallsTotal.WithLabelValues(role, outcome).Inc()
}

func (m *Metrics) RecordSignalingViolation(event string) {
	if m == nil {
		return
	}
	m.SignalingViolationsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) RecordRelayMessage(direction string) {
	if m == nil {
		return
	}
	m.RelayMessagesTotal.WithLabelValues(direction).Inc()
}

func (m *Metrics) RecordEngagementTrigger(kind string) {
	if m == nil {
		return
	}
	m.EngagementTriggersTotal.WithLabelValues(kind).Inc()
}
