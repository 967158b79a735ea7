// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "portfolio"

var (
	// HTTPRequestDuration tracks request latency by chi route pattern.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method", "route", "status"},
	)

	// HTTPRequestsTotal counts requests by chi route pattern.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// SSEStreamsActive is the number of chat responses currently streaming.
	SSEStreamsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "sse_streams_active",
			Help:      "Chat responses currently streaming",
		},
	)

	// ChatRequestsTotal counts relay outcomes.
	ChatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "chat",
			Name:      "requests_total",
			Help:      "Chat relay requests by outcome and locale",
		},
		[]string{"outcome", "locale"},
	)

	// LLMStreamDuration tracks provider stream latency across all steps.
	LLMStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "stream_duration_seconds",
			Help:      "Provider streaming duration across all generation steps",
			Buckets:   []float64{.5, 1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "model", "status"},
	)

	// LLMSteps tracks how many generation rounds a reply needed.
	LLMSteps = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "steps",
			Help:      "Generation rounds per completed reply",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 10},
		},
		[]string{"provider"},
	)

	// LLMTokensTotal counts tokens reported (or estimated) by the provider.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "LLM tokens by direction",
		},
		[]string{"provider", "model", "direction"},
	)

	// StoreAppendsTotal counts chat turn writes by role and outcome.
	StoreAppendsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "appends_total",
			Help:      "Chat turns handed to the message store",
		},
		[]string{"role", "status"},
	)

	// StoreAppendDuration tracks message store write latency.
	StoreAppendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "append_duration_seconds",
			Help:      "Message store append latency",
			Buckets:   prometheus.DefBuckets,
		},
	)

	// JetStreamMessages is the message count of a JetStream stream.
	JetStreamMessages = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jetstream",
			Name:      "stream_messages",
			Help:      "Messages held by the stream",
		},
		[]string{"stream"},
	)

	// JetStreamBytes is the stored size of a JetStream stream.
	JetStreamBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "jetstream",
			Name:      "stream_bytes",
			Help:      "Bytes held by the stream",
		},
		[]string{"stream"},
	)

	// ContactSubmissionsTotal counts contact form deliveries.
	ContactSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "contact",
			Name:      "submissions_total",
			Help:      "Contact form submissions by outcome",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, route, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
	HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
}

// RecordChatRequest records the outcome of one relay call.
func RecordChatRequest(outcome, locale string) {
	ChatRequestsTotal.WithLabelValues(outcome, locale).Inc()
}

// LLMStream describes one finished or abandoned provider stream.
type LLMStream struct {
	Provider  string
	Model     string
	Status    string
	Duration  time.Duration
	Steps     int
	TokensIn  int
	TokensOut int
}

// RecordLLMStream records latency, and for successful streams steps and tokens.
func RecordLLMStream(s LLMStream) {
	LLMStreamDuration.WithLabelValues(s.Provider, s.Model, s.Status).Observe(s.Duration.Seconds())
	if s.Steps > 0 {
		LLMSteps.WithLabelValues(s.Provider).Observe(float64(s.Steps))
	}
	if s.TokensIn > 0 {
		LLMTokensTotal.WithLabelValues(s.Provider, s.Model, "in").Add(float64(s.TokensIn))
	}
	if s.TokensOut > 0 {
		LLMTokensTotal.WithLabelValues(s.Provider, s.Model, "out").Add(float64(s.TokensOut))
	}
}

// RecordStoreAppend records one message store write.
func RecordStoreAppend(role string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	StoreAppendsTotal.WithLabelValues(role, status).Inc()
	StoreAppendDuration.Observe(d.Seconds())
}

// SetStreamState publishes the size of a JetStream stream.
func SetStreamState(stream string, msgs, bytes uint64) {
	JetStreamMessages.WithLabelValues(stream).Set(float64(msgs))
	JetStreamBytes.WithLabelValues(stream).Set(float64(bytes))
}

// RecordContact records a contact form delivery outcome.
func RecordContact(status string) {
	ContactSubmissionsTotal.WithLabelValues(status).Inc()
}

// StreamOpened marks the start of an SSE response. Call the returned func when it ends.
func StreamOpened() (closed func()) {
	SSEStreamsActive.Inc()
	return SSEStreamsActive.Dec
}
