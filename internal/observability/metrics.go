package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	messagesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "wire",
			Name:      "messages_sent_total",
			Help:      "Client messages sent, by wire format and kind.",
		},
		[]string{"format", "kind"},
	)
	reportsReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "wire",
			Name:      "reports_received_total",
			Help:      "Server messages decoded, by wire format and kind.",
		},
		[]string{"format", "kind"},
	)
	decodeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "wire",
			Name:      "decode_errors_total",
			Help:      "Malformed server messages, by wire format.",
		},
		[]string{"format"},
	)
	frameErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "frame",
			Name:      "errors_total",
			Help:      "Stream framing errors (implausible lengths).",
		},
	)
	ringDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "ring",
			Name:      "dropped_total",
			Help:      "Reports dropped because the ring buffer was full.",
		},
	)
	negotiations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "session",
			Name:      "negotiations_total",
			Help:      "Negotiation outcomes, by transport and format.",
		},
		[]string{"transport", "format"},
	)
	relayEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "relay",
			Name:      "events_total",
			Help:      "Feed relay publish attempts.",
		},
		[]string{"result"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "orderwire",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total debug HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "orderwire",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Debug HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			messagesSent, reportsReceived, decodeErrors, frameErrors,
			ringDropped, negotiations, relayEvents, httpRequests, httpDuration,
		)
	})
}

func RecordSend(format, kind string) {
	RegisterMetrics()
	messagesSent.WithLabelValues(format, kind).Inc()
}

func RecordReport(format, kind string) {
	RegisterMetrics()
	reportsReceived.WithLabelValues(format, kind).Inc()
}

func RecordDecodeError(format string) {
	RegisterMetrics()
	decodeErrors.WithLabelValues(format).Inc()
}

func RecordFrameError() {
	RegisterMetrics()
	frameErrors.Inc()
}

func RecordRingDrop() {
	RegisterMetrics()
	ringDropped.Inc()
}

func RecordNegotiation(transport, format string) {
	RegisterMetrics()
	negotiations.WithLabelValues(transport, format).Inc()
}

func RecordRelayEvent(ok bool) {
	RegisterMetrics()
	result := "error"
	if ok {
		result = "ok"
	}
	relayEvents.WithLabelValues(result).Inc()
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
