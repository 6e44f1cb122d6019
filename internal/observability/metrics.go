package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kmlsync",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kmlsync",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	commands = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kmlsync",
			Subsystem: "commands",
			Name:      "applied_total",
			Help:      "Commands applied to the asset store, by source and outcome.",
		},
		[]string{"source", "action", "warning"},
	)
	polls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kmlsync",
			Subsystem: "poll",
			Name:      "requests_total",
			Help:      "Reconciliation polls served, by whether the client was converged.",
		},
		[]string{"converged"},
	)
	diffSize = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "kmlsync",
			Subsystem: "poll",
			Name:      "diff_entries",
			Help:      "Create/delete entries emitted per poll.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
		[]string{"kind"},
	)
	busMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "kmlsync",
			Subsystem: "bus",
			Name:      "messages_total",
			Help:      "Bus messages received, by type.",
		},
		[]string{"type"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, commands, polls, diffSize, busMessages)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

func RecordCommand(source, action string, warning bool) {
	RegisterMetrics()
	commands.WithLabelValues(source, action, strconv.FormatBool(warning)).Inc()
}

func RecordPoll(creates, deletes int) {
	RegisterMetrics()
	polls.WithLabelValues(strconv.FormatBool(creates == 0 && deletes == 0)).Inc()
	diffSize.WithLabelValues("create").Observe(float64(creates))
	diffSize.WithLabelValues("delete").Observe(float64(deletes))
}

func RecordBusMessage(msgType string) {
	RegisterMetrics()
	busMessages.WithLabelValues(msgType).Inc()
}
