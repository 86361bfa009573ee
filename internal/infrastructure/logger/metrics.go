package logger

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds the Prometheus collectors of this process. The watch daemon
// exports it as a node-exporter textfile.
var Registry = prometheus.NewRegistry()

var (
	registryCommands = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "regsync_registry_commands_total",
		Help: "Registry commands sent, by registry, command and result kind",
	}, []string{"registry", "command", "result"})

	operationDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "regsync_operation_duration_seconds",
		Help:    "Duration of provider operations",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	}, []string{"operation"})

	notificationsDrained = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "regsync_notifications_total",
		Help: "Notifications returned by polling, by registry and type",
	}, []string{"registry", "type"})
)

type Metrics struct {
	operationsTotal   map[string]*atomic.Int64
	operationsFailed  map[string]*atomic.Int64
	operationsLatency map[string]*atomic.Int64
	mu                sync.Mutex
}

var globalMetrics = &Metrics{
	operationsTotal:   make(map[string]*atomic.Int64),
	operationsFailed:  make(map[string]*atomic.Int64),
	operationsLatency: make(map[string]*atomic.Int64),
}

type OperationStats struct {
	Total        int64
	Failed       int64
	AvgLatencyMs float64
}

func counter(m map[string]*atomic.Int64, key string) *atomic.Int64 {
	c, ok := m[key]
	if !ok {
		c = &atomic.Int64{}
		m[key] = c
	}
	return c
}

func RecordOperation(operation string, err error, duration time.Duration) {
	globalMetrics.mu.Lock()
	total := counter(globalMetrics.operationsTotal, operation)
	latency := counter(globalMetrics.operationsLatency, operation)
	var failed *atomic.Int64
	if err != nil {
		failed = counter(globalMetrics.operationsFailed, operation)
	}
	globalMetrics.mu.Unlock()

	total.Add(1)
	latency.Add(duration.Nanoseconds())
	if failed != nil {
		failed.Add(1)
	}
	operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordCommand counts one registry command. result is "ok" or an error kind.
func RecordCommand(registry, command, result string) {
	registryCommands.WithLabelValues(registry, command, result).Inc()
}

func RecordNotification(registry, notificationType string) {
	notificationsDrained.WithLabelValues(registry, notificationType).Inc()
}

func GetMetrics() map[string]OperationStats {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()

	result := make(map[string]OperationStats)
	for op, total := range globalMetrics.operationsTotal {
		stats := OperationStats{
			Total: total.Load(),
		}
		if failed, ok := globalMetrics.operationsFailed[op]; ok {
			stats.Failed = failed.Load()
		}
		if latency, ok := globalMetrics.operationsLatency[op]; ok {
			if count := total.Load(); count > 0 {
				stats.AvgLatencyMs = float64(latency.Load()) / float64(count) / 1e6
			}
		}
		result[op] = stats
	}
	return result
}

func TimedOperation(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	log := FromContext(ctx).With("operation", operation)
	log.Debug("starting operation")

	err := fn()
	duration := time.Since(start)

	RecordOperation(operation, err, duration)

	if err != nil {
		log.Error("operation failed", "error", err, "duration", duration)
	} else {
		log.Debug("operation completed", "duration", duration)
	}

	return err
}

// WriteTextfile dumps Registry in the node-exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, Registry)
}

func ResetMetrics() {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	globalMetrics.operationsTotal = make(map[string]*atomic.Int64)
	globalMetrics.operationsFailed = make(map[string]*atomic.Int64)
	globalMetrics.operationsLatency = make(map[string]*atomic.Int64)
	registryCommands.Reset()
	operationDuration.Reset()
	notificationsDrained.Reset()
}
