// Package metrics exports Prometheus metrics for document loading,
// reference resolution and write-back.
//
// A Recorder is a sparse.Logger: attach it with sparse.WithLogger, or combine
// it with a log sink through sparse.MultiLogger.
package metrics

import (
	"errors"
	"sync"

	"github.com/goliatone/go-sparse"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sparse"

const (
	resultSuccess = "success"
	resultError   = "error"
)

// Recorder turns engine log events into Prometheus metrics.
type Recorder struct {
	// OperationsTotal counts operations by op and result.
	// Labels: op (load, resolve, replace, save, flush, ...), result (success, error)
	OperationsTotal *prometheus.CounterVec

	// OperationDuration measures operation latency in seconds.
	// Labels: op
	OperationDuration *prometheus.HistogramVec

	// ResolveDepth observes the depth at which references resolve.
	ResolveDepth prometheus.Histogram

	// OutdatedTotal counts operations that failed on a stale version.
	OutdatedTotal prometheus.Counter

	// DocumentsTracked is the number of distinct documents loaded.
	DocumentsTracked prometheus.Gauge

	mu     sync.Mutex
	loaded map[string]struct{}
}

// NewRecorder creates the metrics and registers them with reg. A nil reg
// leaves them unregistered.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		OperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of document operations by op and result",
			},
			[]string{"op", "result"},
		),
		OperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Document operation latency in seconds",
				Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"op"},
		),
		ResolveDepth: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "resolve_depth",
				Help:      "Recursion depth at which references were resolved",
				Buckets:   prometheus.LinearBuckets(0, 10, 11),
			},
		),
		OutdatedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "outdated_pointer_total",
				Help:      "Operations that failed because a document changed since it was read",
			},
		),
		DocumentsTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "documents_tracked",
				Help:      "Number of distinct documents loaded",
			},
		),
		loaded: map[string]struct{}{},
	}
	if reg == nil {
		return r, nil
	}
	for _, c := range r.collectors() {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Recorder) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		r.OperationsTotal,
		r.OperationDuration,
		r.ResolveDepth,
		r.OutdatedTotal,
		r.DocumentsTracked,
	}
}

// Log implements sparse.Logger.
func (r *Recorder) Log(event sparse.LogEvent) {
	result := resultSuccess
	if event.Err != nil {
		result = resultError
	}
	r.OperationsTotal.WithLabelValues(event.Op, result).Inc()
	if event.Duration > 0 {
		r.OperationDuration.WithLabelValues(event.Op).Observe(event.Duration.Seconds())
	}
	if errors.Is(event.Err, sparse.ErrOutdatedPointer) {
		r.OutdatedTotal.Inc()
	}
	if event.Err != nil {
		return
	}
	switch event.Op {
	case sparse.OpResolve:
		r.ResolveDepth.Observe(float64(event.Depth))
	case sparse.OpLoad:
		r.mu.Lock()
		r.loaded[event.Path] = struct{}{}
		r.DocumentsTracked.Set(float64(len(r.loaded)))
		r.mu.Unlock()
	}
}

var _ sparse.Logger = (*Recorder)(nil)
