// Package metrics exports allocator activity as Prometheus metrics. Observer
// implements alloc.Observer; hand it to alloc.Options and register it once per
// allocator.
//
//	m := metrics.New(prometheus.DefaultRegisterer, "scratch")
//	a, err := alloc.New(&alloc.Options{Observer: m})
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/joshuapare/heapkit/heap/alloc"
)

const (
	namespace = "heapkit"
	subsystem = "alloc"
)

// Observer records allocator events into Prometheus collectors.
type Observer struct {
	allocs       prometheus.Counter
	allocSize    prometheus.Histogram
	frees        prometheus.Counter
	liveBytes    prometheus.Gauge
	liveBlocks   prometheus.Gauge
	grows        prometheus.Counter
	arenaBytes   prometheus.Gauge
	invalidTotal *prometheus.CounterVec
}

// New creates an Observer and registers its collectors with reg. The arena
// label distinguishes several allocators in one process; a nil reg leaves the
// collectors unregistered.
func New(reg prometheus.Registerer, arena string) *Observer {
	labels := prometheus.Labels{"arena": arena}
	f := promauto.With(reg)

	return &Observer{
		allocs: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "allocations_total",
			Help:        "Total number of successful allocations, including calloc and realloc.",
			ConstLabels: labels,
		}),
		allocSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "allocation_size_bytes",
			Help:        "Requested allocation sizes.",
			Buckets:     prometheus.ExponentialBuckets(16, 4, 8), // 16B to 256KiB
			ConstLabels: labels,
		}),
		frees: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "frees_total",
			Help:        "Total number of blocks returned to the free list.",
			ConstLabels: labels,
		}),
		liveBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "live_bytes",
			Help:        "Requested bytes across live allocations.",
			ConstLabels: labels,
		}),
		liveBlocks: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "live_blocks",
			Help:        "Number of live allocations.",
			ConstLabels: labels,
		}),
		grows: f.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "arena_grows_total",
			Help:        "Total number of times the arena was extended.",
			ConstLabels: labels,
		}),
		arenaBytes: f.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "arena_bytes",
			Help:        "Bytes obtained from the growth source.",
			ConstLabels: labels,
		}),
		invalidTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   subsystem,
			Name:        "invalid_pointers_total",
			Help:        "Pointers rejected by validation, by operation and reason.",
			ConstLabels: labels,
		}, []string{"op", "reason"}),
	}
}

func (o *Observer) ObserveAlloc(size int) {
	o.allocs.Inc()
	o.allocSize.Observe(float64(size))
	o.liveBytes.Add(float64(size))
	o.liveBlocks.Inc()
}

func (o *Observer) ObserveFree(size int) {
	o.frees.Inc()
	o.liveBytes.Sub(float64(size))
	o.liveBlocks.Dec()
}

func (o *Observer) ObserveGrow(bytes int) {
	o.grows.Inc()
	o.arenaBytes.Add(float64(bytes))
}

func (o *Observer) ObserveInvalid(op string, err error) {
	o.invalidTotal.WithLabelValues(op, Reason(err)).Inc()
}

// Reason maps a validation error to a label value.
func Reason(err error) string {
	switch {
	case errors.Is(err, alloc.ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, alloc.ErrDoubleFree):
		return "double_free"
	case errors.Is(err, alloc.ErrCorrupted):
		return "corruption"
	default:
		return "other"
	}
}

var _ alloc.Observer = (*Observer)(nil)
