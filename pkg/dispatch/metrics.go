package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for batch dispatch.
var (
	batchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grotto_dispatch_batches_total",
		Help: "Total dispatched batches by output shape and execution mode",
	}, []string{"shape", "mode"})

	batchItemsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grotto_dispatch_items_total",
		Help: "Total batch items processed by output shape",
	}, []string{"shape"})

	batchFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grotto_dispatch_failures_total",
		Help: "Total failed batches by output shape",
	}, []string{"shape"})

	batchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grotto_dispatch_batch_duration_seconds",
		Help:    "Wall-clock duration of whole batches by output shape",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
	}, []string{"shape"})
)
