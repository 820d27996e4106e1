package energy

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback kinds reported on the fallbacks counter.
const (
	fallbackSaturated      = "saturated_mask"
	fallbackAllBackground  = "all_background"
	fallbackSmoothCollapse = "smooth_collapse"
	fallbackEmptyErosion   = "empty_after_erosion"
	fallbackEmptySkeleton  = "empty_skeleton"
)

var (
	// Encoder metrics
	instancesEncoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segenergy_instances_encoded_total",
			Help: "Total number of instances run through an encoder",
		},
		[]string{"encoder"}, // encoder: instance, skeleton
	)

	fallbacksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segenergy_fallbacks_total",
			Help: "Total number of documented fallback branches taken",
		},
		[]string{"kind"},
	)

	encodeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "segenergy_encode_duration_seconds",
			Help:    "Encoder call duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
		},
		[]string{"encoder"}, // encoder: semantic, instance, skeleton
	)

	// Quantization metrics
	valuesQuantized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "segenergy_values_quantized_total",
			Help: "Total number of energy values quantized",
		},
	)

	valuesDecoded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "segenergy_values_decoded_total",
			Help: "Total number of energy values decoded from class distributions",
		},
		[]string{"policy"},
	)
)
