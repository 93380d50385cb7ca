package relayer

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	assembleCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forcerelay_assemble_total",
			Help: "Relay attempts by result",
		},
		[]string{"result"},
	)
	assembleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forcerelay_assemble_seconds",
			Help:    "Time spent on one relay attempt",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(assembleCounter)
	prometheus.MustRegister(assembleDuration)
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrMisalignment):
		return "misaligned"
	case errors.Is(err, ErrCorruption):
		return "corruption"
	case errors.Is(err, ErrVerification):
		return "verification"
	case errors.Is(err, ErrDivergence):
		return "divergence"
	default:
		return "error"
	}
}

func observeAttempt(start time.Time, err error) {
	assembleCounter.WithLabelValues(resultLabel(err)).Inc()
	assembleDuration.Observe(time.Since(start).Seconds())
}
