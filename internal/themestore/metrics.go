package themestore

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	transitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palette_transitions_total",
			Help: "Total number of theme store transitions by operation and result.",
		},
		[]string{"op", "result"},
	)
	cacheWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "palette_cache_writes_total",
			Help: "Total number of local cache writes by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(transitionsTotal, cacheWritesTotal)
}

func observeTransition(op string, err error) {
	transitionsTotal.WithLabelValues(op, resultLabel(err)).Inc()
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrPremiumRequired):
		return "premium_required"
	case errors.Is(err, ErrNotReady):
		return "not_ready"
	case errors.Is(err, ErrClosed):
		return "closed"
	default:
		return "invalid"
	}
}
