package remote

import "github.com/prometheus/client_golang/prometheus"

var remoteRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "palette_remote_requests_total",
		Help: "Total number of profile service requests by operation and result.",
	},
	[]string{"op", "result"},
)

func init() {
	prometheus.MustRegister(remoteRequestsTotal)
}

func observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	remoteRequestsTotal.WithLabelValues(op, result).Inc()
}
