package queue

import "github.com/prometheus/client_golang/prometheus"

var (
	tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "devbay_lifecycle_tasks_total",
			Help: "Lifecycle commands processed, by action and outcome.",
		},
		[]string{"action", "outcome"},
	)
	retriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "devbay_lifecycle_create_retries_total",
			Help: "Create attempts repeated after a transient engine failure.",
		},
	)
)

func init() {
	prometheus.MustRegister(tasksTotal, retriesTotal)
}
