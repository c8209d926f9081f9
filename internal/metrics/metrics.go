package metrics

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicketsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datahelp_router_tickets_total",
		Help: "Tickets processed per queue and outcome",
	}, []string{"queue", "outcome"})
	FallbackAssignmentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "datahelp_router_fallback_assignments_total",
		Help: "Tickets whose catch-all owner was replaced by a fallback pool member",
	})
	PassesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "datahelp_router_passes_total",
		Help: "Routing passes per queue and result",
	}, []string{"queue", "result"})
	DirectoryLookupDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "datahelp_router_directory_lookup_duration_ms",
		Help:    "Owner directory lookup duration in milliseconds",
		Buckets: []float64{10, 25, 50, 100, 200, 300, 500, 1000, 3000},
	}, []string{"result"})
)

// Register mounts /metrics on the router.
func Register(r chi.Router) {
	r.Handle("/metrics", promhttp.Handler())
}
