package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_http_requests_total",
		Help: "HTTP requests by method, path pattern and status.",
	}, []string{"method", "path", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	CheckIns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_checkins_total",
		Help: "Successful student check-ins (idempotent repeats excluded).",
	})

	AbsencesSynthesized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_absences_synthesized_total",
		Help: "Absence records created at event finalization.",
	})

	FinesSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_fines_settled_total",
		Help: "Absentee fines marked paid.",
	})

	EventsFinalized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "portal_events_finalized_total",
		Help: "Events transitioned to completed.",
	})
)
