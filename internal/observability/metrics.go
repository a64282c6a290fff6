package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hail", Name: "rides_created_total", Help: "Total rides created",
	})
	RideTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hail", Name: "ride_transitions_total", Help: "Ride status transitions by outcome"},
		[]string{"to", "outcome"},
	)
	ConfirmConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hail", Name: "confirm_conflicts_total", Help: "ConfirmRide attempts that lost the first-writer race",
	})
	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "hail", Name: "broadcasts_total", Help: "Dispatch broadcasts by outcome"},
		[]string{"outcome"},
	)
	OffersSentTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hail", Name: "offers_sent_total", Help: "Ride offers recorded on captain worklists",
	})
	NotifyFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "hail", Name: "notify_failures_total", Help: "Best-effort notifications that could not be delivered",
	})
	BroadcastDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hail", Name: "broadcast_duration_seconds", Help: "Dispatch broadcast latency",
		Buckets: prometheus.DefBuckets,
	})
)
