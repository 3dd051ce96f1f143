package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TicketsEnqueued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barberq_tickets_enqueued_total",
		Help: "Tickets added to the queue.",
	})

	TicketsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barberq_tickets_completed_total",
		Help: "Tickets completed and recorded in the ledgers.",
	})

	RevenueTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "barberq_revenue_total",
		Help: "Sum of service prices recorded since start.",
	})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "barberq_http_requests_total",
		Help: "HTTP requests by response status.",
	}, []string{"status"})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "barberq_admin_sessions_active",
		Help: "Admin sessions held by the in-memory session store.",
	})
)
