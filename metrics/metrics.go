package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	Reservations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_reservations_total",
			Help: "Reservation attempts by payment method and outcome",
		},
		[]string{"method", "outcome"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_gateway_notifications_total",
			Help: "Gateway notifications by reconciliation outcome",
		},
		[]string{"outcome"},
	)

	NotificationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "academy_gateway_notification_seconds",
			Help:    "Time taken to reconcile a gateway notification",
			Buckets: prometheus.DefBuckets,
		},
	)

	SweptReservations = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_swept_reservations_total",
			Help: "Stale pending reservations released by the sweeper",
		},
	)

	JobFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "academy_job_failures_total",
			Help: "Background job runs that ended with an error",
		},
		[]string{"job"},
	)

	TxRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_tx_retries_total",
			Help: "Transactions retried after a serialization conflict",
		},
	)

	EmailFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "academy_email_failures_total",
			Help: "Transactional emails that could not be delivered",
		},
	)
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		Reservations,
		Notifications,
		NotificationDuration,
		SweptReservations,
		JobFailures,
		TxRetries,
		EmailFailures,
	)
}
