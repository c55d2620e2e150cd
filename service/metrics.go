package service

import "github.com/prometheus/client_golang/prometheus"

var (
	ordersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpay_orders_total",
			Help: "Prepay orders by outcome",
		},
		[]string{"outcome"},
	)

	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpay_notifications_total",
			Help: "Payment notifications by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	credentialTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpay_credential_lookups_total",
			Help: "Credential cache lookups by result",
		},
		[]string{"result"},
	)

	reconcileTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "formpay_reconcile_total",
			Help: "Reconciled submissions by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(ordersTotal, notificationsTotal, credentialTotal, reconcileTotal)
}
