package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_reservations_total",
		Help: "Reservation attempts by payment method and outcome.",
	}, []string{"payment_method", "outcome"})

	paymentSessionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "booking_payment_sessions_total",
		Help: "Online payment sessions by outcome.",
	}, []string{"outcome"})
)
