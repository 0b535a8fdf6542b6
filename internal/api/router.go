package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/channelmed/booking-engine/internal/booking"
	"github.com/channelmed/booking-engine/internal/payment"
	"github.com/channelmed/booking-engine/internal/schedule"
)

type RouterConfig struct {
	Schedules   schedule.Repository
	Bookings    *booking.Service
	Coordinator *payment.Coordinator
	PgPool      *pgxpool.Pool
	Redis       *redis.Client
	Logger      *zap.Logger
	JWTSecret   string
	Env         string
	Version     string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Public discovery endpoints
	r.Get("/clinicians", listCliniciansHandler(cfg.Schedules))
	r.Get("/clinicians/{id}", getClinicianHandler(cfg.Schedules))
	r.Get("/clinicians/{id}/availability", availabilityHandler(cfg.Bookings))

	// Checkout completion callback; the redirect carries no bearer token.
	r.Get("/payments/success", paymentSuccessHandler(cfg.Coordinator))

	// Authenticated booking surface
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Post("/appointments", createAppointmentHandler(cfg.Coordinator))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))

		// Administrative surface
		r.Group(func(r chi.Router) {
			r.Use(RequireAdmin)

			r.Get("/appointments", listAppointmentsHandler(cfg.Bookings))
			r.Patch("/appointments/{id}", updateStatusHandler(cfg.Bookings))
		})
	})

	return r
}
