package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/careline/medical-scheduling/internal/dialogue"
	"github.com/careline/medical-scheduling/internal/scheduling"
)

type RouterConfig struct {
	Service       *scheduling.Service
	Conversations *dialogue.Manager
	PgPool        *pgxpool.Pool
	Redis         *redis.Client
	Env           string
	Version       string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Conversation endpoints
	r.Post("/conversations/{id}/messages", postMessageHandler(cfg.Conversations))
	r.Get("/conversations/{id}", getConversationHandler(cfg.Conversations))

	// Doctor endpoints
	r.Get("/doctors", listDoctorsHandler(cfg.Service))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Service))
	r.Get("/doctors/{id}/slots", doctorSlotsHandler(cfg.Service))
	r.Get("/doctors/{id}/schedule", doctorScheduleHandler(cfg.Service))

	// Appointment endpoints
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Service))

	return r
}
