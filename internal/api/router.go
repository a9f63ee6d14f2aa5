package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/medimeet/scheduling/internal/account"
	"github.com/medimeet/scheduling/internal/appointment"
	"github.com/medimeet/scheduling/internal/availability"
	"github.com/medimeet/scheduling/internal/ledger"
)

type RouterConfig struct {
	Appointments *appointment.Service
	Availability *availability.Service
	Ledger       *ledger.Service
	Accounts     account.Repository
	Logger       *zap.Logger
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Doctor directory and slots
	r.Get("/doctors", listDoctorsHandler(cfg.Accounts))
	r.Get("/doctors/{id}", getDoctorHandler(cfg.Accounts))
	r.Get("/doctors/{id}/slots", getSlotsHandler(cfg.Appointments))
	r.Put("/doctors/{id}/availability", setAvailabilityHandler(cfg.Availability))
	r.Get("/doctors/{id}/availability", listAvailabilityHandler(cfg.Availability))
	r.Get("/doctors/{id}/appointments", listDoctorAppointmentsHandler(cfg.Appointments))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/notes", addNotesHandler(cfg.Appointments))
	r.Post("/appointments/{id}/token", issueTokenHandler(cfg.Appointments))

	// Patient views and credits
	r.Get("/patients/{id}/appointments", listPatientAppointmentsHandler(cfg.Appointments))
	r.Post("/accounts/{id}/credits/allocate", allocateCreditsHandler(cfg.Ledger))

	return r
}
