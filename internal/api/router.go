package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hospitalms/scheduling/internal/appointment"
)

type RouterConfig struct {
	Service *appointment.Service
	Health  *HealthHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}

	svc := cfg.Service

	r.Post("/appointments", bookAppointmentHandler(svc))
	r.Get("/appointments", listAppointmentsHandler(svc))
	r.Get("/appointments/{id}", getAppointmentHandler(svc))
	r.Patch("/appointments/{id}", editAppointmentHandler(svc))
	r.Post("/appointments/{id}/cancel", transitionHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
		return svc.Cancel(req.Context(), id)
	}))
	r.Post("/appointments/{id}/complete", transitionHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
		return svc.MarkCompleted(req.Context(), id)
	}))
	r.Post("/appointments/{id}/no-show", transitionHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
		return svc.MarkNoShow(req.Context(), id)
	}))
	r.Post("/appointments/{id}/pay", transitionHandler(func(req *http.Request, id string) (*appointment.Appointment, error) {
		return svc.MarkPaid(req.Context(), id)
	}))
	r.Put("/appointments/{id}/notes", updateNotesHandler(svc))

	r.Get("/doctors/{id}/slots", availableSlotsHandler(svc))
	r.Get("/revenue", revenueHandler(svc))

	return r
}
