package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hospitalms/scheduling/internal/appointment"
)

func bookAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Book(r.Context(), req.Patient, req.Doctor, req.Date, req.Time, req.Reason)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toResponse(appt))
	}
}

func editAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req EditAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.Edit(r.Context(), chi.URLParam(r, "id"), req.Date, req.Time)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toResponse(appt))
	}
}

func transitionHandler(fn func(r *http.Request, id string) (*appointment.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := fn(r, chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(appt))
	}
}

func updateNotesHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req UpdateNotesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		appt, err := svc.UpdateNotes(r.Context(), chi.URLParam(r, "id"), req.Notes)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toResponse(appt))
	}
}

func getAppointmentHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		appt, err := svc.Get(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponse(appt))
	}
}

// listAppointmentsHandler dispatches on the query string: ?date=, ?from=&to=,
// ?doctor= and ?patient= (optionally with ?view=upcoming|history), ?status=,
// ?view=today|upcoming|history, or no filter for everything.
func listAppointmentsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		ctx := r.Context()
		view := q.Get("view")

		var (
			appts []appointment.Appointment
			err   error
		)

		switch {
		case q.Get("date") != "":
			appts, err = svc.ByDate(ctx, q.Get("date"))
		case q.Get("from") != "" && q.Get("to") != "":
			appts, err = svc.ByDateRange(ctx, q.Get("from"), q.Get("to"))
		case q.Get("doctor") != "":
			switch view {
			case "upcoming":
				appts, err = svc.UpcomingByDoctor(ctx, q.Get("doctor"))
			case "history":
				appts, err = svc.HistoryByDoctor(ctx, q.Get("doctor"))
			default:
				appts, err = svc.ByDoctor(ctx, q.Get("doctor"))
			}
		case q.Get("patient") != "":
			switch view {
			case "upcoming":
				appts, err = svc.UpcomingByPatient(ctx, q.Get("patient"))
			case "history":
				appts, err = svc.HistoryByPatient(ctx, q.Get("patient"))
			default:
				appts, err = svc.ByPatient(ctx, q.Get("patient"))
			}
		case q.Get("status") != "":
			status, ok := statusFromName(q.Get("status"))
			if !ok {
				writeError(w, http.StatusBadRequest, "invalid_status", "status must be scheduled, completed, cancelled or no_show")
				return
			}
			appts, err = svc.ByStatus(ctx, status)
		case view == "today":
			appts, err = svc.Today(ctx)
		case view == "upcoming":
			appts, err = svc.Upcoming(ctx)
		case view == "history":
			appts, err = svc.History(ctx)
		default:
			appts, err = svc.All(ctx)
		}

		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toResponses(appts))
	}
}

func availableSlotsHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doctor := chi.URLParam(r, "id")
		date := r.URL.Query().Get("date")

		slots, err := svc.AvailableSlots(r.Context(), doctor, date)
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, SlotsResponse{Doctor: doctor, Date: date, Slots: slots})
	}
}

func revenueHandler(svc *appointment.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rev, err := svc.ComputeRevenue(r.Context())
		if err != nil {
			handleServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, RevenueResponse{Total: rev.Total, Paid: rev.Paid, Unpaid: rev.Unpaid})
	}
}

func statusFromName(name string) (appointment.Status, bool) {
	switch name {
	case "scheduled":
		return appointment.StatusScheduled, true
	case "completed":
		return appointment.StatusCompleted, true
	case "cancelled":
		return appointment.StatusCancelled, true
	case "no_show":
		return appointment.StatusNoShow, true
	default:
		return 0, false
	}
}

func handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appointment.ErrNotFound):
		writeError(w, http.StatusNotFound, "appointment_not_found", err.Error())
	case errors.Is(err, appointment.ErrUnknownPatient):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, appointment.ErrUnknownDoctor):
		writeError(w, http.StatusNotFound, "doctor_not_found", err.Error())
	case errors.Is(err, appointment.ErrInvalidDate),
		errors.Is(err, appointment.ErrInvalidTime),
		errors.Is(err, appointment.ErrOffGridTime),
		errors.Is(err, appointment.ErrPastSlot),
		errors.Is(err, appointment.ErrEmptyReason):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, appointment.ErrSlotTaken):
		writeError(w, http.StatusConflict, "slot_taken", err.Error())
	case errors.Is(err, appointment.ErrSlotBeingBooked):
		writeError(w, http.StatusConflict, "slot_being_booked", "slot is currently being booked, please retry shortly")
	case errors.Is(err, appointment.ErrEditWindowShut),
		errors.Is(err, appointment.ErrCancelWindowShut),
		errors.Is(err, appointment.ErrNotScheduled):
		writeError(w, http.StatusConflict, "transition_not_allowed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
