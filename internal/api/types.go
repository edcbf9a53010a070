package api

import "github.com/hospitalms/scheduling/internal/appointment"

type BookAppointmentRequest struct {
	Patient string `json:"patient"`
	Doctor  string `json:"doctor"`
	Date    string `json:"date"`
	Time    string `json:"time"`
	Reason  string `json:"reason"`
}

type EditAppointmentRequest struct {
	Date string `json:"date,omitempty"`
	Time string `json:"time,omitempty"`
}

type UpdateNotesRequest struct {
	Notes string `json:"notes"`
}

type AppointmentResponse struct {
	ID      string  `json:"id"`
	Patient string  `json:"patient"`
	Doctor  string  `json:"doctor"`
	Date    string  `json:"date"`
	Time    string  `json:"time"`
	Reason  string  `json:"reason"`
	Price   float64 `json:"price"`
	Paid    bool    `json:"paid"`
	Status  string  `json:"status"`
	Notes   string  `json:"notes,omitempty"`
}

type SlotsResponse struct {
	Doctor string   `json:"doctor"`
	Date   string   `json:"date"`
	Slots  []string `json:"slots"`
}

type RevenueResponse struct {
	Total  float64 `json:"total"`
	Paid   float64 `json:"paid"`
	Unpaid float64 `json:"unpaid"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toResponse(a *appointment.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:      a.ID,
		Patient: a.PatientRef,
		Doctor:  a.DoctorRef,
		Date:    a.Date,
		Time:    a.Time,
		Reason:  a.Reason,
		Price:   a.Price,
		Paid:    a.Paid,
		Status:  a.Status.String(),
		Notes:   a.Notes,
	}
}

func toResponses(appts []appointment.Appointment) []AppointmentResponse {
	out := make([]AppointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, toResponse(&appts[i]))
	}
	return out
}
