package appointment

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an appointment. The integer codes are
// part of the persisted record format and must stay stable.
type Status int

const (
	StatusScheduled Status = 0
	StatusCompleted Status = 1
	StatusCancelled Status = 2
	StatusNoShow    Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusCompleted:
		return "completed"
	case StatusCancelled:
		return "cancelled"
	case StatusNoShow:
		return "no_show"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Terminal reports whether no further status transition is permitted.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled || s == StatusNoShow
}

// ParseStatus maps a persisted status code back to a Status.
func ParseStatus(code int) (Status, error) {
	s := Status(code)
	if s < StatusScheduled || s > StatusNoShow {
		return 0, fmt.Errorf("unknown status code %d", code)
	}
	return s, nil
}

const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// editCancelWindow is how far in the future an appointment must start for a
// patient-initiated edit or cancellation to still be allowed.
const editCancelWindow = 60 * time.Minute

// Appointment is one scheduled consultation between a patient and a doctor.
// PatientRef and DoctorRef are references, not ownership: the appointment
// stays on record even after the referenced patient or doctor is removed.
type Appointment struct {
	ID         string // APT<n>, assigned once at booking
	PatientRef string // patient username
	DoctorRef  string // doctor ID
	Date       string // YYYY-MM-DD
	Time       string // HH:MM on the half-hour grid
	Reason     string
	Price      float64 // doctor's consultation fee at booking time
	Paid       bool
	Status     Status
	Notes      string
}

// StartTime resolves the date and time fields into a local wall-clock instant.
func (a *Appointment) StartTime() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, a.Date+" "+a.Time, time.Local)
}

// IsUpcoming reports whether the appointment is still scheduled and starts
// strictly after now.
func (a *Appointment) IsUpcoming(now time.Time) bool {
	if a.Status != StatusScheduled {
		return false
	}
	start, err := a.StartTime()
	if err != nil {
		return false
	}
	return start.After(now)
}

// CanCancel reports whether the appointment may still be cancelled: it must
// be scheduled and start more than an hour from now.
func (a *Appointment) CanCancel(now time.Time) bool {
	if a.Status != StatusScheduled {
		return false
	}
	start, err := a.StartTime()
	if err != nil {
		return false
	}
	return start.Sub(now) > editCancelWindow
}

// CanEdit applies the same window rule as CanCancel.
func (a *Appointment) CanEdit(now time.Time) bool {
	return a.CanCancel(now)
}

// Clone returns an independent copy, used by repositories to hand out and
// snapshot records without sharing the backing struct.
func (a *Appointment) Clone() *Appointment {
	c := *a
	return &c
}
