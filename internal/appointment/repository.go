package appointment

import (
	"context"
	"errors"
)

var (
	ErrNotFound    = errors.New("appointment not found")
	ErrDuplicateID = errors.New("appointment id already exists")
)

// Repository is the storage contract the scheduling service depends on.
// Implementations must hand out copies, never their internal structs.
type Repository interface {
	GetAll(ctx context.Context) ([]Appointment, error)
	GetByID(ctx context.Context, id string) (*Appointment, error)

	// Add fails with ErrDuplicateID if the id is already present.
	Add(ctx context.Context, appt *Appointment) error
	// Update replaces the stored record with the same ID.
	Update(ctx context.Context, appt *Appointment) error
	Remove(ctx context.Context, id string) error

	// IsSlotAvailable reports whether no scheduled appointment other than
	// excludeID occupies (doctorRef, date, timeOfDay). Pass excludeID "" for
	// a plain availability check; pass the appointment's own ID when editing
	// so that keeping the current slot counts as available.
	IsSlotAvailable(ctx context.Context, doctorRef, date, timeOfDay, excludeID string) (bool, error)
	// BookedSlots returns the times occupied by scheduled appointments for
	// the doctor on the given date.
	BookedSlots(ctx context.Context, doctorRef, date string) ([]string, error)

	GetByDate(ctx context.Context, date string) ([]Appointment, error)
	GetByDateRange(ctx context.Context, from, to string) ([]Appointment, error)
	GetByDoctor(ctx context.Context, doctorRef string) ([]Appointment, error)
	GetByPatient(ctx context.Context, patientRef string) ([]Appointment, error)
	GetByStatus(ctx context.Context, status Status) ([]Appointment, error)

	// NextID returns the next free APT<n> identifier. IDs not matching the
	// pattern are ignored by the scan.
	NextID(ctx context.Context) (string, error)
}
