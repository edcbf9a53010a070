package appointment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hospitalms/scheduling/internal/lock"
)

var (
	ErrInvalidDate      = errors.New("date must be a valid YYYY-MM-DD calendar date")
	ErrInvalidTime      = errors.New("time must be a valid HH:MM value")
	ErrOffGridTime      = errors.New("time is not on the standard booking grid")
	ErrPastSlot         = errors.New("appointment date and time must be in the future")
	ErrEmptyReason      = errors.New("reason must not be empty")
	ErrUnknownPatient   = errors.New("patient does not exist")
	ErrUnknownDoctor    = errors.New("doctor does not exist")
	ErrSlotTaken        = errors.New("slot already has a scheduled appointment")
	ErrSlotBeingBooked  = errors.New("slot is currently being booked, please retry")
	ErrEditWindowShut   = errors.New("appointment can no longer be edited")
	ErrCancelWindowShut = errors.New("appointment can no longer be cancelled")
	ErrNotScheduled     = errors.New("appointment is not in scheduled status")
)

// PatientDirectory resolves patient references. Patient records themselves
// are owned by a collaborator, not by the scheduling core.
type PatientDirectory interface {
	Exists(ctx context.Context, username string) (bool, error)
}

// DoctorDirectory resolves doctor references and the consultation fee that
// fixes an appointment's price at booking time.
type DoctorDirectory interface {
	Exists(ctx context.Context, id string) (bool, error)
	ConsultationFee(ctx context.Context, id string) (float64, error)
}

// Service enforces the booking rules on top of a Repository. Constructed
// once at process start and handed to consumers; there are no singletons.
type Service struct {
	repo      Repository
	patients  PatientDirectory
	doctors   DoctorDirectory
	locker    lock.Locker
	startHour int
	endHour   int
	now       func() time.Time
}

func NewService(repo Repository, patients PatientDirectory, doctors DoctorDirectory, locker lock.Locker, startHour, endHour int) *Service {
	return &Service{
		repo:      repo,
		patients:  patients,
		doctors:   doctors,
		locker:    locker,
		startHour: startHour,
		endHour:   endHour,
		now:       time.Now,
	}
}

func slotKey(doctorRef, date, timeOfDay string) string {
	return doctorRef + "|" + date + "|" + timeOfDay
}

func (s *Service) validateDate(date string) error {
	if _, err := time.ParseInLocation(DateLayout, date, time.Local); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (s *Service) validateTime(timeOfDay string) error {
	if _, err := time.Parse(TimeLayout, timeOfDay); err != nil {
		return ErrInvalidTime
	}
	if !OnGrid(timeOfDay, s.startHour, s.endHour) {
		return ErrOffGridTime
	}
	return nil
}

// Book runs the full booking pipeline: syntax, grid, future-slot, reason,
// referential checks, then availability + insert inside the slot lock.
func (s *Service) Book(ctx context.Context, patientRef, doctorRef, date, timeOfDay, reason string) (*Appointment, error) {
	if err := s.validateDate(date); err != nil {
		return nil, err
	}
	if err := s.validateTime(timeOfDay); err != nil {
		return nil, err
	}

	start, err := time.ParseInLocation(DateLayout+" "+TimeLayout, date+" "+timeOfDay, time.Local)
	if err != nil {
		return nil, ErrInvalidTime
	}
	if !start.After(s.now()) {
		return nil, ErrPastSlot
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrEmptyReason
	}

	ok, err := s.patients.Exists(ctx, patientRef)
	if err != nil {
		return nil, fmt.Errorf("look up patient %s: %w", patientRef, err)
	}
	if !ok {
		return nil, ErrUnknownPatient
	}

	ok, err = s.doctors.Exists(ctx, doctorRef)
	if err != nil {
		return nil, fmt.Errorf("look up doctor %s: %w", doctorRef, err)
	}
	if !ok {
		return nil, ErrUnknownDoctor
	}

	var created *Appointment

	err = s.locker.WithSlotLock(ctx, slotKey(doctorRef, date, timeOfDay), func(lockCtx context.Context) error {
		available, err := s.repo.IsSlotAvailable(lockCtx, doctorRef, date, timeOfDay, "")
		if err != nil {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if !available {
			return ErrSlotTaken
		}

		fee, err := s.doctors.ConsultationFee(lockCtx, doctorRef)
		if err != nil {
			return fmt.Errorf("fetch consultation fee for %s: %w", doctorRef, err)
		}

		id, err := s.repo.NextID(lockCtx)
		if err != nil {
			return fmt.Errorf("allocate appointment id: %w", err)
		}

		appt := &Appointment{
			ID:         id,
			PatientRef: patientRef,
			DoctorRef:  doctorRef,
			Date:       date,
			Time:       timeOfDay,
			Reason:     reason,
			Price:      fee,
			Paid:       false,
			Status:     StatusScheduled,
		}
		if err := s.repo.Add(lockCtx, appt); err != nil {
			return fmt.Errorf("store appointment: %w", err)
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return created, nil
}

// Edit moves an appointment to a new date and/or time. An empty newDate or
// newTime keeps the current value. Editing to the slot the appointment
// already occupies succeeds unconditionally.
func (s *Service) Edit(ctx context.Context, id, newDate, newTime string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if newDate == "" {
		newDate = appt.Date
	}
	if newTime == "" {
		newTime = appt.Time
	}
	if newDate == appt.Date && newTime == appt.Time {
		return appt, nil
	}

	if err := s.validateDate(newDate); err != nil {
		return nil, err
	}
	if err := s.validateTime(newTime); err != nil {
		return nil, err
	}
	if !appt.CanEdit(s.now()) {
		return nil, ErrEditWindowShut
	}

	err = s.locker.WithSlotLock(ctx, slotKey(appt.DoctorRef, newDate, newTime), func(lockCtx context.Context) error {
		available, err := s.repo.IsSlotAvailable(lockCtx, appt.DoctorRef, newDate, newTime, appt.ID)
		if err != nil {
			return fmt.Errorf("check slot availability: %w", err)
		}
		if !available {
			return ErrSlotTaken
		}

		appt.Date = newDate
		appt.Time = newTime
		if err := s.repo.Update(lockCtx, appt); err != nil {
			return fmt.Errorf("store appointment: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	return appt, nil
}

// Cancel frees the slot. Allowed only while the appointment is scheduled and
// starts more than an hour from now.
func (s *Service) Cancel(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !appt.CanCancel(s.now()) {
		return nil, ErrCancelWindowShut
	}
	appt.Status = StatusCancelled
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("store appointment: %w", err)
	}
	return appt, nil
}

// MarkCompleted moves a scheduled appointment to its completed terminal state.
func (s *Service) MarkCompleted(ctx context.Context, id string) (*Appointment, error) {
	return s.finish(ctx, id, StatusCompleted)
}

// MarkNoShow moves a scheduled appointment to its no-show terminal state.
func (s *Service) MarkNoShow(ctx context.Context, id string) (*Appointment, error) {
	return s.finish(ctx, id, StatusNoShow)
}

func (s *Service) finish(ctx context.Context, id string, to Status) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt.Status != StatusScheduled {
		return nil, ErrNotScheduled
	}
	appt.Status = to
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("store appointment: %w", err)
	}
	return appt, nil
}

// MarkPaid records payment regardless of the appointment's status.
func (s *Service) MarkPaid(ctx context.Context, id string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	appt.Paid = true
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("store appointment: %w", err)
	}
	return appt, nil
}

// UpdateNotes replaces the free-text notes; allowed at any status.
func (s *Service) UpdateNotes(ctx context.Context, id, notes string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	appt.Notes = strings.TrimSpace(notes)
	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, fmt.Errorf("store appointment: %w", err)
	}
	return appt, nil
}

// AvailableSlots returns the standard grid minus the doctor's booked times
// for the date.
func (s *Service) AvailableSlots(ctx context.Context, doctorRef, date string) ([]string, error) {
	if err := s.validateDate(date); err != nil {
		return nil, err
	}
	booked, err := s.repo.BookedSlots(ctx, doctorRef, date)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]bool, len(booked))
	for _, t := range booked {
		taken[t] = true
	}
	var free []string
	for _, slot := range StandardSlots(s.startHour, s.endHour) {
		if !taken[slot] {
			free = append(free, slot)
		}
	}
	return free, nil
}

// Revenue is the aggregate of appointment prices.
type Revenue struct {
	Total  float64
	Paid   float64
	Unpaid float64
}

// ComputeRevenue sums prices over all non-cancelled appointments. Note that
// a scheduled appointment counts toward revenue before it is ever completed;
// that is the recorded billing policy, not an accident of implementation.
func (s *Service) ComputeRevenue(ctx context.Context) (Revenue, error) {
	appts, err := s.repo.GetAll(ctx)
	if err != nil {
		return Revenue{}, err
	}
	var rev Revenue
	for i := range appts {
		a := &appts[i]
		if a.Status == StatusCancelled || a.Status == StatusNoShow {
			continue
		}
		rev.Total += a.Price
		if a.Paid {
			rev.Paid += a.Price
		}
	}
	rev.Unpaid = rev.Total - rev.Paid
	return rev, nil
}
