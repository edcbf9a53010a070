package appointment

import "context"

// Read-side passthroughs and time-relative views for the UI facade. These
// are pure filters; none of them mutate the store.

func (s *Service) Get(ctx context.Context, id string) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) All(ctx context.Context) ([]Appointment, error) {
	return s.repo.GetAll(ctx)
}

func (s *Service) ByDate(ctx context.Context, date string) ([]Appointment, error) {
	if err := s.validateDate(date); err != nil {
		return nil, err
	}
	return s.repo.GetByDate(ctx, date)
}

func (s *Service) ByDateRange(ctx context.Context, from, to string) ([]Appointment, error) {
	if err := s.validateDate(from); err != nil {
		return nil, err
	}
	if err := s.validateDate(to); err != nil {
		return nil, err
	}
	return s.repo.GetByDateRange(ctx, from, to)
}

func (s *Service) ByDoctor(ctx context.Context, doctorRef string) ([]Appointment, error) {
	return s.repo.GetByDoctor(ctx, doctorRef)
}

func (s *Service) ByPatient(ctx context.Context, patientRef string) ([]Appointment, error) {
	return s.repo.GetByPatient(ctx, patientRef)
}

func (s *Service) ByStatus(ctx context.Context, status Status) ([]Appointment, error) {
	return s.repo.GetByStatus(ctx, status)
}

// Today returns the appointments on the current calendar date.
func (s *Service) Today(ctx context.Context) ([]Appointment, error) {
	return s.repo.GetByDate(ctx, s.now().Format(DateLayout))
}

// Upcoming returns scheduled appointments that start after now.
func (s *Service) Upcoming(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.splitUpcoming(appts, true), nil
}

// History returns everything that is not upcoming: past appointments and all
// terminal-status records.
func (s *Service) History(ctx context.Context) ([]Appointment, error) {
	appts, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return s.splitUpcoming(appts, false), nil
}

func (s *Service) UpcomingByDoctor(ctx context.Context, doctorRef string) ([]Appointment, error) {
	appts, err := s.repo.GetByDoctor(ctx, doctorRef)
	if err != nil {
		return nil, err
	}
	return s.splitUpcoming(appts, true), nil
}

func (s *Service) HistoryByDoctor(ctx context.Context, doctorRef string) ([]Appointment, error) {
	appts, err := s.repo.GetByDoctor(ctx, doctorRef)
	if err != nil {
		return nil, err
	}
	return s.splitUpcoming(appts, false), nil
}

func (s *Service) UpcomingByPatient(ctx context.Context, patientRef string) ([]Appointment, error) {
	appts, err := s.repo.GetByPatient(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	return s.splitUpcoming(appts, true), nil
}

func (s *Service) HistoryByPatient(ctx context.Context, patientRef string) ([]Appointment, error) {
	appts, err := s.repo.GetByPatient(ctx, patientRef)
	if err != nil {
		return nil, err
	}
	return s.splitUpcoming(appts, false), nil
}

func (s *Service) splitUpcoming(appts []Appointment, upcoming bool) []Appointment {
	now := s.now()
	var out []Appointment
	for i := range appts {
		if appts[i].IsUpcoming(now) == upcoming {
			out = append(out, appts[i])
		}
	}
	return out
}
