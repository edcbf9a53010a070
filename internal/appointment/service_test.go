package appointment

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospitalms/scheduling/internal/lock"
)

// stubPatients and stubDoctors stand in for the external directories.
type stubPatients struct {
	known map[string]bool
}

func (s *stubPatients) Exists(ctx context.Context, username string) (bool, error) {
	return s.known[username], nil
}

type stubDoctors struct {
	fees map[string]float64
}

func (s *stubDoctors) Exists(ctx context.Context, id string) (bool, error) {
	_, ok := s.fees[id]
	return ok, nil
}

func (s *stubDoctors) ConsultationFee(ctx context.Context, id string) (float64, error) {
	fee, ok := s.fees[id]
	if !ok {
		return 0, ErrUnknownDoctor
	}
	return fee, nil
}

var testNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.Local)

func newTestService(t *testing.T) (*Service, *FileRepository) {
	t.Helper()
	repo := NewFileRepository(filepath.Join(t.TempDir(), "appointments.txt"))
	svc := NewService(
		repo,
		&stubPatients{known: map[string]bool{"jdoe42": true, "asmith7": true}},
		&stubDoctors{fees: map[string]float64{"D001": 120, "D002": 80}},
		lock.NewMutexLocker(),
		8, 17,
	)
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func TestBookSuccess(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)

	assert.Equal(t, "APT0001", appt.ID)
	assert.Equal(t, StatusScheduled, appt.Status)
	assert.Equal(t, 120.0, appt.Price)
	assert.False(t, appt.Paid)
	assert.Equal(t, "Fever", appt.Reason)
}

func TestBookSlotTaken(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)

	_, err = svc.Book(ctx, "asmith7", "D001", "2030-01-01", "09:00", "Cough")
	assert.ErrorIs(t, err, ErrSlotTaken)

	// The same time with another doctor is a different slot.
	_, err = svc.Book(ctx, "asmith7", "D002", "2030-01-01", "09:00", "Cough")
	assert.NoError(t, err)
}

func TestBookValidation(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name    string
		patient string
		doctor  string
		date    string
		time    string
		reason  string
		wantErr error
	}{
		{"malformed date", "jdoe42", "D001", "01/02/2030", "09:00", "Fever", ErrInvalidDate},
		{"malformed time", "jdoe42", "D001", "2030-01-02", "nine", "Fever", ErrInvalidTime},
		{"off-grid time", "jdoe42", "D001", "2030-01-02", "09:15", "Fever", ErrOffGridTime},
		{"before working hours", "jdoe42", "D001", "2030-01-02", "07:00", "Fever", ErrOffGridTime},
		{"past date", "jdoe42", "D001", "2029-12-31", "09:00", "Fever", ErrPastSlot},
		{"today earlier slot", "jdoe42", "D001", "2030-01-01", "08:00", "Fever", ErrPastSlot},
		{"whitespace reason", "jdoe42", "D001", "2030-01-02", "09:00", "   ", ErrEmptyReason},
		{"unknown patient", "ghost", "D001", "2030-01-02", "09:00", "Fever", ErrUnknownPatient},
		{"unknown doctor", "jdoe42", "D999", "2030-01-02", "09:00", "Fever", ErrUnknownDoctor},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Book(ctx, tc.patient, tc.doctor, tc.date, tc.time, tc.reason)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	// None of the rejected bookings may have touched the store.
	appts, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, appts)
}

func TestBookTodayLaterSlot(t *testing.T) {
	svc, _ := newTestService(t)

	// testNow is 08:00, so the 08:30 slot today is still bookable.
	_, err := svc.Book(context.Background(), "jdoe42", "D001", "2030-01-01", "08:30", "Fever")
	assert.NoError(t, err)
}

func TestEditMovesSlot(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)

	edited, err := svc.Edit(ctx, appt.ID, "", "10:00")
	require.NoError(t, err)
	assert.Equal(t, "10:00", edited.Time)
	assert.Equal(t, "2030-01-01", edited.Date)

	// The old slot is free again, the new one occupied.
	free, _ := repo.IsSlotAvailable(ctx, "D001", "2030-01-01", "09:00", "")
	assert.True(t, free)
	free, _ = repo.IsSlotAvailable(ctx, "D001", "2030-01-01", "10:00", "")
	assert.False(t, free)
}

func TestEditIntoOccupiedSlot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)
	_, err = svc.Book(ctx, "asmith7", "D001", "2030-01-01", "10:00", "Cough")
	require.NoError(t, err)

	_, err = svc.Edit(ctx, first.ID, "", "10:00")
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestEditToOwnSlotSucceeds(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)

	// Re-stating the current slot succeeds even with no availability, and
	// does so regardless of the edit window.
	edited, err := svc.Edit(ctx, appt.ID, "2030-01-01", "09:00")
	require.NoError(t, err)
	assert.Equal(t, appt.ID, edited.ID)

	edited, err = svc.Edit(ctx, appt.ID, "", "")
	require.NoError(t, err)
	assert.Equal(t, "09:00", edited.Time)
}

func TestEditWindowClosed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 08:30 today is only 30 minutes after the fixed clock.
	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "08:30", "Fever")
	require.NoError(t, err)

	_, err = svc.Edit(ctx, appt.ID, "2030-01-02", "09:00")
	assert.ErrorIs(t, err, ErrEditWindowShut)
}

func TestEditNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Edit(context.Background(), "APT9999", "2030-01-02", "09:00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCancelWindow(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	// 30 minutes out: inside the window, cancel refused.
	near, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "08:30", "Fever")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, near.ID)
	assert.ErrorIs(t, err, ErrCancelWindowShut)

	// Two hours out: allowed, and the slot frees up.
	far, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "10:00", "Fever")
	require.NoError(t, err)
	cancelled, err := svc.Cancel(ctx, far.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, cancelled.Status)

	free, _ := repo.IsSlotAvailable(ctx, "D001", "2030-01-01", "10:00", "")
	assert.True(t, free)

	// Terminal: a second cancel is refused.
	_, err = svc.Cancel(ctx, far.ID)
	assert.ErrorIs(t, err, ErrCancelWindowShut)
}

func TestTerminalStatusImmutable(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)

	done, err := svc.MarkCompleted(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	_, err = svc.MarkNoShow(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrNotScheduled)
	_, err = svc.MarkCompleted(ctx, appt.ID)
	assert.ErrorIs(t, err, ErrNotScheduled)

	got, err := svc.Get(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
}

func TestMarkNoShow(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)

	marked, err := svc.MarkNoShow(ctx, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusNoShow, marked.Status)
}

func TestMarkPaidAnyStatus(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)
	_, err = svc.MarkCompleted(ctx, appt.ID)
	require.NoError(t, err)

	paid, err := svc.MarkPaid(ctx, appt.ID)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
}

func TestUpdateNotes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	appt, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "09:00", "Fever")
	require.NoError(t, err)
	_, err = svc.MarkCompleted(ctx, appt.ID)
	require.NoError(t, err)

	// Notes stay editable after the status went terminal.
	updated, err := svc.UpdateNotes(ctx, appt.ID, "  prescribed rest  ")
	require.NoError(t, err)
	assert.Equal(t, "prescribed rest", updated.Notes)
}

func TestAvailableSlots(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	all, err := svc.AvailableSlots(ctx, "D001", "2030-01-02")
	require.NoError(t, err)
	assert.Len(t, all, 18)

	_, err = svc.Book(ctx, "jdoe42", "D001", "2030-01-02", "09:00", "Fever")
	require.NoError(t, err)

	remaining, err := svc.AvailableSlots(ctx, "D001", "2030-01-02")
	require.NoError(t, err)
	assert.Len(t, remaining, 17)
	assert.NotContains(t, remaining, "09:00")

	// The other doctor's day is untouched.
	other, err := svc.AvailableSlots(ctx, "D002", "2030-01-02")
	require.NoError(t, err)
	assert.Len(t, other, 18)
}

func TestRevenue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// Scheduled, fee 120, later paid.
	a, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-02", "09:00", "Fever")
	require.NoError(t, err)
	_, err = svc.MarkPaid(ctx, a.ID)
	require.NoError(t, err)

	// Completed, fee 80, unpaid.
	b, err := svc.Book(ctx, "asmith7", "D002", "2030-01-02", "09:00", "Cough")
	require.NoError(t, err)
	_, err = svc.MarkCompleted(ctx, b.ID)
	require.NoError(t, err)

	// Cancelled, excluded from revenue.
	c, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-02", "10:00", "Rash")
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, c.ID)
	require.NoError(t, err)

	rev, err := svc.ComputeRevenue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 200.0, rev.Total, "scheduled appointments count toward revenue")
	assert.Equal(t, 120.0, rev.Paid)
	assert.Equal(t, 80.0, rev.Unpaid)
	assert.Equal(t, rev.Total, rev.Paid+rev.Unpaid)
}

func TestTimeRelativeViews(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	today, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-01", "10:00", "Fever")
	require.NoError(t, err)
	future, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-05", "10:00", "Follow-up")
	require.NoError(t, err)
	done, err := svc.Book(ctx, "asmith7", "D002", "2030-01-03", "10:00", "Cough")
	require.NoError(t, err)
	_, err = svc.MarkCompleted(ctx, done.ID)
	require.NoError(t, err)

	todays, err := svc.Today(ctx)
	require.NoError(t, err)
	require.Len(t, todays, 1)
	assert.Equal(t, today.ID, todays[0].ID)

	upcoming, err := svc.Upcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 2)
	ids := []string{upcoming[0].ID, upcoming[1].ID}
	assert.Contains(t, ids, today.ID)
	assert.Contains(t, ids, future.ID)

	history, err := svc.History(ctx)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, done.ID, history[0].ID)

	byDoctor, err := svc.UpcomingByDoctor(ctx, "D001")
	require.NoError(t, err)
	assert.Len(t, byDoctor, 2)

	byPatient, err := svc.HistoryByPatient(ctx, "asmith7")
	require.NoError(t, err)
	require.Len(t, byPatient, 1)
	assert.Equal(t, done.ID, byPatient[0].ID)
}

func TestConcurrentBookingSameSlot(t *testing.T) {
	svc, repo := newTestService(t)
	ctx := context.Background()

	const attempts = 32
	results := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			_, err := svc.Book(ctx, "jdoe42", "D001", "2030-01-02", "11:00", "Fever")
			results <- err
		}()
	}

	var booked, conflicts int
	for i := 0; i < attempts; i++ {
		if err := <-results; err == nil {
			booked++
		} else if assert.ErrorIs(t, err, ErrSlotTaken) {
			conflicts++
		}
	}
	assert.Equal(t, 1, booked, "exactly one concurrent booking may win the slot")
	assert.Equal(t, attempts-1, conflicts)

	appts, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, appts, 1)
}
