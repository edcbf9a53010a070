package appointment

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tempRepo(t *testing.T) *FileRepository {
	t.Helper()
	return NewFileRepository(filepath.Join(t.TempDir(), "appointments.txt"))
}

func sampleAppt(id string) *Appointment {
	return &Appointment{
		ID:         id,
		PatientRef: "jdoe42",
		DoctorRef:  "D001",
		Date:       "2030-01-15",
		Time:       "09:00",
		Reason:     "Fever",
		Price:      120.5,
		Paid:       false,
		Status:     StatusScheduled,
		Notes:      "first visit",
	}
}

func TestFileRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "appointments.txt")

	repo := NewFileRepository(path)
	a := sampleAppt("APT0001")
	a.Paid = true
	a.Status = StatusCompleted
	require.NoError(t, repo.Add(ctx, a))

	// A fresh repository over the same file must reconstruct every field.
	reloaded := NewFileRepository(path)
	got, err := reloaded.GetByID(ctx, "APT0001")
	require.NoError(t, err)
	assert.Equal(t, a, got)
}

func TestFileRepositoryLoadSkipsBadLines(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "appointments.txt")

	content := "# legacy export\n" +
		"APT0001|jdoe42|D001|2030-01-15|09:00|Fever|120.50|0|0|\n" +
		"\n" +
		"too|few|fields\n" +
		"APT0002|jdoe42|D001|2030-01-15|09:30|Checkup|50.00|2|0|bad paid flag\n" +
		"APT0003|jdoe42|D001|2030-01-15|10:00|Checkup|50.00|1|9|bad status\n" +
		"APT0004|asmith7|D002|2030-01-16|10:00|Follow-up|80.00|1|1|healed\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	repo := NewFileRepository(path)
	appts, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 2)
	assert.Equal(t, "APT0001", appts[0].ID)
	assert.Equal(t, "APT0004", appts[1].ID)
	assert.True(t, appts[1].Paid)
	assert.Equal(t, StatusCompleted, appts[1].Status)
}

func TestFileRepositoryAddDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := tempRepo(t)

	require.NoError(t, repo.Add(ctx, sampleAppt("APT0001")))
	err := repo.Add(ctx, sampleAppt("APT0001"))
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestFileRepositoryUpdateAndRemove(t *testing.T) {
	ctx := context.Background()
	repo := tempRepo(t)

	require.NoError(t, repo.Add(ctx, sampleAppt("APT0001")))

	a := sampleAppt("APT0001")
	a.Status = StatusCancelled
	require.NoError(t, repo.Update(ctx, a))

	got, err := repo.GetByID(ctx, "APT0001")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)

	assert.ErrorIs(t, repo.Update(ctx, sampleAppt("APT0099")), ErrNotFound)

	require.NoError(t, repo.Remove(ctx, "APT0001"))
	_, err = repo.GetByID(ctx, "APT0001")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Remove(ctx, "APT0001"), ErrNotFound)
}

func TestFileRepositorySlotAvailability(t *testing.T) {
	ctx := context.Background()
	repo := tempRepo(t)

	require.NoError(t, repo.Add(ctx, sampleAppt("APT0001")))

	free, err := repo.IsSlotAvailable(ctx, "D001", "2030-01-15", "09:00", "")
	require.NoError(t, err)
	assert.False(t, free)

	// Another doctor, time or date is a different slot.
	free, _ = repo.IsSlotAvailable(ctx, "D002", "2030-01-15", "09:00", "")
	assert.True(t, free)
	free, _ = repo.IsSlotAvailable(ctx, "D001", "2030-01-15", "09:30", "")
	assert.True(t, free)
	free, _ = repo.IsSlotAvailable(ctx, "D001", "2030-01-16", "09:00", "")
	assert.True(t, free)

	// Excluding the occupant itself makes the slot available.
	free, _ = repo.IsSlotAvailable(ctx, "D001", "2030-01-15", "09:00", "APT0001")
	assert.True(t, free)

	// Cancelled appointments free their slot.
	a := sampleAppt("APT0001")
	a.Status = StatusCancelled
	require.NoError(t, repo.Update(ctx, a))
	free, _ = repo.IsSlotAvailable(ctx, "D001", "2030-01-15", "09:00", "")
	assert.True(t, free)
}

func TestFileRepositoryBookedSlots(t *testing.T) {
	ctx := context.Background()
	repo := tempRepo(t)

	first := sampleAppt("APT0001")
	second := sampleAppt("APT0002")
	second.Time = "10:30"
	cancelled := sampleAppt("APT0003")
	cancelled.Time = "11:00"
	cancelled.Status = StatusCancelled

	require.NoError(t, repo.Add(ctx, first))
	require.NoError(t, repo.Add(ctx, second))
	require.NoError(t, repo.Add(ctx, cancelled))

	booked, err := repo.BookedSlots(ctx, "D001", "2030-01-15")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"09:00", "10:30"}, booked)
}

func TestFileRepositoryFilters(t *testing.T) {
	ctx := context.Background()
	repo := tempRepo(t)

	a := sampleAppt("APT0001")
	b := sampleAppt("APT0002")
	b.Date = "2030-01-20"
	b.PatientRef = "asmith7"
	b.DoctorRef = "D002"
	b.Status = StatusCompleted

	require.NoError(t, repo.Add(ctx, a))
	require.NoError(t, repo.Add(ctx, b))

	byDate, _ := repo.GetByDate(ctx, "2030-01-15")
	require.Len(t, byDate, 1)
	assert.Equal(t, "APT0001", byDate[0].ID)

	inRange, _ := repo.GetByDateRange(ctx, "2030-01-14", "2030-01-21")
	assert.Len(t, inRange, 2)
	inRange, _ = repo.GetByDateRange(ctx, "2030-01-16", "2030-01-21")
	assert.Len(t, inRange, 1)

	byDoctor, _ := repo.GetByDoctor(ctx, "D002")
	require.Len(t, byDoctor, 1)
	assert.Equal(t, "APT0002", byDoctor[0].ID)

	byPatient, _ := repo.GetByPatient(ctx, "jdoe42")
	require.Len(t, byPatient, 1)
	assert.Equal(t, "APT0001", byPatient[0].ID)

	byStatus, _ := repo.GetByStatus(ctx, StatusCompleted)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "APT0002", byStatus[0].ID)
}

func TestFileRepositoryNextID(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "appointments.txt")

	repo := NewFileRepository(path)
	id, err := repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "APT0001", id)

	// Gaps and foreign identifiers are ignored; only the maximum counts.
	content := "APT0002|jdoe42|D001|2030-01-15|09:00|Fever|120.50|0|0|\n" +
		"APT0010|jdoe42|D001|2030-01-15|09:30|Fever|120.50|0|0|\n" +
		"LEGACY9|jdoe42|D001|2030-01-15|10:00|Fever|120.50|0|0|\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	repo = NewFileRepository(path)
	id, err = repo.NextID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "APT0011", id)
}

func TestFileRepositoryRollbackOnFailedSave(t *testing.T) {
	ctx := context.Background()
	// The parent directory does not exist, so every save fails.
	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing", "appointments.txt"))

	err := repo.Add(ctx, sampleAppt("APT0001"))
	require.Error(t, err)

	appts, err := repo.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, appts, "failed persist must roll back the in-memory insert")
}

func TestFileRepositorySetPathForcesReload(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first := filepath.Join(dir, "a.txt")
	second := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(first, []byte("APT0001|jdoe42|D001|2030-01-15|09:00|Fever|120.50|0|0|\n"), 0o644))
	require.NoError(t, os.WriteFile(second, []byte("APT0002|asmith7|D002|2030-01-16|10:00|Checkup|80.00|0|0|\n"), 0o644))

	repo := NewFileRepository(first)
	appts, err := repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "APT0001", appts[0].ID)

	repo.SetPath(second)
	appts, err = repo.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, appts, 1)
	assert.Equal(t, "APT0002", appts[0].ID)
}

func TestEncodeRecordSanitizesFreeText(t *testing.T) {
	a := sampleAppt("APT0001")
	a.Reason = "chest|pain\nat night"
	line := encodeRecord(a)

	parsed, err := parseRecord(line)
	require.NoError(t, err)
	assert.Equal(t, "chest/pain at night", parsed.Reason)
}
