package appointment

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

const (
	fieldSep      = "|"
	fieldCount    = 10
	commentPrefix = "#"
	idPrefix      = "APT"
)

// FileRepository stores appointments in a newline-delimited flat file, one
// pipe-separated record per line:
//
//	id|patientRef|doctorRef|date|time|reason|price|paid|status|notes
//
// The file is loaded lazily on first access and rewritten in full on every
// mutation. All operations serialize on a single mutex; the check-then-mutate
// sequences above this repository are guarded by the service's slot lock.
type FileRepository struct {
	mu     sync.Mutex
	path   string
	loaded bool
	appts  []*Appointment
}

func NewFileRepository(path string) *FileRepository {
	return &FileRepository{path: path}
}

// SetPath switches the backing file and forces a reload on next access.
func (r *FileRepository) SetPath(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.path = path
	r.loaded = false
	r.appts = nil
}

// load populates the in-memory set from the backing file. A missing file is
// an empty store. Unparseable lines are skipped with a warning; they never
// abort the load.
func (r *FileRepository) load() error {
	if r.loaded {
		return nil
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.appts = nil
			r.loaded = true
			return nil
		}
		return fmt.Errorf("read %s: %w", r.path, err)
	}

	var appts []*Appointment
	for i, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		appt, err := parseRecord(line)
		if err != nil {
			log.Printf("skipping appointment record file=%s line=%d: %v", r.path, i+1, err)
			continue
		}
		appts = append(appts, appt)
	}

	r.appts = appts
	r.loaded = true
	return nil
}

// save rewrites the whole file from the in-memory set. The write goes to a
// temp file in the same directory followed by a rename, so a crash mid-write
// cannot leave a half-written store behind.
func (r *FileRepository) save() error {
	var b strings.Builder
	for _, appt := range r.appts {
		b.WriteString(encodeRecord(appt))
		b.WriteByte('\n')
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(b.String()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename %s: %w", tmpName, err)
	}
	return nil
}

func encodeRecord(a *Appointment) string {
	fields := []string{
		a.ID,
		sanitizeField(a.PatientRef),
		sanitizeField(a.DoctorRef),
		a.Date,
		a.Time,
		sanitizeField(a.Reason),
		strconv.FormatFloat(a.Price, 'f', 2, 64),
		boolFlag(a.Paid),
		strconv.Itoa(int(a.Status)),
		sanitizeField(a.Notes),
	}
	return strings.Join(fields, fieldSep)
}

func parseRecord(line string) (*Appointment, error) {
	fields := strings.Split(line, fieldSep)
	if len(fields) < fieldCount {
		return nil, fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}

	price, err := strconv.ParseFloat(fields[6], 64)
	if err != nil {
		return nil, fmt.Errorf("bad price %q: %w", fields[6], err)
	}
	if price < 0 {
		return nil, fmt.Errorf("negative price %q", fields[6])
	}

	var paid bool
	switch fields[7] {
	case "0":
		paid = false
	case "1":
		paid = true
	default:
		return nil, fmt.Errorf("bad paid flag %q", fields[7])
	}

	code, err := strconv.Atoi(fields[8])
	if err != nil {
		return nil, fmt.Errorf("bad status code %q: %w", fields[8], err)
	}
	status, err := ParseStatus(code)
	if err != nil {
		return nil, err
	}

	return &Appointment{
		ID:         fields[0],
		PatientRef: fields[1],
		DoctorRef:  fields[2],
		Date:       fields[3],
		Time:       fields[4],
		Reason:     fields[5],
		Price:      price,
		Paid:       paid,
		Status:     status,
		Notes:      strings.Join(fields[9:], fieldSep),
	}, nil
}

// sanitizeField keeps the record format intact: the flat file has no escape
// mechanism, so separators and newlines in free text are flattened.
func sanitizeField(s string) string {
	s = strings.ReplaceAll(s, fieldSep, "/")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "\r", " ")
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func (r *FileRepository) indexOf(id string) int {
	for i, a := range r.appts {
		if a.ID == id {
			return i
		}
	}
	return -1
}

func (r *FileRepository) GetAll(ctx context.Context) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	out := make([]Appointment, 0, len(r.appts))
	for _, a := range r.appts {
		out = append(out, *a)
	}
	return out, nil
}

func (r *FileRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	i := r.indexOf(id)
	if i < 0 {
		return nil, ErrNotFound
	}
	return r.appts[i].Clone(), nil
}

// Add inserts a new appointment and persists the set. If the write fails the
// insert is rolled back, so memory never diverges from disk.
func (r *FileRepository) Add(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return err
	}
	if r.indexOf(appt.ID) >= 0 {
		return ErrDuplicateID
	}
	r.appts = append(r.appts, appt.Clone())
	if err := r.save(); err != nil {
		r.appts = r.appts[:len(r.appts)-1]
		return fmt.Errorf("persist appointment %s: %w", appt.ID, err)
	}
	return nil
}

// Update replaces the stored record in place and persists, rolling back on a
// failed write.
func (r *FileRepository) Update(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return err
	}
	i := r.indexOf(appt.ID)
	if i < 0 {
		return ErrNotFound
	}
	prev := r.appts[i]
	r.appts[i] = appt.Clone()
	if err := r.save(); err != nil {
		r.appts[i] = prev
		return fmt.Errorf("persist appointment %s: %w", appt.ID, err)
	}
	return nil
}

// Remove deletes the record and persists, rolling back on a failed write.
func (r *FileRepository) Remove(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return err
	}
	i := r.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	removed := r.appts[i]
	r.appts = append(r.appts[:i], r.appts[i+1:]...)
	if err := r.save(); err != nil {
		r.appts = append(r.appts[:i], append([]*Appointment{removed}, r.appts[i:]...)...)
		return fmt.Errorf("persist after removing %s: %w", id, err)
	}
	return nil
}

func (r *FileRepository) IsSlotAvailable(ctx context.Context, doctorRef, date, timeOfDay, excludeID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return false, err
	}
	for _, a := range r.appts {
		if a.ID == excludeID {
			continue
		}
		if a.Status == StatusScheduled && a.DoctorRef == doctorRef && a.Date == date && a.Time == timeOfDay {
			return false, nil
		}
	}
	return true, nil
}

func (r *FileRepository) BookedSlots(ctx context.Context, doctorRef, date string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	var times []string
	for _, a := range r.appts {
		if a.Status == StatusScheduled && a.DoctorRef == doctorRef && a.Date == date {
			times = append(times, a.Time)
		}
	}
	return times, nil
}

func (r *FileRepository) filter(keep func(*Appointment) bool) ([]Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return nil, err
	}
	var out []Appointment
	for _, a := range r.appts {
		if keep(a) {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *FileRepository) GetByDate(ctx context.Context, date string) ([]Appointment, error) {
	return r.filter(func(a *Appointment) bool { return a.Date == date })
}

func (r *FileRepository) GetByDateRange(ctx context.Context, from, to string) ([]Appointment, error) {
	return r.filter(func(a *Appointment) bool { return a.Date >= from && a.Date <= to })
}

func (r *FileRepository) GetByDoctor(ctx context.Context, doctorRef string) ([]Appointment, error) {
	return r.filter(func(a *Appointment) bool { return a.DoctorRef == doctorRef })
}

func (r *FileRepository) GetByPatient(ctx context.Context, patientRef string) ([]Appointment, error) {
	return r.filter(func(a *Appointment) bool { return a.PatientRef == patientRef })
}

func (r *FileRepository) GetByStatus(ctx context.Context, status Status) ([]Appointment, error) {
	return r.filter(func(a *Appointment) bool { return a.Status == status })
}

// NextID scans existing APT<n> identifiers and returns one past the highest.
// IDs not matching the pattern are ignored.
func (r *FileRepository) NextID(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.load(); err != nil {
		return "", err
	}
	max := 0
	for _, a := range r.appts {
		if n, ok := parseIDNumber(a.ID); ok && n > max {
			max = n
		}
	}
	return FormatID(max + 1), nil
}

// FormatID renders the canonical zero-padded appointment identifier.
func FormatID(n int) string {
	return fmt.Sprintf("%s%04d", idPrefix, n)
}

func parseIDNumber(id string) (int, bool) {
	rest, ok := strings.CutPrefix(id, idPrefix)
	if !ok || rest == "" {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
