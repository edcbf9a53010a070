// Package directory supplies the patient and doctor lookups the scheduling
// service depends on. Records are owned by the wider hospital system; this
// package only reads its flat files.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"
)

var ErrDoctorNotFound = errors.New("doctor not found")

const (
	fieldSep      = "|"
	commentPrefix = "#"
)

// readLines returns the non-empty, non-comment lines of a flat file. A
// missing file yields an empty set: the hospital may not have registered
// anyone yet.
func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, commentPrefix) {
			continue
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// FilePatientDirectory answers existence checks against the patients file.
// Record layout: username|name|phone... — only the username is read here.
type FilePatientDirectory struct {
	mu     sync.Mutex
	path   string
	loaded bool
	users  map[string]bool
}

func NewFilePatientDirectory(path string) *FilePatientDirectory {
	return &FilePatientDirectory{path: path}
}

func (d *FilePatientDirectory) load() error {
	if d.loaded {
		return nil
	}
	lines, err := readLines(d.path)
	if err != nil {
		return err
	}
	users := make(map[string]bool, len(lines))
	for i, line := range lines {
		fields := strings.Split(line, fieldSep)
		username := strings.TrimSpace(fields[0])
		if username == "" {
			log.Printf("skipping patient record file=%s line=%d: empty username", d.path, i+1)
			continue
		}
		users[username] = true
	}
	d.users = users
	d.loaded = true
	return nil
}

func (d *FilePatientDirectory) Exists(ctx context.Context, username string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return false, err
	}
	return d.users[username], nil
}

// FileDoctorDirectory answers existence and fee lookups against the doctors
// file. Record layout: id|name|specialty|fee.
type FileDoctorDirectory struct {
	mu     sync.Mutex
	path   string
	loaded bool
	fees   map[string]float64
}

func NewFileDoctorDirectory(path string) *FileDoctorDirectory {
	return &FileDoctorDirectory{path: path}
}

func (d *FileDoctorDirectory) load() error {
	if d.loaded {
		return nil
	}
	lines, err := readLines(d.path)
	if err != nil {
		return err
	}
	fees := make(map[string]float64, len(lines))
	for i, line := range lines {
		fields := strings.Split(line, fieldSep)
		if len(fields) < 4 {
			log.Printf("skipping doctor record file=%s line=%d: expected 4 fields, got %d", d.path, i+1, len(fields))
			continue
		}
		id := strings.TrimSpace(fields[0])
		fee, err := strconv.ParseFloat(fields[3], 64)
		if err != nil || fee < 0 || id == "" {
			log.Printf("skipping doctor record file=%s line=%d: bad id or fee", d.path, i+1)
			continue
		}
		fees[id] = fee
	}
	d.fees = fees
	d.loaded = true
	return nil
}

func (d *FileDoctorDirectory) Exists(ctx context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return false, err
	}
	_, ok := d.fees[id]
	return ok, nil
}

func (d *FileDoctorDirectory) ConsultationFee(ctx context.Context, id string) (float64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.load(); err != nil {
		return 0, err
	}
	fee, ok := d.fees[id]
	if !ok {
		return 0, ErrDoctorNotFound
	}
	return fee, nil
}
