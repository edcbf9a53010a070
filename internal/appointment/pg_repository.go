package appointment

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgRepository implements the Repository contract on Postgres. It exists for
// deployments where several processes share one store; the flat file remains
// the default backend.
//
// Expected schema:
//
//	CREATE TABLE appointments (
//	    id          text PRIMARY KEY,
//	    patient_ref text NOT NULL,
//	    doctor_ref  text NOT NULL,
//	    visit_date  text NOT NULL,
//	    visit_time  text NOT NULL,
//	    reason      text NOT NULL,
//	    price       double precision NOT NULL,
//	    paid        boolean NOT NULL DEFAULT false,
//	    status      integer NOT NULL DEFAULT 0,
//	    notes       text NOT NULL DEFAULT ''
//	);
type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const apptColumns = "id, patient_ref, doctor_ref, visit_date, visit_time, reason, price, paid, status, notes"

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var status int

	err := row.Scan(
		&a.ID,
		&a.PatientRef,
		&a.DoctorRef,
		&a.Date,
		&a.Time,
		&a.Reason,
		&a.Price,
		&a.Paid,
		&status,
		&a.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	a.Status, err = ParseStatus(status)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *PgRepository) collect(ctx context.Context, query string, args ...any) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetAll(ctx context.Context) ([]Appointment, error) {
	return r.collect(ctx, `SELECT `+apptColumns+` FROM appointments ORDER BY id`)
}

func (r *PgRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+apptColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

func (r *PgRepository) Add(ctx context.Context, appt *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO appointments (`+apptColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`, appt.ID, appt.PatientRef, appt.DoctorRef, appt.Date, appt.Time,
		appt.Reason, appt.Price, appt.Paid, int(appt.Status), appt.Notes)
	if err != nil {
		return fmt.Errorf("insert appointment %s: %w", appt.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicateID
	}
	return nil
}

func (r *PgRepository) Update(ctx context.Context, appt *Appointment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET patient_ref = $2,
		    doctor_ref = $3,
		    visit_date = $4,
		    visit_time = $5,
		    reason = $6,
		    price = $7,
		    paid = $8,
		    status = $9,
		    notes = $10
		WHERE id = $1
	`, appt.ID, appt.PatientRef, appt.DoctorRef, appt.Date, appt.Time,
		appt.Reason, appt.Price, appt.Paid, int(appt.Status), appt.Notes)
	if err != nil {
		return fmt.Errorf("update appointment %s: %w", appt.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) Remove(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete appointment %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) IsSlotAvailable(ctx context.Context, doctorRef, date, timeOfDay, excludeID string) (bool, error) {
	var occupied bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE doctor_ref = $1
			  AND visit_date = $2
			  AND visit_time = $3
			  AND status = $4
			  AND id <> $5
		)
	`, doctorRef, date, timeOfDay, int(StatusScheduled), excludeID).Scan(&occupied)
	if err != nil {
		return false, err
	}
	return !occupied, nil
}

func (r *PgRepository) BookedSlots(ctx context.Context, doctorRef, date string) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT visit_time FROM appointments
		WHERE doctor_ref = $1 AND visit_date = $2 AND status = $3
		ORDER BY visit_time
	`, doctorRef, date, int(StatusScheduled))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var times []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		times = append(times, t)
	}
	return times, rows.Err()
}

func (r *PgRepository) GetByDate(ctx context.Context, date string) ([]Appointment, error) {
	return r.collect(ctx, `SELECT `+apptColumns+` FROM appointments WHERE visit_date = $1 ORDER BY visit_time`, date)
}

func (r *PgRepository) GetByDateRange(ctx context.Context, from, to string) ([]Appointment, error) {
	return r.collect(ctx, `
		SELECT `+apptColumns+` FROM appointments
		WHERE visit_date >= $1 AND visit_date <= $2
		ORDER BY visit_date, visit_time
	`, from, to)
}

func (r *PgRepository) GetByDoctor(ctx context.Context, doctorRef string) ([]Appointment, error) {
	return r.collect(ctx, `
		SELECT `+apptColumns+` FROM appointments
		WHERE doctor_ref = $1
		ORDER BY visit_date, visit_time
	`, doctorRef)
}

func (r *PgRepository) GetByPatient(ctx context.Context, patientRef string) ([]Appointment, error) {
	return r.collect(ctx, `
		SELECT `+apptColumns+` FROM appointments
		WHERE patient_ref = $1
		ORDER BY visit_date, visit_time
	`, patientRef)
}

func (r *PgRepository) GetByStatus(ctx context.Context, status Status) ([]Appointment, error) {
	return r.collect(ctx, `SELECT `+apptColumns+` FROM appointments WHERE status = $1 ORDER BY id`, int(status))
}

func (r *PgRepository) NextID(ctx context.Context) (string, error) {
	var max int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(substring(id from 4) AS integer)), 0)
		FROM appointments
		WHERE id ~ '^APT[0-9]+$'
	`).Scan(&max)
	if err != nil {
		return "", fmt.Errorf("scan appointment ids: %w", err)
	}
	return FormatID(max + 1), nil
}
