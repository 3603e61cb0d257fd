package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type PgRepository struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func NewPgRepository(pool *pgxpool.Pool, timeout time.Duration) *PgRepository {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &PgRepository{pool: pool, timeout: timeout}
}

// Helpers

func (r *PgRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, r.timeout)
}

// storageErr folds transport-level faults into ErrStorageUnavailable while
// keeping sentinel errors intact.
func storageErr(op string, err error) error {
	if errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrAppointmentNotFound) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", ErrStorageUnavailable, op, err)
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var reminderSentAt *time.Time

	err := row.Scan(
		&a.ID,
		&a.DoctorID,
		&a.DoctorName,
		&a.Date,
		&a.Time,
		&a.PatientName,
		&a.PatientPhone,
		&a.RequesterID,
		&a.RequesterHandle,
		&a.Status,
		&a.CreatedAt,
		&reminderSentAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	a.ReminderSentAt = reminderSentAt
	return &a, nil
}

const appointmentColumns = `
	id, doctor_id, doctor_name, visit_date, visit_time,
	patient_name, patient_phone, requester_id, requester_handle,
	status, created_at, reminder_sent_at
`

// Interface methods

func (r *PgRepository) CreateConfirmed(ctx context.Context, appt Appointment) (*Appointment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	id := appt.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (
			id, doctor_id, doctor_name, visit_date, visit_time,
			patient_name, patient_phone, requester_id, requester_handle,
			status, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'confirmed', now())
		RETURNING `+appointmentColumns+`
	`, id, appt.DoctorID, appt.DoctorName, appt.Date, appt.Time,
		appt.PatientName, appt.PatientPhone, appt.RequesterID, appt.RequesterHandle)

	created, err := scanAppointment(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrSlotTaken
		}
		return nil, storageErr("create appointment", err)
	}

	return created, nil
}

func (r *PgRepository) ConfirmedBySlot(ctx context.Context, doctorID string, date time.Time, slot string) (*Appointment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND visit_date = $2 AND visit_time = $3 AND status = 'confirmed'
	`, doctorID, date, slot)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, ErrAppointmentNotFound
		}
		return nil, storageErr("load slot appointment", err)
	}

	return appt, nil
}

func (r *PgRepository) ListForRequester(ctx context.Context, requesterID int64) ([]Appointment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE requester_id = $1
		ORDER BY visit_date, visit_time
	`, requesterID)
	if err != nil {
		return nil, storageErr("list requester appointments", err)
	}
	defer rows.Close()

	return collectAppointments(rows, "list requester appointments")
}

func (r *PgRepository) ListConfirmedForDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE visit_date = $1 AND status = 'confirmed'
		ORDER BY visit_time
	`, date)
	if err != nil {
		return nil, storageErr("list date appointments", err)
	}
	defer rows.Close()

	return collectAppointments(rows, "list date appointments")
}

func collectAppointments(rows pgx.Rows, op string) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, storageErr(op, err)
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, storageErr(op, err)
	}

	return result, nil
}

func (r *PgRepository) Cancel(ctx context.Context, id uuid.UUID, requesterID int64) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET status = 'cancelled'
		WHERE id = $1
		  AND requester_id = $2
		  AND status = 'confirmed'
	`, id, requesterID)
	if err != nil {
		return false, storageErr("cancel appointment", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
		UPDATE appointments
		SET reminder_sent_at = $2
		WHERE id = $1
		  AND reminder_sent_at IS NULL
	`, id, at)
	if err != nil {
		return false, storageErr("mark reminder sent", err)
	}

	return tag.RowsAffected() == 1, nil
}

func (r *PgRepository) UpsertPatient(ctx context.Context, p Patient) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
		INSERT INTO patients (requester_id, name, phone, handle, registered_at, visit_count)
		VALUES ($1, $2, $3, $4, now(), 1)
		ON CONFLICT (requester_id) DO UPDATE
		SET name = EXCLUDED.name,
		    phone = EXCLUDED.phone,
		    handle = EXCLUDED.handle,
		    visit_count = patients.visit_count + 1
	`, p.RequesterID, p.Name, p.Phone, p.Handle)
	if err != nil {
		return storageErr("upsert patient", err)
	}

	return nil
}

func (r *PgRepository) CountConfirmedSince(ctx context.Context, since time.Time) (int, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE status = 'confirmed' AND visit_date >= $1
	`, since).Scan(&n)
	if err != nil {
		return 0, storageErr("count confirmed appointments", err)
	}

	return n, nil
}
