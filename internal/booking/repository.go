package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrSlotTaken means a confirmed appointment already holds the slot.
	ErrSlotTaken = errors.New("slot already has a confirmed appointment")

	// ErrStorageUnavailable wraps storage faults (timeouts, connection
	// errors) so the dialogue can tell "pick another time" apart from
	// "try again later".
	ErrStorageUnavailable = errors.New("appointment storage unavailable")

	ErrAppointmentNotFound = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// CreateConfirmed inserts a confirmed appointment. The storage layer
	// keeps a partial unique index on (doctor_id, visit_date, visit_time)
	// for confirmed rows as a backstop behind the slot lock; a collision
	// is reported as ErrSlotTaken.
	CreateConfirmed(ctx context.Context, appt Appointment) (*Appointment, error)

	// ConfirmedBySlot is the in-lock duplicate check.
	ConfirmedBySlot(ctx context.Context, doctorID string, date time.Time, slot string) (*Appointment, error)

	// ListForRequester returns every appointment of a requester,
	// ordered by (date, time) ascending.
	ListForRequester(ctx context.Context, requesterID int64) ([]Appointment, error)

	// ListConfirmedForDate returns confirmed appointments of a day,
	// ordered by time.
	ListConfirmedForDate(ctx context.Context, date time.Time) ([]Appointment, error)

	// Cancel flips confirmed -> cancelled when the appointment belongs to
	// the requester. Returns false otherwise; cancelling an already
	// cancelled appointment is a no-op, not an error.
	Cancel(ctx context.Context, id uuid.UUID, requesterID int64) (bool, error)

	// MarkReminderSent stamps the reminder flag after a successful send.
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	// UpsertPatient refreshes the per-requester aggregate and bumps its
	// visit counter.
	UpsertPatient(ctx context.Context, p Patient) error

	// CountConfirmedSince feeds the staff stats view.
	CountConfirmedSince(ctx context.Context, since time.Time) (int, error)
}
