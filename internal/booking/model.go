package booking

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCancelled AppointmentStatus = "cancelled"
)

// Appointment is the durable booking record. Cancellation is logical;
// rows are never deleted.
type Appointment struct {
	ID              uuid.UUID
	DoctorID        string
	DoctorName      string // display name captured at booking time
	Date            time.Time // calendar day, midnight in clinic time
	Time            string    // slot label, e.g. "09:00"
	PatientName     string
	PatientPhone    string
	RequesterID     int64 // Telegram chat id of the booking user
	RequesterHandle string
	Status          AppointmentStatus
	CreatedAt       time.Time
	ReminderSentAt  *time.Time
}

// SlotKey renders the uniqueness key of a confirmed appointment.
func (a Appointment) SlotKey() string {
	return SlotKey(a.DoctorID, a.Date, a.Time)
}

// SlotKey builds the (doctor, date, time) key used for locking and
// duplicate checks.
func SlotKey(doctorID string, date time.Time, slot string) string {
	return doctorID + ":" + date.Format("2006-01-02") + ":" + slot
}

// StartsAt combines the appointment day with its slot label in the
// clinic's timezone. The stored date carries whatever zone the driver
// scanned it in (UTC midnight for a Postgres DATE); only its calendar
// day matters here, the wall clock is the clinic's.
func (a Appointment) StartsAt(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.Parse("15:04", a.Time)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		a.Date.Year(), a.Date.Month(), a.Date.Day(),
		t.Hour(), t.Minute(), 0, 0, loc,
	), nil
}

// Patient is the per-requester aggregate, refreshed on every booking.
type Patient struct {
	RequesterID  int64
	Name         string
	Phone        string
	Handle       string
	RegisteredAt time.Time
	VisitCount   int
}
