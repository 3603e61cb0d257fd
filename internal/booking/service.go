package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	redisclient "github.com/dentalisa/clinic-booking-bot/internal/redis"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

var (
	ErrUnknownDoctor = errors.New("unknown doctor")
	ErrUnknownSlot   = errors.New("time is not a clinic slot")
)

// BookingRequest carries a completed draft into the store.
type BookingRequest struct {
	DoctorID        string
	Date            time.Time
	Slot            string
	PatientName     string
	PatientPhone    string
	RequesterID     int64
	RequesterHandle string
}

type Service struct {
	repo   Repository
	locker redisclient.Locker
	logger *logging.Logger
}

func NewService(repo Repository, locker redisclient.Locker, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		repo:   repo,
		locker: locker,
		logger: logger,
	}
}

// Book creates a confirmed appointment. A distributed lock per
// (doctor, date, time) serializes the duplicate check and the insert, so
// two patients racing for one slot cannot both succeed. Losing the race
// is reported as ErrSlotTaken either way: a held lock means the rival is
// about to confirm the slot.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*Appointment, error) {
	doctor, ok := catalog.DoctorByID(req.DoctorID)
	if !ok {
		return nil, ErrUnknownDoctor
	}
	if !catalog.ValidSlot(req.Slot) {
		return nil, ErrUnknownSlot
	}

	date := catalog.DateOnly(req.Date)
	slotKey := SlotKey(req.DoctorID, date, req.Slot)

	var created *Appointment

	err := s.locker.WithSlotLock(ctx, slotKey, func(lockCtx context.Context) error {
		existing, err := s.repo.ConfirmedBySlot(lockCtx, req.DoctorID, date, req.Slot)
		if err != nil && !errors.Is(err, ErrAppointmentNotFound) {
			return fmt.Errorf("check confirmed appointment: %w", err)
		}
		if existing != nil {
			return ErrSlotTaken
		}

		appt, err := s.repo.CreateConfirmed(lockCtx, Appointment{
			DoctorID:        req.DoctorID,
			DoctorName:      doctor.DisplayName(),
			Date:            date,
			Time:            req.Slot,
			PatientName:     req.PatientName,
			PatientPhone:    req.PatientPhone,
			RequesterID:     req.RequesterID,
			RequesterHandle: req.RequesterHandle,
		})
		if err != nil {
			return err
		}

		created = appt
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	// The patient aggregate is an enrichment; a failed upsert must not
	// undo a persisted booking.
	if err := s.repo.UpsertPatient(ctx, Patient{
		RequesterID: req.RequesterID,
		Name:        req.PatientName,
		Phone:       req.PatientPhone,
		Handle:      req.RequesterHandle,
	}); err != nil {
		s.logger.Warn("patient upsert failed", "requester_id", req.RequesterID, "error", err)
	}

	s.logger.Info("appointment booked",
		"appointment_id", created.ID,
		"doctor_id", created.DoctorID,
		"date", created.Date.Format(catalog.DateLayout),
		"time", created.Time,
		"requester_id", created.RequesterID,
	)

	return created, nil
}

// AvailableSlots returns the catalog minus slots already confirmed for the
// doctor on that day, in catalog order. When the store is unreachable the
// full catalog is returned so the user-facing flow keeps working; the
// booking itself still goes through the race guard.
func (s *Service) AvailableSlots(ctx context.Context, doctorID string, date time.Time) []string {
	day := catalog.DateOnly(date)

	appts, err := s.repo.ListConfirmedForDate(ctx, day)
	if err != nil {
		s.logger.Warn("availability degraded to full catalog",
			"doctor_id", doctorID,
			"date", day.Format(catalog.DateLayout),
			"error", err,
		)
		return catalog.Slots()
	}

	taken := make(map[string]struct{}, len(appts))
	for _, a := range appts {
		if a.DoctorID == doctorID {
			taken[a.Time] = struct{}{}
		}
	}

	var free []string
	for _, slot := range catalog.Slots() {
		if _, busy := taken[slot]; !busy {
			free = append(free, slot)
		}
	}
	return free
}

// Cancel releases a slot. Only the owning requester can cancel, and only a
// confirmed appointment; everything else is a no-op returning false.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, requesterID int64) (bool, error) {
	ok, err := s.repo.Cancel(ctx, id, requesterID)
	if err != nil {
		return false, err
	}
	if ok {
		s.logger.Info("appointment cancelled", "appointment_id", id, "requester_id", requesterID)
	}
	return ok, nil
}

func (s *Service) ListForRequester(ctx context.Context, requesterID int64) ([]Appointment, error) {
	return s.repo.ListForRequester(ctx, requesterID)
}

func (s *Service) ListConfirmedForDate(ctx context.Context, date time.Time) ([]Appointment, error) {
	return s.repo.ListConfirmedForDate(ctx, catalog.DateOnly(date))
}

func (s *Service) CountConfirmedSince(ctx context.Context, since time.Time) (int, error) {
	return s.repo.CountConfirmedSince(ctx, since)
}
