package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	"github.com/dentalisa/clinic-booking-bot/internal/telegram"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

// Pre-visit reminders go out when the appointment starts within this
// window. Overlapping ticks are deduplicated only by the reminder flag,
// which is written after a successful send: a crash in between may repeat
// a reminder, never lose one silently.
const (
	windowMin = 90 * time.Minute
	windowMax = 150 * time.Minute
)

// Store is the slice of the appointment store the dispatcher reads.
type Store interface {
	ListConfirmedForDate(ctx context.Context, date time.Time) ([]booking.Appointment, error)
	MarkReminderSent(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
}

// Sender delivers the reminder message.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
}

// Dispatcher periodically scans today's appointments and reminds patients
// whose visit is 1.5 to 2.5 hours away.
type Dispatcher struct {
	store  Store
	sender Sender

	clinicAddress string
	clinicPhone   string
	loc           *time.Location // clinic wall clock; slot labels live here

	logger *logging.Logger
	now    func() time.Time
}

func NewDispatcher(store Store, sender Sender, clinicAddress, clinicPhone string, loc *time.Location, logger *logging.Logger) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{
		store:         store,
		sender:        sender,
		clinicAddress: clinicAddress,
		clinicPhone:   clinicPhone,
		loc:           loc,
		logger:        logger,
		now:           time.Now,
	}
}

// Run ticks until ctx is done, with one pass up front.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	d.runOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.runOnce(ctx)
		}
	}
}

func (d *Dispatcher) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	start := time.Now()
	sent, err := d.RunOnce(runCtx)
	if err != nil {
		d.logger.Error("reminder run failed", "error", err)
		return
	}
	d.logger.Info("reminder run complete", "sent", sent, "duration", time.Since(start).String())
}

// RunOnce processes one pass and returns how many reminders went out.
// A failure on one appointment is logged and never blocks the rest.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	now := d.now().In(d.loc)

	appts, err := d.store.ListConfirmedForDate(ctx, catalog.DateOnly(now))
	if err != nil {
		return 0, fmt.Errorf("load today's appointments: %w", err)
	}

	sent := 0
	for _, appt := range appts {
		if appt.ReminderSentAt != nil {
			continue
		}

		startsAt, err := appt.StartsAt(d.loc)
		if err != nil {
			d.logger.Warn("unparseable slot label", "appointment_id", appt.ID, "time", appt.Time)
			continue
		}

		until := startsAt.Sub(now)
		if until < windowMin || until > windowMax {
			continue
		}

		if err := d.sender.Send(ctx, appt.RequesterID, d.reminderText(appt), nil); err != nil {
			d.logger.Error("reminder send failed",
				"appointment_id", appt.ID,
				"requester_id", appt.RequesterID,
				"error", err,
			)
			continue
		}

		// Flag only after the send succeeded; see the window comment.
		if _, err := d.store.MarkReminderSent(ctx, appt.ID, now); err != nil {
			d.logger.Error("mark reminder sent failed", "appointment_id", appt.ID, "error", err)
			continue
		}

		sent++
	}

	return sent, nil
}

func (d *Dispatcher) reminderText(appt booking.Appointment) string {
	return fmt.Sprintf(
		"🦷 Напоминание о приеме!\n\n"+
			"Здравствуйте, %s!\n\n"+
			"Напоминаем, что вы записаны к стоматологу сегодня.\n"+
			"🕐 Время: %s\n👨‍⚕️ Врач: %s\n\n"+
			"📍 Адрес: %s\n📞 Телефон для связи: %s\n\n"+
			"Пожалуйста, не опаздывайте. Если нужно отменить или перенести запись, свяжитесь с нами.",
		appt.PatientName, appt.Time, appt.DoctorName, d.clinicAddress, d.clinicPhone,
	)
}
