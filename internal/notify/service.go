package notify

import (
	"context"
	"fmt"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	"github.com/dentalisa/clinic-booking-bot/internal/telegram"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

// Sender is the outbound slice of the messaging gateway.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
}

// Service fans new-booking alerts out to the clinic staff.
type Service struct {
	sender   Sender
	adminIDs []int64
	logger   *logging.Logger
}

func NewService(sender Sender, adminIDs []int64, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender:   sender,
		adminIDs: adminIDs,
		logger:   logger,
	}
}

// BookingConfirmed pushes a copy of the booking details to every staff
// recipient. One unreachable admin must not fail the booking or the
// remaining recipients, so failures are logged and skipped.
func (s *Service) BookingConfirmed(ctx context.Context, appt *booking.Appointment) {
	if appt == nil {
		return
	}

	text := staffAlertText(appt)

	for _, adminID := range s.adminIDs {
		if err := s.sender.Send(ctx, adminID, text, nil); err != nil {
			s.logger.Error("staff alert failed",
				"admin_id", adminID,
				"appointment_id", appt.ID,
				"error", err,
			)
		}
	}
}

func staffAlertText(appt *booking.Appointment) string {
	handle := appt.RequesterHandle
	if handle == "" {
		handle = "не указан"
	}

	return fmt.Sprintf(
		"🔔 НОВАЯ ЗАПИСЬ!\n\n"+
			"📅 Дата: %s\n🕐 Время: %s\n👨‍⚕️ Врач: %s\n"+
			"👤 Пациент: %s\n📞 Телефон: %s\n🆔 Chat ID: %d\n👤 Username: @%s",
		appt.Date.Format(catalog.DateLayout), appt.Time, appt.DoctorName,
		appt.PatientName, appt.PatientPhone, appt.RequesterID, handle,
	)
}
