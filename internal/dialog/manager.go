package dialog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	"github.com/dentalisa/clinic-booking-bot/internal/telegram"
	"github.com/dentalisa/clinic-booking-bot/pkg/logging"
)

// Gateway is the slice of the messaging transport the dialogue needs.
type Gateway interface {
	Send(ctx context.Context, chatID int64, text string, keyboard *telegram.InlineKeyboardMarkup) error
	Edit(ctx context.Context, chatID int64, messageID int, text string, keyboard *telegram.InlineKeyboardMarkup) error
	AnswerCallback(ctx context.Context, callbackID string) error
}

// BookingService is the slice of the booking layer the dialogue needs.
type BookingService interface {
	Book(ctx context.Context, req booking.BookingRequest) (*booking.Appointment, error)
	AvailableSlots(ctx context.Context, doctorID string, date time.Time) []string
	Cancel(ctx context.Context, id uuid.UUID, requesterID int64) (bool, error)
	ListForRequester(ctx context.Context, requesterID int64) ([]booking.Appointment, error)
	ListConfirmedForDate(ctx context.Context, date time.Time) ([]booking.Appointment, error)
	CountConfirmedSince(ctx context.Context, since time.Time) (int, error)
}

// Notifier fans a finished booking out to the patient's confirmation and
// the staff alert channel.
type Notifier interface {
	BookingConfirmed(ctx context.Context, appt *booking.Appointment)
}

// Manager drives the booking wizard and the static menu screens.
type Manager struct {
	gateway  Gateway
	bookings BookingService
	notifier Notifier
	drafts   *DraftStore
	isAdmin  func(chatID int64) bool

	clinicAddress string
	clinicPhone   string

	// Updates from one chat run strictly in order even though the poller
	// hands each update to its own goroutine; a draft is only ever
	// touched under its chat's lock.
	chatMu    sync.Mutex
	chatLocks map[int64]*sync.Mutex

	logger *logging.Logger
	now    func() time.Time
}

type ManagerOptions struct {
	Gateway       Gateway
	Bookings      BookingService
	Notifier      Notifier
	IsAdmin       func(chatID int64) bool
	ClinicAddress string
	ClinicPhone   string
	Logger        *logging.Logger
}

func NewManager(opts ManagerOptions) *Manager {
	logger := opts.Logger
	if logger == nil {
		logger = logging.Default()
	}
	isAdmin := opts.IsAdmin
	if isAdmin == nil {
		isAdmin = func(int64) bool { return false }
	}
	return &Manager{
		gateway:       opts.Gateway,
		bookings:      opts.Bookings,
		notifier:      opts.Notifier,
		drafts:        NewDraftStore(),
		isAdmin:       isAdmin,
		clinicAddress: opts.ClinicAddress,
		clinicPhone:   opts.ClinicPhone,
		chatLocks:     make(map[int64]*sync.Mutex),
		logger:        logger,
		now:           time.Now,
	}
}

// Drafts exposes the draft store for the sweeper.
func (m *Manager) Drafts() *DraftStore {
	return m.drafts
}

// HandleUpdate is the event boundary: one malformed update must never take
// the process down or touch another user's conversation.
func (m *Manager) HandleUpdate(ctx context.Context, upd telegram.Update) {
	chatID := updateChatID(upd)

	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("update handler panicked", "chat_id", chatID, "panic", r)
			if chatID != 0 {
				_ = m.gateway.Send(ctx, chatID, textEventFailed, nil)
			}
		}
	}()

	if chatID != 0 {
		unlock := m.lockChat(chatID)
		defer unlock()
	}

	switch {
	case upd.CallbackQuery != nil:
		m.handleCallback(ctx, chatID, upd.CallbackQuery)
	case upd.Message != nil && upd.Message.Text != "":
		m.handleMessage(ctx, upd.Message)
	}
}

func updateChatID(upd telegram.Update) int64 {
	switch {
	case upd.CallbackQuery != nil:
		if upd.CallbackQuery.Message != nil {
			return upd.CallbackQuery.Message.Chat.ID
		}
		return upd.CallbackQuery.From.ID
	case upd.Message != nil:
		return upd.Message.Chat.ID
	}
	return 0
}

// lockChat takes the per-conversation lock, creating it on first contact.
func (m *Manager) lockChat(chatID int64) func() {
	m.chatMu.Lock()
	l, ok := m.chatLocks[chatID]
	if !ok {
		l = &sync.Mutex{}
		m.chatLocks[chatID] = l
	}
	m.chatMu.Unlock()

	l.Lock()
	return l.Unlock
}

// --- inbound text ---

func (m *Manager) handleMessage(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	if strings.HasPrefix(text, "/") {
		m.handleCommand(ctx, chatID, msg, text)
		return
	}

	draft, ok := m.drafts.Get(chatID)
	if !ok {
		m.send(ctx, chatID, textMainMenu, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	switch draft.State {
	case StateGettingName:
		m.handleName(ctx, chatID, draft, text)
	case StateGettingPhone:
		m.handlePhone(ctx, chatID, draft, msg, text)
	default:
		// Mid-wizard free text: the buttons drive these states.
		m.send(ctx, chatID, textMainMenu, mainMenuKeyboard(m.isAdmin(chatID)))
	}
}

func (m *Manager) handleCommand(ctx context.Context, chatID int64, msg *telegram.Message, text string) {
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")

	switch cmd {
	case "/start":
		m.drafts.Discard(chatID)
		var firstName string
		if msg.From != nil {
			firstName = msg.From.FirstName
		}
		m.send(ctx, chatID, welcomeText(firstName), mainMenuKeyboard(m.isAdmin(chatID)))
	case "/help":
		m.send(ctx, chatID, helpText(m.clinicPhone), mainMenuKeyboard(m.isAdmin(chatID)))
	case "/cancel":
		m.drafts.Discard(chatID)
		m.send(ctx, chatID, textBookingAborted, mainMenuKeyboard(m.isAdmin(chatID)))
	default:
		m.send(ctx, chatID, helpText(m.clinicPhone), mainMenuKeyboard(m.isAdmin(chatID)))
	}
}

func (m *Manager) handleName(ctx context.Context, chatID int64, draft *Draft, text string) {
	name, err := ValidateName(text)
	if err != nil {
		reason := textNameTooShort
		if errors.Is(err, ErrNameHasDigits) {
			reason = textNameHasDigits
		}
		m.send(ctx, chatID, reason, nil)
		return
	}

	draft.PatientName = name
	draft.State = StateGettingPhone
	m.send(ctx, chatID, askPhoneText(name), nil)
}

func (m *Manager) handlePhone(ctx context.Context, chatID int64, draft *Draft, msg *telegram.Message, text string) {
	phone, err := NormalizePhone(text)
	if err != nil {
		m.send(ctx, chatID, textBadPhone, nil)
		return
	}

	var handle string
	if msg.From != nil {
		handle = msg.From.Username
	}

	appt, err := m.bookings.Book(ctx, booking.BookingRequest{
		DoctorID:        draft.DoctorID,
		Date:            draft.Date,
		Slot:            draft.Slot,
		PatientName:     draft.PatientName,
		PatientPhone:    phone,
		RequesterID:     chatID,
		RequesterHandle: handle,
	})

	// The conversation ends here either way; the draft is done.
	m.drafts.Discard(chatID)

	switch {
	case err == nil:
		m.send(ctx, chatID, bookedText(appt), mainMenuKeyboard(m.isAdmin(chatID)))
		if m.notifier != nil {
			m.notifier.BookingConfirmed(ctx, appt)
		}
	case errors.Is(err, booking.ErrSlotTaken):
		m.send(ctx, chatID, textSlotJustTaken, mainMenuKeyboard(m.isAdmin(chatID)))
	default:
		m.logger.Error("booking failed", "chat_id", chatID, "error", err)
		m.send(ctx, chatID, textStorageDown, mainMenuKeyboard(m.isAdmin(chatID)))
	}
}

// --- inbound buttons ---

func (m *Manager) handleCallback(ctx context.Context, chatID int64, cq *telegram.CallbackQuery) {
	// Best effort; a failed ack only leaves the client spinner running.
	_ = m.gateway.AnswerCallback(ctx, cq.ID)

	messageID := 0
	if cq.Message != nil {
		messageID = cq.Message.MessageID
	}

	cb, ok := DecodeCallback(cq.Data)
	if !ok {
		m.logger.Warn("malformed callback token", "chat_id", chatID, "data", cq.Data)
		m.respond(ctx, chatID, messageID, textUnknownAction, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	switch cb.Kind {
	case KindMenu:
		m.drafts.Discard(chatID)
		m.respond(ctx, chatID, messageID, textMainMenu, mainMenuKeyboard(m.isAdmin(chatID)))

	case KindBook:
		m.drafts.Begin(chatID)
		m.respond(ctx, chatID, messageID, textChooseDoctor, doctorsKeyboard())

	case KindDoctor:
		m.selectDoctor(ctx, chatID, messageID, cb.Arg)

	case KindDate:
		m.selectDate(ctx, chatID, messageID, cb.Arg)

	case KindTime:
		m.selectTime(ctx, chatID, messageID, cb.Arg)

	case KindConfirm:
		m.confirmDraft(ctx, chatID, messageID)

	case KindAbort:
		m.drafts.Discard(chatID)
		m.respond(ctx, chatID, messageID, textBookingAborted, mainMenuKeyboard(m.isAdmin(chatID)))

	case KindBackDoctors:
		if draft, ok := m.drafts.Get(chatID); ok {
			draft.State = StateSelectingDoctor
		}
		m.respond(ctx, chatID, messageID, textChooseDoctor, doctorsKeyboard())

	case KindBackDates:
		if draft, ok := m.drafts.Get(chatID); ok {
			draft.State = StateSelectingDate
		}
		m.respond(ctx, chatID, messageID, textChooseDate, datesKeyboard(m.now()))

	case KindBackTimes:
		m.backToTimes(ctx, chatID, messageID)

	case KindDoctors:
		m.respond(ctx, chatID, messageID, doctorsListText(), backToMenuKeyboard())

	case KindFAQ:
		m.respond(ctx, chatID, messageID, "❓ Часто задаваемые вопросы\n\nВыберите интересующий вас вопрос:", faqKeyboard())

	case KindFAQItem:
		m.showFAQItem(ctx, chatID, messageID, cb.Arg)

	case KindAbout:
		m.respond(ctx, chatID, messageID, aboutText(m.clinicAddress), backToMenuKeyboard())

	case KindContacts:
		m.respond(ctx, chatID, messageID, contactsText(m.clinicAddress, m.clinicPhone), backToMenuKeyboard())

	case KindPrices:
		m.respond(ctx, chatID, messageID, pricesText(), backToMenuKeyboard())

	case KindMy:
		m.showMyAppointments(ctx, chatID, messageID)

	case KindCancelAppt:
		m.cancelAppointment(ctx, chatID, messageID, cb.Arg)

	case KindAdmin:
		if !m.requireAdmin(ctx, chatID, messageID) {
			return
		}
		m.respond(ctx, chatID, messageID, "🔧 Админ-панель", adminKeyboard())

	case KindAdminStat:
		m.showAdminStats(ctx, chatID, messageID)

	case KindAdminDay:
		m.showAdminToday(ctx, chatID, messageID)
	}
}

func (m *Manager) selectDoctor(ctx context.Context, chatID int64, messageID int, doctorID string) {
	doctor, ok := catalog.DoctorByID(doctorID)
	if !ok {
		m.respond(ctx, chatID, messageID, textUnknownAction, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	draft, ok := m.drafts.Get(chatID)
	if !ok {
		draft = m.drafts.Begin(chatID)
	}
	draft.DoctorID = doctor.ID
	draft.DoctorName = doctor.DisplayName()
	draft.State = StateSelectingDate

	m.respond(ctx, chatID, messageID, doctorChosenText(doctor), datesKeyboard(m.now()))
}

func (m *Manager) selectDate(ctx context.Context, chatID int64, messageID int, value string) {
	draft, ok := m.drafts.Get(chatID)
	if !ok || draft.DoctorID == "" {
		m.respond(ctx, chatID, messageID, textMainMenu, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	date, ok := catalog.ValidDate(value, m.now())
	if !ok {
		m.respond(ctx, chatID, messageID, textChooseDate, datesKeyboard(m.now()))
		return
	}

	free := m.bookings.AvailableSlots(ctx, draft.DoctorID, date)
	if len(free) == 0 {
		// Stay on the date step until a day with open slots is picked.
		m.respond(ctx, chatID, messageID, textNoSlots, datesKeyboard(m.now()))
		return
	}

	draft.Date = date
	draft.State = StateSelectingTime
	m.respond(ctx, chatID, messageID, timesText(draft), timesKeyboard(free))
}

func (m *Manager) selectTime(ctx context.Context, chatID int64, messageID int, slot string) {
	draft, ok := m.drafts.Get(chatID)
	if !ok || draft.DoctorID == "" || !draft.HasDate() {
		m.respond(ctx, chatID, messageID, textMainMenu, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	if !catalog.ValidSlot(slot) {
		free := m.bookings.AvailableSlots(ctx, draft.DoctorID, draft.Date)
		m.respond(ctx, chatID, messageID, timesText(draft), timesKeyboard(free))
		return
	}

	draft.Slot = slot
	draft.State = StateConfirming
	m.respond(ctx, chatID, messageID, confirmText(draft), confirmKeyboard())
}

func (m *Manager) confirmDraft(ctx context.Context, chatID int64, messageID int) {
	draft, ok := m.drafts.Get(chatID)
	if !ok || draft.DoctorID == "" || !draft.HasDate() || draft.Slot == "" {
		m.respond(ctx, chatID, messageID, textMainMenu, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	draft.State = StateGettingName
	m.respond(ctx, chatID, messageID, textAskName, nil)
}

func (m *Manager) backToTimes(ctx context.Context, chatID int64, messageID int) {
	draft, ok := m.drafts.Get(chatID)
	if !ok || draft.DoctorID == "" || !draft.HasDate() {
		m.respond(ctx, chatID, messageID, textMainMenu, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	draft.State = StateSelectingTime
	free := m.bookings.AvailableSlots(ctx, draft.DoctorID, draft.Date)
	m.respond(ctx, chatID, messageID, timesText(draft), timesKeyboard(free))
}

func (m *Manager) showFAQItem(ctx context.Context, chatID int64, messageID int, arg string) {
	idx, err := strconv.Atoi(arg)
	if err != nil || idx < 0 || idx >= len(faqEntries) {
		m.respond(ctx, chatID, messageID, textUnknownAction, faqKeyboard())
		return
	}

	entry := faqEntries[idx]
	m.respond(ctx, chatID, messageID, "❓ "+entry.Question+"\n\n"+entry.Answer, faqKeyboard())
}

func (m *Manager) showMyAppointments(ctx context.Context, chatID int64, messageID int) {
	appts, err := m.bookings.ListForRequester(ctx, chatID)
	if err != nil {
		m.logger.Error("list appointments failed", "chat_id", chatID, "error", err)
		m.respond(ctx, chatID, messageID, textStorageDown, backToMenuKeyboard())
		return
	}

	if len(appts) == 0 {
		m.respond(ctx, chatID, messageID, textNoAppointments, backToMenuKeyboard())
		return
	}

	today := catalog.DateOnly(m.now())
	var upcoming, past []booking.Appointment
	for _, a := range appts {
		if a.Status == booking.StatusConfirmed && !a.Date.Before(today) {
			upcoming = append(upcoming, a)
		} else {
			past = append(past, a)
		}
	}

	m.respond(ctx, chatID, messageID, myAppointmentsText(upcoming, past), myAppointmentsKeyboard(upcoming))
}

func (m *Manager) cancelAppointment(ctx context.Context, chatID int64, messageID int, arg string) {
	id, err := uuid.Parse(arg)
	if err != nil {
		m.respond(ctx, chatID, messageID, textUnknownAction, mainMenuKeyboard(m.isAdmin(chatID)))
		return
	}

	ok, err := m.bookings.Cancel(ctx, id, chatID)
	if err != nil {
		m.logger.Error("cancel failed", "chat_id", chatID, "appointment_id", id, "error", err)
		m.respond(ctx, chatID, messageID, textStorageDown, backToMenuKeyboard())
		return
	}

	if ok {
		m.respond(ctx, chatID, messageID, textCancelOK, backToMenuKeyboard())
	} else {
		m.respond(ctx, chatID, messageID, textCancelFailed, backToMenuKeyboard())
	}
}

func (m *Manager) requireAdmin(ctx context.Context, chatID int64, messageID int) bool {
	if m.isAdmin(chatID) {
		return true
	}
	m.respond(ctx, chatID, messageID, textAccessDenied, mainMenuKeyboard(false))
	return false
}

func (m *Manager) showAdminStats(ctx context.Context, chatID int64, messageID int) {
	if !m.requireAdmin(ctx, chatID, messageID) {
		return
	}

	today := catalog.DateOnly(m.now())

	todayAppts, err := m.bookings.ListConfirmedForDate(ctx, today)
	if err != nil {
		m.respond(ctx, chatID, messageID, textStorageDown, adminKeyboard())
		return
	}

	upcoming, err := m.bookings.CountConfirmedSince(ctx, today)
	if err != nil {
		m.respond(ctx, chatID, messageID, textStorageDown, adminKeyboard())
		return
	}

	m.respond(ctx, chatID, messageID, adminStatsText(len(todayAppts), upcoming), adminKeyboard())
}

func (m *Manager) showAdminToday(ctx context.Context, chatID int64, messageID int) {
	if !m.requireAdmin(ctx, chatID, messageID) {
		return
	}

	appts, err := m.bookings.ListConfirmedForDate(ctx, catalog.DateOnly(m.now()))
	if err != nil {
		m.respond(ctx, chatID, messageID, textStorageDown, adminKeyboard())
		return
	}

	m.respond(ctx, chatID, messageID, adminTodayText(appts), adminKeyboard())
}

// --- outbound helpers ---

// respond edits the originating message when possible, falling back to a
// fresh message.
func (m *Manager) respond(ctx context.Context, chatID int64, messageID int, text string, kb *telegram.InlineKeyboardMarkup) {
	if messageID != 0 {
		if err := m.gateway.Edit(ctx, chatID, messageID, text, kb); err == nil {
			return
		}
	}
	m.send(ctx, chatID, text, kb)
}

func (m *Manager) send(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) {
	if err := m.gateway.Send(ctx, chatID, text, kb); err != nil {
		m.logger.Error("send failed", "chat_id", chatID, "error", err)
	}
}
