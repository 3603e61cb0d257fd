package dialog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/telegram"
)

type gatewayCall struct {
	ChatID   int64
	Text     string
	Keyboard *telegram.InlineKeyboardMarkup
}

type mockGateway struct {
	mu    sync.Mutex
	calls []gatewayCall
	acks  []string
}

func (g *mockGateway) Send(ctx context.Context, chatID int64, text string, kb *telegram.InlineKeyboardMarkup) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

func (g *mockGateway) Edit(ctx context.Context, chatID int64, messageID int, text string, kb *telegram.InlineKeyboardMarkup) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, gatewayCall{ChatID: chatID, Text: text, Keyboard: kb})
	return nil
}

func (g *mockGateway) AnswerCallback(ctx context.Context, callbackID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.acks = append(g.acks, callbackID)
	return nil
}

func (g *mockGateway) last(t *testing.T) gatewayCall {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	require.NotEmpty(t, g.calls, "no message went out")
	return g.calls[len(g.calls)-1]
}

type mockBookings struct {
	mu       sync.Mutex
	bookFn   func(req booking.BookingRequest) (*booking.Appointment, error)
	bookReqs []booking.BookingRequest

	slots []string

	cancelFn func(id uuid.UUID, requesterID int64) (bool, error)

	mine    []booking.Appointment
	mineErr error

	forDate    []booking.Appointment
	forDateErr error

	countSince int
}

func (b *mockBookings) Book(ctx context.Context, req booking.BookingRequest) (*booking.Appointment, error) {
	b.mu.Lock()
	b.bookReqs = append(b.bookReqs, req)
	b.mu.Unlock()
	if b.bookFn != nil {
		return b.bookFn(req)
	}
	return &booking.Appointment{
		ID:           uuid.New(),
		DoctorID:     req.DoctorID,
		DoctorName:   "Иванова Мария Петровна (Стоматолог-терапевт)",
		Date:         req.Date,
		Time:         req.Slot,
		PatientName:  req.PatientName,
		PatientPhone: req.PatientPhone,
		RequesterID:  req.RequesterID,
		Status:       booking.StatusConfirmed,
	}, nil
}

func (b *mockBookings) AvailableSlots(ctx context.Context, doctorID string, date time.Time) []string {
	return b.slots
}

func (b *mockBookings) Cancel(ctx context.Context, id uuid.UUID, requesterID int64) (bool, error) {
	if b.cancelFn != nil {
		return b.cancelFn(id, requesterID)
	}
	return false, nil
}

func (b *mockBookings) ListForRequester(ctx context.Context, requesterID int64) ([]booking.Appointment, error) {
	return b.mine, b.mineErr
}

func (b *mockBookings) ListConfirmedForDate(ctx context.Context, date time.Time) ([]booking.Appointment, error) {
	return b.forDate, b.forDateErr
}

func (b *mockBookings) CountConfirmedSince(ctx context.Context, since time.Time) (int, error) {
	return b.countSince, nil
}

type mockNotifier struct {
	confirmed []*booking.Appointment
}

func (n *mockNotifier) BookingConfirmed(ctx context.Context, appt *booking.Appointment) {
	n.confirmed = append(n.confirmed, appt)
}

var testNow = time.Date(2026, time.September, 1, 12, 0, 0, 0, time.UTC)

func newTestManager(bookings *mockBookings) (*Manager, *mockGateway, *mockNotifier) {
	gw := &mockGateway{}
	notifier := &mockNotifier{}

	m := NewManager(ManagerOptions{
		Gateway:       gw,
		Bookings:      bookings,
		Notifier:      notifier,
		IsAdmin:       func(chatID int64) bool { return chatID == 777 },
		ClinicAddress: "ул. Ленина, 1",
		ClinicPhone:   "+7 (495) 000-00-00",
	})
	m.now = func() time.Time { return testNow }

	return m, gw, notifier
}

func sendText(m *Manager, chatID int64, text string) {
	m.HandleUpdate(context.Background(), telegram.Update{
		Message: &telegram.Message{
			Chat: telegram.Chat{ID: chatID},
			From: &telegram.User{ID: chatID, FirstName: "Иван", Username: "ivanov"},
			Text: text,
		},
	})
}

func press(m *Manager, chatID int64, data string) {
	m.HandleUpdate(context.Background(), telegram.Update{
		CallbackQuery: &telegram.CallbackQuery{
			ID:      "cb-1",
			From:    telegram.User{ID: chatID},
			Message: &telegram.Message{MessageID: 10, Chat: telegram.Chat{ID: chatID}},
			Data:    data,
		},
	})
}

func TestStartCommand(t *testing.T) {
	m, gw, _ := newTestManager(&mockBookings{})

	sendText(m, 100, "/start")

	got := gw.last(t)
	assert.Contains(t, got.Text, "Здравствуйте, Иван")
	assert.Equal(t, mainMenuKeyboard(false), got.Keyboard)

	// The admin gets the extra panel button.
	sendText(m, 777, "/start")
	assert.Equal(t, mainMenuKeyboard(true), gw.last(t).Keyboard)
}

func TestFreeTextWithoutDraftShowsMenu(t *testing.T) {
	m, gw, _ := newTestManager(&mockBookings{})

	sendText(m, 100, "привет")

	assert.Equal(t, textMainMenu, gw.last(t).Text)
}

func TestBookingWizardHappyPath(t *testing.T) {
	bookings := &mockBookings{slots: []string{"09:00", "14:00"}}
	m, gw, notifier := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	assert.Equal(t, textChooseDoctor, gw.last(t).Text)

	press(m, chatID, "doctor:1")
	assert.Contains(t, gw.last(t).Text, "Иванова Мария Петровна")

	press(m, chatID, "date:03.09.2026")
	assert.Contains(t, gw.last(t).Text, "Доступное время")
	assert.Equal(t, timesKeyboard([]string{"09:00", "14:00"}), gw.last(t).Keyboard)

	press(m, chatID, "time:14:00")
	assert.Contains(t, gw.last(t).Text, "Всё верно?")
	assert.Contains(t, gw.last(t).Text, "14:00")

	press(m, chatID, "confirm")
	assert.Equal(t, textAskName, gw.last(t).Text)

	sendText(m, chatID, "Иванов Иван Иванович")
	assert.Contains(t, gw.last(t).Text, "номер телефона")

	sendText(m, chatID, "8 (999) 123-45-67")

	require.Len(t, bookings.bookReqs, 1)
	req := bookings.bookReqs[0]
	assert.Equal(t, "1", req.DoctorID)
	assert.Equal(t, time.Date(2026, time.September, 3, 0, 0, 0, 0, time.UTC), req.Date)
	assert.Equal(t, "14:00", req.Slot)
	assert.Equal(t, "Иванов Иван Иванович", req.PatientName)
	assert.Equal(t, "+79991234567", req.PatientPhone)
	assert.Equal(t, chatID, req.RequesterID)
	assert.Equal(t, "ivanov", req.RequesterHandle)

	assert.Contains(t, gw.last(t).Text, "Запись успешно создана")
	require.Len(t, notifier.confirmed, 1)

	// The wizard is over; the draft must be gone.
	_, ok := m.Drafts().Get(chatID)
	assert.False(t, ok)
}

func TestWizardValidationRetries(t *testing.T) {
	bookings := &mockBookings{slots: []string{"09:00"}}
	m, gw, _ := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:1")
	press(m, chatID, "date:03.09.2026")
	press(m, chatID, "time:09:00")
	press(m, chatID, "confirm")

	sendText(m, chatID, "Ян")
	assert.Equal(t, textNameTooShort, gw.last(t).Text)

	sendText(m, chatID, "Ivan5555")
	assert.Equal(t, textNameHasDigits, gw.last(t).Text)

	// Still waiting for the name after both rejections.
	draft, ok := m.Drafts().Get(chatID)
	require.True(t, ok)
	assert.Equal(t, StateGettingName, draft.State)

	sendText(m, chatID, "Иванов Иван")
	assert.Equal(t, StateGettingPhone, draft.State)

	sendText(m, chatID, "12345")
	assert.Equal(t, textBadPhone, gw.last(t).Text)
	assert.Equal(t, StateGettingPhone, draft.State)
	assert.Empty(t, bookings.bookReqs)
}

func TestBackNavigationKeepsSelection(t *testing.T) {
	bookings := &mockBookings{slots: []string{"09:00", "10:00"}}
	m, gw, _ := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:2")
	press(m, chatID, "date:03.09.2026")
	press(m, chatID, "time:09:00")

	// Step back to the time list: doctor and date survive.
	press(m, chatID, "back_times")
	draft, ok := m.Drafts().Get(chatID)
	require.True(t, ok)
	assert.Equal(t, StateSelectingTime, draft.State)
	assert.Equal(t, "2", draft.DoctorID)
	assert.True(t, draft.HasDate())

	// Back to dates keeps the doctor.
	press(m, chatID, "back_dates")
	assert.Equal(t, StateSelectingDate, draft.State)
	assert.Equal(t, "2", draft.DoctorID)
	assert.Equal(t, textChooseDate, gw.last(t).Text)
}

func TestSelectDateWithoutFreeSlots(t *testing.T) {
	bookings := &mockBookings{slots: nil}
	m, gw, _ := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:1")
	press(m, chatID, "date:03.09.2026")

	got := gw.last(t)
	assert.Equal(t, textNoSlots, got.Text)
	assert.Equal(t, datesKeyboard(testNow), got.Keyboard)

	// The date step is not left until an open day is picked.
	draft, ok := m.Drafts().Get(chatID)
	require.True(t, ok)
	assert.Equal(t, StateSelectingDate, draft.State)
	assert.False(t, draft.HasDate())
}

func TestSelectDateOutsideHorizon(t *testing.T) {
	bookings := &mockBookings{slots: []string{"09:00"}}
	m, gw, _ := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:1")
	press(m, chatID, "date:31.12.2026")

	assert.Equal(t, textChooseDate, gw.last(t).Text)

	draft, ok := m.Drafts().Get(chatID)
	require.True(t, ok)
	assert.Equal(t, StateSelectingDate, draft.State)
}

func TestBookSlotTakenMidFlow(t *testing.T) {
	bookings := &mockBookings{
		slots: []string{"09:00"},
		bookFn: func(booking.BookingRequest) (*booking.Appointment, error) {
			return nil, booking.ErrSlotTaken
		},
	}
	m, gw, notifier := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:1")
	press(m, chatID, "date:03.09.2026")
	press(m, chatID, "time:09:00")
	press(m, chatID, "confirm")
	sendText(m, chatID, "Иванов Иван")
	sendText(m, chatID, "89991234567")

	assert.Equal(t, textSlotJustTaken, gw.last(t).Text)
	assert.Empty(t, notifier.confirmed)

	_, ok := m.Drafts().Get(chatID)
	assert.False(t, ok, "a lost race ends the conversation")
}

func TestBookStorageDown(t *testing.T) {
	bookings := &mockBookings{
		slots: []string{"09:00"},
		bookFn: func(booking.BookingRequest) (*booking.Appointment, error) {
			return nil, booking.ErrStorageUnavailable
		},
	}
	m, gw, _ := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:1")
	press(m, chatID, "date:03.09.2026")
	press(m, chatID, "time:09:00")
	press(m, chatID, "confirm")
	sendText(m, chatID, "Иванов Иван")
	sendText(m, chatID, "89991234567")

	assert.Equal(t, textStorageDown, gw.last(t).Text)
}

func TestCancelCommandDropsDraft(t *testing.T) {
	bookings := &mockBookings{slots: []string{"09:00"}}
	m, gw, _ := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:1")

	sendText(m, chatID, "/cancel")

	assert.Equal(t, textBookingAborted, gw.last(t).Text)
	_, ok := m.Drafts().Get(chatID)
	assert.False(t, ok)
}

func TestMalformedCallbackFallsBackToMenu(t *testing.T) {
	m, gw, _ := newTestManager(&mockBookings{})

	press(m, 100, "droptables:1")

	got := gw.last(t)
	assert.Equal(t, textUnknownAction, got.Text)
	assert.Equal(t, mainMenuKeyboard(false), got.Keyboard)
	assert.Equal(t, []string{"cb-1"}, gw.acks, "the spinner is stopped even for junk")
}

func TestAdminGating(t *testing.T) {
	bookings := &mockBookings{countSince: 7}
	m, gw, _ := newTestManager(bookings)

	press(m, 100, "admin")
	assert.Equal(t, textAccessDenied, gw.last(t).Text)

	press(m, 100, "admin_stats")
	assert.Equal(t, textAccessDenied, gw.last(t).Text)

	press(m, 777, "admin")
	assert.Equal(t, adminKeyboard(), gw.last(t).Keyboard)

	press(m, 777, "admin_stats")
	assert.Contains(t, gw.last(t).Text, "Статистика")
	assert.Contains(t, gw.last(t).Text, "7")
}

func TestMyAppointmentsSplit(t *testing.T) {
	upcoming := booking.Appointment{
		ID:         uuid.New(),
		DoctorName: "Петров Сергей Иванович (Стоматолог-хирург)",
		Date:       time.Date(2026, time.September, 5, 0, 0, 0, 0, time.UTC),
		Time:       "10:00",
		Status:     booking.StatusConfirmed,
	}
	past := booking.Appointment{
		ID:         uuid.New(),
		DoctorName: "Иванова Мария Петровна (Стоматолог-терапевт)",
		Date:       time.Date(2026, time.August, 20, 0, 0, 0, 0, time.UTC),
		Time:       "09:00",
		Status:     booking.StatusConfirmed,
	}
	cancelled := upcoming
	cancelled.ID = uuid.New()
	cancelled.Status = booking.StatusCancelled

	bookings := &mockBookings{mine: []booking.Appointment{past, upcoming, cancelled}}
	m, gw, _ := newTestManager(bookings)

	press(m, 100, "my")

	got := gw.last(t)
	assert.Contains(t, got.Text, "Предстоящие")
	assert.Contains(t, got.Text, "05.09.2026 в 10:00")
	assert.Contains(t, got.Text, "Прошедшие")
	assert.Contains(t, got.Text, "20.08.2026 в 09:00")

	// The keyboard offers cancelling the upcoming visit.
	assert.Equal(t, myAppointmentsKeyboard([]booking.Appointment{upcoming}), got.Keyboard)
}

func TestMyAppointmentsEmpty(t *testing.T) {
	m, gw, _ := newTestManager(&mockBookings{})

	press(m, 100, "my")

	assert.Equal(t, textNoAppointments, gw.last(t).Text)
}

func TestCancelAppointment(t *testing.T) {
	id := uuid.New()
	var gotID uuid.UUID
	var gotRequester int64

	bookings := &mockBookings{
		cancelFn: func(cancelID uuid.UUID, requesterID int64) (bool, error) {
			gotID, gotRequester = cancelID, requesterID
			return true, nil
		},
	}
	m, gw, _ := newTestManager(bookings)

	press(m, 100, "cancel_appt:"+id.String())

	assert.Equal(t, textCancelOK, gw.last(t).Text)
	assert.Equal(t, id, gotID)
	assert.Equal(t, int64(100), gotRequester)

	// A mangled id is rejected without touching the store.
	press(m, 100, "cancel_appt:not-a-uuid")
	assert.Equal(t, textUnknownAction, gw.last(t).Text)
}

func TestHandleUpdateSerializesSameChat(t *testing.T) {
	bookings := &mockBookings{slots: []string{"09:00"}}
	m, _, _ := newTestManager(bookings)
	chatID := int64(100)

	press(m, chatID, "book")
	press(m, chatID, "doctor:1")
	press(m, chatID, "date:03.09.2026")
	press(m, chatID, "time:09:00")
	press(m, chatID, "confirm")

	// One poll batch can carry many updates from the same chat, each
	// handled on its own goroutine. The first name advances the draft;
	// the rest land on the phone step and are rejected there.
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sendText(m, chatID, "Иванов Иван Иванович")
		}()
	}
	wg.Wait()

	draft, ok := m.Drafts().Get(chatID)
	require.True(t, ok)
	assert.Equal(t, StateGettingPhone, draft.State)
	assert.Equal(t, "Иванов Иван Иванович", draft.PatientName)
	assert.Empty(t, bookings.bookReqs)
}

func TestHandleUpdateRecoversFromPanic(t *testing.T) {
	bookings := &mockBookings{}
	m, gw, _ := newTestManager(bookings)
	m.bookings = nil // any callback touching the service now panics

	press(m, 100, "my")

	assert.Equal(t, textEventFailed, gw.last(t).Text)
}
