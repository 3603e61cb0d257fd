package dialog

import (
	"strconv"
	"time"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
	"github.com/dentalisa/clinic-booking-bot/internal/telegram"
)

func mainMenuKeyboard(isAdmin bool) *telegram.InlineKeyboardMarkup {
	rows := [][]telegram.InlineKeyboardButton{
		telegram.Row(telegram.Button("📝 Записаться на прием", KindBook)),
		telegram.Row(telegram.Button("👨‍⚕️ Наши врачи", KindDoctors)),
		telegram.Row(telegram.Button("📋 Мои записи", KindMy)),
		telegram.Row(telegram.Button("❓ Частые вопросы", KindFAQ)),
		telegram.Row(telegram.Button("🏥 О клинике", KindAbout)),
		telegram.Row(telegram.Button("📞 Контакты", KindContacts)),
		telegram.Row(telegram.Button("💰 Цены", KindPrices)),
	}
	if isAdmin {
		rows = append(rows, telegram.Row(telegram.Button("🔧 Админ-панель", KindAdmin)))
	}
	return telegram.Keyboard(rows...)
}

func doctorsKeyboard() *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, d := range catalog.Doctors() {
		rows = append(rows, telegram.Row(
			telegram.Button(d.Name+" — "+d.Specialty, EncodeCallback(KindDoctor, d.ID)),
		))
	}
	rows = append(rows, telegram.Row(telegram.Button("◀️ Назад в меню", KindMenu)))
	return telegram.Keyboard(rows...)
}

func datesKeyboard(now time.Time) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for _, opt := range catalog.Dates(now) {
		rows = append(rows, telegram.Row(
			telegram.Button("📅 "+opt.Label, EncodeCallback(KindDate, opt.Value)),
		))
	}
	rows = append(rows, telegram.Row(telegram.Button("◀️ Назад к врачам", KindBackDoctors)))
	return telegram.Keyboard(rows...)
}

// timesKeyboard lays free slots out two per row.
func timesKeyboard(slots []string) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i := 0; i < len(slots); i += 2 {
		row := telegram.Row(telegram.Button("🕐 "+slots[i], EncodeCallback(KindTime, slots[i])))
		if i+1 < len(slots) {
			row = append(row, telegram.Button("🕐 "+slots[i+1], EncodeCallback(KindTime, slots[i+1])))
		}
		rows = append(rows, row)
	}
	rows = append(rows, telegram.Row(telegram.Button("◀️ Назад к датам", KindBackDates)))
	return telegram.Keyboard(rows...)
}

func confirmKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		telegram.Row(
			telegram.Button("✅ Подтвердить запись", KindConfirm),
			telegram.Button("❌ Отменить", KindAbort),
		),
		telegram.Row(telegram.Button("◀️ Назад ко времени", KindBackTimes)),
	)
}

func faqKeyboard() *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	for i, entry := range faqEntries {
		rows = append(rows, telegram.Row(
			telegram.Button(entry.Question, EncodeCallback(KindFAQItem, strconv.Itoa(i))),
		))
	}
	rows = append(rows, telegram.Row(telegram.Button("◀️ Назад в меню", KindMenu)))
	return telegram.Keyboard(rows...)
}

// myAppointmentsKeyboard offers cancellation for the next upcoming visit.
func myAppointmentsKeyboard(upcoming []booking.Appointment) *telegram.InlineKeyboardMarkup {
	var rows [][]telegram.InlineKeyboardButton
	if len(upcoming) > 0 {
		next := upcoming[0]
		rows = append(rows, telegram.Row(telegram.Button(
			"❌ Отменить запись на "+next.Date.Format(catalog.DateLayout),
			EncodeCallback(KindCancelAppt, next.ID.String()),
		)))
	}
	rows = append(rows, telegram.Row(telegram.Button("◀️ Назад в меню", KindMenu)))
	return telegram.Keyboard(rows...)
}

func adminKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		telegram.Row(telegram.Button("📊 Статистика", KindAdminStat)),
		telegram.Row(telegram.Button("📅 Записи на сегодня", KindAdminDay)),
		telegram.Row(telegram.Button("◀️ Назад в меню", KindMenu)),
	)
}

func backToMenuKeyboard() *telegram.InlineKeyboardMarkup {
	return telegram.Keyboard(
		telegram.Row(telegram.Button("◀️ Назад в меню", KindMenu)),
	)
}
