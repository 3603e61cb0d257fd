package dialog

import (
	"fmt"
	"strings"

	"github.com/dentalisa/clinic-booking-bot/internal/booking"
	"github.com/dentalisa/clinic-booking-bot/internal/catalog"
)

// Static clinic content shown outside the booking flow.

type faqEntry struct {
	Question string
	Answer   string
}

var faqEntries = []faqEntry{
	{
		Question: "Режим работы",
		Answer:   "🕐 Мы работаем ежедневно с 9:00 до 20:00, без выходных.\nПрием по предварительной записи.",
	},
	{
		Question: "Стоимость услуг",
		Answer: "💰 Первичная консультация — 500 руб.\nЛечение кариеса — от 3000 руб.\n" +
			"Удаление зуба — от 2000 руб.\nПрофессиональная чистка — 2500 руб.\n" +
			"Точная стоимость — после осмотра врача.",
	},
	{
		Question: "Больно ли лечить",
		Answer:   "😊 Мы используем современные анестетики. Лечение проходит безболезненно.",
	},
	{
		Question: "Детский прием",
		Answer:   "👶 Принимаем детей с 3 лет. Первый осмотр — бесплатно.",
	},
	{
		Question: "Оплата",
		Answer:   "💳 Наличные, банковские карты (Visa, Mastercard, МИР), ДМС.",
	},
}

const (
	textMainMenu = "📌 Главное меню\n\nВыберите необходимое действие:"

	textChooseDoctor = "👨‍⚕️ Выберите врача\n\nОзнакомьтесь с нашими специалистами и выберите подходящего:"

	textChooseDate = "📅 Выберите удобную дату приема:"

	textNoSlots = "❌ К сожалению, на выбранную дату нет свободного времени.\n\nПожалуйста, выберите другую дату:"

	textAskName = "📝 Для завершения записи введите, пожалуйста, ваше ФИО полностью.\n(например: Иванов Иван Иванович)"

	textNameTooShort = "❌ Пожалуйста, введите корректное ФИО — минимум 5 символов.\nНапример: Иванов Иван Иванович"

	textNameHasDigits = "❌ ФИО не должно содержать цифры.\nПожалуйста, введите корректное ФИО:"

	textBadPhone = "❌ Неверный формат телефона.\n\nПримеры:\n• +79991234567\n• 89991234567\n• 79991234567"

	textBookingAborted = "❌ Запись отменена.\n\nВы можете записаться заново в любое время."

	textSlotJustTaken = "😔 Это время только что заняли. Пожалуйста, начните запись заново и выберите другое время."

	textStorageDown = "⚠️ Не удалось сохранить запись. Попробуйте позже или позвоните нам."

	textAccessDenied = "⛔ Доступ запрещен. Эта функция доступна только сотрудникам клиники."

	textUnknownAction = "Не удалось распознать действие. Возвращаю в главное меню."

	textEventFailed = "⚠️ Что-то пошло не так. Попробуйте еще раз через главное меню: /start"

	textNoAppointments = "📋 У вас пока нет записей на прием.\n\nВы можете записаться через главное меню."

	textCancelOK = "✅ Запись отменена. Время снова свободно для других пациентов."

	textCancelFailed = "❌ Не удалось отменить запись. Возможно, она уже отменена."
)

func welcomeText(firstName string) string {
	name := strings.TrimSpace(firstName)
	if name == "" {
		name = "уважаемый пациент"
	}
	return fmt.Sprintf(
		"👋 Здравствуйте, %s!\n\n"+
			"Это бот стоматологической клиники. Здесь вы можете записаться на прием, "+
			"посмотреть свои записи и узнать ответы на частые вопросы.\n\n"+
			"Выберите действие в меню ниже:",
		name,
	)
}

func helpText(clinicPhone string) string {
	return "🆘 Доступные команды:\n" +
		"/start — главное меню\n" +
		"/help — помощь\n" +
		"/cancel — отменить текущее действие\n\n" +
		"Запись по телефону: " + clinicPhone
}

func doctorsListText() string {
	var b strings.Builder
	b.WriteString("👨‍⚕️ Наши специалисты\n\n")
	for _, d := range catalog.Doctors() {
		fmt.Fprintf(&b, "%s\n└ %s, стаж %d лет\n└ %s\n\n", d.Name, d.Specialty, d.Experience, d.Description)
	}
	return b.String()
}

func aboutText(address string) string {
	return "🏥 О нашей клинике\n\n" +
		"Современная стоматологическая клиника полного цикла, работаем с 2010 года.\n\n" +
		"📅 Режим работы: ежедневно 9:00 — 20:00\n" +
		"📍 Адрес: " + address
}

func contactsText(address, phone string) string {
	return "📞 Контакты\n\n" +
		"Телефон: " + phone + "\n" +
		"📍 Адрес: " + address + "\n" +
		"⏰ Часы работы: ежедневно 9:00 — 20:00"
}

func pricesText() string {
	return "💰 Прайс-лист\n\n" +
		"• Первичная консультация — 500 ₽\n" +
		"• Лечение кариеса — от 3 000 ₽\n" +
		"• Удаление зуба — от 2 000 ₽\n" +
		"• Профессиональная чистка — 2 500 ₽\n" +
		"• Имплантация — от 25 000 ₽\n" +
		"• Коронка металлокерамика — 7 000 ₽\n\n" +
		"Точная стоимость определяется после осмотра врача."
}

func doctorChosenText(d catalog.Doctor) string {
	return fmt.Sprintf(
		"✅ Вы выбрали врача:\n%s\n%s\n\n%s\n\n📅 Теперь выберите удобную дату для приема:",
		d.Name, d.Specialty, d.Description,
	)
}

func timesText(draft *Draft) string {
	return fmt.Sprintf(
		"📅 Дата: %s\n🕐 Доступное время:\n\nВыберите удобное время для приема:",
		catalog.DisplayDate(draft.Date),
	)
}

func confirmText(draft *Draft) string {
	return fmt.Sprintf(
		"📋 Проверьте данные записи:\n\n📅 Дата: %s\n🕐 Время: %s\n👨‍⚕️ Врач: %s\n\nВсё верно?",
		catalog.DisplayDate(draft.Date), draft.Slot, draft.DoctorName,
	)
}

func askPhoneText(name string) string {
	return fmt.Sprintf(
		"✅ Спасибо, %s!\n\n📞 Теперь укажите ваш номер телефона для связи:\n(например: +79991234567 или 89991234567)",
		name,
	)
}

func bookedText(appt *booking.Appointment) string {
	return fmt.Sprintf(
		"✅ Запись успешно создана!\n\n"+
			"📅 Дата: %s\n🕐 Время: %s\n👨‍⚕️ Врач: %s\n👤 Пациент: %s\n📞 Телефон: %s\n\n"+
			"🔔 Мы отправим вам напоминание за 2 часа до приема.\n"+
			"Отменить запись можно в разделе «Мои записи».",
		catalog.DisplayDate(appt.Date), appt.Time, appt.DoctorName, appt.PatientName, appt.PatientPhone,
	)
}

func myAppointmentsText(upcoming, past []booking.Appointment) string {
	var b strings.Builder
	b.WriteString("📋 Ваши записи:\n\n")

	if len(upcoming) > 0 {
		b.WriteString("🔹 Предстоящие:\n")
		for _, a := range upcoming {
			fmt.Fprintf(&b, "• %s в %s — %s\n", a.Date.Format(catalog.DateLayout), a.Time, a.DoctorName)
		}
		b.WriteString("\n")
	}
	if len(past) > 0 {
		b.WriteString("🔸 Прошедшие и отмененные:\n")
		shown := past
		if len(shown) > 3 {
			shown = shown[len(shown)-3:]
		}
		for _, a := range shown {
			fmt.Fprintf(&b, "• %s в %s — %s\n", a.Date.Format(catalog.DateLayout), a.Time, a.DoctorName)
		}
	}

	return b.String()
}

func adminStatsText(todayCount, upcomingCount int) string {
	return fmt.Sprintf(
		"📊 Статистика клиники\n\n📅 Записей на сегодня: %d\n📋 Подтвержденных записей за период: %d\n👨‍⚕️ Врачей: %d",
		todayCount, upcomingCount, len(catalog.Doctors()),
	)
}

func adminTodayText(appts []booking.Appointment) string {
	if len(appts) == 0 {
		return "📅 На сегодня записей нет."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📅 Записи на сегодня (%d):\n\n", len(appts))
	for _, a := range appts {
		fmt.Fprintf(&b, "🕐 %s\n├ 👤 %s\n├ 📞 %s\n└ 👨‍⚕️ %s\n\n", a.Time, a.PatientName, a.PatientPhone, a.DoctorName)
	}
	return b.String()
}
