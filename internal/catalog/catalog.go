package catalog

import (
	"strconv"
	"time"
)

// DateLayout is the wire and display layout for booking dates.
const DateLayout = "02.01.2006"

// HorizonDays is how far ahead a visit can be booked.
const HorizonDays = 14

type Doctor struct {
	ID          string
	Name        string
	Specialty   string
	Experience  int // years
	Description string
}

// doctors is the clinic roster, ordered as shown to the patient.
var doctors = []Doctor{
	{
		ID:          "1",
		Name:        "Иванова Мария Петровна",
		Specialty:   "Стоматолог-терапевт",
		Experience:  15,
		Description: "Лечение кариеса, пульпита, профессиональная гигиена",
	},
	{
		ID:          "2",
		Name:        "Петров Сергей Иванович",
		Specialty:   "Стоматолог-хирург",
		Experience:  12,
		Description: "Удаление зубов, имплантация, костная пластика",
	},
	{
		ID:          "3",
		Name:        "Сидорова Анна Викторовна",
		Specialty:   "Стоматолог-ортодонт",
		Experience:  10,
		Description: "Исправление прикуса, брекеты, элайнеры",
	},
	{
		ID:          "4",
		Name:        "Козлов Алексей Николаевич",
		Specialty:   "Стоматолог-ортопед",
		Experience:  20,
		Description: "Протезирование, коронки, виниры",
	},
	{
		ID:          "5",
		Name:        "Соколова Елена Дмитриевна",
		Specialty:   "Детский стоматолог",
		Experience:  8,
		Description: "Лечение детей с 3 лет, адаптация",
	},
}

// workHours are the bookable half-hour labels, with a lunch gap after 12:30.
var workHours = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30",
	"12:00", "12:30", "14:00", "14:30", "15:00", "15:30",
	"16:00", "16:30", "17:00", "17:30", "18:00", "18:30",
}

// Slots returns the ordered catalog of daily time labels.
func Slots() []string {
	out := make([]string, len(workHours))
	copy(out, workHours)
	return out
}

// ValidSlot reports whether the label belongs to the catalog.
func ValidSlot(label string) bool {
	for _, s := range workHours {
		if s == label {
			return true
		}
	}
	return false
}

// Doctors returns the roster in display order.
func Doctors() []Doctor {
	out := make([]Doctor, len(doctors))
	copy(out, doctors)
	return out
}

// DoctorByID looks up a doctor; ok is false for unknown ids.
func DoctorByID(id string) (Doctor, bool) {
	for _, d := range doctors {
		if d.ID == id {
			return d, true
		}
	}
	return Doctor{}, false
}

// DisplayName renders the roster entry the way appointments store it.
func (d Doctor) DisplayName() string {
	return d.Name + " (" + d.Specialty + ")"
}

// DateOption is one entry of the booking date keyboard.
type DateOption struct {
	Date  time.Time
	Value string // DateLayout form carried in callback tokens
	Label string // human label, e.g. "Сегодня (1 сентября)"
}

var weekdaysRu = map[time.Weekday]string{
	time.Monday:    "Понедельник",
	time.Tuesday:   "Вторник",
	time.Wednesday: "Среда",
	time.Thursday:  "Четверг",
	time.Friday:    "Пятница",
	time.Saturday:  "Суббота",
	time.Sunday:    "Воскресенье",
}

var monthsRu = map[time.Month]string{
	time.January:   "января",
	time.February:  "февраля",
	time.March:     "марта",
	time.April:     "апреля",
	time.May:       "мая",
	time.June:      "июня",
	time.July:      "июля",
	time.August:    "августа",
	time.September: "сентября",
	time.October:   "октября",
	time.November:  "ноября",
	time.December:  "декабря",
}

// Dates returns the bookable days starting at now's date.
func Dates(now time.Time) []DateOption {
	out := make([]DateOption, 0, HorizonDays)
	day := DateOnly(now)

	for i := 0; i < HorizonDays; i++ {
		d := day.AddDate(0, 0, i)

		var label string
		switch i {
		case 0:
			label = "Сегодня (" + DisplayDate(d) + ")"
		case 1:
			label = "Завтра (" + DisplayDate(d) + ")"
		default:
			label = DisplayDate(d) + ", " + weekdaysRu[d.Weekday()]
		}

		out = append(out, DateOption{
			Date:  d,
			Value: d.Format(DateLayout),
			Label: label,
		})
	}

	return out
}

// ValidDate parses a DateLayout value and checks it falls inside the horizon.
func ValidDate(value string, now time.Time) (time.Time, bool) {
	d, err := time.ParseInLocation(DateLayout, value, now.Location())
	if err != nil {
		return time.Time{}, false
	}

	today := DateOnly(now)
	if d.Before(today) || d.After(today.AddDate(0, 0, HorizonDays-1)) {
		return time.Time{}, false
	}
	return d, true
}

// DateOnly truncates a timestamp to its calendar day.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DisplayDate renders a date as "1 сентября".
func DisplayDate(d time.Time) string {
	return strconv.Itoa(d.Day()) + " " + monthsRu[d.Month()]
}
