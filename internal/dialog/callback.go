package dialog

import (
	"strings"
)

// Callback kinds. Tokens are "kind" or "kind:arg"; the arg keeps its own
// colons (slot labels carry one), so decoding splits once.
const (
	KindMenu      = "menu"
	KindBook      = "book"
	KindDoctors   = "doctors"
	KindFAQ       = "faq"
	KindFAQItem   = "faqitem"
	KindMy        = "my"
	KindAbout     = "about"
	KindContacts  = "contacts"
	KindPrices    = "prices"
	KindAdmin     = "admin"
	KindAdminStat = "admin_stats"
	KindAdminDay  = "admin_today"

	KindDoctor      = "doctor"
	KindDate        = "date"
	KindTime        = "time"
	KindConfirm     = "confirm"
	KindAbort       = "abort"
	KindBackDoctors = "back_doctors"
	KindBackDates   = "back_dates"
	KindBackTimes   = "back_times"
	KindCancelAppt  = "cancel_appt"
)

var knownKinds = map[string]bool{
	KindMenu:        true,
	KindBook:        true,
	KindDoctors:     true,
	KindFAQ:         true,
	KindFAQItem:     true,
	KindMy:          true,
	KindAbout:       true,
	KindContacts:    true,
	KindPrices:      true,
	KindAdmin:       true,
	KindAdminStat:   true,
	KindAdminDay:    true,
	KindDoctor:      true,
	KindDate:        true,
	KindTime:        true,
	KindConfirm:     true,
	KindAbort:       true,
	KindBackDoctors: true,
	KindBackDates:   true,
	KindBackTimes:   true,
	KindCancelAppt:  true,
}

// Callback is a decoded button token.
type Callback struct {
	Kind string
	Arg  string
}

// EncodeCallback renders a token. An empty arg yields a bare kind.
func EncodeCallback(kind, arg string) string {
	if arg == "" {
		return kind
	}
	return kind + ":" + arg
}

// DecodeCallback parses a token, failing closed: anything malformed or of
// an unknown kind is rejected and the caller re-shows the menu instead of
// guessing.
func DecodeCallback(data string) (Callback, bool) {
	if data == "" || len(data) > 64 {
		return Callback{}, false
	}

	kind, arg, _ := strings.Cut(data, ":")
	if !knownKinds[kind] {
		return Callback{}, false
	}

	return Callback{Kind: kind, Arg: arg}, true
}
