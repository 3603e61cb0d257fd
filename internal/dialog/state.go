package dialog

import (
	"time"
)

// State is the position of one user inside the booking wizard.
type State int

const (
	StateSelectingDoctor State = iota
	StateSelectingDate
	StateSelectingTime
	StateConfirming
	StateGettingName
	StateGettingPhone
)

func (s State) String() string {
	switch s {
	case StateSelectingDoctor:
		return "selecting_doctor"
	case StateSelectingDate:
		return "selecting_date"
	case StateSelectingTime:
		return "selecting_time"
	case StateConfirming:
		return "confirming"
	case StateGettingName:
		return "getting_name"
	case StateGettingPhone:
		return "getting_phone"
	default:
		return "unknown"
	}
}

// Draft accumulates the booking data of one conversation. Earlier choices
// survive back-navigation, so stepping back and forward again does not
// force the user to re-select.
type Draft struct {
	State       State
	DoctorID    string
	DoctorName  string
	Date        time.Time // zero until a date is chosen
	Slot        string
	PatientName string
	LastTouched time.Time
}

// HasDate reports whether a date was already chosen.
func (d *Draft) HasDate() bool {
	return !d.Date.IsZero()
}
