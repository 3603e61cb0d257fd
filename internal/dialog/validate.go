package dialog

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const minNameLength = 5

var (
	ErrNameTooShort  = errors.New("name shorter than minimum length")
	ErrNameHasDigits = errors.New("name contains digits")
	ErrBadPhone      = errors.New("phone does not match the expected format")
)

// ValidateName checks a free-text patient name: at least 5 characters and
// no digits. The length is counted in runes so Cyrillic names behave.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)

	if utf8.RuneCountInString(name) < minNameLength {
		return "", ErrNameTooShort
	}
	for _, r := range name {
		if unicode.IsDigit(r) {
			return "", ErrNameHasDigits
		}
	}

	return name, nil
}

var (
	phoneJunk    = regexp.MustCompile(`[\s\-()]`)
	phonePattern = regexp.MustCompile(`^(\+7|8|7)?\d{10}$`)
)

// NormalizePhone strips separators, accepts an optional +7/8/7 prefix
// before exactly ten digits and canonicalizes to +7XXXXXXXXXX.
// Normalizing an already canonical number is a no-op.
func NormalizePhone(raw string) (string, error) {
	phone := phoneJunk.ReplaceAllString(strings.TrimSpace(raw), "")

	if !phonePattern.MatchString(phone) {
		return "", ErrBadPhone
	}

	switch {
	case strings.HasPrefix(phone, "+7"):
		return phone, nil
	case len(phone) == 10:
		// Bare ten digits; a leading 7 or 8 here is the first digit of
		// the number, not a country prefix.
		return "+7" + phone, nil
	default:
		return "+7" + phone[1:], nil
	}
}
