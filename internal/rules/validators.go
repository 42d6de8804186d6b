package rules

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/parley/pkg/domain"
)

// DTMF data types.
const (
	DTMFNumber           = "Number"
	DTMFPhone            = "Phone"
	DTMFDate             = "Date"
	DTMFCreditCardExpiry = "CreditCardExpiry"
)

// NLU data types.
const (
	NLUDate   = "date"
	NLUNumber = "number"
	NLUPhone  = "phone"
	NLUTime   = "time"
)

var (
	digitsPattern = regexp.MustCompile(`^[0-9]+$`)
	phonePattern  = regexp.MustCompile(`^0[0-9]{9}$`)
	intlPattern   = regexp.MustCompile(`^\+?61([0-9]{9})$`)
	timePattern   = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)
)

// KnownDTMFType reports whether t is a supported DTMF data type.
func KnownDTMFType(t string) bool {
	switch t {
	case DTMFNumber, DTMFPhone, DTMFDate, DTMFCreditCardExpiry:
		return true
	}
	return false
}

// KnownNLUType reports whether t is a supported NLU data type.
func KnownNLUType(t string) bool {
	switch t {
	case NLUDate, NLUNumber, NLUPhone, NLUTime:
		return true
	}
	return false
}

// ValidateDTMF checks a keypad token and returns the value to store.
// minLength and maxLength apply to Number only; zero means unbounded.
func ValidateDTMF(dataType, input string, minLength, maxLength int, now time.Time) (string, bool) {
	input = strings.TrimSpace(input)
	if input == "" || input == domain.InputNoInput || input == domain.InputNoMatch {
		return "", false
	}
	switch dataType {
	case DTMFNumber:
		if !digitsPattern.MatchString(input) {
			return "", false
		}
		if minLength > 0 && len(input) < minLength {
			return "", false
		}
		if maxLength > 0 && len(input) > maxLength {
			return "", false
		}
		return input, true
	case DTMFPhone:
		return input, phonePattern.MatchString(input)
	case DTMFDate:
		return validateDDMMYYYY(input)
	case DTMFCreditCardExpiry:
		return validateExpiry(input, now)
	}
	return "", false
}

// validateDDMMYYYY parses a strict eight digit date and returns it as YYYY-MM-DD.
func validateDDMMYYYY(input string) (string, bool) {
	if len(input) != 8 || !digitsPattern.MatchString(input) {
		return "", false
	}
	t, err := time.Parse("02012006", input)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// validateExpiry accepts MMYY with a valid month that is not before the current month.
func validateExpiry(input string, now time.Time) (string, bool) {
	if len(input) != 4 || !digitsPattern.MatchString(input) {
		return "", false
	}
	month, _ := strconv.Atoi(input[:2])
	year, _ := strconv.Atoi(input[2:])
	if month < 1 || month > 12 {
		return "", false
	}
	year += 2000
	if year < now.Year() || (year == now.Year() && month < int(now.Month())) {
		return "", false
	}
	return input, true
}

// ValidateNLU checks a classified slot value against its data type and optional
// bounds, returning the normalized value.
func ValidateNLU(dataType, value, minValue, maxValue string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	switch dataType {
	case NLUDate:
		t, err := time.Parse("2006-01-02", value)
		if err != nil {
			return "", false
		}
		norm := t.Format("2006-01-02")
		return norm, withinLexical(norm, minValue, maxValue, "2006-01-02")
	case NLUNumber:
		n, ok := domain.ToNumber(value)
		if !ok {
			return "", false
		}
		if lo, ok := domain.ToNumber(minValue); ok && n < lo {
			return "", false
		}
		if hi, ok := domain.ToNumber(maxValue); ok && n > hi {
			return "", false
		}
		return domain.ToString(n), true
	case NLUPhone:
		norm := normalizePhone(value)
		return norm, phonePattern.MatchString(norm)
	case NLUTime:
		m := timePattern.FindStringSubmatch(value)
		if m == nil {
			return "", false
		}
		hour, _ := strconv.Atoi(m[1])
		norm := fmt.Sprintf("%02d:%s", hour, m[2])
		return norm, withinLexical(norm, minValue, maxValue, "15:04")
	}
	return "", false
}

// withinLexical checks bounds for fixed-width formats where lexical order is
// chronological. Bounds that do not parse with layout are ignored.
func withinLexical(v, lo, hi, layout string) bool {
	if _, err := time.Parse(layout, lo); err == nil && v < lo {
		return false
	}
	if _, err := time.Parse(layout, hi); err == nil && v > hi {
		return false
	}
	return true
}

// normalizePhone strips separators and folds the international form to the
// national one.
func normalizePhone(v string) string {
	var b strings.Builder
	for i, r := range v {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if m := intlPattern.FindStringSubmatch(s); m != nil {
		return "0" + m[1]
	}
	return s
}
