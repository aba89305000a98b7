package models

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
)

// Amount is a fixed-point money value with two decimals, stored as cents.
// JSON encodes it as a number with exactly two decimals.
type Amount int64

// maxAmountDigits bounds the integer part so cents never overflow int64.
const maxAmountDigits = 15

// ParseAmount parses "50000", "50000.5" or "50000.50" without going
// through floating point. More than two decimals is rejected.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	neg := false
	if rest, ok := strings.CutPrefix(s, "-"); ok {
		neg, s = true, rest
	}
	whole, frac, hasDot := strings.Cut(s, ".")
	if whole == "" || !digitsOnly(whole) || len(whole) > maxAmountDigits {
		return 0, errors.NotValidf("amount %q", s)
	}
	if hasDot && (frac == "" || len(frac) > 2 || !digitsOnly(frac)) {
		return 0, errors.NotValidf("amount %q", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, errors.NotValidf("amount %q", s)
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	v := Amount(units*100 + cents)
	if neg {
		v = -v
	}
	return v, nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Cents returns the raw integer value.
func (a Amount) Cents() int64 { return int64(a) }

// String renders "50000.00".
func (a Amount) String() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Display renders "$50,000.00" for human-facing messages.
func (a Amount) Display() string {
	v := int64(a)
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}
	return fmt.Sprintf("%s$%s.%02d", sign, humanize.Comma(v/100), v%100)
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	v, err := ParseAmount(strings.Trim(s, `"`))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
