package validation

import (
	"net/mail"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/juju/errors"
)

// Violations maps a field name to a violation code such as "required".
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records code for field unless the field already has a violation.
func (v Violations) Add(field, code string) {
	if _, ok := v[field]; !ok {
		v[field] = code
	}
}

// Err returns nil when there are no violations.
func (v Violations) Err() error {
	if v.Empty() {
		return nil
	}
	return &Error{Violations: v}
}

// Error carries field violations. It matches errors.NotValid.
type Error struct {
	Violations Violations
}

func (e *Error) Error() string {
	fields := make([]string, 0, len(e.Violations))
	for f := range e.Violations {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f + ": " + e.Violations[f]
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *Error) Is(target error) bool {
	return target == errors.NotValid
}

// ViolationsOf extracts the violations carried by err, if any.
func ViolationsOf(err error) (Violations, bool) {
	var ve *Error
	if errors.As(err, &ve) {
		return ve.Violations, true
	}
	return nil, false
}

// Basic validators
func Required(field, value string, v Violations) {
	if strings.TrimSpace(value) == "" {
		v.Add(field, "required")
	}
}

func MaxLength(field, value string, max int, v Violations) {
	if utf8.RuneCountInString(value) > max {
		v.Add(field, "too_long")
	}
}

func Positive(field string, val int64, v Violations) {
	if val <= 0 {
		v.Add(field, "must_be_positive")
	}
}

func Email(field, value string, v Violations) {
	if value == "" {
		return
	}
	if _, err := mail.ParseAddress(value); err != nil {
		v.Add(field, "invalid_email")
	}
}

func MinLength(field, value string, min int, v Violations) {
	if utf8.RuneCountInString(value) < min {
		v.Add(field, "too_short")
	}
}
