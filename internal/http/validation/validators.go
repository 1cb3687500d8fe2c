package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Validator checks a string value and returns a message when it is invalid.
type Validator func(v string) string

// Required rejects blank values.
func Required(fieldName string) Validator {
	return func(v string) string {
		if strings.TrimSpace(v) == "" {
			return fieldName + " is required."
		}
		return ""
	}
}

// MaxLen rejects values longer than maxLen characters.
// Uses rune count for proper Unicode support.
func MaxLen(fieldName string, maxLen int) Validator {
	return func(v string) string {
		if utf8.RuneCountInString(strings.TrimSpace(v)) > maxLen {
			return fmt.Sprintf("%s cannot exceed %d characters.", fieldName, maxLen)
		}
		return ""
	}
}

// PrintableText rejects control characters such as newlines and NUL.
func PrintableText(fieldName string) Validator {
	return func(v string) string {
		for _, r := range v {
			if unicode.IsControl(r) {
				return fieldName + " contains invalid characters."
			}
		}
		return ""
	}
}

// FieldValidator validates several fields and keeps the first failure of each.
type FieldValidator struct {
	order  []string
	errors map[string]string
}

// New creates a new FieldValidator instance.
func New() *FieldValidator {
	return &FieldValidator{errors: make(map[string]string)}
}

// Validate runs validators against value in order, stopping at the first failure.
func (fv *FieldValidator) Validate(field, value string, validators ...Validator) *FieldValidator {
	for _, v := range validators {
		if msg := v(value); msg != "" {
			if _, seen := fv.errors[field]; !seen {
				fv.order = append(fv.order, field)
			}
			fv.errors[field] = msg
			break
		}
	}
	return fv
}

// Errors returns the accumulated validation errors keyed by field.
func (fv *FieldValidator) Errors() map[string]string {
	return fv.errors
}

// First returns the message of the first field that failed, or "".
func (fv *FieldValidator) First() string {
	if len(fv.order) == 0 {
		return ""
	}
	return fv.errors[fv.order[0]]
}
