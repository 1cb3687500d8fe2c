package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name  string
		check Validator
		value string
		want  string
	}{
		{"required ok", Required("First name"), "Jo", ""},
		{"required blank", Required("First name"), "   ", "First name is required."},
		{"max len ok", MaxLen("Last name", 5), "March", ""},
		{"max len counts runes", MaxLen("Last name", 5), "Zoë M", ""},
		{"max len exceeded", MaxLen("Last name", 5), "Marchmont", "Last name cannot exceed 5 characters."},
		{"printable ok", PrintableText("First name"), "Jo-Ann O'Neil", ""},
		{"printable newline", PrintableText("First name"), "Jo\nAnn", "First name contains invalid characters."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.check(tt.value))
		})
	}
}

func TestFieldValidator_FirstFailurePerField(t *testing.T) {
	fv := New().
		Validate("firstName", "", Required("First name"), MaxLen("First name", 3)).
		Validate("lastName", strings.Repeat("x", 10), MaxLen("Last name", 3)).
		Validate("nickname", "ok")

	assert.Equal(t, map[string]string{
		"firstName": "First name is required.",
		"lastName":  "Last name cannot exceed 3 characters.",
	}, fv.Errors())
	assert.Equal(t, "First name is required.", fv.First())
	assert.Empty(t, New().First())
}
