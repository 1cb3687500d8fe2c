// Package testutil provides testing utilities and helpers for the account and session layers.
package testutil

import (
	"time"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

// RegistrationBuilder provides a fluent interface for building registration forms in tests.
type RegistrationBuilder struct {
	form domainauth.RegistrationForm
}

// NewRegistration creates a RegistrationBuilder for a valid reader sign-up.
func NewRegistration() *RegistrationBuilder {
	return &RegistrationBuilder{
		form: domainauth.RegistrationForm{
			FirstName:       "Jo",
			LastName:        "March",
			Email:           "jo@example.com",
			Password:        "secret123",
			ConfirmPassword: "secret123",
			UserType:        string(domainauth.RoleReader),
			AcceptTerms:     true,
		},
	}
}

// WithEmail sets the email.
func (b *RegistrationBuilder) WithEmail(email string) *RegistrationBuilder {
	b.form.Email = email
	return b
}

// WithPassword sets both password fields.
func (b *RegistrationBuilder) WithPassword(pw string) *RegistrationBuilder {
	b.form.Password = pw
	b.form.ConfirmPassword = pw
	return b
}

// WithRole sets the selected account type.
func (b *RegistrationBuilder) WithRole(role domainauth.Role) *RegistrationBuilder {
	b.form.UserType = string(role)
	return b
}

// WithName sets first and last name.
func (b *RegistrationBuilder) WithName(first, last string) *RegistrationBuilder {
	b.form.FirstName = first
	b.form.LastName = last
	return b
}

// Build returns the form.
func (b *RegistrationBuilder) Build() domainauth.RegistrationForm {
	return b.form
}

// NewProfile returns an active profile for tests.
func NewProfile(email string, role domainauth.Role) domainauth.Profile {
	return domainauth.Profile{
		FirstName: "Jo",
		LastName:  "March",
		Email:     email,
		Role:      role,
		CreatedAt: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		IsActive:  true,
	}
}
