package auth

import "strings"

// Validation messages shown before any provider call is made.
const (
	MsgPasswordMismatch = "Passwords do not match!"
	MsgTermsRequired    = "You must accept the terms and conditions."
	MsgInvalidUserType  = "Please select a valid account type."
	MsgEmailRequired    = "Please enter your email address."
	MsgPasswordRequired = "Please enter your password."
)

// ValidationError is a form problem detected locally.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// RegistrationForm holds the fields of the sign-up form.
type RegistrationForm struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Email           string `json:"email"`
	UserType        string `json:"user_type"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	AcceptTerms     bool   `json:"terms"`
}

// Normalize trims whitespace from the text fields.
func (f *RegistrationForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.UserType = strings.TrimSpace(f.UserType)
}

// Validate runs the checks required before registration is attempted.
func (f RegistrationForm) Validate() error {
	if f.Email == "" {
		return &ValidationError{Field: "email", Message: MsgEmailRequired}
	}
	if f.Password == "" {
		return &ValidationError{Field: "password", Message: MsgPasswordRequired}
	}
	if f.Password != f.ConfirmPassword {
		return &ValidationError{Field: "confirm_password", Message: MsgPasswordMismatch}
	}
	if !f.AcceptTerms {
		return &ValidationError{Field: "terms", Message: MsgTermsRequired}
	}
	if f.UserType != "" && !Role(f.UserType).IsSelectable() {
		return &ValidationError{Field: "user_type", Message: MsgInvalidUserType}
	}
	return nil
}

// SelectedRole returns the chosen account type, reader when none was chosen.
func (f RegistrationForm) SelectedRole() Role {
	if f.UserType == "" {
		return RoleReader
	}
	return Role(f.UserType)
}

// LoginForm holds the fields of the sign-in form.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Normalize trims whitespace from the email. Passwords are taken as typed.
func (f *LoginForm) Normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

// Validate checks that both fields are present.
func (f LoginForm) Validate() error {
	if strings.TrimSpace(f.Email) == "" {
		return &ValidationError{Field: "email", Message: MsgEmailRequired}
	}
	if f.Password == "" {
		return &ValidationError{Field: "password", Message: MsgPasswordRequired}
	}
	return nil
}
