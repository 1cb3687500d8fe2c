package auth

import (
	"errors"
	"fmt"
)

// Provider error codes as reported by the identity provider.
const (
	CodeEmailInUse        = "auth/email-already-in-use"
	CodeInvalidEmail      = "auth/invalid-email"
	CodeWeakPassword      = "auth/weak-password"
	CodeUserNotFound      = "auth/user-not-found"
	CodeWrongPassword     = "auth/wrong-password"
	CodeInvalidCredential = "auth/invalid-credential"
	CodeTooManyRequests   = "auth/too-many-requests"
	CodeNotSignedIn       = "auth/not-signed-in"
	CodeInternal          = "auth/internal-error"
	CodeInvalidForm       = "form/invalid"
)

// GenericMessage is shown when neither the code nor the provider supply a message.
const GenericMessage = "An error occurred. Please try again."

var messages = map[string]string{
	CodeEmailInUse:        "This email is already registered.",
	CodeInvalidEmail:      "Please enter a valid email address.",
	CodeWeakPassword:      "Password should be at least 6 characters.",
	CodeUserNotFound:      "No account found with this email.",
	CodeWrongPassword:     "Incorrect password.",
	CodeInvalidCredential: "Invalid email or password.",
	CodeTooManyRequests:   "Too many attempts. Please try again later.",
}

// MessageFor translates a provider code into the message shown to users.
// Unknown codes fall back to raw, then to GenericMessage. Internal errors never
// expose raw.
func MessageFor(code, raw string) string {
	if m, ok := messages[code]; ok {
		return m
	}
	if raw != "" && code != CodeInternal {
		return raw
	}
	return GenericMessage
}

// ProviderError is a failure reported by the identity provider. Display, when
// set, is user-facing text that takes the place of the code's table message.
type ProviderError struct {
	Code    string
	Message string
	Display string
}

func (e *ProviderError) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

// NewProviderError builds a ProviderError for code with an optional raw message.
func NewProviderError(code, msg string) *ProviderError {
	return &ProviderError{Code: code, Message: msg}
}

// ProviderCode extracts the provider code from err, or "" if err carries none.
func ProviderCode(err error) string {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ProfileError marks a profile store read or write failure, as opposed to a
// credential failure.
type ProfileError struct {
	UserID string
	Op     string
	Err    error
}

func (e *ProfileError) Error() string {
	return fmt.Sprintf("profile %s %s: %v", e.Op, e.UserID, e.Err)
}

func (e *ProfileError) Unwrap() error { return e.Err }

// Op names a user-facing account operation.
type Op string

const (
	OpRegister Op = "register"
	OpLogin    Op = "login"
	OpLogout   Op = "logout"
	OpProfile  Op = "profile"
)

// OperationError is returned by session operations. Message is safe to show to users.
type OperationError struct {
	Op      Op
	Code    string
	Message string
	Err     error
}

func (e *OperationError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OperationError) Unwrap() error { return e.Err }

// NewOperationError wraps err for op, translating any provider code into a user message.
func NewOperationError(op Op, err error) *OperationError {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return &OperationError{Op: op, Code: CodeInvalidForm, Message: ve.Message, Err: err}
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		msg := pe.Display
		if msg == "" {
			msg = MessageFor(pe.Code, pe.Message)
		}
		return &OperationError{Op: op, Code: pe.Code, Message: msg, Err: err}
	}
	return &OperationError{Op: op, Code: CodeInternal, Message: GenericMessage, Err: err}
}

// UserMessage returns the message to show for err. Operation and validation errors
// carry their own; anything else gets GenericMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var oe *OperationError
	if errors.As(err, &oe) && oe.Message != "" {
		return oe.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message
	}
	return GenericMessage
}

func isOp(err error, op Op) bool {
	var oe *OperationError
	return errors.As(err, &oe) && oe.Op == op
}

// IsRegistrationError reports whether err is a failed registration.
func IsRegistrationError(err error) bool { return isOp(err, OpRegister) }

// IsLoginError reports whether err is a failed login.
func IsLoginError(err error) bool { return isOp(err, OpLogin) }

// IsLogoutError reports whether err is a failed provider sign-out.
func IsLogoutError(err error) bool { return isOp(err, OpLogout) }

// IsProfileFetchError reports whether err stems from the profile store.
func IsProfileFetchError(err error) bool {
	var pe *ProfileError
	return errors.As(err, &pe)
}
