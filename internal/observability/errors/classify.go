package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	domainauth "github.com/rejoiceinstitute/rejoice-web/internal/domain/auth"
)

// Classify returns a normalized error class suitable for tagging metrics and logs.
// Provider failures are classified by their code ("auth/wrong-password" becomes
// "wrong_password"); anything else by the innermost concrete error type.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	if code := domainauth.ProviderCode(err); code != "" {
		code = strings.TrimPrefix(code, "auth/")
		return strings.ReplaceAll(code, "-", "_")
	}
	var ve *domainauth.ValidationError
	if goerrors.As(err, &ve) {
		return "validation"
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(t.String())
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
