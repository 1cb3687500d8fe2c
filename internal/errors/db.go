package errors

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// reKeyField pulls the column list out of "Key (email)=(x) already exists.".
var reKeyField = regexp.MustCompile(`Key \(([^)]+)\)=`)

// fieldMessages are shown when a constraint on a known profile column fails.
var fieldMessages = map[string]string{
	"user_type":  "Unknown account type.",
	"email":      "That email address is already on file.",
	"first_name": "First name is required.",
	"uid":        "That account already has a profile.",
}

// MapDBError converts pgx and context failures into AppErrors. Errors it does
// not recognize are returned unchanged.
func MapDBError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Code: ErrCodeTimeout, Message: "Request timed out. Please try again.", Cause: err}
	case errors.Is(err, context.Canceled):
		return &AppError{Code: ErrCodeCanceled, Message: "Request was canceled.", Cause: err}
	case errors.Is(err, pgx.ErrNoRows):
		return &AppError{Code: ErrCodeNotFound, Message: "Profile not found.", Cause: err}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return mapPgError(pgErr)
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &AppError{Code: ErrCodeUnavailable, Message: "The profile database is unavailable.", Cause: err}
	}
	return err
}

func mapPgError(pgErr *pgconn.PgError) error {
	field := fieldOf(pgErr)
	appErr := &AppError{Field: field, Cause: pgErr}

	switch {
	case pgErr.Code == pgerrcode.UniqueViolation:
		appErr.Code = ErrCodeConflict
		appErr.Message = messageFor(field, "This value already exists.")
	case pgErr.Code == pgerrcode.CheckViolation, pgErr.Code == pgerrcode.NotNullViolation:
		appErr.Code = ErrCodeValidation
		appErr.Message = messageFor(field, "Invalid data. Please check your input.")
	case pgerrcode.IsConnectionException(pgErr.Code), pgErr.Code == pgerrcode.AdminShutdown,
		pgErr.Code == pgerrcode.CannotConnectNow, pgErr.Code == pgerrcode.TooManyConnections:
		appErr.Code = ErrCodeUnavailable
		appErr.Message = "The profile database is unavailable."
	case pgErr.Code == pgerrcode.QueryCanceled:
		appErr.Code = ErrCodeTimeout
		appErr.Message = "Request timed out. Please try again."
	default:
		appErr.Code = ErrCodeInternal
		appErr.Message = "A database error occurred. Please try again."
	}
	return appErr
}

func messageFor(field, fallback string) string {
	if msg, ok := fieldMessages[field]; ok {
		return msg
	}
	return fallback
}

// fieldOf names the offending column from the error metadata, the Detail
// text, or the constraint name (profiles_user_type_check -> user_type).
func fieldOf(pgErr *pgconn.PgError) string {
	if pgErr.ColumnName != "" {
		return pgErr.ColumnName
	}
	if m := reKeyField.FindStringSubmatch(pgErr.Detail); len(m) == 2 && !strings.Contains(m[1], ",") {
		return strings.TrimSpace(m[1])
	}
	name := pgErr.ConstraintName
	if pgErr.TableName != "" {
		name = strings.TrimPrefix(name, pgErr.TableName+"_")
	} else if _, rest, ok := strings.Cut(name, "_"); ok {
		name = rest
	}
	for _, suffix := range []string{"_check", "_key", "_pkey", "_idx"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return ""
}
