package data

import apperrors "github.com/rejoiceinstitute/rejoice-web/internal/errors"

// Sentinel errors returned by ProfileRepo.
var (
	ErrUIDRequired     = apperrors.New(apperrors.ErrCodeValidation, "uid is required")
	ErrProfileNotFound = apperrors.New(apperrors.ErrCodeNotFound, "Profile not found.")
)
