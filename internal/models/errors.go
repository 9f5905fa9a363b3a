package models

import "errors"

var (
	// ErrNotFound is returned when a referenced quiz, question, option, result or user does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnauthorized is returned for missing, invalid or expired credentials.
	ErrUnauthorized = errors.New("could not validate credentials")
	// ErrForbidden is returned when the caller lacks the admin role or does not own the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrValidation indicates a malformed payload, e.g. a selected index outside the option range.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates the operation would break a stored relation.
	ErrConflict = errors.New("conflict")
)
