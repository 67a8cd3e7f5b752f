package events

import (
	"net/http"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeValidation        = "VALIDATION_FAILED"
	TextCodeBadRequest        = "BAD_REQUEST"
	TextCodeAlreadyRegistered = "ALREADY_REGISTERED"
	TextCodeNotFound          = "REGISTRATION_NOT_FOUND"
)

// ErrValidation is cloned with the per field messages in
// Metadata["fields"]
var ErrValidation = errors.New("validation failed", errors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(http.StatusUnprocessableEntity)

// ErrBadRequest the request is missing required fields or is unparsable
var ErrBadRequest = errors.New("bad request", errors.CategoryBadInput).
	WithTextCode(TextCodeBadRequest).
	WithCode(http.StatusBadRequest)

// ErrAlreadyRegistered the user already holds a registration for the event
var ErrAlreadyRegistered = errors.New("already registered for this event", errors.CategoryConflict).
	WithTextCode(TextCodeAlreadyRegistered).
	WithCode(http.StatusConflict)

// ErrNotFound no registration with the given id
var ErrNotFound = errors.New("registration not found", errors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(http.StatusNotFound)

func validationFailed(fields map[string]string) error {
	return ErrValidation.Clone().WithMetadata(map[string]any{"fields": fields})
}

func badRequest(fields map[string]string) error {
	return ErrBadRequest.Clone().WithMetadata(map[string]any{"fields": fields})
}
