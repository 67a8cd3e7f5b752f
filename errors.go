package auth

import (
	"net/http"
	"strings"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeUserNotFound       = "USER_NOT_FOUND"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeTokenMalformed     = "TOKEN_MALFORMED"
	TextCodeUnauthenticated    = "UNAUTHENTICATED"
	TextCodeUnauthorized       = "UNAUTHORIZED"
	TextCodeMissingSession     = "MISSING_SESSION"
	TextCodeMissingUser        = "MISSING_USER"
	TextCodeSigningFailed      = "TOKEN_SIGNING_FAILED"
	TextCodeInternal           = "INTERNAL"
	TextCodeValidation         = "VALIDATION_FAILED"
	TextCodeImmutableClaim     = "IMMUTABLE_CLAIM"
)

// ErrInvalidCredentials is the only login failure callers outside the
// verifier ever see.
var ErrInvalidCredentials = errors.New("invalid credentials", errors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(http.StatusUnauthorized)

// ErrUserNotFound is returned by the verifier when no user owns the email
var ErrUserNotFound = errors.New("user not found", errors.CategoryNotFound).
	WithTextCode(TextCodeUserNotFound).
	WithCode(http.StatusNotFound)

// ErrTokenExpired the token signature is valid but exp is in the past
var ErrTokenExpired = errors.New("token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(http.StatusUnauthorized)

// ErrTokenMalformed the token could not be parsed or verified
var ErrTokenMalformed = errors.New("token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(http.StatusUnauthorized)

// ErrUnauthenticated no token was presented on a route that needs one
var ErrUnauthenticated = errors.New("authentication required", errors.CategoryAuth).
	WithTextCode(TextCodeUnauthenticated).
	WithCode(http.StatusUnauthorized)

// ErrAccessDenied is the uniform gate denial. It does not tell a missing
// session apart from an insufficient role.
var ErrAccessDenied = errors.New("unauthorized", errors.CategoryAuthz).
	WithTextCode(TextCodeUnauthorized).
	WithCode(http.StatusUnauthorized)

// ErrMissingSession a refresh was requested without an existing session
var ErrMissingSession = errors.New("refresh requires an existing session", errors.CategoryInternal).
	WithTextCode(TextCodeMissingSession).
	WithCode(http.StatusInternalServerError)

// ErrMissingUser a fresh issue was requested without a user
var ErrMissingUser = errors.New("fresh issue requires a user", errors.CategoryInternal).
	WithTextCode(TextCodeMissingUser).
	WithCode(http.StatusInternalServerError)

// ErrImmutableClaimMutation a refresh changed a claim only fresh issuance
// may set
var ErrImmutableClaimMutation = errors.New("immutable claim mutated", errors.CategoryInternal).
	WithTextCode(TextCodeImmutableClaim).
	WithCode(http.StatusInternalServerError)

// ErrNoEmptyString password hashing refuses empty input
var ErrNoEmptyString = errors.New("password must not be empty", errors.CategoryBadInput).
	WithTextCode(TextCodeValidation).
	WithCode(http.StatusUnprocessableEntity)

// IsTextCode reports whether err is a rich error carrying the text code
func IsTextCode(err error, code string) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsTokenExpiredError will check for expired tokens
func IsTokenExpiredError(err error) bool {
	if err == nil {
		return false
	}
	if IsTextCode(err, TextCodeTokenExpired) {
		return true
	}
	return strings.Contains(err.Error(), "token is expired")
}

// IsMalformedError will check for error message
func IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	if IsTextCode(err, TextCodeTokenMalformed) {
		return true
	}
	return strings.Contains(err.Error(), "token is malformed") ||
		strings.Contains(err.Error(), "missing or malformed JWT")
}

// ValidationError builds a validation failure carrying per field messages
func ValidationError(message string, fields map[string]string) *errors.Error {
	return errors.New(message, errors.CategoryValidation).
		WithTextCode(TextCodeValidation).
		WithCode(http.StatusUnprocessableEntity).
		WithMetadata(map[string]any{"fields": fields})
}

// Internal wraps an unexpected failure. The message returned to clients is
// generic, the source error stays attached for logging.
func Internal(err error, message string) *errors.Error {
	return errors.Wrap(err, errors.CategoryInternal, message).
		WithTextCode(TextCodeInternal).
		WithCode(http.StatusInternalServerError)
}
