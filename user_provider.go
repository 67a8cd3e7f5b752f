package auth

import (
	"context"
	"strings"

	"github.com/goliatone/go-errors"
)

// UserProvider verifies credentials against the users store
type UserProvider struct {
	store  UserFinder
	logger Logger
}

var _ CredentialVerifier = (*UserProvider)(nil)

// NewUserProvider will create a new UserProvider
func NewUserProvider(store UserFinder) *UserProvider {
	return &UserProvider{
		store:  store,
		logger: defLogger{},
	}
}

// WithLogger sets the logger
func (u *UserProvider) WithLogger(l Logger) *UserProvider {
	u.logger = normalizeLogger(l)
	return u
}

// VerifyCredentials looks the user up by email and compares the password
// to the stored bcrypt hash. An unknown email returns ErrUserNotFound, a
// wrong password ErrInvalidCredentials. The login boundary collapses both.
func (u *UserProvider) VerifyCredentials(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := u.store.GetByEmail(ctx, email)
	if err != nil {
		if errors.IsNotFound(err) || errors.Is(err, ErrUserNotFound) {
			// burn the same bcrypt work as a real comparison
			_ = ComparePasswordAndHash(password, dummyHash())
			return nil, ErrUserNotFound
		}
		u.logger.Error("verify credentials store lookup failed", "error", err)
		return nil, Internal(err, "failed to retrieve user during verification")
	}

	if user == nil || user.PasswordHash == "" {
		_ = ComparePasswordAndHash(password, dummyHash())
		return nil, ErrUserNotFound
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return nil, ErrInvalidCredentials
		}
		u.logger.Error("verify credentials hash comparison failed", "error", err)
		return nil, Internal(err, "failed to compare password hash")
	}

	return user, nil
}
