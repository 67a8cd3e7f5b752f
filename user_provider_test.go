package auth_test

import (
	"context"
	"errors"
	"testing"

	auth "github.com/goliatone/go-member-auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestVerifyCredentials(t *testing.T) {
	ctx := context.Background()

	hash, err := auth.HashPasswordWithCost("s3cret-pass", bcrypt.MinCost)
	require.NoError(t, err)

	user := newMember()
	user.PasswordHash = hash

	t.Run("match returns the user", func(t *testing.T) {
		store := new(MockUserFinder)
		store.On("GetByEmail", ctx, "ana@example.com").Return(user, nil).Once()

		got, err := auth.NewUserProvider(store).WithLogger(auth.NoopLogger{}).
			VerifyCredentials(ctx, " Ana@Example.com ", "s3cret-pass")
		require.NoError(t, err)
		assert.Equal(t, user.ID, got.ID)
		store.AssertExpectations(t)
	})

	t.Run("wrong password", func(t *testing.T) {
		store := new(MockUserFinder)
		store.On("GetByEmail", ctx, "ana@example.com").Return(user, nil).Once()

		_, err := auth.NewUserProvider(store).WithLogger(auth.NoopLogger{}).
			VerifyCredentials(ctx, "ana@example.com", "nope")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		store := new(MockUserFinder)
		store.On("GetByEmail", ctx, "ghost@example.com").Return(nil, auth.ErrUserNotFound).Once()

		_, err := auth.NewUserProvider(store).WithLogger(auth.NoopLogger{}).
			VerifyCredentials(ctx, "ghost@example.com", "whatever")
		assert.ErrorIs(t, err, auth.ErrUserNotFound)
	})

	t.Run("store failure is internal", func(t *testing.T) {
		store := new(MockUserFinder)
		store.On("GetByEmail", ctx, mock.Anything).Return(nil, errors.New("connection refused")).Once()

		_, err := auth.NewUserProvider(store).WithLogger(auth.NoopLogger{}).
			VerifyCredentials(ctx, "ana@example.com", "s3cret-pass")
		require.Error(t, err)
		assert.Equal(t, 500, auth.HTTPStatus(err))
		assert.True(t, auth.IsTextCode(err, auth.TextCodeInternal))
	})
}
