package auth_test

import (
	"context"
	"database/sql"
	"testing"

	auth "github.com/goliatone/go-member-auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"golang.org/x/crypto/bcrypt"

	_ "github.com/mattn/go-sqlite3"
)

func setupUsersRepo(t *testing.T) (auth.Users, *bun.DB) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	bunDB := bun.NewDB(db, sqlitedialect.New())
	require.NoError(t, auth.CreateSchema(context.Background(), bunDB))

	t.Cleanup(func() {
		_ = bunDB.Close()
	})

	return auth.NewUsersRepository(bunDB), bunDB
}

func seedUser(t *testing.T, repo auth.Users, email, password string, role auth.UserRole) *auth.User {
	t.Helper()

	hash, err := auth.HashPasswordWithCost(password, bcrypt.MinCost)
	require.NoError(t, err)

	user, err := repo.CreateUser(context.Background(), &auth.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Name:         "Seeded User",
	})
	require.NoError(t, err)
	return user
}

func TestUsersRepository_CreateAndLookup(t *testing.T) {
	repo, _ := setupUsersRepo(t)
	ctx := context.Background()

	created := seedUser(t, repo, "  Ana@Example.com ", "correct horse", auth.RoleMember)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.Equal(t, "ana@example.com", created.Email)
	assert.Equal(t, auth.MembershipPending, created.MembershipStatus)
	assert.Equal(t, 1, created.Level)

	byEmail, err := repo.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)
	assert.Equal(t, auth.RoleMember, byEmail.Role)

	byID, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", byID.Email)
}

func TestUsersRepository_NotFound(t *testing.T) {
	repo, _ := setupUsersRepo(t)
	ctx := context.Background()

	_, err := repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, auth.ErrUserNotFound)

	_, err = repo.UpdateProfile(ctx, uuid.New(), auth.PartialClaims{Bio: strPtr("x")})
	assert.ErrorIs(t, err, auth.ErrUserNotFound)
}

func TestUsersRepository_DuplicateEmail(t *testing.T) {
	repo, _ := setupUsersRepo(t)

	seedUser(t, repo, "dup@example.com", "password-one", auth.RoleMember)

	_, err := repo.CreateUser(context.Background(), &auth.User{
		Email:        "dup@example.com",
		PasswordHash: "hash",
		Name:         "Other",
	})
	require.Error(t, err)
	assert.Equal(t, 409, auth.HTTPStatus(err))
}

func TestUsersRepository_RejectsUnknownRole(t *testing.T) {
	repo, _ := setupUsersRepo(t)

	_, err := repo.CreateUser(context.Background(), &auth.User{
		Email:        "owner@example.com",
		PasswordHash: "hash",
		Role:         auth.UserRole("OWNER"),
	})
	require.Error(t, err)
	assert.True(t, auth.IsTextCode(err, auth.TextCodeValidation))
}

func TestUsersRepository_UpdateProfile(t *testing.T) {
	repo, _ := setupUsersRepo(t)
	ctx := context.Background()

	user := seedUser(t, repo, "bio@example.com", "password", auth.RoleMember)

	_, err := repo.UpdateProfile(ctx, user.ID, auth.PartialClaims{
		Phone: strPtr("+16502530000"),
		Bio:   strPtr("Robotics"),
	})
	require.NoError(t, err)

	stored, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "+16502530000", stored.Phone)
	assert.Equal(t, "Robotics", stored.Bio)
	assert.Equal(t, "Seeded User", stored.Name)
	assert.Equal(t, auth.RoleMember, stored.Role)
	assert.Equal(t, user.PasswordHash, stored.PasswordHash)
}
