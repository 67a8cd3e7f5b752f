package auth

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users is the users store
type Users interface {
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	CreateUser(ctx context.Context, user *User) (*User, error)
	CreateUserTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update PartialClaims) (*User, error)
	UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, update PartialClaims) (*User, error)
}

type users struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Users      = (*users)(nil)
	_ UserFinder = (*users)(nil)
)

// NewUsersRepository creates the bun backed users store
func NewUsersRepository(db *bun.DB) Users {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &users{
		Repository: repo,
		db:         db,
	}
}

// CreateSchema creates the users table when missing
func CreateSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx)
	return err
}

func (a *users) GetByEmail(ctx context.Context, email string) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.email = ?", strings.ToLower(strings.TrimSpace(email))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, Internal(err, "failed to load user")
	}
	return record, nil
}

func (a *users) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	record := &User{}
	err := a.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, Internal(err, "failed to load user")
	}
	return record, nil
}

func (a *users) CreateUser(ctx context.Context, user *User) (*User, error) {
	return a.CreateUserTx(ctx, a.db, user)
}

func (a *users) CreateUserTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	if user == nil {
		return nil, ErrMissingUser
	}

	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	prepareUserDefaults(user)

	if !user.Role.IsValid() || user.Role == RoleAnonymous {
		return nil, ValidationError("invalid user", map[string]string{
			"role": "must be one of MEMBER, ADMIN, SUPER_ADMIN",
		})
	}

	created, err := a.Repository.CreateTx(ctx, tx, user)
	if err != nil {
		if IsUniqueViolation(err) {
			return nil, errors.New("email already in use", errors.CategoryConflict).
				WithTextCode("EMAIL_TAKEN").
				WithCode(409)
		}
		return nil, Internal(err, "failed to create user")
	}
	return created, nil
}

func (a *users) UpdateProfile(ctx context.Context, id uuid.UUID, update PartialClaims) (*User, error) {
	return a.UpdateProfileTx(ctx, a.db, id, update)
}

// UpdateProfileTx writes the set fields of update to the user row. The
// row is loaded first so unset fields keep their stored value.
func (a *users) UpdateProfileTx(ctx context.Context, tx bun.IDB, id uuid.UUID, update PartialClaims) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, Internal(err, "failed to load user")
	}

	if update.IsEmpty() {
		return record, nil
	}

	update.Apply(record)
	now := time.Now().UTC()
	record.UpdatedAt = &now

	updated, err := a.Repository.UpdateTx(ctx, tx, record, repository.UpdateByID(id.String()))
	if err != nil {
		return nil, Internal(err, "failed to update user profile")
	}
	return updated, nil
}
