package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/uptrace/bun"
)

// SchemaFunc creates the tables owned by a package. It must be idempotent.
type SchemaFunc func(ctx context.Context, db bun.IDB) error

// RepositoryManager owns the portal database handle: the users repository,
// the transaction runner, schema migration and the health check.
type RepositoryManager interface {
	Validate() error
	MustValidate()
	RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error
	Users() Users
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
}

// ManagerOption configures a RepositoryManager.
type ManagerOption func(*mngr)

// WithSchema registers an extra schema, created after the users table
// inside the same migration transaction.
func WithSchema(name string, fn SchemaFunc) ManagerOption {
	return func(m *mngr) {
		if fn == nil {
			return
		}
		m.schemas = append(m.schemas, namedSchema{name: name, create: fn})
	}
}

type namedSchema struct {
	name   string
	create SchemaFunc
}

type mngr struct {
	db      *bun.DB
	users   Users
	schemas []namedSchema
}

var _ RepositoryManager = (*mngr)(nil)

func NewRepositoryManager(db *bun.DB, opts ...ManagerOption) RepositoryManager {
	m := &mngr{
		db:      db,
		users:   NewUsersRepository(db),
		schemas: []namedSchema{{name: "users", create: CreateSchema}},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *mngr) Validate() error {
	if m.db == nil {
		return errors.New("repository manager requires a database")
	}

	if m.users == nil {
		return errors.New("repository users should be initialized")
	}

	return nil
}

func (m *mngr) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *mngr) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Migrate creates every registered schema in one transaction.
func (m *mngr) Migrate(ctx context.Context) error {
	return m.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, s := range m.schemas {
			if err := s.create(ctx, tx); err != nil {
				return fmt.Errorf("create %s schema: %w", s.name, err)
			}
		}
		return nil
	})
}

func (m *mngr) Ping(ctx context.Context) error {
	if err := m.db.PingContext(ctx); err != nil {
		return Internal(err, "database unavailable")
	}
	return nil
}

func (m *mngr) Users() Users {
	return m.users
}
