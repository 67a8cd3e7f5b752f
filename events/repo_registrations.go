package events

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Store persists registrations. Insert must surface unique violations of
// the (event_id, user_id) pair as driver errors, the service translates
// them.
type Store interface {
	Insert(ctx context.Context, record *Registration) error
	Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Registration, error)
	SetAttended(ctx context.Context, id uuid.UUID, attended bool, at time.Time) (*Registration, error)
}

type registrations struct {
	db bun.IDB
}

var _ Store = (*registrations)(nil)

// NewRegistrationsRepository creates the bun backed store
func NewRegistrationsRepository(db bun.IDB) Store {
	return &registrations{db: db}
}

// CreateSchema creates the registrations table and its unique constraint
func CreateSchema(ctx context.Context, db bun.IDB) error {
	_, err := db.NewCreateTable().
		Model((*Registration)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return err
	}

	_, err = db.NewCreateIndex().
		Model((*Registration)(nil)).
		Index("idx_event_registrations_user_created").
		Column("user_id", "created_at").
		IfNotExists().
		Exec(ctx)
	return err
}

func (r *registrations) Insert(ctx context.Context, record *Registration) error {
	_, err := r.db.NewInsert().
		Model(record).
		Returning("NULL").
		Exec(ctx)
	return err
}

func (r *registrations) Exists(ctx context.Context, eventID, userID uuid.UUID) (bool, error) {
	return r.db.NewSelect().
		Model((*Registration)(nil)).
		Where("?TableAlias.event_id = ?", eventID).
		Where("?TableAlias.user_id = ?", userID).
		Exists(ctx)
}

func (r *registrations) GetByID(ctx context.Context, id uuid.UUID) (*Registration, error) {
	record := &Registration{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

func (r *registrations) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Registration, error) {
	records := make([]*Registration, 0)
	err := r.db.NewSelect().
		Model(&records).
		Where("?TableAlias.user_id = ?", userID).
		OrderExpr("?TableAlias.created_at ASC, ?TableAlias.id ASC").
		Scan(ctx)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}
	return records, nil
}

func (r *registrations) SetAttended(ctx context.Context, id uuid.UUID, attended bool, at time.Time) (*Registration, error) {
	res, err := r.db.NewUpdate().
		Model((*Registration)(nil)).
		Set("attended = ?", attended).
		Set("updated_at = ?", at).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, err
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id)
}
