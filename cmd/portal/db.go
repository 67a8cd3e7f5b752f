package main

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"sync"

	auth "github.com/goliatone/go-member-auth"
	"github.com/goliatone/go-member-auth/config"
	"github.com/goliatone/go-member-auth/events"
	persistence "github.com/goliatone/go-persistence-bun"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"github.com/uptrace/bun/extra/bundebug"
	"github.com/uptrace/bun/schema"
)

const migrationsDir = "data/sql/migrations"

var registerModels = sync.OnceFunc(func() {
	persistence.RegisterModel((*auth.User)(nil))
	persistence.RegisterModel((*events.Registration)(nil))
})

func openSQL(cfg config.DatabaseConfig) (*sql.DB, schema.Dialect, error) {
	switch cfg.Driver {
	case "postgres":
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return sqldb, pgdialect.New(), nil
	case "sqlite":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return sqldb, sqlitedialect.New(), nil
	}
	return nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// openDB connects through the persistence client and applies the embedded
// migrations for the configured dialect
func openDB(ctx context.Context, cfg config.DatabaseConfig, logger auth.Logger) (*bun.DB, error) {
	sqldb, dialect, err := openSQL(cfg)
	if err != nil {
		return nil, err
	}

	registerModels()

	client, err := persistence.New(cfg, sqldb, dialect)
	if err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("persistence client: %w", err)
	}
	client.SetLogger(logger)

	migrationsFS, err := fs.Sub(auth.GetMigrationsFS(), migrationsDir)
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}

	client.RegisterDialectMigrations(
		migrationsFS,
		persistence.WithDialectSourceLabel(migrationsDir),
		persistence.WithValidationTargets("postgres", "sqlite"),
	)
	if err := client.ValidateDialects(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("validate migrations: %w", err)
	}

	if err := client.Migrate(ctx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	db := client.DB()
	if cfg.Debug {
		db.AddQueryHook(bundebug.NewQueryHook(bundebug.WithVerbose(true)))
	}

	return db, nil
}

func newRepositoryManager(db *bun.DB) auth.RepositoryManager {
	return auth.NewRepositoryManager(db, auth.WithSchema("registrations", events.CreateSchema))
}
