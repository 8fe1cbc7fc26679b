package dockerpostgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-migrate/migrate/v4"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/pressly/goose/v3"
	"go.uber.org/multierr"
)

// Migrator applies the migrations found in dir to db.
type Migrator interface {
	Migrate(ctx context.Context, db *sql.DB, dir string) error
}

// MigratorFunc adapts a function to the [Migrator] interface.
type MigratorFunc func(ctx context.Context, db *sql.DB, dir string) error

func (f MigratorFunc) Migrate(ctx context.Context, db *sql.DB, dir string) error {
	return f(ctx, db, dir)
}

// GooseMigrator applies goose SQL migrations ("00001_name.sql" with -- +goose Up annotations).
func GooseMigrator() Migrator {
	return MigratorFunc(func(ctx context.Context, db *sql.DB, dir string) error {
		// The provider is not closed: that would close db, which belongs to the caller.
		provider, err := goose.NewProvider(goose.DialectPostgres, db, os.DirFS(dir))
		if err != nil {
			return fmt.Errorf("goose provider: %w", err)
		}
		if _, err := provider.Up(ctx); err != nil {
			return fmt.Errorf("goose up: %w", err)
		}
		return nil
	})
}

// GolangMigrator applies golang-migrate migrations ("1_name.up.sql"). Running it against an up to
// date database is not an error. The migrate driver takes ownership of db: it is closed when
// Migrate returns.
func GolangMigrator() Migrator {
	return MigratorFunc(func(ctx context.Context, db *sql.DB, dir string) (retErr error) {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("resolve migrations dir: %w", err)
		}
		driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
		if err != nil {
			return fmt.Errorf("golang-migrate driver: %w", err)
		}
		m, err := migrate.NewWithDatabaseInstance("file://"+filepath.ToSlash(abs), "pgx5", driver)
		if err != nil {
			return fmt.Errorf("golang-migrate: %w", err)
		}
		defer func() {
			srcErr, dbErr := m.Close()
			retErr = multierr.Combine(retErr, srcErr, dbErr)
		}()
		stop := context.AfterFunc(ctx, func() {
			select {
			case m.GracefulStop <- true:
			default:
			}
		})
		defer stop()
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("golang-migrate up: %w", err)
		}
		return ctx.Err()
	})
}
