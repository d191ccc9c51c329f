package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"libraryapi/db"
)

// Migrations is a goose migration set. A nil FS reads Dir from disk.
type Migrations struct {
	FS  fs.FS
	Dir string
}

// MigrationSource returns the on-disk set when dir is given and the
// embedded set otherwise.
func MigrationSource(dir string) Migrations {
	if dir != "" {
		return Migrations{Dir: dir}
	}
	return Migrations{FS: db.Migrations, Dir: db.MigrationsDir}
}

func (m Migrations) Up(ctx context.Context, pool *pgxpool.Pool) error {
	return m.run(pool, func(sqlDB *sql.DB) error {
		if err := goose.UpContext(ctx, sqlDB, m.Dir); err != nil {
			return fmt.Errorf("migrate up: %w", err)
		}
		return nil
	})
}

func (m Migrations) Down(ctx context.Context, pool *pgxpool.Pool) error {
	return m.run(pool, func(sqlDB *sql.DB) error {
		if err := goose.DownContext(ctx, sqlDB, m.Dir); err != nil {
			return fmt.Errorf("migrate down: %w", err)
		}
		return nil
	})
}

func (m Migrations) Status(ctx context.Context, pool *pgxpool.Pool) error {
	return m.run(pool, func(sqlDB *sql.DB) error {
		if err := goose.StatusContext(ctx, sqlDB, m.Dir); err != nil {
			return fmt.Errorf("migrate status: %w", err)
		}
		return nil
	})
}

// Create writes a new SQL migration file. It needs an on-disk directory.
func (m Migrations) Create(name string) error {
	if m.FS != nil {
		return errors.New("cannot create migration in embedded set; set MIGRATIONS_DIR")
	}
	goose.SetBaseFS(nil)
	if err := goose.Create(nil, m.Dir, name, "sql"); err != nil {
		return fmt.Errorf("create migration: %w", err)
	}
	return nil
}

// Collect parses every migration in the set without touching a database.
func (m Migrations) Collect() (goose.Migrations, error) {
	goose.SetBaseFS(m.FS)
	defer goose.SetBaseFS(nil)
	return goose.CollectMigrations(m.Dir, 0, goose.MaxVersion)
}

func (m Migrations) run(pool *pgxpool.Pool, fn func(*sql.DB) error) error {
	goose.SetBaseFS(m.FS)
	defer goose.SetBaseFS(nil)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	sqlDB := stdlib.OpenDBFromPool(pool)
	defer sqlDB.Close()
	return fn(sqlDB)
}
