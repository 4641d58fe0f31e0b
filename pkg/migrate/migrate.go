package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where cmd/migrate reads and writes migration files.
const DefaultDir = "pkg/migrate/migrations"

// EmbeddedDir is the migrations directory inside the compiled binary.
const EmbeddedDir = "migrations"

const dialect = "postgres"

//go:embed migrations/*.sql
var embedded embed.FS

// Runner applies goose migrations to a Postgres database. Goose keeps its
// base filesystem globally, so runners are not safe for concurrent use.
type Runner struct {
	db   *sql.DB
	dir  string
	fsys fs.FS
}

// NewRunner reads migrations from dir on disk.
func NewRunner(db *sql.DB, dir string) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	if dir == "" {
		return nil, errors.New("dir is required")
	}
	return &Runner{db: db, dir: dir}, nil
}

// NewEmbeddedRunner reads the migrations compiled into the binary.
func NewEmbeddedRunner(db *sql.DB) (*Runner, error) {
	r, err := NewRunner(db, EmbeddedDir)
	if err != nil {
		return nil, err
	}
	r.fsys = embedded
	return r, nil
}

func (r *Runner) prepare() error {
	goose.SetBaseFS(r.fsys)
	if err := goose.SetDialect(dialect); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return nil
}

// Exec runs a goose command without extra arguments (up, down, status, ...).
func (r *Runner) Exec(ctx context.Context, command string) error {
	if err := r.prepare(); err != nil {
		return err
	}
	if err := goose.RunContext(ctx, command, r.db, r.dir); err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

// Up applies every pending migration.
func (r *Runner) Up(ctx context.Context) error {
	return r.Exec(ctx, "up")
}

// To migrates up or down until the database sits at version
// (YYYYMMDDHHMMSS).
func (r *Runner) To(ctx context.Context, version string) error {
	target, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", version, err)
	}
	if err := r.prepare(); err != nil {
		return err
	}

	current, err := goose.GetDBVersionContext(ctx, r.db)
	if err != nil {
		return fmt.Errorf("get db version: %w", err)
	}

	switch {
	case current == target:
		return nil
	case current < target:
		if err := goose.UpToContext(ctx, r.db, r.dir, target); err != nil {
			return fmt.Errorf("goose up-to %d: %w", target, err)
		}
	default:
		if err := goose.DownToContext(ctx, r.db, r.dir, target); err != nil {
			return fmt.Errorf("goose down-to %d: %w", target, err)
		}
	}
	return nil
}
