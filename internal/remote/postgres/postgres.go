// Package postgres implements remote.Table on a PostgreSQL sessions table.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/dojolog/internal/remote"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Table implements remote.Table backed by a PostgreSQL database.
type Table struct {
	db *sql.DB
}

// Compile-time check that Table implements remote.Table.
var _ remote.Table = (*Table)(nil)

// Connect prepares a connection pool for databaseURL without contacting
// the server, so an offline remote only fails the calls later made on it.
func Connect(databaseURL string) (*Table, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
	return &Table{db: db}, nil
}

// Open connects to the database at databaseURL and checks that it answers.
// It does not run migrations; see Migrate.
func Open(ctx context.Context, databaseURL string) (*Table, error) {
	t, err := Connect(databaseURL)
	if err != nil {
		return nil, err
	}
	if err := t.db.PingContext(ctx); err != nil {
		t.db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return t, nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sql.DB) *Table {
	return &Table{db: db}
}

// DB returns the underlying handle.
func (t *Table) DB() *sql.DB { return t.db }

// Close closes the underlying database connection.
func (t *Table) Close() error {
	return t.db.Close()
}

// Migrate applies every pending embedded migration. It reports the schema
// version afterwards.
func (t *Table) Migrate() (uint, error) {
	m, err := t.migrator()
	if err != nil {
		return 0, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return version, nil
}

// MigrateDown reverts every embedded migration.
func (t *Table) MigrateDown() error {
	m, err := t.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("revert migrations: %w", err)
	}
	return nil
}

func (t *Table) migrator() (*migrate.Migrate, error) {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := migratepg.WithInstance(t.db, &migratepg.Config{})
	if err != nil {
		return nil, fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

func (t *Table) Ping(ctx context.Context) error {
	if err := t.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	return nil
}

func (t *Table) Upsert(ctx context.Context, row remote.Row) error {
	return classify("upsert session", queryUpsertSession(ctx, t.db, row))
}

func (t *Table) Delete(ctx context.Context, userID, id string) error {
	return classify("delete session", queryDeleteSession(ctx, t.db, userID, id))
}

func (t *Table) SelectAll(ctx context.Context, userID string) ([]remote.Row, error) {
	rows, err := querySelectSessions(ctx, t.db, userID)
	if err != nil {
		return nil, classify("select sessions", err)
	}
	return rows, nil
}

// StaticAuthenticator is a fixed user id, used when the database is reached
// directly and there is no auth service. An empty value means signed out.
type StaticAuthenticator string

func (a StaticAuthenticator) CurrentUser(context.Context) (string, error) {
	return string(a), nil
}
