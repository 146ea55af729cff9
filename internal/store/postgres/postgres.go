// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jpillora/backoff"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/qna/internal/idgen"
	"github.com/alfredjeanlab/qna/internal/model"
	"github.com/alfredjeanlab/qna/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
// Timestamps come from the database clock (now()), never the caller.
type PostgresStore struct {
	db *sql.DB
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// Option tunes the connection pool.
type Option func(*sql.DB)

// WithPool overrides the default pool limits.
func WithPool(maxOpen, maxIdle int, maxLifetime time.Duration) Option {
	return func(db *sql.DB) {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxIdle)
		db.SetConnMaxLifetime(maxLifetime)
	}
}

// New connects to databaseURL and applies pending migrations. The database
// often starts alongside the server, so the first ping is retried with
// backoff until ctx is done.
func New(ctx context.Context, databaseURL string, opts ...Option) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	WithPool(10, 5, 5*time.Minute)(db)
	for _, o := range opts {
		o(db)
	}

	if err := waitForDB(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

func waitForDB(ctx context.Context, db *sql.DB) error {
	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 5 * time.Second, Factor: 2}
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		wait := b.Duration()
		slog.Warn("database not ready", "error", err, "retry_in", wait)
		select {
		case <-ctx.Done():
			return fmt.Errorf("ping database: %w", err)
		case <-time.After(wait):
		}
	}
}

// runMigrations brings the questions schema up to date. Its own version
// table keeps it apart from anything else in the database.
func runMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}
	drv, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: "qna_schema_migrations"})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "postgres", drv)
	if err != nil {
		return fmt.Errorf("migrator: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) CreateQuestion(ctx context.Context, text string) (*model.Question, error) {
	text = model.NormalizeText(text)
	if text == "" {
		return nil, model.ErrEmptyText
	}
	id, err := idgen.NewQuestionID()
	if err != nil {
		return nil, err
	}
	return queryCreateQuestion(ctx, s.db, id, text)
}

func (s *PostgresStore) GetQuestion(ctx context.Context, id string) (*model.Question, error) {
	return notFound(queryGetQuestion(ctx, s.db, id))
}

func (s *PostgresStore) ListQuestions(ctx context.Context) ([]*model.Question, error) {
	return queryListQuestions(ctx, s.db)
}

func (s *PostgresStore) SetAnswer(ctx context.Context, id string, answer *string) (*model.Question, error) {
	return notFound(querySetAnswer(ctx, s.db, id, answer))
}

// notFound maps sql.ErrNoRows onto the store's not-found sentinel.
func notFound(q *model.Question, err error) (*model.Question, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	return q, err
}
