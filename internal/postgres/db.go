// Package postgres stores parking data in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rpggio/parkline/migrations"
)

// migrationLock is the advisory lock key held while migrating.
const migrationLock = 7_301_544

// DB wraps a PostgreSQL connection pool
type DB struct {
	*pgxpool.Pool
}

// New connects a pool and verifies it can reach the server
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return &DB{pool}, nil
}

// RunMigrations applies every embedded migration that has not run yet.
// Concurrent callers are serialized with an advisory lock.
func (db *DB) RunMigrations(ctx context.Context) error {
	steps, err := migrations.Load("postgres")
	if err != nil {
		return err
	}

	_, err = db.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	for _, step := range steps {
		if err := db.apply(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (db *DB) apply(ctx context.Context, step migrations.Migration) error {
	tx, err := db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, migrationLock); err != nil {
		return fmt.Errorf("failed to lock migrations: %w", err)
	}

	var applied bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE name = $1)`, step.Name,
	).Scan(&applied)
	if err != nil {
		return fmt.Errorf("failed to check migration %s: %w", step.Name, err)
	}
	if applied {
		return nil
	}

	if _, err := tx.Exec(ctx, step.SQL); err != nil {
		return fmt.Errorf("failed to run migration %s: %w", step.Name, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (name, applied_at) VALUES ($1, $2)`, step.Name, time.Now().UTC(),
	); err != nil {
		return fmt.Errorf("failed to record migration %s: %w", step.Name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit migration %s: %w", step.Name, err)
	}
	return nil
}
