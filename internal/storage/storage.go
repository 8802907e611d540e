// Package storage opens the configured backend and exposes its repositories.
package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rpggio/parkline/internal/config"
	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/postgres"
	"github.com/rpggio/parkline/internal/sqlite"
)

// Stores holds the repositories of one migrated backend.
type Stores struct {
	Sessions  parking.SessionRepository
	Rates     rate.Repository
	Reports   report.Repository
	Operators operator.Repository

	close func()
}

// Close releases the backend.
func (s *Stores) Close() {
	if s.close != nil {
		s.close()
	}
}

// Open connects to the configured driver and applies pending migrations.
func Open(ctx context.Context, cfg config.DBConfig) (*Stores, error) {
	switch cfg.Driver {
	case "postgres":
		db, err := postgres.New(ctx, cfg.DSN)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return &Stores{
			Sessions:  postgres.NewSessionRepository(db),
			Rates:     postgres.NewRateRepository(db),
			Reports:   postgres.NewReportRepository(db),
			Operators: postgres.NewOperatorRepository(db),
			close:     db.Close,
		}, nil
	case "sqlite", "":
		if err := ensureDBDir(cfg.Path); err != nil {
			return nil, fmt.Errorf("prepare database path: %w", err)
		}
		db, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		if err := db.RunMigrations(); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		return &Stores{
			Sessions:  sqlite.NewSessionRepository(db),
			Rates:     sqlite.NewRateRepository(db),
			Reports:   sqlite.NewReportRepository(db),
			Operators: sqlite.NewOperatorRepository(db),
			close:     func() { _ = db.Close() },
		}, nil
	default:
		return nil, fmt.Errorf("unknown db driver %q", cfg.Driver)
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
