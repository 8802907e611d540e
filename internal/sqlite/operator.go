package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/repository"
)

// OperatorRepository implements operator.Repository for SQLite
type OperatorRepository struct {
	db *DB
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(db *DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// Create inserts an operator together with its API key hash
func (r *OperatorRepository) Create(ctx context.Context, op *operator.Operator, keyHash string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO operators (id, name, role, created_at) VALUES (?, ?, ?, ?)`,
		op.ID, op.Name, op.Role, utc(op.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create operator: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO api_keys (key_hash, operator_id, created_at) VALUES (?, ?, ?)`,
		keyHash, op.ID, utc(op.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create api key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetByKeyHash resolves the operator owning an API key hash
func (r *OperatorRepository) GetByKeyHash(ctx context.Context, keyHash string) (*operator.Operator, error) {
	query := `
		SELECT o.id, o.name, o.role, o.created_at, k.last_used
		FROM api_keys k
		JOIN operators o ON o.id = k.operator_id
		WHERE k.key_hash = ?
	`

	op, err := scanOperator(r.db.QueryRowContext(ctx, query, keyHash))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return op, nil
}

// List returns every operator with the last use of its key
func (r *OperatorRepository) List(ctx context.Context) ([]operator.Operator, error) {
	query := `
		SELECT o.id, o.name, o.role, o.created_at, k.last_used
		FROM operators o
		LEFT JOIN api_keys k ON k.operator_id = o.id
		ORDER BY o.created_at, o.name
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list operators: %w", err)
	}
	defer rows.Close()

	ops := []operator.Operator{}
	for rows.Next() {
		op, err := scanOperator(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan operator: %w", err)
		}
		ops = append(ops, *op)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operator rows: %w", err)
	}
	return ops, nil
}

// TouchLastUsed records when an API key was last presented
func (r *OperatorRepository) TouchLastUsed(ctx context.Context, keyHash string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, utc(at), keyHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanOperator(row rowScanner) (*operator.Operator, error) {
	var op operator.Operator
	var lastUsed sql.NullTime
	if err := row.Scan(&op.ID, &op.Name, &op.Role, &op.CreatedAt, &lastUsed); err != nil {
		return nil, err
	}
	if lastUsed.Valid {
		op.LastUsed = &lastUsed.Time
	}
	return &op, nil
}
