package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/repository"
)

// OperatorRepository implements operator.Repository for PostgreSQL
type OperatorRepository struct {
	db *DB
}

// NewOperatorRepository creates a new OperatorRepository
func NewOperatorRepository(db *DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// Create inserts an operator together with its API key hash
func (r *OperatorRepository) Create(ctx context.Context, op *operator.Operator, keyHash string) error {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO operators (id, name, role, created_at) VALUES ($1, $2, $3, $4)`,
			op.ID, op.Name, string(op.Role), op.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO api_keys (key_hash, operator_id, created_at) VALUES ($1, $2, $3)`,
			keyHash, op.ID, op.CreatedAt,
		)
		return err
	})
	if err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("failed to create operator: %w", err)
	}
	return nil
}

// GetByKeyHash resolves the operator owning an API key hash
func (r *OperatorRepository) GetByKeyHash(ctx context.Context, keyHash string) (*operator.Operator, error) {
	op, err := scanOperator(r.db.QueryRow(ctx, `
		SELECT o.id, o.name, o.role, o.created_at, k.last_used
		FROM api_keys k
		JOIN operators o ON o.id = k.operator_id
		WHERE k.key_hash = $1`, keyHash))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get operator: %w", err)
	}
	return op, nil
}

// List returns every operator with the last use of its key
func (r *OperatorRepository) List(ctx context.Context) ([]operator.Operator, error) {
	rows, err := r.db.Query(ctx, `
		SELECT o.id, o.name, o.role, o.created_at, MAX(k.last_used)
		FROM operators o
		LEFT JOIN api_keys k ON k.operator_id = o.id
		GROUP BY o.id, o.name, o.role, o.created_at
		ORDER BY o.created_at, o.name`)
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operator rows: %w", err)
	}
	return ops, nil
}

// TouchLastUsed records when an API key was last presented
func (r *OperatorRepository) TouchLastUsed(ctx context.Context, keyHash string, at time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE api_keys SET last_used = $1 WHERE key_hash = $2`, at, keyHash)
	if err != nil {
		return fmt.Errorf("failed to update api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func scanOperator(row pgx.Row) (*operator.Operator, error) {
	var op operator.Operator
	var role string
	if err := row.Scan(&op.ID, &op.Name, &role, &op.CreatedAt, &op.LastUsed); err != nil {
		return nil, err
	}
	op.Role = operator.Role(role)
	return &op, nil
}
