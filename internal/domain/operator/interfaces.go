package operator

import (
	"context"
	"time"
)

// Repository provides persistence for operators and their API key hashes.
type Repository interface {
	Create(ctx context.Context, op *Operator, keyHash string) error
	GetByKeyHash(ctx context.Context, keyHash string) (*Operator, error)
	List(ctx context.Context) ([]Operator, error)
	TouchLastUsed(ctx context.Context, keyHash string, at time.Time) error
}
