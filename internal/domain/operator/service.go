package operator

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/parkline/internal/repository"
)

const tokenPrefix = "pk_"

// Service manages operators and resolves API tokens.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new operator service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Create registers an operator and returns its API token. Only the token hash
// is stored, so the token cannot be recovered later.
func (s *Service) Create(ctx context.Context, name string, role Role) (*Operator, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if !role.Valid() {
		return nil, "", fmt.Errorf("%w: role must be admin or operator", ErrInvalidInput)
	}

	token, err := newToken()
	if err != nil {
		return nil, "", err
	}

	op := &Operator{
		ID:        uuid.NewString(),
		Name:      name,
		Role:      role,
		CreatedAt: s.now(),
	}
	if err := s.repo.Create(ctx, op, HashToken(token)); err != nil {
		return nil, "", fmt.Errorf("creating operator: %w", err)
	}

	s.logger.Info("operator created", "operator_id", op.ID, "role", op.Role)
	return op, token, nil
}

// Resolve returns the operator owning token.
func (s *Service) Resolve(ctx context.Context, token string) (*Operator, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrUnauthorized
	}

	hash := HashToken(token)
	op, err := s.repo.GetByKeyHash(ctx, hash)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnauthorized
		}
		return nil, fmt.Errorf("resolving token: %w", err)
	}

	if err := s.repo.TouchLastUsed(ctx, hash, s.now()); err != nil {
		s.logger.Warn("failed to record token use", "operator_id", op.ID, "error", err)
	}
	return op, nil
}

// List returns every operator.
func (s *Service) List(ctx context.Context) ([]Operator, error) {
	ops, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing operators: %w", err)
	}
	return ops, nil
}

// HashToken returns the stored form of an API token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return tokenPrefix + hex.EncodeToString(buf), nil
}
