package transport

import (
	"context"
	"net/http"
	"strings"

	"github.com/rpggio/parkline/internal/domain/operator"
)

type operatorKey struct{}

// OperatorResolver resolves the operator presenting a bearer token.
type OperatorResolver interface {
	Resolve(ctx context.Context, token string) (*operator.Operator, error)
}

// WithOperator returns a context carrying op.
func WithOperator(ctx context.Context, op *operator.Operator) context.Context {
	return context.WithValue(ctx, operatorKey{}, op)
}

// OperatorFromContext returns the authenticated operator, if present.
func OperatorFromContext(ctx context.Context) (*operator.Operator, bool) {
	op, ok := ctx.Value(operatorKey{}).(*operator.Operator)
	return op, ok && op != nil
}

// BearerToken extracts the token of an Authorization header.
func BearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthMiddleware enforces bearer token authentication.
func AuthMiddleware(resolver OperatorResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r.Header.Get("Authorization"))
			if token == "" {
				writeMessage(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			op, err := resolver.Resolve(r.Context(), token)
			if err != nil || op == nil {
				writeMessage(w, http.StatusUnauthorized, "invalid bearer token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
		})
	}
}

// StaticOperatorMiddleware attaches a fixed operator when auth is disabled.
func StaticOperatorMiddleware(op *operator.Operator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
		})
	}
}

// RequireAdmin rejects operators without the admin role.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op, ok := OperatorFromContext(r.Context())
		if !ok {
			writeMessage(w, http.StatusUnauthorized, "unauthenticated")
			return
		}
		if !op.IsAdmin() {
			writeMessage(w, http.StatusForbidden, "admin role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// DefaultOperator is the identity used when authentication is disabled.
func DefaultOperator() *operator.Operator {
	return &operator.Operator{ID: "local", Name: "local", Role: operator.RoleAdmin}
}
