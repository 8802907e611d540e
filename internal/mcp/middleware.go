package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/parkline/internal/domain/operator"
)

type contextKey int

const operatorKey contextKey = iota

// operatorFromContext returns the operator attached by the auth middleware.
func operatorFromContext(ctx context.Context) *operator.Operator {
	op, _ := ctx.Value(operatorKey).(*operator.Operator)
	return op
}

func operatorID(ctx context.Context) string {
	if op := operatorFromContext(ctx); op != nil {
		return op.ID
	}
	return ""
}

// OperatorResolver resolves the operator presenting a bearer token.
type OperatorResolver interface {
	Resolve(ctx context.Context, token string) (*operator.Operator, error)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver OperatorResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Protocol handshakes carry no identity.
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			auth := extra.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			op, err := resolver.Resolve(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if op == nil {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			ctx = context.WithValue(ctx, operatorKey, op)
			return next(ctx, method, req)
		}
	}
}

// noAuthMiddleware injects a fixed operator when auth is disabled.
func noAuthMiddleware(op *operator.Operator) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, operatorKey, op)
			return next(ctx, method, req)
		}
	}
}

// requireAdmin fails unless the calling operator is an admin.
func requireAdmin(ctx context.Context) error {
	op := operatorFromContext(ctx)
	if op == nil {
		return &APIError{Code: "UNAUTHORIZED", Message: "no operator on request", RecoveryHint: "Send a bearer token"}
	}
	if !op.IsAdmin() {
		return &APIError{Code: "FORBIDDEN", Message: "admin role required", RecoveryHint: "Ask an admin to run this tool"}
	}
	return nil
}
