package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// Ticket QR tokens are the only credential needed to check a vehicle out, so
// they never reach the traffic log.
var redactedKeys = map[string]bool{
	"qr_code":  true,
	"qr_token": true,
}

const redactedValue = "[redacted]"

func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if logger == nil || !logger.Enabled(ctx, slog.LevelDebug) {
				return next(ctx, method, req)
			}

			params := safeParams(req)
			attrs := []any{
				"direction", direction,
				"method", method,
				"session_id", safeSessionID(req),
				"operator_id", operatorID(ctx),
			}
			if call, ok := params.(*sdkmcp.CallToolParamsRaw); ok && call != nil {
				attrs = append(attrs, "tool", call.Name)
			}
			logger.Debug("mcp traffic", append(attrs, "stage", "request", "params", formatPayload(params))...)

			result, err := next(ctx, method, req)
			if strings.HasPrefix(method, "notifications/") {
				return result, err
			}
			attrs = append(attrs, "stage", "response", "result", formatPayload(result))
			if err != nil {
				attrs = append(attrs, "error", err)
			}
			logger.Debug("mcp traffic", attrs...)
			return result, err
		}
	}
}

func safeSessionID(req sdkmcp.Request) string {
	if req == nil {
		return ""
	}
	defer func() { recover() }()
	session := req.GetSession()
	if session == nil {
		return ""
	}
	return session.ID()
}

func safeParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

// formatPayload renders payload as JSON with ticket tokens masked, including
// tokens inside JSON carried as text content.
func formatPayload(payload any) string {
	if payload == nil {
		return "<nil>"
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	var tree any
	if err := json.Unmarshal(data, &tree); err != nil {
		return string(data)
	}
	out, err := json.Marshal(redact(tree))
	if err != nil {
		return fmt.Sprintf("%T", payload)
	}
	return string(out)
}

func redact(v any) any {
	switch node := v.(type) {
	case map[string]any:
		for key, val := range node {
			if s, ok := val.(string); ok && redactedKeys[key] && s != "" {
				node[key] = redactedValue
				continue
			}
			node[key] = redact(val)
		}
		return node
	case []any:
		for i := range node {
			node[i] = redact(node[i])
		}
		return node
	case string:
		text := strings.TrimSpace(node)
		if !strings.HasPrefix(text, "{") && !strings.HasPrefix(text, "[") {
			return node
		}
		var inner any
		if err := json.Unmarshal([]byte(text), &inner); err != nil {
			return node
		}
		out, err := json.Marshal(redact(inner))
		if err != nil {
			return node
		}
		return string(out)
	default:
		return v
	}
}
