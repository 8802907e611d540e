package mcp

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const secretToken = "9f1c2b7e4d5a6c8b0e3f2a1d4c5b6a79"

func TestFormatPayload_RedactsTicketTokens(t *testing.T) {
	params := &sdkmcp.CallToolParamsRaw{
		Name:      "check_out",
		Arguments: json.RawMessage(`{"qr_code":"` + secretToken + `","payment_method":"cash"}`),
	}
	out := formatPayload(params)
	require.NotContains(t, out, secretToken)
	require.Contains(t, out, `"qr_code":"[redacted]"`)
	require.Contains(t, out, `"payment_method":"cash"`)

	result := &sdkmcp.CallToolResult{Content: []sdkmcp.Content{
		&sdkmcp.TextContent{Text: `{"ticket_number":"PRK20241206001","qr_token":"` + secretToken + `"}`},
	}}
	out = formatPayload(result)
	require.NotContains(t, out, secretToken)
	require.Contains(t, out, "PRK20241206001")
}

func TestFormatPayload_LeavesOtherValuesAlone(t *testing.T) {
	require.Equal(t, "<nil>", formatPayload(nil))
	require.Equal(t, `{"qr_code":"","reason":"{not json"}`, formatPayload(map[string]string{"qr_code": "", "reason": "{not json"}))
	require.Equal(t, `[1,2]`, formatPayload([]int{1, 2}))
}

func TestTrafficLogging_MasksScannedToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	tc := connectWithLogger(t, nil, logger)

	res := tc.call(t, "scan_ticket", map[string]any{"qr_code": secretToken})
	require.False(t, res.IsError, resultText(t, res))
	require.Contains(t, resultText(t, res), secretToken)

	logs := buf.String()
	require.Contains(t, logs, `msg="mcp traffic"`)
	require.Contains(t, logs, "tool=scan_ticket")
	require.Contains(t, logs, "[redacted]")
	require.NotContains(t, logs, secretToken)
}
