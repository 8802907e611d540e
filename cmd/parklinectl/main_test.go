package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) {
	t.Helper()
	t.Setenv("PARKLINE_CONFIG_PATH", "")
	t.Setenv("PARKLINE_DB_DRIVER", "sqlite")
	t.Setenv("PARKLINE_DB_PATH", filepath.Join(t.TempDir(), "ctl.db"))
}

func TestRun_OperatorLifecycle(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"add-operator", "-name", "Ayu", "-role", "admin"}, &out))
	require.Contains(t, out.String(), "(admin) created")

	var token string
	for _, line := range strings.Split(out.String(), "\n") {
		if strings.HasPrefix(line, "token: ") {
			token = strings.TrimPrefix(line, "token: ")
		}
	}
	require.NotEmpty(t, token)

	out.Reset()
	require.NoError(t, run(ctx, []string{"list-operators"}, &out))
	require.Contains(t, out.String(), "Ayu")
	require.Contains(t, out.String(), "never")
	require.NotContains(t, out.String(), token)
}

func TestRun_Rates(t *testing.T) {
	setupEnv(t)
	ctx := context.Background()

	var out bytes.Buffer
	require.NoError(t, run(ctx, []string{"seed-rates"}, &out))
	require.Contains(t, out.String(), "2 rate(s) created")

	out.Reset()
	require.NoError(t, run(ctx, []string{"set-rate", "-type", "car", "-first", "6000", "-next", "4000"}, &out))
	require.Contains(t, out.String(), "car: first 6000, next 4000")

	out.Reset()
	require.NoError(t, run(ctx, []string{"list-rates"}, &out))
	require.Contains(t, out.String(), "6000")
	require.Contains(t, out.String(), "30000")

	err := run(ctx, []string{"set-rate", "-type", "bus", "-first", "1", "-next", "1"}, &out)
	require.Error(t, err)
}

func TestRun_UnknownCommand(t *testing.T) {
	setupEnv(t)

	var out bytes.Buffer
	require.ErrorContains(t, run(context.Background(), []string{"drop-tables"}, &out), "unknown command")
	require.Contains(t, out.String(), "usage:")

	require.Error(t, run(context.Background(), nil, &out))
}
