package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/parkline/internal/domain/dashboard"
	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/mcp"
	"github.com/rpggio/parkline/internal/sqlite"
	"github.com/rpggio/parkline/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer runs the full HTTP stack over an in-memory SQLite database.
type TestServer struct {
	Server *httptest.Server
	DB     *sqlite.DB

	// AdminToken and OperatorToken authenticate as an admin and a gate operator.
	AdminToken    string
	OperatorToken string

	Parking *parking.Service
	Rates   *rate.Service
	Reports *report.Service
}

// Options tune the stack under test.
type Options struct {
	Now        func() time.Time
	Location   *time.Location
	TotalSlots int
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.TotalSlots == 0 {
		opts.TotalSlots = 100
	}

	rateSvc := rate.NewService(sqlite.NewRateRepository(db), nil)
	_, err = rateSvc.SeedDefaults(ctx)
	require.NoError(t, err)

	parkingSvc := parking.NewService(sqlite.NewSessionRepository(db), rateSvc, nil,
		parking.WithClock(opts.Now),
		parking.WithLocation(opts.Location),
	)
	reportSvc := report.NewService(sqlite.NewReportRepository(db), nil)
	dashboardSvc := dashboard.NewService(parkingSvc, reportSvc, opts.TotalSlots, opts.Location, nil, dashboard.WithClock(opts.Now))
	operatorSvc := operator.NewService(sqlite.NewOperatorRepository(db), nil)

	_, adminToken, err := operatorSvc.Create(ctx, "Admin", operator.RoleAdmin)
	require.NoError(t, err)
	_, operatorToken, err := operatorSvc.Create(ctx, "Gate", operator.RoleOperator)
	require.NoError(t, err)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Parking:   parkingSvc,
			Rates:     rateSvc,
			Reports:   reportSvc,
			Dashboard: dashboardSvc,
		},
		Resolver:      operatorSvc,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	mcpHandler := sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	server := httptest.NewServer(transport.NewServer(transport.Config{
		Services: transport.Services{
			Parking:   parkingSvc,
			Rates:     rateSvc,
			Reports:   reportSvc,
			Dashboard: dashboardSvc,
		},
		Auth: transport.AuthMiddleware(operatorSvc),
		MCP:  mcpHandler,
	}))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return &TestServer{
		Server:        server,
		DB:            db,
		AdminToken:    adminToken,
		OperatorToken: operatorToken,
		Parking:       parkingSvc,
		Rates:         rateSvc,
		Reports:       reportSvc,
	}
}
