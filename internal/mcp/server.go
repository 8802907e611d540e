package mcp

import (
	"context"
	"log/slog"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/parkline/internal/domain/dashboard"
	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
)

// ParkingService defines session operations needed by MCP.
type ParkingService interface {
	CheckIn(ctx context.Context, req parking.CheckInRequest) (*parking.Session, error)
	Preview(ctx context.Context, qrToken string) (*parking.Preview, error)
	CheckOut(ctx context.Context, req parking.CheckOutRequest) (*parking.Session, error)
	Cancel(ctx context.Context, req parking.CancelRequest) (*parking.Session, error)
	Get(ctx context.Context, id string) (*parking.Session, error)
	Active(ctx context.Context) ([]parking.ActiveSession, error)
	History(ctx context.Context, f parking.HistoryFilter) (*parking.HistoryPage, error)
}

// RateService defines rate operations needed by MCP.
type RateService interface {
	List(ctx context.Context) ([]rate.Rule, error)
	Update(ctx context.Context, req rate.UpdateRequest) (*rate.Rule, error)
}

// ReportService defines report queries needed by MCP.
type ReportService interface {
	Daily(ctx context.Context, opts report.DailyOptions) (*report.DailyPage, error)
	Month(ctx context.Context, year int, month time.Month) (report.Totals, error)
	Year(ctx context.Context, year int) ([]report.MonthTotals, error)
}

// DashboardService defines dashboard statistics needed by MCP.
type DashboardService interface {
	Stats(ctx context.Context) (*dashboard.Stats, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Parking   ParkingService
	Rates     RateService
	Reports   ReportService
	Dashboard DashboardService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      OperatorResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	// LocalOperator acts for every request when auth is off. Defaults to an admin.
	LocalOperator *operator.Operator
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "parkline",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	local := cfg.LocalOperator
	if local == nil {
		local = &operator.Operator{ID: "local", Name: "local", Role: operator.RoleAdmin}
	}

	// Stdio mode is local only and never authenticates.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(local))
	}
	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))

	registerTools(server, cfg.Services)

	return server
}
