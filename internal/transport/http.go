package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/parkline/internal/domain/dashboard"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
)

// ParkingService defines the session operations exposed over HTTP.
type ParkingService interface {
	CheckIn(ctx context.Context, req parking.CheckInRequest) (*parking.Session, error)
	Preview(ctx context.Context, qrToken string) (*parking.Preview, error)
	CheckOut(ctx context.Context, req parking.CheckOutRequest) (*parking.Session, error)
	Cancel(ctx context.Context, req parking.CancelRequest) (*parking.Session, error)
	Get(ctx context.Context, id string) (*parking.Session, error)
	Active(ctx context.Context) ([]parking.ActiveSession, error)
	History(ctx context.Context, f parking.HistoryFilter) (*parking.HistoryPage, error)
}

// RateService defines the rate operations exposed over HTTP.
type RateService interface {
	List(ctx context.Context) ([]rate.Rule, error)
	Get(ctx context.Context, vehicleType rate.VehicleType) (*rate.Rule, error)
	Update(ctx context.Context, req rate.UpdateRequest) (*rate.Rule, error)
}

// ReportService defines the report queries exposed over HTTP.
type ReportService interface {
	Daily(ctx context.Context, opts report.DailyOptions) (*report.DailyPage, error)
	Range(ctx context.Context, start, end time.Time) ([]report.DailyAggregate, error)
	Month(ctx context.Context, year int, month time.Month) (report.Totals, error)
	Year(ctx context.Context, year int) ([]report.MonthTotals, error)
}

// DashboardService builds dashboard statistics.
type DashboardService interface {
	Stats(ctx context.Context) (*dashboard.Stats, error)
}

// Services contains the domain services behind the API.
type Services struct {
	Parking   ParkingService
	Rates     RateService
	Reports   ReportService
	Dashboard DashboardService
}

// Config configures the HTTP router.
type Config struct {
	Services Services
	// Auth authenticates /api requests and must attach an operator.
	Auth func(http.Handler) http.Handler
	// MCP, when set, is mounted at /mcp.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	services Services
	logger   *slog.Logger
	now      func() time.Time
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	auth := cfg.Auth
	if auth == nil {
		auth = StaticOperatorMiddleware(DefaultOperator())
	}

	srv := &Server{services: cfg.Services, logger: logger, now: time.Now}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", srv.handleHealth)

	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
		r.Handle("/mcp/*", cfg.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(auth)

		r.Route("/parking", func(r chi.Router) {
			r.Post("/check-in", srv.handleCheckIn)
			r.Get("/scan/{qrToken}", srv.handleScan)
			r.Post("/check-out", srv.handleCheckOut)
			r.Get("/active", srv.handleActive)
			r.Get("/history", srv.handleHistory)
			r.Get("/sessions/{id}", srv.handleGetSession)
			r.With(RequireAdmin).Post("/sessions/{id}/cancel", srv.handleCancel)
		})

		r.Get("/dashboard/stats", srv.handleDashboard)

		r.Route("/rates", func(r chi.Router) {
			r.Get("/", srv.handleListRates)
			r.Get("/{vehicleType}", srv.handleGetRate)
			r.With(RequireAdmin).Put("/{vehicleType}", srv.handleUpdateRate)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/daily", srv.handleDailyReports)
			r.Get("/range", srv.handleRangeReport)
			r.Get("/monthly", srv.handleMonthlyReport)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// requestLogger logs each request at debug level with its status.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !logger.Enabled(r.Context(), slog.LevelDebug) {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
