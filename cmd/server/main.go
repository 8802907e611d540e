package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/parkline/internal/config"
	"github.com/rpggio/parkline/internal/domain/dashboard"
	"github.com/rpggio/parkline/internal/domain/operator"
	"github.com/rpggio/parkline/internal/domain/parking"
	"github.com/rpggio/parkline/internal/domain/rate"
	"github.com/rpggio/parkline/internal/domain/report"
	"github.com/rpggio/parkline/internal/mcp"
	"github.com/rpggio/parkline/internal/storage"
	"github.com/rpggio/parkline/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	// Use stderr for logs in stdio mode to keep stdout clean for JSON-RPC.
	logWriter := io.Writer(os.Stdout)
	if cfg.Transport.Mode == "stdio" {
		logWriter = os.Stderr
	}
	if cfg.Log.Path != "" {
		fileWriter, err := openLogFile(cfg.Log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer fileWriter.Close()
			logWriter = fileWriter
		}
	}
	logger := newLogger(logWriter, cfg.Log)

	loc, err := cfg.Location()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.DB)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.DB.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close()

	rateSvc := rate.NewService(store.Rates, logger)
	if created, err := rateSvc.SeedDefaults(ctx); err != nil {
		logger.Error("failed to seed rates", "error", err)
		os.Exit(1)
	} else if created > 0 {
		logger.Info("seeded default rates", "created", created)
	}

	parkingSvc := parking.NewService(store.Sessions, rateSvc, logger,
		parking.WithLocation(loc),
		parking.WithTokenLength(cfg.Parking.QRTokenLength),
	)
	reportSvc := report.NewService(store.Reports, logger)
	dashboardSvc := dashboard.NewService(parkingSvc, reportSvc, cfg.Parking.TotalSlots, loc, logger)
	operatorSvc := operator.NewService(store.Operators, logger)

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Parking:   parkingSvc,
			Rates:     rateSvc,
			Reports:   reportSvc,
			Dashboard: dashboardSvc,
		},
		Resolver:      operatorSvc,
		AuthEnabled:   cfg.Auth.Enabled,
		TransportMode: cfg.Transport.Mode,
		Logger:        logger,
	})

	if cfg.Transport.Mode == "stdio" {
		runStdioMode(logger, mcpServer)
		return
	}

	auth := transport.StaticOperatorMiddleware(transport.DefaultOperator())
	if cfg.Auth.Enabled {
		auth = transport.AuthMiddleware(operatorSvc)
	} else {
		logger.Warn("authentication disabled, every request acts as admin")
	}
	router := transport.NewServer(transport.Config{
		Services: transport.Services{
			Parking:   parkingSvc,
			Rates:     rateSvc,
			Reports:   reportSvc,
			Dashboard: dashboardSvc,
		},
		Auth:   auth,
		MCP:    newMCPHandler(mcpServer),
		Logger: logger,
	})
	runHTTPMode(logger, router, cfg.Server.Host, cfg.Server.Port)
}

func newLogger(w io.Writer, cfg config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func newMCPHandler(mcpServer *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(
		func(r *http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{
			Stateless:      false,
			SessionTimeout: 30 * time.Minute,
		},
	)
}

func runStdioMode(logger *slog.Logger, mcpServer *sdkmcp.Server) {
	logger.Info("starting stdio transport", "auth", "disabled")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		logger.Info("shutting down")
		cancel()
	}()

	// Run blocks until stdin closes or context is canceled
	if err := mcpServer.Run(ctx, &sdkmcp.StdioTransport{}); err != nil {
		logger.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func runHTTPMode(logger *slog.Logger, handler http.Handler, host string, port int) {
	addr := fmt.Sprintf("%s:%d", host, port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	}()

	waitForShutdown(logger, httpServer)
}

func waitForShutdown(logger *slog.Logger, server *http.Server) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
