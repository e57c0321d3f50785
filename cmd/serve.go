package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/taskdeck/internal/calendar"
	"github.com/teemow/taskdeck/internal/digest"
	"github.com/teemow/taskdeck/internal/gmail"
	"github.com/teemow/taskdeck/internal/google"
	"github.com/teemow/taskdeck/internal/instrumentation"
	"github.com/teemow/taskdeck/internal/notify"
	"github.com/teemow/taskdeck/internal/server"
	"github.com/teemow/taskdeck/internal/store"
	"github.com/teemow/taskdeck/internal/tasksync"
	"github.com/teemow/taskdeck/internal/tools/todo_tools"
)

// MetricsConfig holds metrics server settings
type MetricsConfig struct {
	Enabled bool
	Addr    string
}

func newServeCmd() *cobra.Command {
	var (
		transport      string
		debugMode      bool
		httpAddr       string
		yolo           bool
		storage        string
		stateDir       string
		calendarID     string
		timezone       string
		digestDisabled bool
		metricsEnabled bool
		metricsAddr    string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the taskdeck server",
		Long: `Start the taskdeck server.

With the default http transport the server exposes the command endpoint
(POST /v1/commands), health endpoints, and the MCP endpoint (/mcp) on one
address, plus Prometheus metrics on a dedicated port.

With the stdio transport the server speaks MCP over stdin/stdout for use by
AI assistants, and the HTTP surface is not started.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Env vars fill in values the user did not set explicitly;
			// a flag given on the command line always wins.
			metrics := applyMetricsEnv(
				MetricsConfig{Enabled: metricsEnabled, Addr: metricsAddr},
				cmd.Flags().Changed("metrics-enabled"),
				cmd.Flags().Changed("metrics-addr"),
			)

			return runServe(serveOptions{
				Transport:      transport,
				DebugMode:      debugMode,
				HTTPAddr:       httpAddr,
				Yolo:           yolo,
				Storage:        storage,
				StateDir:       stateDir,
				CalendarID:     calendarID,
				Timezone:       timezone,
				DigestDisabled: digestDisabled,
				Metrics:        metrics,
			})
		},
	}

	cmd.Flags().StringVarP(&transport, "transport", "t", "http", "Transport type: http or stdio")
	cmd.Flags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&httpAddr, "http-addr", ":8080", "HTTP server address")
	cmd.Flags().BoolVar(&yolo, "yolo", false, "Enable MCP write tools (create, toggle, delete). Read-only by default.")
	cmd.Flags().StringVar(&storage, "storage", "file", "Task storage backend: file or memory")
	cmd.Flags().StringVar(&stateDir, "state-dir", "", "Directory for task storage (default: user config dir). Can also use TASKDECK_STATE_DIR env var.")
	cmd.Flags().StringVar(&calendarID, "calendar", "primary", "Google Calendar ID events are created on")
	cmd.Flags().StringVar(&timezone, "timezone", "", "IANA timezone for the nightly digest schedule (default: system timezone)")
	cmd.Flags().BoolVar(&digestDisabled, "digest-disabled", false, "Disable the nightly digest scheduler")
	cmd.Flags().BoolVar(&metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

type serveOptions struct {
	Transport      string
	DebugMode      bool
	HTTPAddr       string
	Yolo           bool
	Storage        string
	StateDir       string
	CalendarID     string
	Timezone       string
	DigestDisabled bool
	Metrics        MetricsConfig
}

func runServe(opts serveOptions) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Stdio transport owns stdout for the protocol; logs go to stderr.
	logLevel := slog.LevelInfo
	if opts.DebugMode {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(shutdownCtx); err != nil {
			if opts.Transport != "stdio" {
				log.Printf("Error during instrumentation shutdown: %v", err)
			}
		}
	}()

	// Start metrics server if enabled and not in stdio mode
	var metricsServer *server.MetricsServer
	if opts.Transport != "stdio" && opts.Metrics.Enabled && provider.Enabled() {
		var err error
		metricsServer, err = server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.Metrics.Addr,
			Enabled:                 true,
			InstrumentationProvider: provider,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}

		// Use ready channel to confirm metrics server started successfully
		metricsReady := make(chan struct{})
		metricsErr := make(chan error, 1)
		go func() {
			if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && err != http.ErrServerClosed {
				metricsErr <- err
			}
			close(metricsErr)
		}()

		// Wait for metrics server to be ready or fail
		select {
		case <-metricsReady:
			log.Printf("Metrics server started on %s", metricsServer.Addr())
		case err := <-metricsErr:
			return fmt.Errorf("metrics server failed to start: %w", err)
		case <-time.After(5 * time.Second):
			return fmt.Errorf("metrics server startup timed out")
		}

		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				log.Printf("Error during metrics server shutdown: %v", err)
			}
		}()
	}

	st, err := buildStore(opts.Storage, opts.StateDir)
	if err != nil {
		return err
	}

	loc, err := resolveLocation(opts.Timezone)
	if err != nil {
		return err
	}

	tokens := google.NewCachedTokenProvider(nil, nil, logger, provider.Metrics())
	calClient := calendar.NewClientForCalendar(tokens, opts.CalendarID, provider.Metrics())
	mailClient := gmail.NewClient(tokens, provider.Metrics())

	synchronizer := tasksync.NewSynchronizer(st, calClient, logger, provider.Metrics())
	gate := notify.NewGate(st, mailClient, logger)

	scheduler := digest.NewScheduler(st, mailClient, loc, logger, provider.Metrics())
	if !opts.DigestDisabled {
		scheduler.Start(shutdownCtx)
		defer scheduler.Stop()
	}

	serverContext := server.NewServerContext(shutdownCtx, server.Deps{
		Store:        st,
		Synchronizer: synchronizer,
		Scheduler:    scheduler,
		Gate:         gate,
		Metrics:      provider.Metrics(),
		Logger:       logger,
	})
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			log.Printf("Error during server context shutdown: %v", err)
		}
	}()

	// Create MCP server and register tools. Write tools stay off unless
	// explicitly requested.
	mcpSrv := mcpserver.NewMCPServer(
		"taskdeck",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	if err := todo_tools.RegisterTodoTools(mcpSrv, serverContext, !opts.Yolo); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}

	switch opts.Transport {
	case "stdio":
		return runStdioServer(mcpSrv)
	case "http":
		return runHTTPServer(shutdownCtx, serverContext, mcpSrv, opts.HTTPAddr, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: http, stdio)", opts.Transport)
	}
}

func runStdioServer(mcpSrv *mcpserver.MCPServer) error {
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := mcpserver.ServeStdio(mcpSrv); err != nil {
			serverDone <- err
		}
	}()

	err := <-serverDone
	if err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

// runHTTPServer serves the command endpoint, health endpoints, and the MCP
// endpoint on one address, shutting down gracefully on context cancellation.
func runHTTPServer(ctx context.Context, sc *server.ServerContext, mcpSrv *mcpserver.MCPServer, addr string, logger *slog.Logger) error {
	mux := http.NewServeMux()

	commandHandler := server.NewCommandHandler(sc)
	commandHandler.RegisterCommandEndpoints(mux)

	healthChecker := server.NewHealthChecker(sc)
	healthChecker.RegisterHealthEndpoints(mux)

	streamable := mcpserver.NewStreamableHTTPServer(mcpSrv,
		mcpserver.WithEndpointPath("/mcp"),
	)
	mux.Handle("/mcp", streamable)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.HTTPMetricsMiddleware(sc.Metrics(), mux),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		logger.Info("starting taskdeck server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverDone <- err
		}
	}()

	select {
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("server stopped with error: %w", err)
		}
		return nil
	case <-ctx.Done():
		healthChecker.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	}
}

// applyMetricsEnv fills metrics settings from METRICS_ENABLED/METRICS_ADDR
// for values the user did not set via flags. Explicit flags always win.
func applyMetricsEnv(cfg MetricsConfig, enabledSet, addrSet bool) MetricsConfig {
	if !enabledSet {
		if v := os.Getenv("METRICS_ENABLED"); v != "" {
			cfg.Enabled = v == "true"
		}
	}
	if !addrSet {
		if v := os.Getenv("METRICS_ADDR"); v != "" {
			cfg.Addr = v
		}
	}
	return cfg
}

// buildStore creates the task store for the requested backend.
func buildStore(storage, stateDir string) (store.Store, error) {
	switch storage {
	case "memory":
		return store.NewMemoryStore(), nil
	case "file":
		dir, err := resolveStateDir(stateDir)
		if err != nil {
			return nil, err
		}
		return store.NewFileStore(dir)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s (supported: file, memory)", storage)
	}
}

// resolveStateDir picks the storage directory: the explicit flag, then the
// TASKDECK_STATE_DIR env var, then a taskdeck directory under the user config
// dir.
func resolveStateDir(stateDir string) (string, error) {
	if stateDir != "" {
		return stateDir, nil
	}
	if dir := os.Getenv("TASKDECK_STATE_DIR"); dir != "" {
		return dir, nil
	}
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to determine state directory: %w", err)
	}
	return filepath.Join(configDir, "taskdeck"), nil
}

// resolveLocation loads the named IANA timezone, defaulting to the system
// timezone when the name is empty.
func resolveLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}
