package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kylixs/flareon/internal/api"
	"github.com/kylixs/flareon/internal/logging"
	"github.com/kylixs/flareon/internal/storage"
	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
)

// shutdownTimeout bounds graceful shutdown.
const shutdownTimeout = 10 * time.Second

var servePort int

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntVar(&servePort, "port", 0, "HTTP listen port (overrides config)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Scans the trace directory and serves trace listings and summaries over HTTP.\nSummaries are computed on first request and cached for the process lifetime.",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	if servePort > 0 {
		cfg.Server.Port = servePort
	}
	logger := logging.New("server")

	// Ensure all data directories exist
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	a, err := newApp(cfg, true, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	// Startup scan; a failure is logged and the server still starts
	if _, err := a.manager.List(); err != nil {
		logger.Warnf("Initial scan failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Processing.WatchDirectory {
		w := storage.NewWatcher(a.registry)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warnf("Directory watch disabled: %v", err)
			}
		}()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.SetupMiddleware(e, api.MiddlewareConfig{
		RequestLogging:   cfg.Advanced.EnableRequestLogging,
		EnableCORS:       cfg.Server.EnableCORS,
		AllowOrigins:     cfg.Server.AllowOrigins,
		Compression:      cfg.Processing.EnableCompression,
		CompressionLevel: cfg.Processing.CompressionLevel,
		BodyLimit:        cfg.Server.BodyLimit,
		Timeout:          time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})

	deps := &api.Dependencies{
		Traces:  a.manager,
		Version: Version,
	}
	if a.history != nil {
		deps.History = a.history
	}
	api.RegisterRoutes(e, api.NewHandlers(deps))

	// Configure server with settings from config
	s := &http.Server{
		Addr:         cfg.GetServerAddr(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	printBanner(cmd, a)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.StartServer(s)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Infof("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

func printBanner(cmd *cobra.Command, a *app) {
	history := "disabled"
	if a.history != nil {
		history = a.history.Path()
	}

	out := cmd.ErrOrStderr()
	fmt.Fprintf(out, "\n")
	fmt.Fprintf(out, "╔═══════════════════════════════════════════════════════════╗\n")
	fmt.Fprintf(out, "║           Flareon Trace Server                            ║\n")
	fmt.Fprintf(out, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(out, "║  Version:    %-45s║\n", Version)
	fmt.Fprintf(out, "║  Build Time: %-45s║\n", BuildTime)
	fmt.Fprintf(out, "╠═══════════════════════════════════════════════════════════╣\n")
	fmt.Fprintf(out, "║  Config:    %-46s║\n", configPath)
	fmt.Fprintf(out, "║  Listen:    http://%-38s║\n", cfg.GetServerAddr())
	fmt.Fprintf(out, "║  Traces:    %-46s║\n", a.registry.Dir())
	fmt.Fprintf(out, "║  History:   %-46s║\n", history)
	fmt.Fprintf(out, "╚═══════════════════════════════════════════════════════════╝\n")
	fmt.Fprintf(out, "\n")
}
