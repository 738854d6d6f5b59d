// Command convd runs the document-to-PDF conversion gateway.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	_ "go.uber.org/automaxprocs"
	_ "modernc.org/sqlite"

	"github.com/hazyhaar/convd/audit"
	"github.com/hazyhaar/convd/config"
	"github.com/hazyhaar/convd/convert"
	"github.com/hazyhaar/convd/dbopen"
	"github.com/hazyhaar/convd/engine"
	"github.com/hazyhaar/convd/server"
	"github.com/hazyhaar/convd/workspace"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "convd:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.StringP("config", "c", "", "path to YAML config file")
		addr       = pflag.String("addr", "", "listen address (overrides config)")
	)
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.Addr = *addr
	}

	// Logging.
	var lvl slog.Level
	switch cfg.LogLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)

	if cfg.AuthEnabled() {
		slog.Info("API key authentication enabled")
	} else {
		slog.Info("no API key set, authentication disabled")
	}

	// Signal context.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Conversion trail (optional).
	var opts []convert.Option
	if cfg.AuditDB != "" {
		db, err := dbopen.Open(cfg.AuditDB, dbopen.WithMkdirAll(), dbopen.WithSchema(audit.Schema))
		if err != nil {
			return fmt.Errorf("audit db: %w", err)
		}
		defer db.Close()
		opts = append(opts, convert.WithAudit(audit.NewRecorder(db)))
		slog.Info("conversion trail enabled", "db", cfg.AuditDB)
	}

	// Pipeline.
	workspaces := workspace.NewManager(cfg.WorkRoot, workspace.WithLogger(logger))
	conv := engine.NewLibreOffice(cfg.EngineBin, cfg.EngineTimeout)
	svc := convert.New(workspaces, conv, logger, opts...)

	// HTTP server.
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.New(cfg, svc, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr, "work_root", cfg.WorkRoot)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown", "error", err)
	}
	slog.Info("server stopped")
	return nil
}
