package commands

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/outbank-dev/outbank-mcp/internal/audit"
	"github.com/outbank-dev/outbank-mcp/internal/config"
	"github.com/outbank-dev/outbank-mcp/internal/server"
	"github.com/outbank-dev/outbank-mcp/internal/store"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the transaction query server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath, "configuration file")

	return cmd
}

func runServe(configPath string) error {
	// A .env file is optional; environment already set wins inside Load.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := newLogger()
	st := store.New(cfg.CSVDir, cfg.CSVGlob, cfg.Rules())
	svc := server.NewService(cfg, st, log)

	var auditLog *audit.Logger
	if cfg.AuditEnabled() {
		auditLog = audit.NewLogger(cfg.Audit.LogPath)
	}

	// Load up front so the banner shows real counts. A failing load is a
	// warning here; the first query will retry and surface the error.
	stats, loadErr := st.Reload()
	server.PrintBanner(os.Stderr, cfg, stats, loadErr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Transport == config.TransportStdio {
		return server.ServeStdio(ctx, svc, os.Stdin, os.Stdout, auditLog, log)
	}

	warnings, err := cfg.ValidateAuthToken()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn("auth token", "warning", w)
	}

	srv := server.NewHTTPServer(cfg, svc, auditLog, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	// stderr keeps stdout free for the stdio transport.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
