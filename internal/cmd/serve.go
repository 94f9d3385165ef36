package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/3leaps/docshed/internal/config"
	"github.com/3leaps/docshed/internal/observability"
	"github.com/3leaps/docshed/internal/server"
	"github.com/3leaps/docshed/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the documentation server",
	Long: `Run the HTTP server that serves generated documentation, triggering
generation jobs on demand for versions not yet on disk.

Example:
  docshed serve
  docshed serve --config /etc/docshed/docshed.yaml
  DOCSHED_SERVER_PORT=9000 docshed serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}

	logger, err := observability.NewServerLogger(cfg.Logging.Level)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Failed to assemble service", err)
	}
	defer a.Close()

	a.queue.StartSweeper(ctx, cfg.Queue.SweepInterval)

	health := handlers.NewHealthManager(versionInfo.Version)
	health.RegisterChecker("docs_root", handlers.CheckerFunc(func(context.Context) error {
		_, err := os.Stat(cfg.Docs.Root)
		return err
	}))
	health.RegisterChecker("queue_dir", handlers.CheckerFunc(func(context.Context) error {
		return os.MkdirAll(cfg.Queue.Dir, 0o755)
	}))

	srv := server.New(cfg.Server.Host, cfg.Server.Port, server.Deps{
		Resolver:  a.resolver,
		Queue:     a.queue,
		Layout:    a.layout,
		Extractor: a.extractor,
		Health:    health,
		Timeouts: server.Timeouts{
			Read:     cfg.Server.ReadTimeout,
			Write:    cfg.Server.WriteTimeout,
			Idle:     cfg.Server.IdleTimeout,
			Shutdown: cfg.Server.ShutdownTimeout,
		},
		Version: handlers.VersionInfo{
			Version: versionInfo.Version,
			Commit:  versionInfo.Commit,
			Date:    versionInfo.BuildDate,
		},
		Logger: logger,
	})

	logger.Info("starting docshed",
		zap.String("version", versionInfo.Version),
		zap.String("docs_root", cfg.Docs.Root),
		zap.String("registry", cfg.Registry.URL))

	if err := srv.Start(ctx); err != nil {
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	return nil
}
