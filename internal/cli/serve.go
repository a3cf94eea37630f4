package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vincentbai/clicktrace-agent/internal/config"
	"github.com/vincentbai/clicktrace-agent/internal/database"
	"github.com/vincentbai/clicktrace-agent/internal/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the capture collector",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := newLogger(cmd.ErrOrStderr(), root.verbose)

			cfg, err := config.Load(root.configPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(cfg.Collector.DatabasePath), 0o755); err != nil {
				return fmt.Errorf("create data directory: %w", err)
			}

			db, err := database.NewDatabase(cfg.Collector.DatabasePath)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := server.NewServer(db, cfg.Collector.Address,
				server.WithFields(cfg.Collector.PathField, cfg.Collector.ClientField),
				server.WithTimeouts(cfg.Collector.ReadTimeout, cfg.Collector.WriteTimeout),
				server.WithLogger(logger),
			)
			logger.Info("database ready", "path", cfg.Collector.DatabasePath)
			return srv.Start(ctx)
		},
	}
}
