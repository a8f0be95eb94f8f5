package main

import (
	"fmt"

	"tugasku/internal/repositories"
	"tugasku/internal/server"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func setupCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "setup-db",
		Short: "Create the task table if it does not exist",
		Long: `Create the tugas table in the configured database.

Existing rows are never modified, so the command is safe to run repeatedly.
The exit status is 0 when the table is ready and 1 otherwise.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			connector, err := server.NewConnector(cfg, log)
			if err != nil {
				return err
			}

			store := repositories.NewStore(connector, log)
			if err := store.EnsureSchema(cmd.Context()); err != nil {
				log.Error("database setup failed", zap.Error(err))
				return fmt.Errorf("database setup failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Database ready: %s (%s)\n", describeTarget(cfg.Database.Driver, cfg.Database.Path), repositories.TaskTable)
			return nil
		},
	}
}

func describeTarget(driver, path string) string {
	if driver == "postgres" {
		return "postgres"
	}
	return path
}
