package main

import (
	"fmt"
	"os"

	"tugasku/internal/config"
	"tugasku/internal/logger"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var Version = "dev"

type globalOptions struct {
	configFile string
	dbPath     string
	logLevel   string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "tugasku",
		Short:         "TugasKu - academic task tracker",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db-path", "", "sqlite database file (overrides DB_PATH)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	rootCmd.AddCommand(serveCmd(opts))
	rootCmd.AddCommand(setupCmd(opts))

	return rootCmd
}

// load resolves configuration with command-line flags taking precedence over
// the environment and the config file.
func (o *globalOptions) load() (*config.Config, *zap.Logger, error) {
	path := o.configFile
	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}

	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if o.dbPath != "" {
		cfg.Database.Path = o.dbPath
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("build logger: %w", err)
	}
	return cfg, log, nil
}
