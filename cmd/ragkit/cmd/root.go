// Package cmd provides the CLI commands for ragkit.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/openkb/ragkit/internal/config"
	"github.com/openkb/ragkit/internal/logging"
	"github.com/openkb/ragkit/pkg/version"
)

var (
	configPath     string
	debugMode      bool
	cfg            *config.Config
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ragkit CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragkit",
		Short: "Hybrid retrieval and ranking over migration/support documentation",
		Long: `ragkit indexes a directory of documentation into a lexical (BM25)
and vector index, then answers queries with hybrid ranked retrieval:
semantic similarity combined with technical n-gram boosting.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("ragkit version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultConfigPath(), "Path to config file")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.ragkit/logs/")

	cmd.PersistentPreRunE = setup
	cmd.PersistentPostRun = teardown

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newQueryCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// setup loads configuration and installs the default logger.
func setup(_ *cobra.Command, _ []string) error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg = loaded

	logCfg := logging.DefaultConfig()
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	if cfg.Logging.Level != "" && !debugMode {
		logCfg.Level = cfg.Logging.Level
	}
	if cfg.Logging.FilePath != "" {
		logCfg.FilePath = cfg.Logging.FilePath
	}

	cleanup, err := logging.SetupDefault(logCfg)
	if err != nil {
		return err
	}
	loggingCleanup = cleanup

	if debugMode {
		slog.Debug("debug logging enabled",
			slog.String("log_file", logCfg.FilePath))
	}
	return nil
}

func teardown(_ *cobra.Command, _ []string) {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}
