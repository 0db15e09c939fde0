// Package cli implements the flareon command line.
package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kylixs/flareon/internal/api"
	"github.com/kylixs/flareon/internal/config"
	"github.com/kylixs/flareon/internal/logging"
	"github.com/spf13/cobra"
)

// Version info (set during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// defaultConfigName is looked up next to the executable.
const defaultConfigName = "flareon.yaml"

var (
	configPath string
	traceDir   string
	logLevel   string

	// cfg is loaded before any subcommand runs
	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:           "flareon",
	Short:         "Trace file browser and summarizer",
	Long:          "Discovers trace files in a directory and serves per-file summaries: the covered time span and event counts by type.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" {
			return nil
		}
		return loadConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: flareon.yaml next to the executable)")
	rootCmd.PersistentFlags().StringVar(&traceDir, "trace-dir", "", "Trace directory (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error, off (overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	path := configPath
	if path == "" {
		exePath, err := os.Executable()
		if err != nil {
			return fmt.Errorf("failed to get executable path: %w", err)
		}
		path = filepath.Join(filepath.Dir(exePath), defaultConfigName)
	}

	loaded, err := config.LoadConfig(path)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if traceDir != "" {
		abs, err := filepath.Abs(traceDir)
		if err != nil {
			return err
		}
		loaded.Storage.TraceDirectory = abs
	}
	if logLevel != "" {
		loaded.Advanced.LogLevel = strings.ToLower(logLevel)
	}

	// Logs go to stderr so command output stays machine readable
	logging.SetOutput(os.Stderr)
	if err := logging.SetLevel(loaded.Advanced.LogLevel); err != nil {
		return err
	}
	api.ShowErrorDetails = loaded.Advanced.LogLevel == "debug"

	cfg = loaded
	configPath = path
	return nil
}
