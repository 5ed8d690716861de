package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/modulaur/modulaur/pkg/config"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "modulaur",
		Short: "Modulaur - extensible dashboard host",
		Long: `Modulaur is a personal dashboard host with a WASM extension system.

Extensions live in plugin directories, each with a manifest.json and a
code bundle. The host discovers them, runs their registration call, and
exposes the page, panel, and layout types they register. Pages and the
panels placed on them persist in SQLite.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newScanCommand())
	rootCmd.AddCommand(newPluginsCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPagesCommand())
	rootCmd.AddCommand(newRenderCommand())
	rootCmd.AddCommand(newServeCommand())

	return rootCmd
}

// loadConfig reads the configured or default host configuration.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	cfg := config.Default()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
