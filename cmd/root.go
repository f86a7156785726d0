// =============================================================================
// YO TE LLEVO Importer - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. All other commands
// are attached to it.
//
// COBRA CLI STRUCTURE:
//   rootCmd (yotellevo)
//   ├── importCmd   (yotellevo import)
//   ├── exportCmd   (yotellevo export)
//   ├── tripDateCmd (yotellevo trip-date)
//   └── versionCmd  (yotellevo version)
//
// CONFIGURATION:
//   Values are resolved in this order, last one wins:
//   1. Built-in defaults
//   2. The YAML config file (--config)
//   3. YOTELLEVO_* environment variables, including those from a .env file
//   4. Command line flags
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yotellevo/passenger-import/internal/config"
	"github.com/yotellevo/passenger-import/internal/logger"
)

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

var rootCmd = &cobra.Command{
	Use:   "yotellevo",
	Short: "YO TE LLEVO - Import passenger spreadsheets into trips and reservations",
	Long: `yotellevo imports the passenger spreadsheets sellers fill in for each trip
and reconciles them into trips, passengers and reservations.

Rows painted with the same fill colour are one family. The rows that carry a
quantity or a value are payers; every payer becomes a reservation and the
remaining family members join it up to its passenger count.

Example Usage:
  yotellevo import                          # Import every spreadsheet in the input directory
  yotellevo import --file "Bariloche Enero.xlsx"
  yotellevo export --trip <id>              # Write the trip's passenger manifest
  yotellevo trip-date --trip <id> --date "15/01/2025 06:30"`,

	SilenceUsage: true,

	// PersistentPreRunE loads the configuration and the logger once per run.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initRuntime()
	},
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// mainConfig is the configuration resolved by initRuntime.
var mainConfig *config.MainConfig

// Execute runs the root command. It is called by main.main().
func Execute() {
	if err := execute(rootCmd); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// execute runs cmd and flushes the global logger whatever the outcome, since
// os.Exit skips deferred calls.
func execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	_ = zap.L().Sync()
	return err
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	flags := rootCmd.PersistentFlags()
	flags.String("config", "config.yaml", "Path to the main configuration file")
	flags.String("store", "", "Path to the JSON store (overrides the config file)")
	flags.String("log-level", "", "Log level: debug, info, warn or error (overrides the config file)")

	viper.BindPFlag("config", flags.Lookup("config"))
	viper.BindPFlag("store", flags.Lookup("store"))
	viper.BindPFlag("log_level", flags.Lookup("log-level"))

	viper.SetEnvPrefix("YOTELLEVO")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// initRuntime loads the config file, applies flag and environment overrides,
// validates the result and installs the logger.
func initRuntime() error {
	cfg, err := config.LoadMainConfig(viper.GetString("config"))
	if err != nil {
		return fmt.Errorf("failed to load main config: %w", err)
	}

	if store := viper.GetString("store"); store != "" {
		cfg.StoreFile = store
	}
	if level := viper.GetString("log_level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel); err != nil {
		return err
	}

	mainConfig = cfg
	zap.S().Debugf("configuration loaded: store=%s input=%s output=%s", cfg.StoreFile, cfg.InputDir, cfg.OutputDir)
	return nil
}
