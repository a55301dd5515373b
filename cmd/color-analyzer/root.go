package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	coloranalyzer "github.com/menta2k/color-analyzer"
	"github.com/menta2k/color-analyzer/internal/config"
	"github.com/menta2k/color-analyzer/internal/store"
	"github.com/menta2k/color-analyzer/internal/utils"
)

var (
	configPath string
	dbURL      string
	verbose    bool

	// cfg is loaded before every subcommand runs
	cfg *config.Config
	// db is set when --db or store.dsn is configured
	db *store.Store
)

var rootCmd = &cobra.Command{
	Use:          "color-analyzer",
	Short:        "Personal color analysis from face segmentation frames",
	Version:      coloranalyzer.Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(configPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		if dbURL == "" {
			dbURL = cfg.Store.DSN
		}
		if dbURL != "" && cmd.Annotations["store"] == "true" {
			db, err = store.New(cmd.Context(), dbURL, cfg.Store.Table)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db != nil {
			// the command context may already be cancelled
			db.Close(context.Background())
		}
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (JSON or YAML, default: "+config.GetConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&dbURL, "db", "", "PostgreSQL connection string for result history")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log per-frame diagnostics")
}

// loadConfig reads path, or the default config file when it exists
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if def := config.GetConfigPath(); utils.FileExists(def) {
			path = def
		}
	}
	if path == "" {
		return config.Default(), nil
	}
	c, err := config.LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newLogger() *log.Logger {
	if verbose {
		return log.New(os.Stderr, "", log.LstdFlags)
	}
	return log.New(io.Discard, "", 0)
}

// newPipeline builds a pipeline from the loaded configuration. Threshold
// file problems are always reported on stderr.
func newPipeline() (*coloranalyzer.Pipeline, error) {
	pc := cfg.PipelineConfig(log.New(os.Stderr, "", 0))
	return coloranalyzer.NewWithConfig(pc, nil, newLogger())
}
