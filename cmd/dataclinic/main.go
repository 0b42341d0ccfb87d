// dataclinic is a CLI for the LLM-driven data-cleaning pipeline: it
// diagnoses column-level quality issues in a CSV, synthesizes a SQL
// cleaning program, executes it, and repairs it on failure within a
// bounded retry budget.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"dataclinic/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	apiKeyFlag string

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dataclinic",
	Short: "Data Clinic - LLM-driven data cleaning pipeline",
	Long: `Data Clinic cleans messy tabular data with a language-model pipeline.

A diagnosis model inspects a sample of the dataset and reports per-column
quality issues; a synthesis model turns that diagnosis into a SQL cleaning
program; the program runs against an in-memory SQLite store, and failed
programs are repaired by the model within a configurable retry budget.

The full trace of every attempt is kept and printed, so a failed run still
shows exactly what was tried.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath(""), "path to the config file")
	rootCmd.PersistentFlags().StringVar(&apiKeyFlag, "api-key", "", "OpenRouter API key (overrides config and environment)")

	rootCmd.AddCommand(diagnoseCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
