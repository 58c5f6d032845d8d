package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryptaliagy/iti1121-grading/internal/config"
	"github.com/cryptaliagy/iti1121-grading/pkg/logger"
)

var rootCmd = &cobra.Command{
	Use:           "grader",
	Short:         "Bulk grader for programming lab submissions",
	Long:          "grader resolves an LMS submission export against a class roster, compiles and runs instructor tests for every student and writes a gradebook CSV.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (overrides GRADER_CONFIG env var)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	rootCmd.AddCommand(bulkCmd)
	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

// exitError carries a process exit code through cobra.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// loadConfig layers the --config file and env vars, then initializes the
// global logger from the result.
func loadConfig(ctx context.Context, cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	if f, _ := cmd.Flags().GetString("log-format"); f != "" {
		cfg.LogFormat = f
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat), logger.WithOutput(cmd.ErrOrStderr())); err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	return cfg, nil
}

// applyLogLevel sets the configured level, falling back to info.
func applyLogLevel(ctx context.Context, level string) {
	if err := logger.SetLevelString(level); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("logLevel", level), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
}
