// Package cli holds the annotation-hub command line: the API server and its admin commands.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/isdelr/annotation-hub-be/internal/config"
	"github.com/isdelr/annotation-hub-be/internal/logger"
	"github.com/spf13/cobra"
)

type configKey struct{}

// NewRootCmd builds the annotation-hub command tree.
func NewRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:   "annotation-hub",
		Short: "Annotation Hub API server",
		Long: `Annotation Hub coordinates data annotation projects: task templates,
CSV ingestion from cloud storage, review workflows, trainings, a job board and billing.

Run without arguments to start the API server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			level := cfg.LogLevel
			if verbose {
				level = "debug"
			}
			logger.Init(logger.Options{
				Level:      level,
				Pretty:     !cfg.IsProduction(),
				FilePath:   cfg.LogFile,
				MaxSizeMB:  cfg.LogMaxSizeMB,
				MaxBackups: cfg.LogMaxBackups,
				MaxAgeDays: cfg.LogMaxAgeDays,
			})
			cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	serve := newServeCmd()
	root.RunE = serve.RunE
	root.AddCommand(serve, newMigrateCmd(), newUserCmd())
	return root
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFrom(cmd *cobra.Command) (*config.Config, error) {
	cfg, ok := cmd.Context().Value(configKey{}).(*config.Config)
	if !ok {
		return nil, fmt.Errorf("configuration not loaded")
	}
	return cfg, nil
}
