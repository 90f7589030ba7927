package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/csindex/internal/config"
	logpkg "github.com/kailas-cloud/csindex/internal/logger"
	"github.com/kailas-cloud/csindex/internal/version"
)

// rootOptions are shared by every subcommand.
type rootOptions struct {
	env    string
	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "csindex",
		Short:         "Keep CloudSearch domains in step with declared search indexes.",
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.env)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logpkg.NewLogger(opts.env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			opts.cfg = cfg
			opts.logger = logger
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}
	cmd.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(),
		"configuration environment; reads config/{env}.yaml")

	cmd.AddCommand(
		newServeCmd(opts),
		newSetupCmd(opts),
		newClearCmd(opts),
		newSearchCmd(opts),
		newSyncCmd(opts),
		newRemoveCmd(opts),
		newAccessCmd(opts),
		newReindexCmd(opts),
	)
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
