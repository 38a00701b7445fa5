// Package cli defines the careermatch command tree.
package cli

import (
	"context"

	"careermatch/internal/config"
	"careermatch/internal/errors"

	"github.com/spf13/cobra"
)

// Private context key types keep config and logger addressable from any
// subcommand without package-level globals.
type configKeyType struct{}
type loggerKeyType struct{}

var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

var rootCmd = &cobra.Command{
	Use:   "careermatch",
	Short: "Profile-to-catalog career matching service",
	Long: `Careermatch matches user career profiles against a catalog of career
paths. Rankings come from a generative language model when available, with a
deterministic weighted scorer as fallback so matching always produces
results.`,
}

// Execute runs the command tree with config and logger attached to the
// context.
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger) error {
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)
	rootCmd.SetContext(ctx)
	return rootCmd.Execute()
}

func getConfigFromContext(ctx context.Context) *config.Config {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok {
		return cfg
	}
	panic("config not found in context")
}

func getLoggerFromContext(ctx context.Context) *errors.Logger {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger
	}
	panic("logger not found in context")
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(versionCmd)
}
