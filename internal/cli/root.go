// Package cli implements the shop-assistant command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shop-assistant/internal/app"
	"shop-assistant/internal/config"
	"shop-assistant/internal/infra/logger"
)

// runtime is what every command needs once configuration has been loaded.
type runtime struct {
	cfg config.Config
	log *logger.Logger
}

// NewRootCommand builds the command tree. Configuration is loaded once, before
// any subcommand runs.
func NewRootCommand() *cobra.Command {
	rt := &runtime{}
	var configFile string

	root := &cobra.Command{
		Use:   "shop-assistant",
		Short: "Conversational context engine for the store chatbot",
		Long: `shop-assistant keeps a structured understanding of every customer
conversation and uses it to steer the chatbot's replies.

Commands:
  serve      - Run the HTTP API
  migrate    - Rewrite stored contexts at the current schema version
  reanalyze  - Rerun context extraction over stored conversations`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(); err != nil {
				return err
			}
			if configFile != "" {
				os.Setenv("CONFIG_FILE", configFile)
			}
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			rt.cfg = cfg
			rt.log = logger.NewLogger(cmd.Context(), cfg.LogLevel, cfg.JSONLogs())
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (or set CONFIG_FILE)")

	root.AddCommand(newServeCommand(rt), newMigrateCommand(rt), newReanalyzeCommand(rt))
	return root
}

func (rt *runtime) open(ctx context.Context) (*app.App, error) {
	return app.New(ctx, rt.cfg, rt.log)
}

// Execute runs the root command with ctx and exits non-zero on failure.
func Execute(ctx context.Context) {
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
