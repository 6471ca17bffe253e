// Command spantree traces a small nested workload and prints the resulting
// span forest as JSON.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(loadConfig()).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(cfg config) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spantree",
		Short: "Trace a nested workload and print its span forest.",
		Long: `spantree runs RootMethod with two children, Method1 and Method2, each ` +
			`doing --delay of work, and prints the forest assembled from their ` +
			`completion events.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: parseLevel(cfg.LogLevel),
			}))

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			return run(ctx, cfg, cmd.OutOrStdout(), logger)
		},
	}

	flags := cmd.Flags()
	flags.DurationVar(&cfg.Delay, "delay", cfg.Delay, "work done by each child span")
	flags.StringVar(&cfg.Format, "format", cfg.Format, "duration format: iso8601 or timespan")
	flags.StringVar(&cfg.Lookup, "lookup", cfg.Lookup, "parent lookup: indexed or roots")
	flags.StringVar(&cfg.Source, "source", cfg.Source, "span source: native or otel")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.BoolVar(&cfg.Simulate, "simulate", cfg.Simulate, "advance a fake clock instead of sleeping")

	cmd.SetContext(context.Background())
	return cmd
}
