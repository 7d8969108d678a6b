package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/zccoffin/Spekter/internal/adapters/render/summary"
	"github.com/zccoffin/Spekter/internal/application"
	"github.com/zccoffin/Spekter/internal/ports"
)

func newRunCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the scheduler over all accounts until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := wireApp(configPath)
			if err != nil {
				return err
			}
			defer func() { _ = app.logger.Sync() }()

			fmt.Fprintln(cmd.OutOrStdout(), summary.Banner())

			scheduler, err := application.NewScheduler(
				app.cfg,
				app.creds,
				app.proxies,
				app.tokens,
				app.agents,
				ports.SystemClock{},
				app.logger,
				cmd.OutOrStdout(),
			)
			if err != nil {
				return fmt.Errorf("build scheduler: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return scheduler.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the config file (default ./config.toml)")

	return cmd
}
