package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "spekter",
		Short:         "Automate play-and-claim cycles across many game accounts",
		Long:          "spekter runs hundreds of independent account sessions against the game API with bounded concurrency, per-account proxies, sticky device fingerprints, and silent token refresh.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(),
	)

	return rootCmd
}
