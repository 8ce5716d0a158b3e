package main

import (
	"github.com/spf13/cobra"
)

type rootFlags struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	rootCmd := &cobra.Command{
		Use:          "dirbot",
		Short:        "Telegram bot for administering a Matrix user directory",
		Long:         "dirbot lets allow-listed Telegram users list, search and deactivate accounts of a Synapse homeserver through its admin API.",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "",
		"path to the YAML config file (defaults to $CONFIG_PATH, then environment only)")

	run := newRunCmd(flags)
	rootCmd.RunE = run.RunE
	rootCmd.AddCommand(
		run,
		newCheckCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}
