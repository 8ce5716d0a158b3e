package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	corecmd "github.com/m3rciful/dirbot/core/cmd"
	coreconfig "github.com/m3rciful/dirbot/core/config"
	coredatabase "github.com/m3rciful/dirbot/core/database"
	"github.com/m3rciful/dirbot/internal/app"
	"github.com/m3rciful/dirbot/internal/directory"
)

const checkTimeout = 20 * time.Second

func newCheckCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config and reach the directory and audit database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := coreconfig.Load(corecmd.ResolveConfigPath(flags.configPath, ""))
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
			defer cancel()
			return runChecks(ctx, cmd, cfg)
		},
	}
}

func runChecks(ctx context.Context, cmd *cobra.Command, cfg *coreconfig.Config) error {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "config: ok (run mode %s)\n", cfg.Telegram.RunMode)

	if cfg.AllowListEmpty() {
		_, _ = fmt.Fprintln(out, "access: allow-list is empty, every user will be refused")
	} else {
		_, _ = fmt.Fprintf(out, "access: %d ids, %d handles\n", len(cfg.Access.AllowIDs), len(cfg.Access.AllowHandles))
	}

	client, err := directory.NewClient(app.DirectoryConfig(cfg))
	if err != nil {
		return err
	}
	page, err := client.ListUsers(ctx, 0, 1)
	if err != nil {
		return fmt.Errorf("directory: %w", err)
	}
	_, _ = fmt.Fprintf(out, "directory: ok (%d accounts)\n", page.Total)

	if !cfg.Database.Enabled() {
		_, _ = fmt.Fprintln(out, "database: disabled")
		return nil
	}
	db, err := coredatabase.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()
	_, _ = fmt.Fprintln(out, "database: ok")
	return nil
}
