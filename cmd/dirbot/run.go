package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/m3rciful/dirbot/core/bootstrap"
	corecmd "github.com/m3rciful/dirbot/core/cmd"
	coreconfig "github.com/m3rciful/dirbot/core/config"
	"github.com/m3rciful/dirbot/internal/app"
)

func newRunCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the bot until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return corecmd.Run(corecmd.Options{
				ConfigPath: flags.configPath,
				Bootstrap:  bootstrapApp,
			})
		},
	}
}

func bootstrapApp(ctx context.Context, cfg *coreconfig.Config) (corecmd.TelegramApp, error) {
	infra, err := bootstrap.Run(ctx, bootstrap.Options{Config: cfg})
	if err != nil {
		return nil, err
	}
	a, err := app.New(ctx, cfg, app.Options{DB: infra.DB})
	if err != nil {
		_ = infra.Close()
		return nil, err
	}
	return a, nil
}
