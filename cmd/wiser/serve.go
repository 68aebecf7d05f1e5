package main

import (
	"github.com/spf13/cobra"

	"github.com/wiser-pay/wiser-server/pkg/app"
	"github.com/wiser-pay/wiser-server/pkg/wiser/server"
	"github.com/wiser-pay/wiser-server/pkg/wiser/server/web"
)

func newServeCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vault HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(
				server.NewApp(server.WithEnvConfigs(), web.WithEnvConfigs()),
				app.WithConfigPath(configPath),
			)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "config.yaml", "configuration file path")
	return cmd
}
