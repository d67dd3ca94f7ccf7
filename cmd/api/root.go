package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/bryanwahyu/brainscan/internal/config"
)

func newRootCmd() *cobra.Command {
	var (
		path string
		cfg  = new(config.Config)
	)

	cmd := &cobra.Command{
		Use:           "brainscan",
		Short:         "BrainScan API: brain-scan upload, AI diagnosis and PDF reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(path)
			if err != nil {
				return err
			}
			*cfg = *loaded
			return nil
		},
	}

	defaultPath := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	cmd.Version = version
	cmd.PersistentFlags().StringVar(&path, "config", defaultPath, "path to config.yaml (env CONFIG_PATH)")

	serve := newServeCmd(cfg)
	cmd.RunE = serve.RunE
	cmd.AddCommand(
		serve,
		newMigrateCmd(cfg),
		newTokenCmd(cfg),
	)
	return cmd
}
