package main

import (
	"github.com/spf13/cobra"

	"whale-index-lab/internal/config"
	"whale-index-lab/internal/pipeline"
)

func configCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective engine configuration as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Only the engine file matters here, so feed settings are not validated.
			env, err := config.LoadEnv()
			if err != nil {
				return err
			}
			path := env.Engine.ConfigPath
			if flags.engineConfig != "" {
				path = flags.engineConfig
			}

			cfg, err := pipeline.LoadYAML(path)
			if err != nil {
				return err
			}
			data, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
