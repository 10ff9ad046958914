package cmd

import (
	"github.com/arloliu/go-lxi/config"
	"github.com/spf13/cobra"
)

func newConfigCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		Long: `Print the configuration a capture would run with, after layering the
config file, LXI_* environment variables and flags over the defaults.

The output is a valid config file:
  lxicapture config --port 5025 > lxicapture.yaml
  lxicapture --config lxicapture.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, flags, nil)
			if err != nil {
				return err
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			_, err = cmd.OutOrStdout().Write(data)

			return err
		},
	}
}
