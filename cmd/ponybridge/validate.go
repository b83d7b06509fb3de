package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newValidateCmd(flags *CLIConfig) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the configuration and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid (gateway %s)\n", cfg.Gateway.URL)
			return err
		},
	}
}
