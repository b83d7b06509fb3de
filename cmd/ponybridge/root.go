package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	flags := &CLIConfig{}

	rootCmd := &cobra.Command{
		Use:   appName,
		Short: "Bridge an HTTP application to a PonyDebugger gateway",
		Long: appName + ` connects to a PonyDebugger gateway, mirrors the HTTP traffic of a demo
application to its Network panel, and evaluates expressions typed in its console.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	flags.bind(rootCmd)

	rootCmd.AddCommand(
		newServeCmd(flags),
		newValidateCmd(flags),
		newVersionCmd(),
	)
	return rootCmd
}
