package utils

import "github.com/spf13/cobra"

// PropagatePersistentPreRun runs the PersistentPreRun of the parent command, so that the global options are parsed
// before any subcommand runs.
func PropagatePersistentPreRun(cmd *cobra.Command, args []string) {
	if parent := cmd.Parent(); parent != nil && parent.PersistentPreRun != nil {
		parent.PersistentPreRun(parent, args)
	}
}

// CallHelpCommand is used by commands that only group subcommands.
func CallHelpCommand(cmd *cobra.Command, _ []string) error {
	return cmd.Help()
}
