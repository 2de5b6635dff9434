package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/autobrr/linkdupe/pkg/runtime"
)

func VersionCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "version",
		Short: "Print version, commit and build time",
		Long: `Print version, commit and build time.

Values not set at link time are taken from the module and vcs information
embedded by the go tool.`,
		Example: `  linkdupe version`,
		Args:    cobra.NoArgs,
	}

	command.RunE = func(cmd *cobra.Command, args []string) error {
		info := runtime.BuildInfo()
		_, err := fmt.Fprintf(cmd.OutOrStdout(), "linkdupe version: %s commit: %s built at: %s\n",
			info.Version, info.GitCommit, info.Timestamp)
		return err
	}

	return command
}
