package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display biostat version information.`,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "biostat v%s\n", version)
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logistic regression and survival analysis built with Go and gonum")
		},
	}
}
