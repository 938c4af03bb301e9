package root

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/countly/countly-sdk-go/pkg/version"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version information",
		Long:  `Display the version, commit hash and reported SDK name`,
		Args:  cobra.NoArgs,
		Run:   runVersionCommand,
	}
}

func runVersionCommand(cmd *cobra.Command, _ []string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "countly version %s\n", version.Version)
	fmt.Fprintf(out, "Commit: %s\n", version.Commit)
	fmt.Fprintf(out, "SDK name: %s\n", version.SDKName)
}
