package cmd

import (
	"github.com/qri-io/ioes"
	"github.com/spf13/cobra"

	"github.com/mapy-io/mapy/version"
)

// NewVersionCommand creates a new `mapy version` cobra command that
// prints the current mapy version
func NewVersionCommand(ioStreams ioes.IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			printInfo(ioStreams.Out, version.Summary())
		},
	}
}
