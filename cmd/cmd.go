// Package cmd defines the mapy CLI, built on spf13/cobra
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	golog "github.com/ipfs/go-log"
	"github.com/qri-io/ioes"
	"github.com/spf13/cobra"

	"github.com/mapy-io/mapy/config"
)

var log = golog.Logger("mapy.cmd")

// Execute adds all child commands to the root command and sets flags
// appropriately. Called by main.main()
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	root := NewMapyCommand(ctx, config.StandardRepoPath(), ioes.NewStdIOStreams())
	root.SilenceUsage = true
	root.SilenceErrors = true
	if err := root.Execute(); err != nil {
		printErr(os.Stderr, err)
		os.Exit(1)
	}
}

// NewMapyCommand represents the base command when called without any
// subcommands
func NewMapyCommand(ctx context.Context, repoPath string, ioStreams ioes.IOStreams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mapy",
		Short: "mapy local mock & proxy gateway",
		Long: `mapy is a local HTTP gateway that answers requests from configured mock
profiles and forwards everything else to the profile's upstream origin.`,
	}

	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colorized output")
	cmd.PersistentFlags().StringVar(&repoPathFlag, "repo", repoPath, "path to the mapy data directory")

	cmd.AddCommand(
		NewConnectCommand(ctx, ioStreams),
		NewVersionCommand(ioStreams),
	)

	return cmd
}

var (
	noColor      bool
	repoPathFlag string
)
