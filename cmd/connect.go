package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/qri-io/ioes"
	"github.com/spf13/cobra"

	"github.com/mapy-io/mapy/api"
	"github.com/mapy-io/mapy/config"
)

// NewConnectCommand creates a new `mapy connect` command that starts
// the local gateway and blocks until interrupted
func NewConnectCommand(ctx context.Context, ioStreams ioes.IOStreams) *cobra.Command {
	o := ConnectOptions{IOStreams: ioStreams, ctx: ctx}
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "start the local mock & proxy gateway",
		Long: `Connect starts the gateway on 127.0.0.1 and stays there until you exit
the process. Requests that match a mounted block or a request rule of the
active profile are answered locally; everything else is forwarded to the
profile's baseUrl.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := o.Complete(); err != nil {
				return err
			}
			return o.Run()
		},
	}

	cmd.Flags().IntVarP(&o.Port, "port", "p", 0, "port to listen on, overrides MAPY_PORT")

	return cmd
}

// ConnectOptions encapsulates state for the connect command
type ConnectOptions struct {
	ioes.IOStreams
	ctx context.Context

	Port   int
	Config *config.Config
}

// Complete resolves configuration: config file values first, then the
// environment, then flags
func (o *ConnectOptions) Complete() error {
	cfg := config.DefaultConfig()
	cfgPath := filepath.Join(repoPathFlag, "config.yaml")
	if _, err := os.Stat(cfgPath); err == nil {
		log.Debugf("loading config file: %s", cfgPath)
		loaded, err := config.ReadFromFile(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	cfg.Repo.Path = repoPathFlag
	if port, ok := config.EnvPort(); ok {
		cfg.API.Port = port
	}
	if o.Port != 0 {
		cfg.API.Port = o.Port
	}

	o.Config = cfg
	setNoColor(noColor)
	return nil
}

// Run starts the gateway. It blocks while the server is running
func (o *ConnectOptions) Run() error {
	s, err := api.New(o.Config)
	if err != nil {
		return err
	}

	printInfo(o.Out, "mapy is ready")
	printInfo(o.Out, "repo:\t%s", o.Config.Repo.Path)
	printInfo(o.Out, "port:\t%d", o.Config.API.Port)

	return s.Serve(o.ctx)
}
