// ABOUTME: Cobra root command with persistent config, debug, and log-format flags bound to viper.
// ABOUTME: Loads .env files and configuration once before any subcommand runs.
package main

import (
	"fmt"
	"io"

	"github.com/saicharanallam/sigmachain/config"
	"github.com/saicharanallam/sigmachain/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// cli carries state shared by the subcommands of one invocation.
type cli struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	out     io.Writer
	errOut  io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	c := &cli{v: config.NewViper(), out: out, errOut: errOut}

	root := &cobra.Command{
		Use:   "sigmachain",
		Short: "Agentic image generation workflows",
		Long: `sigmachain runs a chain of steps over a user prompt: a prompt enhancer,
an image generator, and a vision-model validator. Each run is traced and kept
in memory; the pipeline can be changed at runtime through the HTTP API.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return c.load() },
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.cfgFile, "config", "", "config file (default: sigmachain.yaml in ., ./config, or ~/.config/sigmachain)")
	pf.Bool("debug", false, "enable debug logging")
	pf.String("log-format", "human", "log format: human or json")
	_ = c.v.BindPFlag("log.debug", pf.Lookup("debug"))
	_ = c.v.BindPFlag("log.format", pf.Lookup("log-format"))

	root.AddCommand(
		c.serveCmd(),
		c.runCmd(),
		c.stepsCmd(),
		versionCmd(),
	)
	return root
}

// load reads .env files and the configuration.
func (c *cli) load() error {
	if err := config.LoadDotEnvAuto(); err != nil {
		return err
	}
	if _, err := config.ReadFile(c.v, c.cfgFile); err != nil {
		return err
	}
	cfg, err := config.Decode(c.v)
	if err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// newLogger builds the process logger. Console output is dropped while a
// TUI owns the terminal.
func (c *cli) newLogger(disableConsole bool) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Debug:          c.cfg.Log.Debug,
		Format:         c.cfg.Log.Format,
		File:           c.cfg.Log.File,
		DisableConsole: disableConsole,
	})
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:               "version",
		Short:             "Print the version",
		Args:              cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sigmachain %s\n", version)
		},
	}
}
