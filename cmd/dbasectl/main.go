package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/frame-lab/dbaserh/client"
)

var (
	// Version is injected via ldflags with git build
	Version = "1"

	addr     = "http://localhost:8000"
	logLevel = "info"
)

func conn() *client.Client {
	return client.New(addr)
}

// NewCommand .
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dbasectl",
		Short: "dbasectl talks to a dbase-http server controlling an ORTEC digiBASE-RH",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			l, err := logrus.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			logrus.SetLevel(l)
			return nil
		},
	}

	globalFlags := cmd.PersistentFlags()
	globalFlags.StringVarP(&addr, "addr", "a", addr, "base URL of the dbase-http server")
	globalFlags.StringVarP(&logLevel, "log-level", "l", "info", "log level (trace, debug, info, warn, error, fatal, panic)")

	cmd.AddCommand(
		NewVersionCommand(),
		NewStatusCommand(),
		NewHVCommand(),
		NewGainCommand(),
		NewPulseWidthCommand(),
		NewLockCommand(),
		NewCalibrateCommand(),
		NewCountCommand(),
		NewSpectrumCommand(),
		NewListCommand(),
	)

	return cmd
}

// NewVersionCommand .
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("%s\n", Version)
		},
	}
}

func main() {
	if err := NewCommand().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
