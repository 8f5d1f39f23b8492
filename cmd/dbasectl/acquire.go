package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/theckman/yacspin"

	"github.com/frame-lab/dbaserh/dbase"
	"github.com/frame-lab/dbaserh/spectrum"
)

var (
	seconds float64
	outPath string
	asCSV   bool
)

func acquireFlags(cmd *cobra.Command) {
	cmd.Flags().Float64VarP(&seconds, "seconds", "t", 0, "acquisition time in seconds, 0 uses the server's configured realtime")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "write the result to this file instead of stdout")
}

// spin runs f under a spinner so a long acquisition does not look hung.
func spin(msg string, f func() error) error {
	s, err := yacspin.New(yacspin.Config{
		Frequency:     100 * time.Millisecond,
		CharSet:       yacspin.CharSets[11],
		Suffix:        " " + msg,
		StopCharacter: "✓",
		StopColors:    []string{"fgGreen"},
	})
	if err != nil {
		// a bad terminal should not stop the acquisition
		logrus.Debugf("spinner unavailable: %v", err)
		return f()
	}
	s.Start()
	err = f()
	if err != nil {
		s.StopFail()
		return err
	}
	s.Stop()
	return nil
}

func output() (io.WriteCloser, error) {
	if outPath == "" {
		return os.Stdout, nil
	}
	return os.Create(outPath)
}

func writeSpectrum(s spectrum.Spectrum) error {
	w, err := output()
	if err != nil {
		return err
	}
	if w != os.Stdout {
		defer w.Close()
	}
	if asCSV {
		return spectrum.EncodeCSV(w, s)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// NewCountCommand .
func NewCountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "count",
		Short: "Acquire and print an uncalibrated pulse-height histogram",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s spectrum.Spectrum
			err := spin("acquiring", func() error {
				var err error
				s, err = conn().Count(seconds)
				return err
			})
			if err != nil {
				return err
			}
			logrus.Infof("%d events", s.Total())
			return writeSpectrum(s)
		},
	}
	acquireFlags(cmd)
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write two-column CSV instead of JSON")
	return cmd
}

// NewSpectrumCommand .
func NewSpectrumCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spectrum",
		Short: "Acquire and print an energy-calibrated spectrum",
		RunE: func(cmd *cobra.Command, args []string) error {
			var s spectrum.Spectrum
			err := spin("acquiring", func() error {
				var err error
				s, err = conn().Spectrum(seconds)
				return err
			})
			if err != nil {
				return err
			}
			logrus.Infof("%d events", s.Total())
			return writeSpectrum(s)
		},
	}
	acquireFlags(cmd)
	cmd.Flags().BoolVar(&asCSV, "csv", false, "write two-column CSV instead of JSON")
	return cmd
}

// NewListCommand .
func NewListCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Acquire and print raw listmode events",
		RunE: func(cmd *cobra.Command, args []string) error {
			var samples []dbase.Sample
			err := spin("acquiring", func() error {
				var err error
				samples, err = conn().List(seconds)
				return err
			})
			if err != nil {
				return err
			}
			logrus.Infof("%d events", len(samples))
			w, err := output()
			if err != nil {
				return err
			}
			if w != os.Stdout {
				defer w.Close()
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(samples); err != nil {
				return fmt.Errorf("encoding events: %v", err)
			}
			return nil
		},
	}
	acquireFlags(cmd)
	return cmd
}
