package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func bool2Text(b bool) string {
	if b {
		return color.New(color.Bold, color.FgGreen).Sprint("on")
	}
	return color.New(color.Bold, color.FgRed).Sprint("off")
}

// NewStatusCommand .
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the detector settings and state",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := conn().Status()
			if err != nil {
				return err
			}
			bold := func(format string, a ...interface{}) string { return color.New(color.Bold).Sprintf(format, a...) }

			cmd.Println(bold("Detector %d:", s.Serial))
			cmd.Printf("  High voltage: %s at %s\n", bool2Text(s.HVOn), bold("%d V", s.HVTarget))
			cmd.Printf("  Fine gain: %s\n", bold("%.3f", s.FineGain))
			cmd.Printf("  Pulse width: %s\n", bold("%.2f us", s.PulseWidth))
			cmd.Printf("  Gain stabilization: %s\n", bool2Text(s.GainStabilization))
			cmd.Printf("  Zero stabilization: %s\n", bool2Text(s.ZeroStabilization))
			if s.Running {
				cmd.Printf("  Acquisition: %s\n", color.GreenString("running"))
			} else {
				cmd.Printf("  Acquisition: stopped\n")
			}
			return nil
		},
	}
}

// NewHVCommand .
func NewHVCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "hv [on|off|<volts>]",
		Short: "Switch the high voltage or set its target in volts (50-1200)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("invalid number of arguments")
			}
			c := conn()
			switch strings.ToLower(args[0]) {
			case "on":
				if err := c.HVOn(); err != nil {
					return err
				}
				logrus.Info("high voltage on")
			case "off":
				if err := c.HVOff(); err != nil {
					return err
				}
				logrus.Info("high voltage off")
			default:
				volts, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("%q is not on, off, or a voltage", args[0])
				}
				if err := c.SetHV(volts); err != nil {
					return err
				}
				logrus.Infof("high voltage target set to %d V", volts)
			}
			return nil
		},
	}
}

// NewGainCommand .
func NewGainCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "gain <factor>",
		Short: "Set the fine gain (0.5-1.2)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("invalid number of arguments")
			}
			g, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			if err := conn().SetFineGain(g); err != nil {
				return err
			}
			logrus.Infof("fine gain set to %.3f", g)
			return nil
		},
	}
}

// NewPulseWidthCommand .
func NewPulseWidthCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pulse-width <us>",
		Short: "Set the shaping pulse width in microseconds (0.75-2.0)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("invalid number of arguments")
			}
			us, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return err
			}
			if err := conn().SetPulseWidth(us); err != nil {
				return err
			}
			logrus.Infof("pulse width set to %.2f us", us)
			return nil
		},
	}
}

// NewLockCommand .
func NewLockCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lock [on|off]",
		Short: "Lock or unlock the server against other clients",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("invalid number of arguments")
			}
			var locked bool
			switch strings.ToLower(args[0]) {
			case "on":
				locked = true
			case "off":
				locked = false
			default:
				return fmt.Errorf("%q is not on or off", args[0])
			}
			if err := conn().SetLock(locked); err != nil {
				return err
			}
			logrus.Infof("lock set to %v", locked)
			return nil
		},
	}
}

// NewCalibrateCommand .
func NewCalibrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "calibrate <ch=keV> [ch=keV ...]",
		Short: "Fit and install a linear energy calibration from channel=energy pairs",
		Long: `Fit and install a linear energy calibration from channel=energy pairs.
At least two pairs are required, e.g.

	dbasectl calibrate 356=42 1173=130 1332=146

fits energy = slope*channel + intercept by least squares and installs it on
the server, after which spectrum reports energies instead of channels.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) < 2 {
				return fmt.Errorf("need at least two channel=energy pairs")
			}
			channels := make([]float64, 0, len(args))
			energies := make([]float64, 0, len(args))
			for _, arg := range args {
				parts := strings.SplitN(arg, "=", 2)
				if len(parts) != 2 {
					return fmt.Errorf("%q is not of the form channel=energy", arg)
				}
				ch, err := strconv.ParseFloat(parts[0], 64)
				if err != nil {
					return err
				}
				kev, err := strconv.ParseFloat(parts[1], 64)
				if err != nil {
					return err
				}
				channels = append(channels, ch)
				energies = append(energies, kev)
			}
			cal, err := conn().Calibrate(channels, energies)
			if err != nil {
				return err
			}
			logrus.Infof("calibration installed: energy = %.6f*channel + %.6f", cal.Slope, cal.Intercept)
			return nil
		},
	}
}
