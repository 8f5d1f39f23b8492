/*Package dbase exposes control of ORTEC digiBASE-RH PMT bases in Go via
libdbaserh.

This package is a driver interface over the vendor library's exported call
surface; it does not reimplement device discovery, the USB protocol, or
voltage regulation, all of which live inside libdbaserh.  What it adds on
top of the raw binding is argument validation, an explicit open/shutdown
lifecycle that cannot leave the high voltage energized, and the listmode
acquisition loop with histogramming and linear energy calibration.

Native support is compiled in with -tags dbaserh on a machine with
libdbaserh installed.  Without the tag, the Mock device provides a software
simulation, which is also what the tests run against.

Users are encouraged to write packages that build on this driver for more
complex functionality.  An example is in the same repository, cmd/dbasesrv,
which wraps the detector in an HTTP server.
*/
package dbase

import (
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"

	"github.com/frame-lab/dbaserh/spectrum"
)

// Hardware limits for the configurable detector parameters.  The vendor
// documents these informally; out of range values are rejected here rather
// than passed through to firmware.
const (
	// MinHV is the lowest accepted high voltage target, volts
	MinHV = 50

	// MaxHV is the highest accepted high voltage target, volts
	MaxHV = 1200

	// MinFineGain is the lowest accepted fine gain
	MinFineGain = 0.5

	// MaxFineGain is the highest accepted fine gain
	MaxFineGain = 1.2

	// MinPulseWidth is the shortest accepted pulse width, microseconds
	MinPulseWidth = 0.75

	// MaxPulseWidth is the longest accepted pulse width, microseconds
	MaxPulseWidth = 2.0
)

// Config holds the initialization parameters for a detector
type Config struct {
	// Serial is the serial number of the digiBASE-RH.  Zero means the first
	// detector found.
	Serial int

	// HVTarget is the high voltage target in volts, 50-1200
	HVTarget int

	// FineGain is the fine gain, 0.5-1.2
	FineGain float64

	// PulseWidth is the shaping pulse width in microseconds, 0.75-2.0
	PulseWidth float64

	// SleepT is the listmode sampling integration time, i.e. the poll
	// interval of the acquisition loop
	SleepT time.Duration

	// Realtime is the total measurement time.  Zero means measure until the
	// context is cancelled.
	Realtime time.Duration

	// Calibration is the linear channel -> energy fit used by Spectra.
	// The zero value means uncalibrated.
	Calibration spectrum.Calibration
}

// DefaultConfig returns the power-up parameters the acquisition scripts
// have always used
func DefaultConfig() Config {
	return Config{
		HVTarget:   1100,
		FineGain:   0.5,
		PulseWidth: 0.75,
		SleepT:     50 * time.Millisecond,
	}
}

// Validate returns an error if any parameter is outside its hardware range
func (c Config) Validate() error {
	if c.HVTarget < MinHV || c.HVTarget > MaxHV {
		return errors.Errorf("dbase: high voltage target %d V outside [%d, %d]", c.HVTarget, MinHV, MaxHV)
	}
	if c.FineGain < MinFineGain || c.FineGain > MaxFineGain {
		return errors.Errorf("dbase: fine gain %.3f outside [%.1f, %.1f]", c.FineGain, MinFineGain, MaxFineGain)
	}
	if c.PulseWidth < MinPulseWidth || c.PulseWidth > MaxPulseWidth {
		return errors.Errorf("dbase: pulse width %.3f us outside [%.2f, %.2f]", c.PulseWidth, MinPulseWidth, MaxPulseWidth)
	}
	if c.SleepT <= 0 {
		return errors.New("dbase: sleep interval must be positive")
	}
	if c.Realtime < 0 {
		return errors.New("dbase: realtime must not be negative")
	}
	return nil
}

// Status is a snapshot of the driver's view of the detector
type Status struct {
	Serial int `json:"serial"`

	HVOn bool `json:"hvOn"`

	HVTarget int `json:"hvTarget"`

	FineGain float64 `json:"fineGain"`

	PulseWidth float64 `json:"pulseWidth"`

	GainStabilization bool `json:"gainStabilization"`

	ZeroStabilization bool `json:"zeroStabilization"`

	Running bool `json:"running"`
}

// DBase is a detector with a digiBASE-RH PMT base.  It owns the device
// handle; callers must call Shutdown when done, which is guaranteed to turn
// the high voltage off and release the handle.
type DBase struct {
	mu sync.Mutex

	dev Device

	cfg Config

	hvOn bool

	gsOn bool

	zsOn bool

	running bool

	closed bool
}

// New wraps an already-open Device and runs the standard power-up sequence:
// high voltage on, gain and zero stabilization off, then the configured high
// voltage target, fine gain and pulse width are applied, and the device
// reports its status
func New(dev Device, cfg Config) (*DBase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	db := &DBase{dev: dev, cfg: cfg}
	if err := db.bootstrap(); err != nil {
		// the sequence may have failed after HV came up, command it back
		// off before releasing the handle
		dev.HVOff()
		dev.Close()
		return nil, err
	}
	return db, nil
}

// Open finds, opens and powers up the detector with cfg.Serial (the first
// detector found when zero).  The open is retried with exponential backoff;
// the units take a moment to enumerate after plug-in.  Requires native
// support, see the package documentation.
func Open(cfg Config) (*DBase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	var dev Device
	op := func() error {
		d, err := openNative(cfg.Serial)
		if err != nil {
			if err == ErrNativeUnavailable {
				return backoff.Permanent(err)
			}
			return err
		}
		dev = d
		return nil
	}
	err := backoff.Retry(op, &backoff.ExponentialBackOff{
		InitialInterval:     25 * time.Millisecond,
		RandomizationFactor: 0.,
		Multiplier:          2.,
		MaxInterval:         1 * time.Second,
		MaxElapsedTime:      3 * time.Second,
		Clock:               backoff.SystemClock})
	if err != nil {
		return nil, errors.Wrap(err, "opening digiBASE-RH")
	}
	return New(dev, cfg)
}

// bootstrap mirrors the init sequence of the original control scripts
func (db *DBase) bootstrap() error {
	steps := []func() error{
		db.dev.HVOn,
		db.dev.GSOff,
		db.dev.ZSOff,
		func() error { return db.dev.SetHV(db.cfg.HVTarget) },
		func() error { return db.dev.SetFineGain(db.cfg.FineGain) },
		func() error { return db.dev.SetPulseWidth(db.cfg.PulseWidth) },
		db.dev.PrintStatus,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return errors.Wrap(err, "detector power-up sequence")
		}
	}
	db.hvOn = true
	db.gsOn = false
	db.zsOn = false
	return nil
}

// HVOn turns the high voltage on
func (db *DBase) HVOn() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.HVOn(); err != nil {
		return err
	}
	db.hvOn = true
	return nil
}

// HVOff turns the high voltage off
func (db *DBase) HVOff() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.HVOff(); err != nil {
		return err
	}
	db.hvOn = false
	return nil
}

// GSOn turns gain stabilization on.  Stabilization is only effective at an
// 800 V high voltage target.
func (db *DBase) GSOn() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.GSOn(); err != nil {
		return err
	}
	db.gsOn = true
	return nil
}

// GSOff turns gain stabilization off
func (db *DBase) GSOff() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.GSOff(); err != nil {
		return err
	}
	db.gsOn = false
	return nil
}

// ZSOn turns zero stabilization on, see GSOn for the 800 V caveat
func (db *DBase) ZSOn() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.ZSOn(); err != nil {
		return err
	}
	db.zsOn = true
	return nil
}

// ZSOff turns zero stabilization off
func (db *DBase) ZSOff() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.ZSOff(); err != nil {
		return err
	}
	db.zsOn = false
	return nil
}

// SetHV sets the high voltage target in volts
func (db *DBase) SetHV(volts int) error {
	if volts < MinHV || volts > MaxHV {
		return errors.Errorf("dbase: high voltage target %d V outside [%d, %d]", volts, MinHV, MaxHV)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.SetHV(volts); err != nil {
		return err
	}
	db.cfg.HVTarget = volts
	return nil
}

// HVTarget returns the configured high voltage target in volts
func (db *DBase) HVTarget() (int, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cfg.HVTarget, nil
}

// SetFineGain sets the fine gain
func (db *DBase) SetFineGain(gain float64) error {
	if gain < MinFineGain || gain > MaxFineGain {
		return errors.Errorf("dbase: fine gain %.3f outside [%.1f, %.1f]", gain, MinFineGain, MaxFineGain)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.SetFineGain(gain); err != nil {
		return err
	}
	db.cfg.FineGain = gain
	return nil
}

// FineGain returns the configured fine gain
func (db *DBase) FineGain() (float64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cfg.FineGain, nil
}

// SetPulseWidth sets the shaping pulse width in microseconds
func (db *DBase) SetPulseWidth(us float64) error {
	if us < MinPulseWidth || us > MaxPulseWidth {
		return errors.Errorf("dbase: pulse width %.3f us outside [%.2f, %.2f]", us, MinPulseWidth, MaxPulseWidth)
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.SetPulseWidth(us); err != nil {
		return err
	}
	db.cfg.PulseWidth = us
	return nil
}

// PulseWidth returns the configured pulse width in microseconds
func (db *DBase) PulseWidth() (float64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cfg.PulseWidth, nil
}

// SetCalibration installs a channel -> energy calibration
func (db *DBase) SetCalibration(cal spectrum.Calibration) {
	db.mu.Lock()
	db.cfg.Calibration = cal
	db.mu.Unlock()
}

// Calibration returns the installed channel -> energy calibration
func (db *DBase) Calibration() spectrum.Calibration {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.cfg.Calibration
}

// Start begins a measurement
func (db *DBase) Start() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.Start(); err != nil {
		return err
	}
	db.running = true
	return nil
}

// Stop ends a measurement
func (db *DBase) Stop() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	if err := db.dev.Stop(); err != nil {
		return err
	}
	db.running = false
	return nil
}

// ClearAll clears all presets
func (db *DBase) ClearAll() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return ErrClosed
	}
	return db.dev.ClearAll()
}

// Status returns a snapshot of the driver state
func (db *DBase) Status() (Status, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return Status{
		Serial:            db.cfg.Serial,
		HVOn:              db.hvOn,
		HVTarget:          db.cfg.HVTarget,
		FineGain:          db.cfg.FineGain,
		PulseWidth:        db.cfg.PulseWidth,
		GainStabilization: db.gsOn,
		ZeroStabilization: db.zsOn,
		Running:           db.running,
	}, nil
}

// Shutdown stops the measurement, clears all presets, turns the high
// voltage off and releases the device handle.  Every step runs regardless
// of earlier failures; the first error is returned.  It is safe to call
// more than once.
func (db *DBase) Shutdown() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	var first error
	keep := func(err error) {
		if err != nil && first == nil {
			first = err
		}
	}
	keep(db.dev.Stop())
	keep(db.dev.ClearAll())
	keep(db.dev.HVOff())
	keep(db.dev.Close())
	db.hvOn = false
	db.running = false
	return first
}
