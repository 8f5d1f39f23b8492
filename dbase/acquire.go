package dbase

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/frame-lab/dbaserh/spectrum"
)

// Sample is one detection event as seen by the host: the pulse amplitude
// (MCA channel), the device time counter, and the wall-clock time of the
// poll that drained it
type Sample struct {
	Amp int `json:"amp"`

	Tick int32 `json:"tick"`

	At time.Time `json:"at"`
}

// Run is the metadata of one completed acquisition, suitable for a run log
type Run struct {
	Serial int `db:"serial"`

	Started time.Time `db:"started"`

	Seconds float64 `db:"seconds"`

	HVTarget int `db:"hv_target"`

	FineGain float64 `db:"fine_gain"`

	PulseWidth float64 `db:"pulse_width"`

	Events int `db:"events"`

	CalSlope float64 `db:"cal_slope"`

	CalIntercept float64 `db:"cal_intercept"`
}

// ListMode runs a listmode measurement: the detector is switched to
// listmode output and started, then the native buffer is drained every
// SleepT until Realtime has elapsed or ctx is cancelled.  Cancellation is
// not an error; the samples collected so far are returned.  The detector is
// stopped before returning.
//
// If a poll drains a completely full buffer the native ring may have
// overflowed between polls; events lost that way are unrecoverable at this
// layer, so the condition is logged.
func (db *DBase) ListMode(ctx context.Context) ([]Sample, error) {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil, ErrClosed
	}
	cfg := db.cfg
	dev := db.dev
	db.mu.Unlock()

	if err := dev.SetListMode(); err != nil {
		return nil, err
	}
	if err := db.Start(); err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Stop(); err != nil {
			logrus.WithFields(logrus.Fields{
				"serial": cfg.Serial,
			}).WithError(err).Error("failed to stop the detector after the measurement")
		}
	}()

	if cfg.Realtime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Realtime)
		defer cancel()
	}

	lim := rate.NewLimiter(rate.Every(cfg.SleepT), 1)
	// burn the initial token so the first drain happens one interval in,
	// matching the sleep-then-read cycle of the original loop
	lim.Allow()

	buf := make([]Event, PacketBuffer)
	var samples []Sample
	for {
		if err := lim.Wait(ctx); err != nil {
			// deadline or cancellation ends the measurement normally
			return samples, nil
		}
		n, _, err := dev.ReadLMPackets(buf)
		if err != nil {
			return samples, err
		}
		if n == len(buf) {
			logrus.WithFields(logrus.Fields{
				"serial": cfg.Serial,
				"read":   n,
			}).Warn("listmode drain filled the packet buffer, device ring may have overflowed")
		}
		now := time.Now()
		for i := 0; i < n; i++ {
			samples = append(samples, Sample{
				Amp:  int(buf[i].Amp),
				Tick: buf[i].Tick,
				At:   now,
			})
		}
	}
}

// Count runs a listmode measurement and histograms the amplitudes into the
// 1023 MCA channels.  The returned bins are channel centers.
func (db *DBase) Count(ctx context.Context) (spectrum.Spectrum, error) {
	samples, err := db.ListMode(ctx)
	if err != nil {
		return spectrum.Spectrum{}, err
	}
	amps := make([]int, len(samples))
	for i, s := range samples {
		amps[i] = s.Amp
	}
	return spectrum.Histogram(amps), nil
}

// Spectra runs a listmode measurement and returns the histogram with bins
// mapped to energies in keV through the configured calibration
func (db *DBase) Spectra(ctx context.Context) (spectrum.Spectrum, error) {
	cal := db.Calibration()
	if cal.Zero() {
		return spectrum.Spectrum{}, ErrNoCalibration
	}
	counts, err := db.Count(ctx)
	if err != nil {
		return spectrum.Spectrum{}, err
	}
	return cal.Apply(counts), nil
}
