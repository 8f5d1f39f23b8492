package dbase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/frame-lab/dbaserh/spectrum"
)

func mockConfig() Config {
	cfg := DefaultConfig()
	cfg.SleepT = 5 * time.Millisecond
	cfg.Realtime = 60 * time.Millisecond
	return cfg
}

func mockDBase(t *testing.T) (*DBase, *Mock) {
	t.Helper()
	m := NewMock(1)
	m.EventRate = 50000 // plenty of events even in a short test window
	db, err := New(m, mockConfig())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Shutdown() })
	return db, m
}

func TestListModeCollectsAndStops(t *testing.T) {
	db, _ := mockDBase(t)
	start := time.Now()
	samples, err := db.ListMode(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) == 0 {
		t.Fatal("no events collected over the measurement window")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("measurement took %v, realtime expiry did not stop it", elapsed)
	}
	st, _ := db.Status()
	if st.Running {
		t.Error("detector still running after the measurement returned")
	}
	for _, s := range samples {
		if s.Amp < 0 || s.Amp >= spectrum.NumChannels {
			t.Fatalf("amplitude %d outside the MCA channel range", s.Amp)
		}
	}
}

func TestListModeCancellationIsNotAnError(t *testing.T) {
	db, _ := mockDBase(t)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := db.ListMode(ctx); err != nil {
		t.Fatalf("cancellation should end the measurement normally, got %v", err)
	}
}

func TestListModeAfterShutdown(t *testing.T) {
	db, _ := mockDBase(t)
	db.Shutdown()
	if _, err := db.ListMode(context.Background()); err != ErrClosed {
		t.Fatalf("got %v, expected ErrClosed", err)
	}
}

func TestCountHistogramsEvents(t *testing.T) {
	db, _ := mockDBase(t)
	s, err := db.Count(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Counts) != spectrum.NumChannels {
		t.Fatalf("histogram has %d channels, expected %d", len(s.Counts), spectrum.NumChannels)
	}
	if s.Total() == 0 {
		t.Fatal("histogram is empty")
	}
	if s.Bins[0] != 0.5 {
		t.Errorf("first bin center is %v, expected 0.5", s.Bins[0])
	}
}

func TestSpectraRequiresCalibration(t *testing.T) {
	db, _ := mockDBase(t)
	if _, err := db.Spectra(context.Background()); err != ErrNoCalibration {
		t.Fatalf("got %v, expected ErrNoCalibration", err)
	}
}

func TestSpectraAppliesCalibration(t *testing.T) {
	db, _ := mockDBase(t)
	db.SetCalibration(spectrum.Calibration{Slope: 2, Intercept: 10})
	s, err := db.Spectra(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if s.Total() == 0 {
		t.Fatal("spectrum is empty")
	}
	if s.Bins[0] != 2*0.5+10 {
		t.Errorf("first bin maps to %v, expected %v", s.Bins[0], 2*0.5+10)
	}
}

func TestFullDrainWarnsOfOverflow(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	m := NewMock(1)
	// far more events per poll interval than one packet buffer holds
	m.EventRate = 5e6
	cfg := mockConfig()
	cfg.Realtime = 30 * time.Millisecond
	db, err := New(m, cfg)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Shutdown()
	samples, err := db.ListMode(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) < PacketBuffer {
		t.Fatalf("collected %d samples, expected at least one full buffer (%d)", len(samples), PacketBuffer)
	}
	warned := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel {
			warned = true
		}
	}
	if !warned {
		t.Error("no warning was logged for a full packet buffer drain")
	}
}

// stickyStopDevice simulates a detector that will not stop on command
type stickyStopDevice struct {
	*Mock
}

func (d *stickyStopDevice) Stop() error {
	return errors.New("stop command timed out")
}

func TestStopFailureAfterMeasurementIsLogged(t *testing.T) {
	hook := test.NewGlobal()
	defer hook.Reset()
	dev := &stickyStopDevice{Mock: NewMock(1)}
	db, err := New(dev, mockConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Shutdown()
	if _, err := db.ListMode(context.Background()); err != nil {
		t.Fatal(err)
	}
	logged := false
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.ErrorLevel {
			logged = true
		}
	}
	if !logged {
		t.Error("the failed stop after the measurement was not logged")
	}
}

func TestMockSynthesizesNothingWhileStopped(t *testing.T) {
	m := NewMock(1)
	m.HVOn()
	m.SetListMode()
	buf := make([]Event, PacketBuffer)
	n, _, err := m.ReadLMPackets(buf)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("read %d events from a stopped detector", n)
	}
}
