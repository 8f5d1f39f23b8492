package dbase

import (
	"errors"
	"testing"
	"time"
)

// seqDevice records the order of calls made against it
type seqDevice struct {
	calls []string
}

func (d *seqDevice) record(call string) error {
	d.calls = append(d.calls, call)
	return nil
}

func (d *seqDevice) HVOn() error                    { return d.record("hv_on") }
func (d *seqDevice) HVOff() error                   { return d.record("hv_off") }
func (d *seqDevice) GSOn() error                    { return d.record("gs_on") }
func (d *seqDevice) GSOff() error                   { return d.record("gs_off") }
func (d *seqDevice) ZSOn() error                    { return d.record("zs_on") }
func (d *seqDevice) ZSOff() error                   { return d.record("zs_off") }
func (d *seqDevice) SetHV(volts int) error          { return d.record("set_hv") }
func (d *seqDevice) SetFineGain(gain float64) error { return d.record("set_fgn") }
func (d *seqDevice) SetPulseWidth(us float64) error { return d.record("set_pw") }
func (d *seqDevice) SetListMode() error             { return d.record("set_lm") }
func (d *seqDevice) Start() error                   { return d.record("start") }
func (d *seqDevice) Stop() error                    { return d.record("stop") }
func (d *seqDevice) ClearAll() error                { return d.record("clear_all") }
func (d *seqDevice) PrintStatus() error             { return d.record("status") }
func (d *seqDevice) Close() error                   { return d.record("close") }

func (d *seqDevice) ReadLMPackets(buf []Event) (int, int, error) {
	d.record("read_lm")
	return 0, 0, nil
}

func equalSeq(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestNewRunsPowerUpSequence(t *testing.T) {
	dev := &seqDevice{}
	db, err := New(dev, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Shutdown()
	want := []string{"hv_on", "gs_off", "zs_off", "set_hv", "set_fgn", "set_pw", "status"}
	if !equalSeq(dev.calls, want) {
		t.Errorf("power-up sequence was %v, expected %v", dev.calls, want)
	}
	st, _ := db.Status()
	if !st.HVOn {
		t.Error("high voltage should be reported on after power-up")
	}
	if st.GainStabilization || st.ZeroStabilization {
		t.Error("stabilization should be reported off after power-up")
	}
}

// refuseHVDevice accepts the HV switch but rejects the target voltage,
// like firmware refusing a setting mid power-up
type refuseHVDevice struct {
	seqDevice
}

func (d *refuseHVDevice) SetHV(volts int) error {
	d.record("set_hv")
	return errors.New("firmware refused the setting")
}

func TestNewTurnsHVOffWhenPowerUpFails(t *testing.T) {
	dev := &refuseHVDevice{}
	if _, err := New(dev, DefaultConfig()); err == nil {
		t.Fatal("expected the power-up failure to surface")
	}
	want := []string{"hv_on", "gs_off", "zs_off", "set_hv", "hv_off", "close"}
	if !equalSeq(dev.calls, want) {
		t.Errorf("failed power-up left the device as %v, expected %v", dev.calls, want)
	}
}

func TestShutdownSequenceAndIdempotence(t *testing.T) {
	dev := &seqDevice{}
	db, err := New(dev, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	dev.calls = nil
	if err := db.Shutdown(); err != nil {
		t.Fatal(err)
	}
	want := []string{"stop", "clear_all", "hv_off", "close"}
	if !equalSeq(dev.calls, want) {
		t.Errorf("shutdown sequence was %v, expected %v", dev.calls, want)
	}
	dev.calls = nil
	if err := db.Shutdown(); err != nil {
		t.Fatal(err)
	}
	if len(dev.calls) != 0 {
		t.Errorf("second Shutdown touched the device: %v", dev.calls)
	}
	if err := db.Start(); err != ErrClosed {
		t.Errorf("Start after Shutdown returned %v, expected ErrClosed", err)
	}
	if err := db.HVOn(); err != ErrClosed {
		t.Errorf("HVOn after Shutdown returned %v, expected ErrClosed", err)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		descr  string
		mut    func(*Config)
		wantOK bool
	}{
		{"defaults", func(c *Config) {}, true},
		{"hv too low", func(c *Config) { c.HVTarget = MinHV - 1 }, false},
		{"hv too high", func(c *Config) { c.HVTarget = MaxHV + 1 }, false},
		{"hv at floor", func(c *Config) { c.HVTarget = MinHV }, true},
		{"hv at ceiling", func(c *Config) { c.HVTarget = MaxHV }, true},
		{"gain too low", func(c *Config) { c.FineGain = 0.49 }, false},
		{"gain too high", func(c *Config) { c.FineGain = 1.21 }, false},
		{"pulse width too short", func(c *Config) { c.PulseWidth = 0.5 }, false},
		{"pulse width too long", func(c *Config) { c.PulseWidth = 2.5 }, false},
		{"zero sleep", func(c *Config) { c.SleepT = 0 }, false},
		{"negative realtime", func(c *Config) { c.Realtime = -time.Second }, false},
	}
	for _, tc := range cases {
		t.Run(tc.descr, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mut(&cfg)
			err := cfg.Validate()
			if tc.wantOK && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tc.wantOK && err == nil {
				t.Error("expected an error, got nil")
			}
		})
	}
}

func TestNewRejectsBadConfig(t *testing.T) {
	dev := &seqDevice{}
	cfg := DefaultConfig()
	cfg.HVTarget = 5000
	if _, err := New(dev, cfg); err == nil {
		t.Fatal("expected an error for an out of range high voltage")
	}
	if len(dev.calls) != 0 {
		t.Errorf("device was touched despite invalid config: %v", dev.calls)
	}
}

func TestSettersValidateBeforeTouchingDevice(t *testing.T) {
	dev := &seqDevice{}
	db, err := New(dev, DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Shutdown()
	dev.calls = nil
	if err := db.SetHV(MaxHV + 100); err == nil {
		t.Error("expected an error for out of range high voltage")
	}
	if err := db.SetFineGain(2.0); err == nil {
		t.Error("expected an error for out of range fine gain")
	}
	if err := db.SetPulseWidth(10); err == nil {
		t.Error("expected an error for out of range pulse width")
	}
	if len(dev.calls) != 0 {
		t.Errorf("device was touched with out of range values: %v", dev.calls)
	}
	if err := db.SetHV(800); err != nil {
		t.Error(err)
	}
	if v, _ := db.HVTarget(); v != 800 {
		t.Errorf("high voltage target reads %d, expected 800", v)
	}
}

func TestOpenWithoutNativeSupport(t *testing.T) {
	if _, err := Open(DefaultConfig()); err == nil {
		t.Skip("native support compiled in, nothing to test")
	}
}
