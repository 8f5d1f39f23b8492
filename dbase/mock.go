package dbase

import (
	"math/rand"
	"sync"
	"time"

	"github.com/frame-lab/dbaserh/spectrum"
	"github.com/frame-lab/dbaserh/util"
)

// Mock is a software simulation of a digiBASE-RH for development away from
// the hardware.  While started with the high voltage on it synthesizes
// detection events at EventRate: a Cs-137-like photopeak over an
// exponential continuum.  It implements Device.
type Mock struct {
	sync.Mutex

	// EventRate is the mean synthesized event rate in counts per second
	EventRate float64

	// PeakChannel is the center of the synthesized photopeak at unit gain
	PeakChannel float64

	serial int

	rng *rand.Rand

	hvOn bool

	gsOn bool

	zsOn bool

	started bool

	listMode bool

	fineGain float64

	lastRead time.Time

	tick int32

	closed bool
}

// NewMock returns a simulated detector with the given serial number
func NewMock(serial int) *Mock {
	return &Mock{
		EventRate:   5000,
		PeakChannel: 662,
		serial:      serial,
		fineGain:    1,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (m *Mock) HVOn() error {
	m.Lock()
	m.hvOn = true
	m.Unlock()
	return nil
}

func (m *Mock) HVOff() error {
	m.Lock()
	m.hvOn = false
	m.Unlock()
	return nil
}

func (m *Mock) GSOn() error {
	m.Lock()
	m.gsOn = true
	m.Unlock()
	return nil
}

func (m *Mock) GSOff() error {
	m.Lock()
	m.gsOn = false
	m.Unlock()
	return nil
}

func (m *Mock) ZSOn() error {
	m.Lock()
	m.zsOn = true
	m.Unlock()
	return nil
}

func (m *Mock) ZSOff() error {
	m.Lock()
	m.zsOn = false
	m.Unlock()
	return nil
}

func (m *Mock) SetHV(volts int) error {
	return nil
}

func (m *Mock) SetFineGain(gain float64) error {
	m.Lock()
	m.fineGain = gain
	m.Unlock()
	return nil
}

func (m *Mock) SetPulseWidth(us float64) error {
	return nil
}

func (m *Mock) SetListMode() error {
	m.Lock()
	m.listMode = true
	m.Unlock()
	return nil
}

func (m *Mock) Start() error {
	m.Lock()
	m.started = true
	m.lastRead = time.Now()
	m.Unlock()
	return nil
}

func (m *Mock) Stop() error {
	m.Lock()
	m.started = false
	m.Unlock()
	return nil
}

func (m *Mock) ClearAll() error {
	m.Lock()
	m.tick = 0
	m.Unlock()
	return nil
}

// ReadLMPackets synthesizes the events accumulated since the previous drain
func (m *Mock) ReadLMPackets(buf []Event) (int, int, error) {
	m.Lock()
	defer m.Unlock()
	if m.closed {
		return 0, 0, ErrClosed
	}
	if !m.started || !m.hvOn || !m.listMode {
		return 0, int(m.tick), nil
	}
	now := time.Now()
	elapsed := now.Sub(m.lastRead)
	m.lastRead = now
	n := int(m.EventRate * elapsed.Seconds())
	if n > len(buf) {
		n = len(buf)
	}
	for i := 0; i < n; i++ {
		buf[i] = Event{Amp: m.amplitude(), Tick: m.tick}
		m.tick++
	}
	return n, int(m.tick), nil
}

// amplitude draws from a 30% gaussian photopeak / 70% exponential continuum
// mixture, scaled by the fine gain
func (m *Mock) amplitude() int32 {
	var a float64
	if m.rng.Float64() < 0.3 {
		a = m.PeakChannel + m.rng.NormFloat64()*12
	} else {
		a = m.rng.ExpFloat64() * m.PeakChannel / 2
	}
	a *= m.fineGain
	return int32(util.Clamp(a, 0, spectrum.NumChannels-1))
}

func (m *Mock) PrintStatus() error {
	return nil
}

func (m *Mock) Close() error {
	m.Lock()
	m.closed = true
	m.Unlock()
	return nil
}
