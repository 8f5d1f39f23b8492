package dbase

import "errors"

// PacketBuffer is the number of listmode records drained from the device
// per poll.  It matches the buffer size the native library fills.
const PacketBuffer = 2048

// MaxDetectors is the largest number of digiBASE-RH units the native
// library will enumerate on one host
const MaxDetectors = 32

var (
	// ErrNativeUnavailable is generated when native device support was not
	// compiled in.  Build with -tags dbaserh on a machine with libdbaserh
	// installed to enable it.
	ErrNativeUnavailable = errors.New("dbase: built without libdbaserh support, rebuild with -tags dbaserh")

	// ErrNoDevice is generated when no detector with the requested serial
	// number is connected
	ErrNoDevice = errors.New("dbase: no digiBASE-RH with the requested serial number found")

	// ErrNoCalibration is generated when an energy spectrum is requested
	// without a channel -> energy calibration configured
	ErrNoCalibration = errors.New("dbase: no energy calibration configured")

	// ErrClosed is generated when the driver is used after Shutdown
	ErrClosed = errors.New("dbase: detector is closed")
)

// Event is the fixed in-memory record layout exchanged with the native
// library: a pulse amplitude (MCA channel) and the device time counter.
// The field order and widths are layout-compatible with the library's
// listmode record, do not reorder.
type Event struct {
	Amp int32

	Tick int32
}

// Device is the exported call surface of the native acquisition library for
// one detector.  All device I/O, protocol framing and buffering lives behind
// it; this package only sequences calls against it.
type Device interface {
	// HVOn enables the photomultiplier high voltage supply
	HVOn() error

	// HVOff disables the photomultiplier high voltage supply
	HVOff() error

	// GSOn enables gain stabilization.  Per the vendor, stabilization is
	// only effective at an 800 V target.
	GSOn() error

	// GSOff disables gain stabilization
	GSOff() error

	// ZSOn enables zero stabilization, see GSOn for the 800 V caveat
	ZSOn() error

	// ZSOff disables zero stabilization
	ZSOff() error

	// SetHV sets the high voltage target in volts
	SetHV(volts int) error

	// SetFineGain sets the fine gain
	SetFineGain(gain float64) error

	// SetPulseWidth sets the shaping pulse width in microseconds
	SetPulseWidth(us float64) error

	// SetListMode switches the detector from histogram to listmode output
	SetListMode() error

	// Start begins a measurement
	Start() error

	// Stop ends a measurement
	Stop() error

	// ClearAll clears all presets
	ClearAll() error

	// ReadLMPackets drains up to len(buf) listmode records into buf and
	// returns the number of records read along with the device time counter
	ReadLMPackets(buf []Event) (n int, tick int, err error)

	// PrintStatus asks the native library to print its status text
	PrintStatus() error

	// Close releases the device handle
	Close() error
}
