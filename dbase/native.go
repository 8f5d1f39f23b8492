//go:build dbaserh

package dbase

/*
#cgo LDFLAGS: -ldbaserh

#include <stdlib.h>

// exported call surface of libdbaserh, mirrors dbaserh.h
typedef struct dbase_rh dbase_rh;

typedef struct {
	int amp;
	int time;
} lm_data;

extern int libdbase_list_serials(int *serials, int max);
extern dbase_rh *libdbase_init(int serial);
extern int libdbase_hv_on(dbase_rh *det);
extern int libdbase_hv_off(dbase_rh *det);
extern int libdbase_gs_on(dbase_rh *det);
extern int libdbase_gs_off(dbase_rh *det);
extern int libdbase_zs_on(dbase_rh *det);
extern int libdbase_zs_off(dbase_rh *det);
extern int libdbase_set_hv(dbase_rh *det, int hv);
extern int libdbase_set_fgn(dbase_rh *det, float fgn);
extern int libdbase_set_pw(dbase_rh *det, float pw);
extern int libdbase_set_list_mode(dbase_rh *det);
extern int libdbase_start(dbase_rh *det);
extern int libdbase_stop(dbase_rh *det);
extern int libdbase_clear_all(dbase_rh *det);
extern int libdbase_read_lm_packets(dbase_rh *det, lm_data *buf, int max, int *read, int *time);
extern int libdbase_print_status(dbase_rh *det);
extern int libdbase_close(dbase_rh *det);
*/
import "C"
import (
	"fmt"
	"unsafe"
)

// Error represents a nonzero return code from a libdbaserh call
type Error struct {
	Code int

	Call string
}

func (e *Error) Error() string {
	return fmt.Sprintf("dbase: %s returned %d", e.Call, e.Code)
}

// libErr converts a C return code to a Go error
func libErr(code C.int, call string) error {
	if code == 0 {
		return nil
	}
	return &Error{Code: int(code), Call: call}
}

// ListSerials enumerates the serial numbers of all connected digiBASE-RH
// units, at most MaxDetectors of them
func ListSerials() ([]int, error) {
	buf := make([]C.int, MaxDetectors)
	found := int(C.libdbase_list_serials(&buf[0], C.int(len(buf))))
	if found < 0 {
		return nil, libErr(C.int(found), "libdbase_list_serials")
	}
	serials := make([]int, found)
	for i := 0; i < found; i++ {
		serials[i] = int(buf[i])
	}
	return serials, nil
}

// native is the cgo-backed Device
type native struct {
	det *C.dbase_rh
}

// openNative opens a connection to the detector with the given serial
// number, or the first detector found when serial is zero
func openNative(serial int) (Device, error) {
	if serial == 0 {
		serials, err := ListSerials()
		if err != nil {
			return nil, err
		}
		if len(serials) == 0 {
			return nil, ErrNoDevice
		}
		serial = serials[0]
	}
	det := C.libdbase_init(C.int(serial))
	if det == nil {
		return nil, ErrNoDevice
	}
	return &native{det: det}, nil
}

func (n *native) HVOn() error {
	return libErr(C.libdbase_hv_on(n.det), "libdbase_hv_on")
}

func (n *native) HVOff() error {
	return libErr(C.libdbase_hv_off(n.det), "libdbase_hv_off")
}

func (n *native) GSOn() error {
	return libErr(C.libdbase_gs_on(n.det), "libdbase_gs_on")
}

func (n *native) GSOff() error {
	return libErr(C.libdbase_gs_off(n.det), "libdbase_gs_off")
}

func (n *native) ZSOn() error {
	return libErr(C.libdbase_zs_on(n.det), "libdbase_zs_on")
}

func (n *native) ZSOff() error {
	return libErr(C.libdbase_zs_off(n.det), "libdbase_zs_off")
}

func (n *native) SetHV(volts int) error {
	return libErr(C.libdbase_set_hv(n.det, C.int(volts)), "libdbase_set_hv")
}

func (n *native) SetFineGain(gain float64) error {
	return libErr(C.libdbase_set_fgn(n.det, C.float(gain)), "libdbase_set_fgn")
}

func (n *native) SetPulseWidth(us float64) error {
	return libErr(C.libdbase_set_pw(n.det, C.float(us)), "libdbase_set_pw")
}

func (n *native) SetListMode() error {
	return libErr(C.libdbase_set_list_mode(n.det), "libdbase_set_list_mode")
}

func (n *native) Start() error {
	return libErr(C.libdbase_start(n.det), "libdbase_start")
}

func (n *native) Stop() error {
	return libErr(C.libdbase_stop(n.det), "libdbase_stop")
}

func (n *native) ClearAll() error {
	return libErr(C.libdbase_clear_all(n.det), "libdbase_clear_all")
}

// ReadLMPackets drains the native listmode buffer.  Event is layout
// compatible with lm_data, so the library fills the Go buffer directly.
func (n *native) ReadLMPackets(buf []Event) (int, int, error) {
	if len(buf) == 0 {
		return 0, 0, nil
	}
	var read, tick C.int
	code := C.libdbase_read_lm_packets(
		n.det,
		(*C.lm_data)(unsafe.Pointer(&buf[0])),
		C.int(len(buf)),
		&read,
		&tick)
	if err := libErr(code, "libdbase_read_lm_packets"); err != nil {
		return 0, 0, err
	}
	return int(read), int(tick), nil
}

func (n *native) PrintStatus() error {
	return libErr(C.libdbase_print_status(n.det), "libdbase_print_status")
}

func (n *native) Close() error {
	return libErr(C.libdbase_close(n.det), "libdbase_close")
}
