//go:build !dbaserh

package dbase

// ListSerials enumerates connected digiBASE-RH units.  Native support was
// not compiled in; see the package documentation.
func ListSerials() ([]int, error) {
	return nil, ErrNativeUnavailable
}

func openNative(serial int) (Device, error) {
	return nil, ErrNativeUnavailable
}
