/*Package spectrum converts listmode amplitude streams into histogrammed
spectra and maps channels to energies via linear calibration.

The digiBASE-RH MCA discretizes pulse amplitudes into 1023 channels.  A
Spectrum always has exactly NumChannels bins regardless of the input; the
bin value is the channel center (lower edge + 0.5).
*/
package spectrum

// NumChannels is the number of MCA channels on a digiBASE-RH
const NumChannels = 1023

// Spectrum is a histogrammed acquisition result.  Bins holds channel centers,
// or energies in keV after calibration.  Both slices are NumChannels long.
type Spectrum struct {
	Bins []float64 `json:"bins"`

	Counts []int `json:"counts"`
}

// Total returns the number of events in the spectrum
func (s Spectrum) Total() int {
	var n int
	for _, c := range s.Counts {
		n += c
	}
	return n
}

// Histogram bins amplitudes into NumChannels unit-width channels covering
// [0, NumChannels].  Amplitudes outside that interval are dropped; an
// amplitude of exactly NumChannels lands in the last bin.
func Histogram(amps []int) Spectrum {
	bins := make([]float64, NumChannels)
	counts := make([]int, NumChannels)
	for i := 0; i < NumChannels; i++ {
		bins[i] = float64(i) + 0.5
	}
	for _, a := range amps {
		if a < 0 || a > NumChannels {
			continue
		}
		idx := a
		if idx == NumChannels {
			idx = NumChannels - 1
		}
		counts[idx]++
	}
	return Spectrum{Bins: bins, Counts: counts}
}
