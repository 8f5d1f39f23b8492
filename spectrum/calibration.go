package spectrum

import "github.com/frame-lab/dbaserh/mathx"

// Calibration is a linear channel -> energy mapping fit through reference
// points, energy = Slope*channel + Intercept
type Calibration struct {
	Slope float64 `json:"slope"`

	Intercept float64 `json:"intercept"`
}

// Fit computes a Calibration from reference (channel, energy in keV) pairs.
// At least two points are required; collinear points are recovered exactly.
func Fit(channels, energies []float64) (Calibration, error) {
	m, b, err := mathx.LinearFit(channels, energies)
	if err != nil {
		return Calibration{}, err
	}
	return Calibration{Slope: m, Intercept: b}, nil
}

// Energy maps a channel number to an energy in keV
func (c Calibration) Energy(channel float64) float64 {
	return c.Slope*channel + c.Intercept
}

// Apply maps the bins of a spectrum from channels to energies.  The counts
// slice is shared with the input, the bins are newly allocated.
func (c Calibration) Apply(s Spectrum) Spectrum {
	bins := make([]float64, len(s.Bins))
	for i, b := range s.Bins {
		bins[i] = c.Energy(b)
	}
	return Spectrum{Bins: bins, Counts: s.Counts}
}

// Zero returns true if the calibration is the zero value, i.e. unset
func (c Calibration) Zero() bool {
	return c.Slope == 0 && c.Intercept == 0
}
