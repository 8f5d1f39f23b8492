package spectrum

import (
	"bytes"
	"math"
	"strings"
	"testing"
)

// reference points from a Na-22/Cs-137/Co-60/Tl-208 source set
var (
	calChannels = []float64{59.5, 356, 662, 1173, 1332, 2614}
	calEnergies = []float64{15, 42, 75, 130, 146, 279}
)

func TestFitRoundTripsReferencePoints(t *testing.T) {
	// build exactly collinear energies so the fit must reproduce them
	truth := Calibration{Slope: 0.105, Intercept: 8.75}
	energies := make([]float64, len(calChannels))
	for i, ch := range calChannels {
		energies[i] = truth.Energy(ch)
	}
	cal, err := Fit(calChannels, energies)
	if err != nil {
		t.Fatal(err)
	}
	for i, ch := range calChannels {
		got := cal.Energy(ch)
		if math.Abs(got-energies[i]) > 1e-9 {
			t.Errorf("channel %f: expected %f keV, got %f", ch, energies[i], got)
		}
	}
}

func TestFitRealPointsResidualsSmall(t *testing.T) {
	cal, err := Fit(calChannels, calEnergies)
	if err != nil {
		t.Fatal(err)
	}
	// the reference set is nearly linear; residuals should stay within a few keV
	for i, ch := range calChannels {
		resid := math.Abs(cal.Energy(ch) - calEnergies[i])
		if resid > 5 {
			t.Errorf("channel %f: residual %f keV too large", ch, resid)
		}
	}
}

func TestApplyPreservesCountsAndLength(t *testing.T) {
	s := Histogram([]int{10, 20, 20, 30})
	cal := Calibration{Slope: 2, Intercept: 1}
	out := cal.Apply(s)
	if len(out.Bins) != NumChannels || len(out.Counts) != NumChannels {
		t.Fatalf("expected %d bins after calibration, got %d/%d", NumChannels, len(out.Bins), len(out.Counts))
	}
	if out.Total() != s.Total() {
		t.Errorf("calibration changed total counts, %d != %d", out.Total(), s.Total())
	}
	if out.Bins[0] != 2*0.5+1 {
		t.Errorf("expected first bin mapped to %f, got %f", 2*0.5+1, out.Bins[0])
	}
}

func TestFitTooFewPoints(t *testing.T) {
	_, err := Fit([]float64{1}, []float64{1})
	if err == nil {
		t.Error("expected an error fitting a single point, got nil")
	}
}

func TestEncodeCSVShape(t *testing.T) {
	s := Histogram([]int{0, 5, 5})
	buf := bytes.Buffer{}
	if err := EncodeCSV(&buf, s); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != NumChannels {
		t.Fatalf("expected %d CSV rows, got %d", NumChannels, len(lines))
	}
	if lines[0] != "0.5,1" {
		t.Errorf("expected first row 0.5,1, got %s", lines[0])
	}
	if lines[5] != "5.5,2" {
		t.Errorf("expected sixth row 5.5,2, got %s", lines[5])
	}
}
