package mathx_test

import (
	"fmt"
	"math"
	"testing"

	"github.com/frame-lab/dbaserh/mathx"
)

func ExampleRound() {
	fmt.Println(mathx.Round(1101.4, 1))
	// Output: 1101
}

func TestLinearFitRecoversLine(t *testing.T) {
	var (
		slope     = 0.261
		intercept = -3.5
	)
	x := []float64{59.5, 356, 662, 1173, 1332, 2614}
	y := make([]float64, len(x))
	for i, v := range x {
		y[i] = slope*v + intercept
	}
	m, b, err := mathx.LinearFit(x, y)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(m-slope) > 1e-9 {
		t.Errorf("expected slope %f, got %f", slope, m)
	}
	if math.Abs(b-intercept) > 1e-9 {
		t.Errorf("expected intercept %f, got %f", intercept, b)
	}
}

func TestLinearFitLengthMismatch(t *testing.T) {
	_, _, err := mathx.LinearFit([]float64{1, 2, 3}, []float64{1, 2})
	if err != mathx.ErrFitLengthMismatch {
		t.Errorf("expected length mismatch error, got %v", err)
	}
}

func TestLinearFitUnderdetermined(t *testing.T) {
	_, _, err := mathx.LinearFit([]float64{1}, []float64{1})
	if err != mathx.ErrFitUnderdetermined {
		t.Errorf("expected underdetermined error, got %v", err)
	}
}

func TestLinearFitDegenerateX(t *testing.T) {
	_, _, err := mathx.LinearFit([]float64{2, 2, 2}, []float64{1, 2, 3})
	if err == nil {
		t.Error("expected an error for identical x values, got nil")
	}
}
