package util_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/frame-lab/dbaserh/util"
)

func ExampleClamp() {
	fmt.Println(util.Clamp(1500, 50, 1200))
	// Output: 1200
}

func TestClampHigh(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 20.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampLow(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = -1.
	)
	clamped := util.Clamp(input, low, high)
	if clamped == input {
		t.Errorf("expected out of range value %f to be clipped to %f < x < %f, got %f", input, low, high, clamped)
	}
}

func TestClampInRangePassthrough(t *testing.T) {
	var (
		low   = 0.
		high  = 10.
		input = 5.
	)
	clamped := util.Clamp(input, low, high)
	if clamped != input {
		t.Errorf("expected in range value %f to pass unmodified, got %f", input, clamped)
	}
}

func TestSecsToDuration(t *testing.T) {
	var dur time.Duration = 123456789
	secs := dur.Seconds()
	out := util.SecsToDuration(secs)
	if out != dur {
		t.Errorf("expected SecsToDuration to round trip, output %v != expected %v", out, dur)
	}
}
