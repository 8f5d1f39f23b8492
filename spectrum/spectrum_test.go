package spectrum

import (
	"fmt"
	"math/rand"
	"testing"

	c "github.com/smartystreets/goconvey/convey"
)

func TestHistogramProperties(t *testing.T) {
	testCases := []struct {
		name    string
		amps    []int
		inRange int
	}{
		{"empty input", []int{}, 0},
		{"single event", []int{512}, 1},
		{"all in one channel", []int{7, 7, 7, 7}, 4},
		{"right edge lands in last bin", []int{NumChannels}, 1},
		{"out of range dropped", []int{-1, 500, 2048}, 1},
	}
	c.Convey("Given a synthetic amplitude sequence", t, func() {
		for _, tc := range testCases {
			conveyance := fmt.Sprintf("When histogramming the %s case", tc.name)
			c.Convey(conveyance, func() {
				s := Histogram(tc.amps)
				c.Convey("Then there are exactly 1023 channels and counts", func() {
					c.So(len(s.Bins), c.ShouldEqual, NumChannels)
					c.So(len(s.Counts), c.ShouldEqual, NumChannels)
				})
				c.Convey("Then the counts sum to the number of in-range samples", func() {
					c.So(s.Total(), c.ShouldEqual, tc.inRange)
				})
			})
		}
	})
}

func TestHistogramBinCenters(t *testing.T) {
	s := Histogram(nil)
	for i, b := range s.Bins {
		want := float64(i) + 0.5
		if b != want {
			t.Fatalf("bin %d: expected center %f, got %f", i, want, b)
		}
	}
}

func TestHistogramPlacement(t *testing.T) {
	s := Histogram([]int{0, 1, 1, 1022})
	if s.Counts[0] != 1 {
		t.Errorf("expected 1 count in channel 0, got %d", s.Counts[0])
	}
	if s.Counts[1] != 2 {
		t.Errorf("expected 2 counts in channel 1, got %d", s.Counts[1])
	}
	if s.Counts[1022] != 1 {
		t.Errorf("expected 1 count in channel 1022, got %d", s.Counts[1022])
	}
}

func TestHistogramRandomMassConservation(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	amps := make([]int, 10000)
	for i := range amps {
		amps[i] = rng.Intn(NumChannels)
	}
	s := Histogram(amps)
	if s.Total() != len(amps) {
		t.Errorf("expected %d total counts, got %d", len(amps), s.Total())
	}
}
