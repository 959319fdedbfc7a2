package hue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// Reference geometry from the validation firmware: SSFT=5, STEP=32, SMAX=192.
func refWheel() Wheel { return New(5) }

var KnownWheelColors = []struct {
	Prg     int
	R, G, B byte
}{
	{0, 254, 0, 0},    // near-pure red edge case
	{1, 255, 7, 0},    // red sector, green ramping in
	{32, 255, 255, 0}, // yellow
	{96, 0, 253, 255}, // cyan complement of the red edge
	{128, 0, 0, 255},  // blue
	{192, 255, 0, 0},  // top of the wrap range
}

func TestWheelKnownColors(t *testing.T) {
	w := refWheel()
	for _, v := range KnownWheelColors {
		r, g, b := w.At(v.Prg)
		assert.Equal(t, v.R, r, "red at %d", v.Prg)
		assert.Equal(t, v.G, g, "green at %d", v.Prg)
		assert.Equal(t, v.B, b, "blue at %d", v.Prg)
	}
}

func TestWheelIsPure(t *testing.T) {
	w := refWheel()
	for prg := 0; prg <= w.Max; prg++ {
		r1, g1, b1 := w.At(prg)
		r2, g2, b2 := w.At(prg)
		if r1 != r2 || g1 != g2 || b1 != b2 {
			t.Fatalf("At(%d) not deterministic", prg)
		}
	}
}

// The waveform must be continuous: adjacent positions never differ by more
// than one ramp step (255>>5 rounded up), including across the wrap seam and
// the sector-boundary quirks the firmware bakes in.
func TestWheelBoundedSteps(t *testing.T) {
	w := refWheel()
	const maxStep = 8
	pr, pg, pb := w.At(0)
	prev := [3]int{int(pr), int(pg), int(pb)}
	for prg := 1; prg <= w.Max+1; prg++ {
		p := prg
		if p > w.Max {
			p -= w.Max // wrap seam
		}
		r, g, b := w.At(p)
		cur := [3]int{int(r), int(g), int(b)}
		for c := 0; c < 3; c++ {
			d := cur[c] - prev[c]
			if d < 0 {
				d = -d
			}
			if d > maxStep {
				t.Fatalf("channel %d jumps by %d at prg=%d (%d -> %d)", c, d, p, prev[c], cur[c])
			}
		}
		prev = cur
	}
}

// circularLag returns the lag in [0,n) maximizing sum a[i]*b[(i+lag)%n].
func circularLag(a, b []int) int {
	n := len(a)
	best, bestLag := -1, 0
	for lag := 0; lag < n; lag++ {
		sum := 0
		for i := 0; i < n; i++ {
			sum += a[i] * b[(i+lag)%n]
		}
		if sum > best {
			best, bestLag = sum, lag
		}
	}
	return bestLag
}

// The three channels are one waveform phase-shifted by thirds of the period.
func TestWheelChannelPhases(t *testing.T) {
	w := refWheel()
	rs := make([]int, w.Max)
	gs := make([]int, w.Max)
	bs := make([]int, w.Max)
	for prg := 0; prg < w.Max; prg++ {
		r, g, b := w.At(prg)
		rs[prg], gs[prg], bs[prg] = int(r), int(g), int(b)
	}
	third := w.Max / 3
	assert.Equal(t, third, circularLag(rs, gs), "green trails red by a third")
	assert.Equal(t, third, circularLag(gs, bs), "blue trails green by a third")
	assert.Equal(t, 2*third, circularLag(rs, bs), "blue trails red by two thirds")
}

func TestPaintWireOrder(t *testing.T) {
	w := refWheel()
	buf := make([]byte, 24*3)
	w.Paint(buf, 0)

	// LED 0 painted at prg=0: GRB on the wire.
	assert.Equal(t, []byte{0, 254, 0}, buf[0:3])
	// LED 1 painted at prg=8 (SMAX/24).
	r, g, b := w.At(8)
	assert.Equal(t, []byte{g, r, b}, buf[3:6])
	// Last LED painted at prg=184.
	r, g, b = w.At(184)
	assert.Equal(t, []byte{g, r, b}, buf[69:72])
}

func TestAdvanceWraps(t *testing.T) {
	w := refWheel()
	prg := 0
	seen := map[int]bool{}
	for i := 0; i < w.Max*2; i++ {
		prg = w.Advance(prg)
		if prg < 1 || prg > w.Max {
			t.Fatalf("progress %d escaped [1,%d]", prg, w.Max)
		}
		seen[prg] = true
	}
	if len(seen) != w.Max {
		t.Fatalf("expected %d distinct progress values, got %d", w.Max, len(seen))
	}
}
