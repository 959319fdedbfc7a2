package frame

import "fmt"

// New allocates the shared colors array: one GRB triplet per LED, laid out
// once at startup and repainted in place every frame. The transfer engines
// read it directly, so it is never reallocated.
func New(ledCount int) ([]byte, error) {
	if ledCount <= 0 {
		return nil, fmt.Errorf("invalid LED count: %d", ledCount)
	}
	return make([]byte, ledCount*3), nil
}

// View is one engine's window into the shared buffer. OffsetBytes is a raw
// byte offset, not an LED index: the hardware only sees an address, and the
// validation rig deliberately programs views that start mid-triplet to
// exercise the bus arbiter.
type View struct {
	OffsetBytes int
	LEDs        int
	IRQ         bool
}

// Validate checks the view against the buffer it will stream from. A view
// that runs past the buffer is a configuration error and fatal at init;
// the hardware would happily stream whatever bytes follow.
func (v View) Validate(bufLen int) error {
	if v.OffsetBytes < 0 || v.LEDs <= 0 {
		return fmt.Errorf("view {off=%d leds=%d}: negative or empty", v.OffsetBytes, v.LEDs)
	}
	if v.OffsetBytes+3*v.LEDs > bufLen {
		return fmt.Errorf("view {off=%d leds=%d} runs past %d-byte buffer", v.OffsetBytes, v.LEDs, bufLen)
	}
	return nil
}

// AliasedSplit reproduces the firmware's shared-access test pattern: engine 0
// streams the whole string, and engine i starts ledCount/(i+1) bytes in with
// ledCount/(i+1) LEDs. The divisions truncate (24/3 = 8, 24/4 = 6) and the
// offsets are byte offsets, so the views overlap and land off-triplet by
// design.
func AliasedSplit(ledCount, engines int) []View {
	views := make([]View, 0, engines)
	views = append(views, View{OffsetBytes: 0, LEDs: ledCount})
	for i := 1; i < engines; i++ {
		n := ledCount / (i + 1)
		views = append(views, View{OffsetBytes: n, LEDs: n})
	}
	return views
}

// DisjointSplit carves the string into contiguous non-overlapping runs. The
// per-engine length truncates; the last engine absorbs the remainder so the
// whole string is covered.
func DisjointSplit(ledCount, engines int) []View {
	views := make([]View, 0, engines)
	per := ledCount / engines
	for i := 0; i < engines; i++ {
		n := per
		if i == engines-1 {
			n = ledCount - per*(engines-1)
		}
		views = append(views, View{OffsetBytes: 3 * per * i, LEDs: n})
	}
	return views
}
