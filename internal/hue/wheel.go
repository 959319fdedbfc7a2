package hue

// Wheel computes the rainbow wheel used by the tubul NPX validation
// firmware. The target CPU has no multiply or divide, so the step size is a
// power of two: x*255 is (x<<8)-x, and the /STEP scale is a right shift by
// the exponent.
type Wheel struct {
	Shift uint // step exponent
	Step  int  // 1 << Shift, width of one hue sector
	Max   int  // 6 * Step, one full revolution
}

func New(shift uint) Wheel {
	step := 1 << shift
	return Wheel{Shift: shift, Step: step, Max: step * 6}
}

// scale is (x*0xFF)>>Shift without a multiply. x may be negative on the
// falling ramps; the arithmetic shift matches what the firmware compiled to.
func (w Wheel) scale(x int) int {
	return ((x << 8) - x) >> w.Shift
}

// At returns the color for a wheel position in [0, Max]. Pure function. The
// byte stores truncate exactly like the firmware's uint8 writes, and each
// channel keeps its original mix of strict and inclusive sector bounds, so
// the one-sample seams at sector edges come out bit-identical.
func (w Wheel) At(prg int) (r, g, b byte) {
	s := w.Step
	switch {
	case (prg > 0 && prg < s) || prg > s*5:
		r = 0xFF
	case prg > s*2 && prg < s*4:
		r = 0x00
	case prg < s*2:
		r = byte(0xFF - w.scale(prg-s))
	default:
		r = byte(w.scale(prg - s*4))
	}
	switch {
	case prg > s && prg < s*3:
		g = 0xFF
	case prg >= s*4:
		g = 0x00
	case prg > s*3 && prg < s*4:
		g = byte(0xFF - w.scale(prg-s*3))
	default:
		g = byte(w.scale(prg))
	}
	switch {
	case prg > s*3 && prg < s*5:
		b = 0xFF
	case prg < s*2:
		b = 0x00
	case prg > s*5:
		b = byte(0xFF - w.scale(prg-s*5))
	default:
		b = byte(w.scale(prg - s*2))
	}
	return r, g, b
}

// Paint fills buf with GRB triplets (the wire order of the strings), one per
// LED, starting the wheel at start and advancing by Max/LEDCount per LED.
// The increment is computed once, and the wrap keeps the firmware's "> Max"
// comparison, so position Max itself can appear for one LED.
func (w Wheel) Paint(buf []byte, start int) {
	leds := len(buf) / 3
	if leds == 0 {
		return
	}
	istep := w.Max / leds
	prg := start
	for i := 0; i+2 < len(buf); i += 3 {
		r, g, b := w.At(prg)
		buf[i], buf[i+1], buf[i+2] = g, r, b
		prg += istep
		if prg > w.Max {
			prg -= w.Max
		}
	}
}

// Advance steps the frame-level progress counter one notch, wrapping the
// same way Paint does.
func (w Wheel) Advance(prg int) int {
	prg++
	if prg > w.Max {
		prg -= w.Max
	}
	return prg
}
