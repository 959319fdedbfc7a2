package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/coreman2200/tubul-npx/internal/hue"
)

// Dumps one full wheel period so the waveform (and its sector seams) can be
// eyeballed or piped into a plotter.
func main() {
	var shift uint
	var leds int
	flag.UintVar(&shift, "shift", 5, "wheel step exponent")
	flag.IntVar(&leds, "leds", 0, "also print the painted string for this many LEDs")
	flag.Parse()

	if shift == 0 || shift > 12 {
		log.Fatal("shift must be in 1..12")
	}
	w := hue.New(shift)

	fmt.Printf("# step=%d period=%d\n", w.Step, w.Max)
	fmt.Println("# prg\tR\tG\tB")
	for prg := 0; prg < w.Max; prg++ {
		r, g, b := w.At(prg)
		fmt.Printf("%d\t%d\t%d\t%d\n", prg, r, g, b)
	}

	if leds > 0 {
		buf := make([]byte, leds*3)
		w.Paint(buf, 0)
		fmt.Println("# led\tG\tR\tB (wire order)")
		for i := 0; i < leds; i++ {
			fmt.Printf("%d\t%d\t%d\t%d\n", i, buf[i*3], buf[i*3+1], buf[i*3+2])
		}
	}
}
