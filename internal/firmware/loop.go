// Package firmware reimplements the tubul npx_test validation loop against
// the simulated transfer engines: repaint the shared colors array with the
// rainbow wheel, wait out the previous batch, start the next one, forever.
package firmware

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/coreman2200/tubul-npx/internal/frame"
	"github.com/coreman2200/tubul-npx/internal/hue"
	"github.com/coreman2200/tubul-npx/internal/irq"
	"github.com/coreman2200/tubul-npx/internal/led"
	"github.com/coreman2200/tubul-npx/internal/npx"
)

// Mode selects how the loop observes completion: polling every busy bit, or
// waiting on the interrupt aggregator. Fixed at init.
type Mode int

const (
	Poll Mode = iota
	IRQ
)

func (m Mode) String() string {
	if m == IRQ {
		return "irq"
	}
	return "poll"
}

// Config assembles one validation run.
type Config struct {
	Wheel  hue.Wheel
	Buffer []byte
	Views  []frame.View
	Mode   Mode
	Timing npx.Timing
	// Sinks receive each engine's completed transfers: one per engine, a
	// single shared sink, or none.
	Sinks []led.Driver
}

// Firmware is the single control flow of the rig. Only the engines'
// completion contexts run beside it.
type Firmware struct {
	wheel    hue.Wheel
	buf      []byte
	engines  []*npx.Engine
	mask     irq.Mask
	mode     Mode
	progress int
	started  bool
	frames   atomic.Uint64 // read by inspection surfaces while the loop runs
}

// New validates the engine views, programs every register file, and hooks
// the completion interrupts to the aggregator. A view that escapes the
// buffer is fatal here; the hardware would stream garbage without complaint.
func New(cfg Config) (*Firmware, error) {
	if len(cfg.Views) == 0 {
		return nil, fmt.Errorf("firmware: no engine views")
	}
	if len(cfg.Views) > 32 {
		return nil, fmt.Errorf("firmware: %d engines exceed the aggregator width", len(cfg.Views))
	}
	switch len(cfg.Sinks) {
	case 0, 1, len(cfg.Views):
	default:
		return nil, fmt.Errorf("firmware: %d sinks for %d engines", len(cfg.Sinks), len(cfg.Views))
	}

	f := &Firmware{wheel: cfg.Wheel, buf: cfg.Buffer, mode: cfg.Mode}
	for i, v := range cfg.Views {
		if err := v.Validate(len(cfg.Buffer)); err != nil {
			return nil, fmt.Errorf("firmware: engine %d: %w", i, err)
		}
		var sink led.Driver
		switch len(cfg.Sinks) {
		case 1:
			sink = cfg.Sinks[0]
		case len(cfg.Views):
			sink = cfg.Sinks[i]
		}
		e := npx.NewEngine(i, cfg.Buffer, sink, cfg.Timing)
		e.SetAddress(v.OffsetBytes)
		e.SetLength(v.LEDs)
		e.OnComplete(f.mask.Set)
		if cfg.Mode == IRQ || v.IRQ {
			e.EnableInterrupt()
		}
		f.engines = append(f.engines, e)
		log.Info().Int("engine", i).Int("offset", v.OffsetBytes).Int("leds", v.LEDs).
			Bool("irq", e.InterruptEnabled()).Msg("engine programmed")
	}
	return f, nil
}

// Step runs one frame: wait for the previous batch, repaint the buffer at
// the current progress, then start every engine. Repainting happens only
// with every engine idle (the transfers assume a stable snapshot), and in
// interrupt mode the aggregator is reset before the new starts are issued,
// never the other way around, so a straggler interrupt cannot leak into the
// new batch.
func (f *Firmware) Step() error {
	f.waitPrevious()
	f.wheel.Paint(f.buf, f.progress)
	f.progress = f.wheel.Advance(f.progress)
	if err := f.startAll(); err != nil {
		return err
	}
	f.started = true
	f.frames.Add(1)
	return nil
}

// waitPrevious blocks until the previous batch is fully complete. Nothing is
// in flight before the first batch, so it no-ops until then. There is no
// timeout: a busy bit that never clears is a hardware failure this rig
// exists to catch, and an indefinite wait is the accepted behavior.
func (f *Firmware) waitPrevious() {
	if !f.started {
		return
	}
	if f.mode == IRQ {
		f.mask.Wait(len(f.engines))
		f.mask.Reset()
		return
	}
	for _, e := range f.engines {
		for e.Busy() {
			runtime.Gosched()
		}
	}
}

func (f *Firmware) startAll() error {
	for _, e := range f.engines {
		if err := e.Start(); err != nil {
			return fmt.Errorf("firmware: engine %d: %w", e.ID(), err)
		}
	}
	return nil
}

// Drain waits out the in-flight batch so every started frame has reached the
// sinks. The next Step will start fresh without waiting.
func (f *Firmware) Drain() {
	f.waitPrevious()
	f.started = false
}

// Run drives frames until the count is reached or the context ends.
// frames <= 0 runs until cancelled; fps <= 0 free-runs, gated only by the
// transfer time like the original firmware.
func (f *Firmware) Run(ctx context.Context, frames, fps int) error {
	var tick *time.Ticker
	if fps > 0 {
		tick = time.NewTicker(time.Second / time.Duration(fps))
		defer tick.Stop()
	}
	log.Info().Int("engines", len(f.engines)).Stringer("mode", f.mode).
		Int("frames", frames).Msg("starting validation loop")
	for n := 0; frames <= 0 || n < frames; n++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := f.Step(); err != nil {
			return err
		}
		if tick != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick.C:
			}
		}
	}
	f.Drain()
	return nil
}

// Frames returns how many batches have been started.
func (f *Firmware) Frames() uint64 { return f.frames.Load() }

// Progress returns the wheel position the next frame will paint from.
func (f *Firmware) Progress() int { return f.progress }

func (f *Firmware) Mode() Mode { return f.mode }

// Engines exposes the programmed engines for inspection surfaces.
func (f *Firmware) Engines() []*npx.Engine { return f.engines }
