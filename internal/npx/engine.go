package npx

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coreman2200/tubul-npx/internal/led"
)

// ErrBusy is returned by Start while a transfer is still in flight. Issuing
// a start without waiting is a programming error; the hardware has no reject
// status to report it.
var ErrBusy = errors.New("npx: transfer already in flight")

// CompleteFunc is the completion interrupt handler. It is invoked from the
// engine's completion context after the busy bit has cleared, and must stay
// short.
type CompleteFunc func(id int)

// Timing scales the simulated transfer: each LED is 24 bits at 800 kHz, then
// the string latches. Zero values make transfers complete as fast as the
// scheduler allows, which is what the tests want.
type Timing struct {
	PerLED time.Duration
	Latch  time.Duration
}

// DefaultTiming approximates the real string.
var DefaultTiming = Timing{
	PerLED: 30 * time.Microsecond,
	Latch:  300 * time.Microsecond,
}

// Engine is one simulated transfer engine. The main loop owns ADR and the
// IE/length fields; the busy bit is shared with the hardware model, which is
// the only thing that ever clears it.
type Engine struct {
	id     int
	ram    []byte
	sink   led.Driver
	timing Timing

	adr        uint32
	cr         uint32 // atomic; see CR bitfields in regs.go
	onComplete CompleteFunc
}

// NewEngine wires an engine to the shared RAM it streams from and the sink
// its bytes land in.
func NewEngine(id int, ram []byte, sink led.Driver, t Timing) *Engine {
	return &Engine{id: id, ram: ram, sink: sink, timing: t}
}

func (e *Engine) ID() int { return e.id }

// OnComplete registers the completion interrupt handler. Registered once at
// init, before interrupts are enabled.
func (e *Engine) OnComplete(fn CompleteFunc) { e.onComplete = fn }

// ReadADR returns the colors-window address register.
func (e *Engine) ReadADR() uint32 { return e.adr }

// WriteADR sets the colors-window address. Like every register write, it is
// ignored while a transfer is in flight.
func (e *Engine) WriteADR(v uint32) {
	if e.Busy() {
		return
	}
	e.adr = v
}

// ReadCR returns the control register: busy, interrupt-enable, LED count.
func (e *Engine) ReadCR() uint32 { return atomic.LoadUint32(&e.cr) }

// WriteCR applies a control-register write with the hardware's semantics:
// ignored wholesale while busy, and the start bit is only latched when the
// programmed window decodes to RAM.
func (e *Engine) WriteCR(v uint32) { e.writeCR(v) }

func (e *Engine) writeCR(v uint32) bool {
	for {
		old := atomic.LoadUint32(&e.cr)
		if old&CRBusy != 0 {
			return false
		}
		next := v & (CRIntEn | CRLenMask)
		start := v&CRBusy != 0 && e.windowOK(next)
		if start {
			next |= CRBusy
		}
		if atomic.CompareAndSwapUint32(&e.cr, old, next) {
			if start {
				e.startTransfer(next)
			}
			return start
		}
	}
}

// windowOK is the RAM-space decode check the hardware does before latching
// the start bit.
func (e *Engine) windowOK(cr uint32) bool {
	n := int(cr&CRLenMask>>CRLenShift) * 3
	return int(e.adr)+n <= len(e.ram)
}

// Busy reports the busy bit. True from start until the hardware finishes the
// latch period; software never clears it.
func (e *Engine) Busy() bool { return e.ReadCR()&CRBusy != 0 }

// Length returns the programmed LED count.
func (e *Engine) Length() int { return int(e.ReadCR() & CRLenMask >> CRLenShift) }

// InterruptEnabled reports the IE bit.
func (e *Engine) InterruptEnabled() bool { return e.ReadCR()&CRIntEn != 0 }

// SetAddress programs the engine's byte offset into the shared buffer.
func (e *Engine) SetAddress(off int) { e.WriteADR(uint32(off)) }

// SetLength programs the engine's LED count without touching the start bit.
func (e *Engine) SetLength(leds int) {
	cr := e.ReadCR()
	e.writeCR((cr &^ (CRBusy | CRLenMask)) | (uint32(leds) << CRLenShift & CRLenMask))
}

// EnableInterrupt sets the IE bit so completion raises the interrupt.
func (e *Engine) EnableInterrupt() {
	e.writeCR((e.ReadCR() &^ CRBusy) | CRIntEn)
}

// Start latches the busy bit and kicks off a transfer. The caller must have
// observed the engine idle; starting a busy engine is refused.
func (e *Engine) Start() error {
	if e.Busy() {
		return ErrBusy
	}
	if !e.writeCR(e.ReadCR() | CRBusy) {
		return fmt.Errorf("npx: engine %d window [%d,%d) does not decode to RAM",
			e.id, e.adr, int(e.adr)+3*e.Length())
	}
	return nil
}

// startTransfer is the hardware model. The engine snapshots its window at
// start (the firmware contract says the buffer is stable for the whole busy
// period), holds busy for the transfer duration, delivers the bytes, clears
// busy, and only then raises the completion interrupt.
func (e *Engine) startTransfer(cr uint32) {
	n := int(cr&CRLenMask>>CRLenShift) * 3
	snap := make([]byte, n)
	copy(snap, e.ram[e.adr:int(e.adr)+n])
	ie := cr&CRIntEn != 0
	go func() {
		if d := time.Duration(n/3)*e.timing.PerLED + e.timing.Latch; d > 0 {
			time.Sleep(d)
		}
		if e.sink != nil {
			_ = e.sink.Write(snap)
		}
		e.clearBusy()
		if ie && e.onComplete != nil {
			e.onComplete(e.id)
		}
	}()
}

func (e *Engine) clearBusy() {
	for {
		old := atomic.LoadUint32(&e.cr)
		if atomic.CompareAndSwapUint32(&e.cr, old, old&^uint32(CRBusy)) {
			return
		}
	}
}
