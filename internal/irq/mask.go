package irq

import (
	"runtime"
	"sync/atomic"
)

// Mask aggregates per-engine transfer-complete interrupts into one bitmask,
// one bit per engine. Set runs in interrupt context and must be atomic
// against the other engines' interrupts; the main loop only reads the
// aggregate and clears it between batches, so no lock is needed on that side.
type Mask struct {
	bits uint32
}

// Set marks engine id complete. Read-modify-write via CAS: completion
// interrupts from different engines can land back to back.
func (m *Mask) Set(id int) {
	bit := uint32(1) << uint(id)
	for {
		old := atomic.LoadUint32(&m.bits)
		if atomic.CompareAndSwapUint32(&m.bits, old, old|bit) {
			return
		}
	}
}

// Reset clears the mask. Main loop only, after observing Full; the next
// batch must be started before the mask is consulted again, or a straggler
// interrupt from the old batch could leak into the new one.
func (m *Mask) Reset() {
	atomic.StoreUint32(&m.bits, 0)
}

func (m *Mask) Value() uint32 {
	return atomic.LoadUint32(&m.bits)
}

// Full reports whether all n engines have signalled completion.
func (m *Mask) Full(n int) bool {
	return m.Value() == (uint32(1)<<uint(n))-1
}

// Wait spins until Full(n). The firmware has nothing else to do while a
// batch is in flight, so a busy-wait is the contract; Gosched keeps the
// simulated hardware goroutines scheduled.
func (m *Mask) Wait(n int) {
	for !m.Full(n) {
		runtime.Gosched()
	}
}
