// Package npx models the tubul SoC's "NeoPixel" transfer engine: a DMA-like
// peripheral that, once started, autonomously streams GRB bytes from a window
// of RAM to an addressable LED string and clears its own busy bit when the
// latch period ends.
package npx

// Register layout, byte offsets from the engine's base address.
//
//	ADR (+0x0): byte address of the colors window. Must decode to RAM; the
//	            engine reads ADR..ADR+3*len-1.
//	CR  (+0x4): control register, bitfields below.
const (
	RegADR = 0x0
	RegCR  = 0x4
)

// CR bitfields. Software may set the busy bit to start a transfer; only the
// hardware clears it. Every write to the register file is ignored while the
// busy bit is high.
const (
	CRBusy     = 1 << 0 // start / transfer in flight
	CRIntEn    = 1 << 1 // raise completion interrupt when the transfer ends
	CRLenShift = 8
	CRLenMask  = 0xFFF << CRLenShift // LED count, 12-bit field
)
