package npx

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/coreman2200/tubul-npx/internal/led"
)

func waitIdle(t *testing.T, e *Engine) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for e.Busy() {
		if time.Now().After(deadline) {
			t.Fatal("busy bit never cleared")
		}
		runtime.Gosched()
	}
}

func patternRAM(n int) []byte {
	ram := make([]byte, n)
	for i := range ram {
		ram[i] = byte(i * 7)
	}
	return ram
}

func TestEngineRegisterFields(t *testing.T) {
	e := NewEngine(0, patternRAM(72), nil, Timing{})
	e.SetAddress(12)
	e.SetLength(12)
	e.EnableInterrupt()

	assert.Equal(t, uint32(12), e.ReadADR())
	assert.Equal(t, 12, e.Length())
	assert.True(t, e.InterruptEnabled())
	assert.False(t, e.Busy())
	assert.Equal(t, uint32(CRIntEn|12<<CRLenShift), e.ReadCR())
}

func TestEngineStreamsItsWindow(t *testing.T) {
	ram := patternRAM(72)
	sink := led.NewSim()
	e := NewEngine(1, ram, sink, Timing{})
	e.SetAddress(12)
	e.SetLength(12)

	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, e)

	assert.Equal(t, 1, sink.Frames())
	assert.Equal(t, ram[12:48], sink.Last())
}

func TestEngineSnapshotsAtStart(t *testing.T) {
	ram := patternRAM(9)
	sink := led.NewSim()
	e := NewEngine(0, ram, sink, Timing{Latch: 20 * time.Millisecond})
	e.SetLength(3)

	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	want := append([]byte(nil), ram...)
	// The transfer reads a stable snapshot; scribbling on RAM mid-flight
	// (which the firmware never does) must not leak into the stream.
	for i := range ram {
		ram[i] = 0xEE
	}
	waitIdle(t, e)
	assert.Equal(t, want, sink.Last())
}

func TestStartWhileBusyRefused(t *testing.T) {
	e := NewEngine(0, patternRAM(72), led.NewSim(), Timing{Latch: 50 * time.Millisecond})
	e.SetLength(24)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	if err := e.Start(); err != ErrBusy {
		t.Fatalf("second start: want ErrBusy, got %v", err)
	}
	waitIdle(t, e)
}

func TestRegisterWritesIgnoredWhileBusy(t *testing.T) {
	e := NewEngine(0, patternRAM(72), led.NewSim(), Timing{Latch: 50 * time.Millisecond})
	e.SetAddress(6)
	e.SetLength(12)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}

	e.WriteADR(0)
	e.SetLength(24)
	e.EnableInterrupt()
	assert.Equal(t, uint32(6), e.ReadADR())
	assert.Equal(t, 12, e.Length())
	assert.False(t, e.InterruptEnabled())

	waitIdle(t, e)
	// Idle again: writes land.
	e.SetLength(24)
	assert.Equal(t, 24, e.Length())
}

func TestStartRefusedOutsideRAM(t *testing.T) {
	e := NewEngine(0, patternRAM(72), led.NewSim(), Timing{})
	e.SetAddress(70)
	e.SetLength(1)
	if err := e.Start(); err == nil {
		t.Fatal("start latched with a window past the end of RAM")
	}
	assert.False(t, e.Busy())
}

func TestCompletionInterrupt(t *testing.T) {
	e := NewEngine(3, patternRAM(72), led.NewSim(), Timing{})
	done := make(chan int, 1)
	e.OnComplete(func(id int) {
		if e.Busy() {
			t.Error("interrupt raised before busy cleared")
		}
		done <- id
	})
	e.SetLength(24)
	e.EnableInterrupt()
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	select {
	case id := <-done:
		assert.Equal(t, 3, id)
	case <-time.After(5 * time.Second):
		t.Fatal("completion interrupt never arrived")
	}
}

func TestNoInterruptWhenDisabled(t *testing.T) {
	e := NewEngine(0, patternRAM(72), led.NewSim(), Timing{})
	fired := make(chan int, 1)
	e.OnComplete(func(id int) { fired <- id })
	e.SetLength(24)
	if err := e.Start(); err != nil {
		t.Fatal(err)
	}
	waitIdle(t, e)
	select {
	case <-fired:
		t.Fatal("interrupt fired with IE clear")
	case <-time.After(20 * time.Millisecond):
	}
}
