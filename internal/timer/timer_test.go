package timer

import "testing"

func TestOverflowReloadsAndRaisesIRQ(t *testing.T) {
	var fired bool
	tm := New(func() { fired = true })
	tm.WriteTAC(0x05) // enable, rate 01 -> 4 M-cycles
	tm.WriteTIMA(0xFF)
	tm.WriteTMA(0x00)
	for i := 0; i < 4; i++ {
		tm.TickM()
	}
	if got := tm.TIMA(); got != 0x00 {
		t.Fatalf("TIMA after overflow: got %#02x want 0x00", got)
	}
	if !fired {
		t.Fatalf("expected Timer IRQ to fire on overflow")
	}
}

func TestTIMAReloadsFromTMAImmediatelyOnOverflow(t *testing.T) {
	tm := New(nil)
	tm.WriteTAC(0x05)
	tm.WriteTIMA(0xFF)
	tm.WriteTMA(0x12)
	for i := 0; i < 4; i++ {
		tm.TickM()
	}
	if got := tm.TIMA(); got != 0x12 {
		t.Fatalf("TIMA after overflow: got %#02x want 0x12 (TMA)", got)
	}
}

func TestDIVWriteResetsAndIsIdempotent(t *testing.T) {
	tm := New(nil)
	for i := 0; i < 300; i++ {
		tm.TickM()
	}
	if tm.DIV() == 0 {
		t.Fatalf("DIV should have advanced after 300 ticks")
	}
	tm.WriteDIV(0xFF) // value is ignored; any write resets to 0
	if got := tm.DIV(); got != 0 {
		t.Fatalf("DIV after write: got %d want 0", got)
	}
	tm.WriteDIV(0x00)
	if got := tm.DIV(); got != 0 {
		t.Fatalf("DIV after second write: got %d want 0", got)
	}
}

func TestDisabledTACNeverIncrementsTIMA(t *testing.T) {
	tm := New(nil)
	tm.WriteTAC(0x01) // rate set but enable bit clear
	tm.WriteTIMA(0x00)
	for i := 0; i < 1000; i++ {
		tm.TickM()
	}
	if got := tm.TIMA(); got != 0 {
		t.Fatalf("TIMA with timer disabled: got %d want 0", got)
	}
}
