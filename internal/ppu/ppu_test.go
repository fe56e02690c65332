package ppu

import "testing"

func statMode(p *PPU) byte { return p.CPURead(0xFF41) & 0x03 }

func tickN(p *PPU, n int) {
	for i := 0; i < n; i++ {
		p.TickM()
	}
}

func TestModeSequenceOneLine(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80) // LCD on
	if m := statMode(p); m != 2 {
		t.Fatalf("mode after LCD on: got %d want 2", m)
	}
	tickN(p, oamSearchEnd)
	if m := statMode(p); m != 3 {
		t.Fatalf("mode after OAM search: got %d want 3", m)
	}
	tickN(p, transferEnd-oamSearchEnd)
	if m := statMode(p); m != 0 {
		t.Fatalf("mode after transfer: got %d want 0", m)
	}
	tickN(p, lineLength-transferEnd)
	if got := p.CPURead(0xFF44); got != 1 {
		t.Fatalf("LY after one full line: got %d want 1", got)
	}
	if m := statMode(p); m != 2 {
		t.Fatalf("mode at start of next line: got %d want 2", m)
	}
}

func TestVBlankIRQAtLY144(t *testing.T) {
	var irqs []int
	p := New(func(bit int) { irqs = append(irqs, bit) })
	p.CPUWrite(0xFF40, 0x80)
	for ly := 0; ly < 144; ly++ {
		tickN(p, lineLength)
	}
	if got := p.CPURead(0xFF44); got != vblankStartLY {
		t.Fatalf("LY: got %d want %d", got, vblankStartLY)
	}
	found := false
	for _, b := range irqs {
		if b == 0 {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a VBlank (bit 0) interrupt request, got %v", irqs)
	}
}

func TestLYWrapsAt154Lines(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)
	for i := 0; i < 154; i++ {
		tickN(p, lineLength)
	}
	if got := p.CPURead(0xFF44); got != 0 {
		t.Fatalf("LY after 154 lines: got %d want 0", got)
	}
}

func TestLYCCoincidenceSetsSTATBit(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF45, 5) // LYC=5
	p.CPUWrite(0xFF40, 0x80)
	for i := 0; i < 5; i++ {
		tickN(p, lineLength)
	}
	if p.CPURead(0xFF41)&0x04 == 0 {
		t.Fatalf("expected LYC=LY coincidence bit set at LY=5")
	}
}

func TestVRAMAndOAMBlockedDuringModes(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x80)
	tickN(p, oamSearchEnd+1) // now in mode 3
	p.CPUWrite(0x8000, 0xAB)
	if got := p.CPURead(0x8000); got != 0xFF {
		t.Fatalf("VRAM write during mode 3 should be blocked, read back %#02x", got)
	}
}
