package cpu

import (
	"testing"

	"github.com/dmgcore/gbcore/internal/bus"
)

func newCPUWithROM(code []byte) (*CPU, *bus.Bus) {
	rom := make([]byte, 0x8000)
	copy(rom, code)
	b := bus.New(rom)
	c := New(b)
	return c, b
}

// run advances c by exactly n M-cycles, the documented length of one
// full instruction (fetch phase plus any queued microOps).
func run(c *CPU, n int) {
	for i := 0; i < n; i++ {
		c.Tick()
	}
}

func TestCPU_NopAndPC(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x00}) // NOP
	run(c, 1)
	if c.PC != 1 {
		t.Fatalf("PC after NOP got %#04x want 0x0001", c.PC)
	}
}

func TestCPU_LD_A_d8_And_XOR_A(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x3E, 0x12, 0xAF}) // LD A,0x12; XOR A
	run(c, 2)                                       // LD A,d8
	if c.A != 0x12 {
		t.Fatalf("A after LD got %02x want 12", c.A)
	}
	run(c, 1) // XOR A
	if c.A != 0x00 {
		t.Fatalf("A after XOR got %02x want 00", c.A)
	}
	if (c.F & 0x80) == 0 { // Z flag
		t.Fatalf("Z flag not set after XOR A")
	}
}

func TestCPU_LD_a16_A_and_LD_A_a16(t *testing.T) {
	// Program: LD A,0x77; LD (0xC000),A; LD A,0x00; LD A,(0xC000)
	prog := []byte{0x3E, 0x77, 0xEA, 0x00, 0xC0, 0x3E, 0x00, 0xFA, 0x00, 0xC0}
	c, b := newCPUWithROM(prog)
	run(c, 2) // LD A,77
	run(c, 4) // LD (C000),A
	if a := b.Read(0xC000); a != 0x77 {
		t.Fatalf("WRAM at C000 got %02x want 77", a)
	}
	run(c, 2) // LD A,00
	run(c, 4) // LD A,(C000)
	if c.A != 0x77 {
		t.Fatalf("A after LD A,(C000) got %02x want 77", c.A)
	}
}

func TestCPU_JP_and_JR(t *testing.T) {
	// JP to 0x0010 then JR -2 to loop
	rom := make([]byte, 0x8000)
	rom[0x0000] = 0xC3 // JP
	rom[0x0001] = 0x10
	rom[0x0002] = 0x00
	// at 0x0010: JR -2 (0xFE), which will hop back to 0x0010 itself
	rom[0x0010] = 0x18
	rom[0x0011] = 0xFE
	c, _ := newCPUWithROM(rom)
	run(c, 4) // JP a16
	if c.PC != 0x0010 {
		t.Fatalf("PC after JP got %#04x want 0x0010", c.PC)
	}
	pcBefore := c.PC
	run(c, 3) // JR -2
	if c.PC != pcBefore {
		t.Fatalf("JR -2 PC got %#04x want %#04x", c.PC, pcBefore)
	}
}

func TestCPU_INC_B_Flags(t *testing.T) {
	c, _ := newCPUWithROM([]byte{0x04, 0x04}) // INC B twice
	c.B = 0x0F
	c.F = 0x10 // carry set initially
	run(c, 1)
	if c.B != 0x10 {
		t.Fatalf("INC B result got %02x want 10", c.B)
	}
	if (c.F & 0x20) == 0 { // H set
		t.Fatalf("INC B should set H flag")
	}
	if (c.F & 0x10) == 0 { // C preserved
		t.Fatalf("INC B should preserve C flag")
	}
	c.B = 0xFF
	run(c, 1)
	if c.B != 0x00 || (c.F&0x80) == 0 { // Z set
		t.Fatalf("INC B to 0 should set Z flag, B=%02x, F=%02x", c.B, c.F)
	}
}

func TestCPU_LD_16bit_and_LDH(t *testing.T) {
	// Program:
	// LD HL,0xC000; LD (HL),0x5A; LD A,0x00; LDH A,(0x00); LDH (0x01),A
	prog := []byte{
		0x21, 0x00, 0xC0, // LD HL, C000
		0x36, 0x5A, // LD (HL), 5A
		0x3E, 0x00, // LD A, 00
		0xF0, 0x00, // LDH A, (FF00+0)
		0xE0, 0x01, // LDH (FF00+1), A
	}
	c, b := newCPUWithROM(prog)
	b.Write(0xFF00, 0x30) // select neither row: reads as 0x0F
	b.Write(0xFF80, 0xA7) // HRAM base (unused by this program; sanity only)

	run(c, 4) // LD HL,d16
	run(c, 3) // LD (HL),d8
	if v := b.Read(0xC000); v != 0x5A {
		t.Fatalf("WRAM C000 got %02x want 5A", v)
	}
	run(c, 2) // LD A,d8
	run(c, 3) // LDH A,(a8)
	run(c, 3) // LDH (a8),A
	if v := b.Read(0xFF01); v != c.A {
		t.Fatalf("LDH (FF00+1),A expected write to FF01 with A=%02x got %02x", c.A, v)
	}
}

func TestCPU_CALL_RET(t *testing.T) {
	// 0000: CALL 0005; 0003: NOP NOP; 0005: RET
	rom := make([]byte, 0x8000)
	rom[0x0000] = 0xCD
	rom[0x0001] = 0x05
	rom[0x0002] = 0x00
	rom[0x0005] = 0xC9 // RET
	c, _ := newCPUWithROM(rom)
	run(c, 6) // CALL a16
	if c.PC != 0x0005 {
		t.Fatalf("PC after CALL got %04x want 0005", c.PC)
	}
	run(c, 4) // RET
	if c.PC != 0x0003 {
		t.Fatalf("RET did not return to 0003; PC=%04x", c.PC)
	}
}

func TestCPU_RETCond_Timing(t *testing.T) {
	// 0000: CALL 0005; 0003: NOP; 0005: RET Z (Z set, so taken)
	rom := make([]byte, 0x8000)
	rom[0x0000] = 0xCD
	rom[0x0001] = 0x05
	rom[0x0002] = 0x00
	rom[0x0005] = 0xC8 // RET Z
	c, _ := newCPUWithROM(rom)
	c.F = 0x80 // Z set
	run(c, 6)  // CALL a16
	if c.PC != 0x0005 {
		t.Fatalf("PC after CALL got %04x want 0005", c.PC)
	}
	run(c, 5) // taken RET cc: fetch, condition check, internal delay, pop, jump
	if c.PC != 0x0003 {
		t.Fatalf("taken RET Z did not return to 0003 in 5 M-cycles; PC=%04x", c.PC)
	}

	// Not-taken RET cc costs only 2 M-cycles: fetch + failed check.
	rom2 := make([]byte, 0x8000)
	rom2[0x0000] = 0xC0 // RET NZ
	rom2[0x0001] = 0x00 // NOP (falls through here if RET NZ isn't taken)
	c2, _ := newCPUWithROM(rom2)
	c2.F = 0x80 // Z set, so NZ is false: not taken
	run(c2, 2)
	if c2.PC != 0x0001 {
		t.Fatalf("not-taken RET NZ should fall through to 0001 after 2 M-cycles; PC=%04x", c2.PC)
	}
}

func TestCPU_DecodeEncodeRoundTrip(t *testing.T) {
	cases := []struct {
		name  string
		bytes []byte
		ticks int
	}{
		{"NOP", []byte{0x00}, 1},
		{"LD A,d8", []byte{0x3E, 0x7F}, 2},
		{"LD HL,d16", []byte{0x21, 0x34, 0x12}, 4},
		{"JP a16", []byte{0xC3, 0xAD, 0xDE}, 4},
		{"CB BIT 3,B", []byte{0xCB, 0x58}, 2},
	}
	for _, tc := range cases {
		c, _ := newCPUWithROM(tc.bytes)
		run(c, tc.ticks)
		got := c.Last().Encode()
		if len(got) != len(tc.bytes) {
			t.Fatalf("%s: Encode() length got %d want %d (% x)", tc.name, len(got), len(tc.bytes), got)
		}
		for i := range tc.bytes {
			if got[i] != tc.bytes[i] {
				t.Fatalf("%s: Encode()=% x want % x", tc.name, got, tc.bytes)
			}
		}
	}
}
