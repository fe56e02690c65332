package cart

import "testing"

func TestMBC3StubAcknowledgesBankSelectWithoutBanking(t *testing.T) {
	rom := make([]byte, 0x8000)
	rom[0x4000] = 0xAB
	m := NewMBC3(rom, 0x2000)

	m.Write(0x0000, 0x0A) // RAM enable
	m.Write(0x2000, 0x02) // select ROM bank 2 (acknowledged, but no-op)

	if got := m.Read(0x4000); got != 0xAB {
		t.Fatalf("switchable-area read changed after bank select: got %#02x want %#02x", got, 0xAB)
	}

	m.Write(0xA000, 0x7F)
	if got := m.Read(0xA000); got != 0x7F {
		t.Fatalf("external RAM round trip: got %#02x want %#02x", got, 0x7F)
	}
}

func TestMBC3StubStateRoundTrip(t *testing.T) {
	rom := make([]byte, 0x8000)
	m := NewMBC3(rom, 0x2000)
	m.Write(0xA010, 0x42)

	n := NewMBC3(rom, 0x2000)
	n.LoadState(m.SaveState())
	if got := n.Read(0xA010); got != 0x42 {
		t.Fatalf("state round trip: got %#02x want %#02x", got, 0x42)
	}
}
