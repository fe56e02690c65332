package system

import "testing"

func makeROM() []byte {
	rom := make([]byte, 0x8000)
	rom[0x0147] = 0x00 // ROM ONLY
	rom[0x0148] = 0x00 // 32 KiB
	rom[0x0149] = 0x00 // no external RAM
	rom[0x014D] = 0xE7 // header checksum over an all-zero 0x0134-0x014C range
	return rom
}

func TestLoadCartridgeResetsToPostBootState(t *testing.T) {
	m := New()
	if err := m.LoadCartridge(makeROM(), nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if m.CPU().PC != 0x0100 {
		t.Fatalf("PC after load got %04X want 0100", m.CPU().PC)
	}
	if m.CPU().SP != 0xFFFE {
		t.Fatalf("SP after load got %04X want FFFE", m.CPU().SP)
	}
}

func TestLoadCartridgeWithBootROMStartsAtZero(t *testing.T) {
	m := New()
	boot := make([]byte, 0x100)
	if err := m.LoadCartridge(makeROM(), boot); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if m.CPU().PC != 0x0000 {
		t.Fatalf("PC with boot ROM got %04X want 0000", m.CPU().PC)
	}
}

func TestStepFrameAdvancesPPUByOneFrame(t *testing.T) {
	m := New()
	if err := m.LoadCartridge(makeROM(), nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.Bus().Write(0xFF40, 0x80) // LCD on
	m.Bus().Write(0xFFFF, 0)    // no interrupts enabled: CPU runs the zero-filled ROM (NOPs plus the RST at 0x014D)

	m.StepFrame()
	if ly := m.Bus().Read(0xFF44); ly != 0 {
		t.Fatalf("LY after exactly one frame got %d want 0 (wrapped)", ly)
	}
}

func TestFramebufferProducesOpaqueRGBAOfExpectedSize(t *testing.T) {
	m := New()
	if err := m.LoadCartridge(makeROM(), nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	fb := m.Framebuffer()
	if len(fb) != Width*Height*4 {
		t.Fatalf("framebuffer length got %d want %d", len(fb), Width*Height*4)
	}
	for i := 3; i < len(fb); i += 4 {
		if fb[i] != 0xFF {
			t.Fatalf("pixel at byte %d not opaque: %02x", i, fb[i])
		}
	}
}

func TestSetButtonsMasksJoypadBits(t *testing.T) {
	m := New()
	if err := m.LoadCartridge(makeROM(), nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.Bus().Write(0xFF00, 0xEF) // select D-pad (P14=0)
	m.SetButtons(Buttons{Right: true, Down: true})
	joyp := m.Bus().Read(0xFF00)
	if joyp&0x01 != 0 {
		t.Fatalf("Right not reflected in JOYP: %02x", joyp)
	}
	if joyp&0x08 != 0 {
		t.Fatalf("Down not reflected in JOYP: %02x", joyp)
	}
	if joyp&0x02 == 0 || joyp&0x04 == 0 {
		t.Fatalf("unpressed Left/Up incorrectly clear: %02x", joyp)
	}
}

func TestSaveLoadStateRoundTrip(t *testing.T) {
	m := New()
	if err := m.LoadCartridge(makeROM(), nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	m.CPU().A = 0x42
	m.CPU().PC = 0x1234
	m.Bus().Write(0xC000, 0x77)

	blob := m.SaveState()

	m2 := New()
	if err := m2.LoadCartridge(makeROM(), nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if err := m2.LoadState(blob); err != nil {
		t.Fatalf("LoadState: %v", err)
	}
	if m2.CPU().A != 0x42 {
		t.Fatalf("A after restore got %02X want 42", m2.CPU().A)
	}
	if m2.CPU().PC != 0x1234 {
		t.Fatalf("PC after restore got %04X want 1234", m2.CPU().PC)
	}
	if got := m2.Bus().Read(0xC000); got != 0x77 {
		t.Fatalf("WRAM after restore got %02X want 77", got)
	}
}

func TestSaveBatteryReportsFalseForNonBatteryCartridge(t *testing.T) {
	m := New()
	if err := m.LoadCartridge(makeROM(), nil); err != nil {
		t.Fatalf("LoadCartridge: %v", err)
	}
	if _, ok := m.SaveBattery(); ok {
		t.Fatalf("ROM-only cartridge has no external RAM to back up")
	}
}
