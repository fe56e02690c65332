package cart

// stubMBC models a recognized-but-unimplemented MBC: it answers ROM
// reads from a fixed bank 0/1 split and swallows bank-select writes
// without changing what's visible, rather than pretending to bank.
// Silicon-accurate banking for MBC2/MBC3/MBC5/MBC6/MBC7 is not
// modeled here (only MBC1 banks correctly); this keeps ROMs built for
// those mappers loadable and running bank-0 code instead of the Bus
// seeing an unrecognized cartridge type.
type stubMBC struct {
	kind string
	rom  []byte
	ram  []byte
}

func newStubMBC(kind string, rom []byte, ramSize int) *stubMBC {
	m := &stubMBC{kind: kind, rom: rom}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

func (m *stubMBC) Read(addr uint16) byte {
	switch {
	case addr < 0x4000:
		if int(addr) < len(m.rom) {
			return m.rom[addr]
		}
	case addr < 0x8000:
		off := 0x4000 + int(addr-0x4000)
		if off < len(m.rom) {
			return m.rom[off]
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		off := int(addr - 0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
	}
	return 0xFF
}

func (m *stubMBC) Write(addr uint16, value byte) {
	if addr >= 0xA000 && addr <= 0xBFFF {
		off := int(addr - 0xA000)
		if off < len(m.ram) {
			m.ram[off] = value
		}
	}
	// Bank-select and RTC-latch writes (0x0000-0x7FFF) are acknowledged
	// by existing, but change nothing: no switchable bank is modeled.
}

func (m *stubMBC) SaveState() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *stubMBC) LoadState(data []byte) {
	copy(m.ram, data)
}

// SaveRAM/LoadRAM satisfy BatteryBacked so the battery-save path
// (system.Machine.SaveBattery/LoadBattery) can persist the (unbanked)
// RAM window the same way it does for MBC1.
func (m *stubMBC) SaveRAM() []byte {
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *stubMBC) LoadRAM(data []byte) {
	copy(m.ram, data)
}

// Kind reports which MBC family this stub is standing in for, for
// diagnostics.
func (m *stubMBC) Kind() string { return m.kind }
