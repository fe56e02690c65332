package cart

// ROMOnly is the simplest cartridge shape: a fixed ROM image with no
// bank switching and no external RAM. Most of the earliest Game Boy
// titles, and nearly all homebrew test ROMs, use it.
type ROMOnly struct {
	data []byte
}

func NewROMOnly(rom []byte) *ROMOnly {
	return &ROMOnly{data: rom}
}

func (c *ROMOnly) Read(addr uint16) byte {
	if addr < 0x8000 {
		if int(addr) < len(c.data) {
			return c.data[addr]
		}
		return 0xFF
	}
	// 0xA000-0xBFFF (and anything else reaching this cartridge): no
	// external RAM behind it, so the bus floats high.
	return 0xFF
}

// Write is a no-op: a bare ROM has no control registers or RAM banks
// to write to.
func (c *ROMOnly) Write(addr uint16, value byte) {}

// There is no banking state or external RAM to persist.
func (c *ROMOnly) SaveState() []byte     { return nil }
func (c *ROMOnly) LoadState(data []byte) {}
