package cart

import "fmt"

// Cartridge defines the minimal interface the Bus needs for ROM/RAM banking.
// Implementations can be ROM-only or MBC variants. Addresses are CPU addresses.
type Cartridge interface {
	// Read returns a byte for ROM (0x0000–0x7FFF) and external RAM (0xA000–0xBFFF).
	Read(addr uint16) byte
	// Write handles MBC control writes (0x0000–0x7FFF) and external RAM writes (0xA000–0xBFFF).
	Write(addr uint16, value byte)
	// SaveState/LoadState serialize internal banking registers and external RAM for save states.
	SaveState() []byte
	LoadState(data []byte)
}

// BatteryBacked is an optional interface for cartridges with external RAM to be persisted.
// Implementations should return a copy of RAM bytes (may be empty if no RAM), and accept data to load.
type BatteryBacked interface {
	SaveRAM() []byte
	LoadRAM(data []byte)
}

// New parses rom's header and builds the matching Cartridge
// implementation, rejecting a ROM whose header checksum doesn't match
// its own contents or whose ROM/RAM size code isn't one of the
// documented values. This is the entry point a real loader (e.g.
// cmd/gbcore, internal/system.LoadCartridge) should call; homebrew
// and test ROMs that don't carry a valid header should use
// NewCartridge instead.
func New(rom []byte) (Cartridge, error) {
	h, err := ParseHeader(rom)
	if err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	if !HeaderChecksumOK(rom) {
		return nil, fmt.Errorf("header checksum mismatch at 0x014D")
	}
	if h.ROMSizeBytes == 0 {
		return nil, fmt.Errorf("unsupported ROM size code %#02x", h.ROMSizeCode)
	}
	if h.RAMSizeCode != 0x00 && h.RAMSizeBytes == 0 {
		return nil, fmt.Errorf("unsupported RAM size code %#02x", h.RAMSizeCode)
	}
	return dispatch(rom, h), nil
}

// NewCartridge picks an implementation based on the ROM header,
// falling back to ROM-only for a missing or unrecognized header
// rather than failing — the lenient entry point unit tests and
// header-less synthetic ROMs use.
func NewCartridge(rom []byte) Cartridge {
	h, err := ParseHeader(rom)
	if err != nil {
		return NewROMOnly(rom)
	}
	return dispatch(rom, h)
}

func dispatch(rom []byte, h *Header) Cartridge {
	switch h.CartType {
	case 0x00:
		return NewROMOnly(rom)
	case 0x01, 0x02, 0x03: // MBC1 variants (RAM, RAM+BAT are transparent here)
		return NewMBC1(rom, h.RAMSizeBytes)
	case 0x05, 0x06: // MBC2 variants — recognized, no-op (see mbc2.go)
		return NewMBC2(rom, h.RAMSizeBytes)
	case 0x0F, 0x10, 0x11, 0x12, 0x13: // MBC3 variants — recognized, no-op (see mbc3.go)
		return NewMBC3(rom, h.RAMSizeBytes)
	case 0x19, 0x1A, 0x1B, 0x1C, 0x1D, 0x1E: // MBC5 variants — recognized, no-op (see mbc5.go)
		return NewMBC5(rom, h.RAMSizeBytes)
	case 0x20: // MBC6 — recognized, no-op
		return NewMBC6(rom, h.RAMSizeBytes)
	case 0x22: // MBC7 — recognized, no-op
		return NewMBC7(rom, h.RAMSizeBytes)
	default:
		// Fallback to ROM-only for unknown types to allow some homebrew/tests to run
		return NewROMOnly(rom)
	}
}
