package cart

// MBC2 is a recognized-but-no-op stub: it exists only to keep
// cartridge type codes 0x05/0x06 from falling through to the ROM-only
// path. Real MBC2's built-in 512x4-bit RAM and bank-select-via-A8 quirk
// are not modeled.
func NewMBC2(rom []byte, ramSize int) *stubMBC {
	return newStubMBC("MBC2", rom, ramSize)
}

// MBC6 is a recognized-but-no-op stub; see NewMBC2.
func NewMBC6(rom []byte, ramSize int) *stubMBC {
	return newStubMBC("MBC6", rom, ramSize)
}

// MBC7 is a recognized-but-no-op stub; see NewMBC2. The accelerometer
// and EEPROM registers real MBC7 carts expose are not modeled.
func NewMBC7(rom []byte, ramSize int) *stubMBC {
	return newStubMBC("MBC7", rom, ramSize)
}
