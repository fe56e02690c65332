package cart

// MBC5 is a recognized-but-no-op stub; see the note on NewMBC3. Real
// MBC5's 9-bit ROM bank select and 4-bit RAM bank select are not
// modeled; this cartridge always answers from bank 0/1.
func NewMBC5(rom []byte, ramSize int) *stubMBC {
	return newStubMBC("MBC5", rom, ramSize)
}
