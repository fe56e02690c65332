package cart

// MBC3 is a recognized-but-no-op stub: 0x0000-0x3FFF always reads
// bank 0 and 0x4000-0x7FFF always reads bank 1 of the image, and
// ROM-bank/RAM-bank/RTC-latch writes are accepted but do nothing. Real MBC3's
// bank switching and real-time-clock register set are not modeled;
// see DESIGN.md.
func NewMBC3(rom []byte, ramSize int) *stubMBC {
	return newStubMBC("MBC3", rom, ramSize)
}
