package cart

import (
	"encoding/binary"
	"errors"
	"strings"
)

const headerEnd = 0x014F

var nintendoLogo = [48]byte{
	0xCE, 0xED, 0x66, 0x66, 0xCC, 0x0D, 0x00, 0x0B, 0x03, 0x73, 0x00, 0x83, 0x00, 0x0C, 0x00, 0x0D,
	0x00, 0x08, 0x11, 0x1F, 0x88, 0x89, 0x00, 0x0E, 0xDC, 0xCC, 0x6E, 0xE6, 0xDD, 0xDD, 0xD9, 0x99,
	0xBB, 0xBB, 0x67, 0x63, 0x6E, 0x0E, 0xEC, 0xCC, 0xDD, 0xDC, 0x99, 0x9F, 0xBB, 0xB9, 0x33, 0x3E,
}

// Header is the decoded cartridge header at 0x0100-0x014F, plus a few
// convenience fields (ROM/RAM byte counts, a human-readable cart-type
// label) computed once at parse time rather than re-derived on every
// log line.
type Header struct {
	Title          string
	CGBFlag        byte
	NewLicensee    string
	SGBFlag        byte
	CartType       byte
	ROMSizeCode    byte
	RAMSizeCode    byte
	Destination    byte
	OldLicensee    byte
	ROMVersion     byte
	HeaderChecksum byte
	GlobalChecksum uint16

	ROMSizeBytes int
	ROMBanks     int
	RAMSizeBytes int
	CartTypeStr  string
}

// ParseHeader reads the fixed-layout header fields out of rom. It does
// not itself validate the header checksum or the Nintendo logo bitmap
// at 0x0104 — callers that care whether the header is trustworthy
// should also check HeaderChecksumOK.
func ParseHeader(rom []byte) (*Header, error) {
	if len(rom) < headerEnd+1 {
		return nil, errors.New("ROM too small to contain header")
	}

	h := &Header{
		Title:          strings.TrimRight(string(rom[0x0134:0x0144]), "\x00"),
		CGBFlag:        rom[0x0143],
		NewLicensee:    string(rom[0x0144:0x0146]),
		SGBFlag:        rom[0x0146],
		CartType:       rom[0x0147],
		ROMSizeCode:    rom[0x0148],
		RAMSizeCode:    rom[0x0149],
		Destination:    rom[0x014A],
		OldLicensee:    rom[0x014B],
		ROMVersion:     rom[0x014C],
		HeaderChecksum: rom[0x014D],
		GlobalChecksum: binary.BigEndian.Uint16(rom[0x014E:0x0150]),
	}

	h.ROMSizeBytes, h.ROMBanks = romSizeTable.lookup(h.ROMSizeCode)
	h.RAMSizeBytes, _ = ramSizeTable.lookup(h.RAMSizeCode)
	h.CartTypeStr = cartTypeLabel(h.CartType)

	return h, nil
}

// HeaderChecksumOK recomputes the one-byte header checksum over
// 0x0134-0x014C (the Pan Docs algorithm: running sum of
// sum-minus-byte-minus-one) and compares it against the stored value
// at 0x014D. A real DMG refuses to boot a cartridge that fails this
// check.
func HeaderChecksumOK(rom []byte) bool {
	if len(rom) < 0x014E {
		return false
	}
	var sum byte
	for _, b := range rom[0x0134:0x014D] {
		sum = sum - b - 1
	}
	return sum == rom[0x014D]
}

// sizeEntry pairs a header code with the byte count and (for ROM) the
// bank count it decodes to.
type sizeEntry struct {
	code  byte
	bytes int
	banks int
}

type sizeTable []sizeEntry

func (t sizeTable) lookup(code byte) (size, banks int) {
	for _, e := range t {
		if e.code == code {
			return e.bytes, e.banks
		}
	}
	return 0, 0
}

// romSizeTable covers the documented codes 0x00-0x08 (32 KiB doubling
// each step) plus the three oddball Pocket/Pro-only codes 0x52-0x54.
var romSizeTable = sizeTable{
	{0x00, 32 * 1024, 2},
	{0x01, 64 * 1024, 4},
	{0x02, 128 * 1024, 8},
	{0x03, 256 * 1024, 16},
	{0x04, 512 * 1024, 32},
	{0x05, 1 * 1024 * 1024, 64},
	{0x06, 2 * 1024 * 1024, 128},
	{0x07, 4 * 1024 * 1024, 256},
	{0x08, 8 * 1024 * 1024, 512},
	{0x52, 1152 * 1024, 72},
	{0x53, 1280 * 1024, 80},
	{0x54, 1536 * 1024, 96},
}

// ramSizeTable covers the documented codes; 0x01 is reserved/unused
// on real hardware and intentionally absent here.
var ramSizeTable = sizeTable{
	{0x00, 0, 0},
	{0x02, 8 * 1024, 0},
	{0x03, 32 * 1024, 0},
	{0x04, 128 * 1024, 0},
	{0x05, 64 * 1024, 0},
}

func cartTypeLabel(code byte) string {
	switch {
	case code == 0x00:
		return "ROM ONLY"
	case code >= 0x01 && code <= 0x03:
		return "MBC1 (variants)"
	case code == 0x05 || code == 0x06:
		return "MBC2 (variants)"
	case code >= 0x0F && code <= 0x13:
		return "MBC3 (variants)"
	case code >= 0x19 && code <= 0x1E:
		return "MBC5 (variants)"
	case code == 0x20:
		return "MBC6"
	case code == 0x22:
		return "MBC7"
	default:
		return "Other/unknown"
	}
}
