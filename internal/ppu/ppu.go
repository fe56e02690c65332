// Package ppu models VRAM/OAM, the LCDC/STAT/LY register set, and a
// per-scanline compositor driven one M-cycle at a time. Rendering
// happens once, on entry to mode 3, rather than pixel-by-pixel through
// a FIFO/fetcher pipeline: the mode/LY/interrupt schedule is M-cycle
// accurate, but sub-scanline pixel timing (sprite fetch stalls,
// mid-line palette swaps) is not modeled.
package ppu

import (
	"bytes"
	"encoding/gob"
)

// InterruptRequester is a callback signature to request IF bits (0:VBlank, 1:STAT, etc.).
type InterruptRequester func(bit int)

const (
	oamSearchEnd = 20  // M-cycles 1..20
	transferEnd  = 70  // M-cycles 21..70
	lineLength   = 114 // M-cycles per scanline
	vblankStartLY = 144
	lastLY        = 153
)

// PPU models VRAM/OAM, LCDC/STAT regs, LY/LYC, and a scanline
// compositor. It exposes CPU-facing Read/Write for VRAM/OAM and PPU
// IO regs, plus TickM for the system tick loop and Framebuffer for a
// display collaborator.
type PPU struct {
	vram [0x2000]byte // 0x8000–0x9FFF
	oam  [0xA0]byte   // 0xFE00–0xFE9F

	lcdc byte // FF40
	stat byte // FF41 (mode bits 0-1, coincidence flag bit2, enables bits3-6)
	scy  byte // FF42
	scx  byte // FF43
	ly   byte // FF44
	lyc  byte // FF45
	bgp  byte // FF47
	obp0 byte // FF48
	obp1 byte // FF49
	wy   byte // FF4A
	wx   byte // FF4B

	mcycle int // M-cycles elapsed within the current line [0..113]

	windowLineCounter int // internal "how many window lines drawn so far this frame"

	// framebuffer holds one packed byte per pixel: bits 0-1 are the
	// raw 2bpp tile color index, bit 2 is set for an object pixel
	// (vs. background/window), and bit 3 selects OBP1 over OBP0 for
	// object pixels. Applying BGP/OBP0/OBP1 to turn this into an RGBA
	// frame is done outside the PPU (internal/system's
	// Machine.Framebuffer), not here — the core stays agnostic to any particular output pixel
	// format.
	framebuffer [144][160]byte

	req InterruptRequester
}

func New(req InterruptRequester) *PPU { return &PPU{req: req} }

// Framebuffer returns the buffer the PPU renders into, row-major,
// 160x144, one packed byte per pixel as described on the framebuffer
// field. Rows are overwritten in place as each scanline is drawn, so
// mid-frame it mixes lines of the current and the previous frame.
func (p *PPU) Framebuffer() *[144][160]byte { return &p.framebuffer }

// CPURead returns bytes for VRAM, OAM, and PPU IO registers. Returns 0xFF for others.
func (p *PPU) CPURead(addr uint16) byte {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return 0xFF
		}
		return p.vram[addr-0x8000]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return 0xFF
		}
		return p.oam[addr-0xFE00]
	case addr == 0xFF40:
		return p.lcdc
	case addr == 0xFF41:
		return 0x80 | (p.stat & 0x7F)
	case addr == 0xFF42:
		return p.scy
	case addr == 0xFF43:
		return p.scx
	case addr == 0xFF44:
		return p.ly
	case addr == 0xFF45:
		return p.lyc
	case addr == 0xFF47:
		return p.bgp
	case addr == 0xFF48:
		return p.obp0
	case addr == 0xFF49:
		return p.obp1
	case addr == 0xFF4A:
		return p.wy
	case addr == 0xFF4B:
		return p.wx
	default:
		return 0xFF
	}
}

// CPUWrite handles writes to VRAM, OAM, and PPU IO regs. Others are ignored here.
func (p *PPU) CPUWrite(addr uint16, value byte) {
	switch {
	case addr >= 0x8000 && addr <= 0x9FFF:
		if (p.stat & 0x03) == 3 {
			return
		}
		p.vram[addr-0x8000] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		m := p.stat & 0x03
		if m == 2 || m == 3 {
			return
		}
		p.oam[addr-0xFE00] = value
	case addr == 0xFF40:
		prev := p.lcdc
		p.lcdc = value
		if (p.lcdc&0x80) == 0 && (prev&0x80) != 0 {
			p.ly = 0
			p.mcycle = 0
			p.windowLineCounter = 0
			p.setMode(0)
			p.updateLYC()
		} else if (p.lcdc&0x80) != 0 && (prev&0x80) == 0 {
			p.ly = 0
			p.mcycle = 0
			p.windowLineCounter = 0
			p.setMode(2)
			p.updateLYC()
		}
	case addr == 0xFF41:
		p.stat = (p.stat & 0x07) | (value & 0x78)
	case addr == 0xFF42:
		p.scy = value
	case addr == 0xFF43:
		p.scx = value
	case addr == 0xFF44:
		p.ly = 0
		p.mcycle = 0
		p.updateLYC()
		if (p.lcdc & 0x80) != 0 {
			p.setMode(2)
		}
	case addr == 0xFF45:
		p.lyc = value
		p.updateLYC()
	case addr == 0xFF47:
		p.bgp = value
	case addr == 0xFF48:
		p.obp0 = value
	case addr == 0xFF49:
		p.obp1 = value
	case addr == 0xFF4A:
		p.wy = value
	case addr == 0xFF4B:
		p.wx = value
	}
}

// TickM advances the PPU by exactly one M-cycle: the caller-owned
// system tick loop (internal/system) calls this once per CPU M-cycle,
// in lockstep with the CPU, timer, and serial port.
func (p *PPU) TickM() {
	if (p.lcdc & 0x80) == 0 {
		return
	}
	p.mcycle++

	// The mode reported once this M-cycle completes is the one the next
	// M-cycle runs in, just as LY below advances as soon as a line's
	// last M-cycle completes.
	var mode byte
	switch {
	case p.ly >= vblankStartLY:
		mode = 1
	case p.mcycle < oamSearchEnd:
		mode = 2
	case p.mcycle < transferEnd:
		mode = 3
	default:
		mode = 0
	}
	wasMode3 := (p.stat & 0x03) == 3
	p.setMode(mode)
	if mode == 3 && !wasMode3 {
		p.renderScanline()
	}

	if p.mcycle >= lineLength {
		p.mcycle = 0
		p.ly++
		if p.ly == vblankStartLY {
			p.windowLineCounter = 0
			if p.req != nil {
				p.req(0) // VBlank IF
			}
			if (p.stat&(1<<4)) != 0 && p.req != nil {
				p.req(1) // STAT VBlank
			}
		} else if p.ly > lastLY {
			p.ly = 0
		}
		p.updateLYC()
		if p.ly >= vblankStartLY {
			p.setMode(1)
		} else {
			p.setMode(2)
		}
	}
}

func (p *PPU) setMode(mode byte) {
	prev := p.stat & 0x03
	if prev == mode {
		return
	}
	p.stat = (p.stat &^ 0x03) | (mode & 0x03)
	switch mode {
	case 0: // HBlank
		if (p.stat & (1 << 3)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	case 2: // OAM
		if (p.stat & (1 << 5)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	}
}

func (p *PPU) updateLYC() {
	if p.ly == p.lyc {
		p.stat |= 1 << 2
		if (p.stat & (1 << 6)) != 0 {
			if p.req != nil {
				p.req(1)
			}
		}
	} else {
		p.stat &^= 1 << 2
	}
}

// Expose palettes and scroll for renderer convenience (optional helpers)
func (p *PPU) BGP() byte  { return p.bgp }
func (p *PPU) OBP0() byte { return p.obp0 }
func (p *PPU) OBP1() byte { return p.obp1 }
func (p *PPU) LCDC() byte { return p.lcdc }
func (p *PPU) SCY() byte  { return p.scy }
func (p *PPU) SCX() byte  { return p.scx }
func (p *PPU) WY() byte   { return p.wy }
func (p *PPU) WX() byte   { return p.wx }

// --- Save/Load state ---

type ppuState struct {
	VRAM              [0x2000]byte
	OAM               [0xA0]byte
	LCDC, STAT        byte
	SCY, SCX, LY, LYC byte
	BGP, OBP0, OBP1   byte
	WY, WX            byte
	MCycle            int
	WindowLineCounter int
}

func (p *PPU) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(ppuState{
		VRAM: p.vram, OAM: p.oam,
		LCDC: p.lcdc, STAT: p.stat,
		SCY: p.scy, SCX: p.scx, LY: p.ly, LYC: p.lyc,
		BGP: p.bgp, OBP0: p.obp0, OBP1: p.obp1,
		WY: p.wy, WX: p.wx,
		MCycle: p.mcycle, WindowLineCounter: p.windowLineCounter,
	})
	return buf.Bytes()
}

func (p *PPU) LoadState(data []byte) {
	var s ppuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.vram, p.oam = s.VRAM, s.OAM
	p.lcdc, p.stat = s.LCDC, s.STAT
	p.scy, p.scx, p.ly, p.lyc = s.SCY, s.SCX, s.LY, s.LYC
	p.bgp, p.obp0, p.obp1 = s.BGP, s.OBP0, s.OBP1
	p.wy, p.wx = s.WY, s.WX
	p.mcycle, p.windowLineCounter = s.MCycle, s.WindowLineCounter
}
