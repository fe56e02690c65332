package ppu

import "testing"

func TestRenderBackgroundSingleTile(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x91) // LCD on, BG on, 0x8000 addressing, map at 0x9800
	// Tile 1's row 0: color index 1 on all eight pixels (lo=0xFF, hi=0x00).
	setVRAM(p, 0x8010, 0xFF)
	setVRAM(p, 0x8011, 0x00)
	setVRAM(p, 0x9800, 1) // map tile 0 -> tile index 1

	p.renderScanline()
	row := p.Framebuffer()[0]
	for x := 0; x < 8; x++ {
		if row[x] != 1 {
			t.Fatalf("pixel %d: got %d want 1", x, row[x])
		}
	}
}

func TestRenderObjectOverridesTransparentBG(t *testing.T) {
	p := New(nil)
	p.CPUWrite(0xFF40, 0x83) // LCD+BG+OBJ on, BG tile all-zero (transparent)
	setVRAM(p, 0x8000, 0x80) // tile 0 row0: bit7 set -> color index 1 at px 0
	setVRAM(p, 0x8001, 0x00)
	p.oam[0] = 16 // Y
	p.oam[1] = 8  // X
	p.oam[2] = 0  // tile
	p.oam[3] = 0  // attr

	p.renderScanline()
	row := p.Framebuffer()[0]
	if row[0]&0x03 != 1 {
		t.Fatalf("object pixel color index: got %d want 1", row[0]&0x03)
	}
	if row[0]&0x04 == 0 {
		t.Fatalf("expected object tag bit set")
	}
}

func setVRAM(p *PPU, addr uint16, v byte) { p.vram[addr-0x8000] = v }
