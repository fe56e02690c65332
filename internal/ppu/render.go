package ppu

// renderScanline composites one full 160-pixel row of the framebuffer
// at mode-3 entry: background, then window, then objects, in priority
// order. The 2bpp tile decode applies the same low-plane/high-plane
// bit math a FIFO fetcher would, just directly into a row buffer
// instead of pixel-by-pixel through one.
func (p *PPU) renderScanline() {
	if int(p.ly) >= len(p.framebuffer) {
		return
	}
	row := &p.framebuffer[p.ly]

	if p.lcdc&0x01 != 0 {
		p.renderBackground(row)
	} else {
		for x := range row {
			row[x] = 0
		}
	}
	if p.lcdc&0x20 != 0 && p.wy <= p.ly && p.wx <= 166 {
		p.renderWindow(row)
	}
	if p.lcdc&0x02 != 0 {
		p.renderObjects(row)
	}
}

func (p *PPU) tilePixel(tileData8000 bool, tileNum byte, fineX, fineY byte) byte {
	var base uint16
	if tileData8000 {
		base = 0x8000 + uint16(tileNum)*16 + uint16(fineY)*2
	} else {
		base = 0x9000 + uint16(int8(tileNum))*16 + uint16(fineY)*2
	}
	lo := p.vram[base-0x8000]
	hi := p.vram[base+1-0x8000]
	bit := 7 - fineX
	return ((hi>>bit)&1)<<1 | ((lo >> bit) & 1)
}

func (p *PPU) renderBackground(row *[160]byte) {
	tileData8000 := p.lcdc&0x10 != 0
	mapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		mapBase = 0x9C00
	}
	bgY := uint16(p.ly) + uint16(p.scy)
	fineY := byte(bgY & 7)
	mapY := (bgY >> 3) & 31

	for x := 0; x < 160; x++ {
		bgX := uint16(x) + uint16(p.scx)
		fineX := byte(bgX & 7)
		mapX := (bgX >> 3) & 31
		tileNum := p.vram[mapBase+mapY*32+mapX-0x8000]
		row[x] = p.tilePixel(tileData8000, tileNum, fineX, fineY)
	}
}

func (p *PPU) renderWindow(row *[160]byte) {
	tileData8000 := p.lcdc&0x10 != 0
	mapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		mapBase = 0x9C00
	}
	winLine := byte(p.windowLineCounter)
	fineY := winLine & 7
	mapY := (uint16(winLine) >> 3) & 31

	wxStart := int(p.wx) - 7
	drew := false
	for x := 0; x < 160; x++ {
		if x < wxStart {
			continue
		}
		drew = true
		winX := uint16(x - wxStart)
		mapX := (winX >> 3) & 31
		tileNum := p.vram[mapBase+mapY*32+mapX-0x8000]
		row[x] = p.tilePixel(tileData8000, tileNum, byte(winX&7), fineY)
	}
	if drew {
		p.windowLineCounter++
	}
}

type objectEntry struct {
	y, x, tile, attr byte
	oamIndex         int
}

// renderObjects composites up to 10 sprites on this line over the
// background/window row, honoring priority (lower OAM index first,
// drawn-then-overwritten by later higher-priority ones is the wrong
// order — scan low to high x-priority, highest priority drawn last),
// BG-over-object priority bit, and X/Y flip.
func (p *PPU) renderObjects(row *[160]byte) {
	tall := p.lcdc&0x04 != 0
	height := byte(8)
	if tall {
		height = 16
	}

	var visible []objectEntry
	for i := 0; i < 40 && len(visible) < 10; i++ {
		base := i * 4
		oy := p.oam[base]
		ox := p.oam[base+1]
		tile := p.oam[base+2]
		attr := p.oam[base+3]
		spriteTop := int(oy) - 16
		if int(p.ly) < spriteTop || int(p.ly) >= spriteTop+int(height) {
			continue
		}
		visible = append(visible, objectEntry{y: oy, x: ox, tile: tile, attr: attr, oamIndex: i})
	}

	// Draw lowest priority first so higher-priority sprites (smaller X,
	// then smaller OAM index) end up on top.
	for i := 0; i < len(visible); i++ {
		for j := i + 1; j < len(visible); j++ {
			if higherPriority(visible[j], visible[i]) {
				visible[i], visible[j] = visible[j], visible[i]
			}
		}
	}
	for idx := len(visible) - 1; idx >= 0; idx-- {
		p.drawObject(row, visible[idx], height)
	}
}

// higherPriority reports whether a should be drawn after (on top of) b.
func higherPriority(a, b objectEntry) bool {
	if a.x != b.x {
		return a.x < b.x
	}
	return a.oamIndex < b.oamIndex
}

func (p *PPU) drawObject(row *[160]byte, obj objectEntry, height byte) {
	yFlip := obj.attr&0x40 != 0
	xFlip := obj.attr&0x20 != 0
	behindBG := obj.attr&0x80 != 0
	useOBP1 := obj.attr&0x10 != 0
	_ = useOBP1 // palette application happens outside the PPU; here only the color index and OBP1 tag are stored

	spriteTop := int(obj.y) - 16
	line := byte(int(p.ly) - spriteTop)
	if yFlip {
		line = height - 1 - line
	}
	tile := obj.tile
	if height == 16 {
		tile &^= 0x01
		if line >= 8 {
			tile |= 0x01
			line -= 8
		}
	}

	for px := byte(0); px < 8; px++ {
		screenX := int(obj.x) - 8 + int(px)
		if screenX < 0 || screenX >= 160 {
			continue
		}
		fineX := px
		if xFlip {
			fineX = 7 - px
		}
		ci := p.tilePixel(true, tile, fineX, line)
		if ci == 0 {
			continue // transparent
		}
		if behindBG && row[screenX] != 0 {
			continue
		}
		row[screenX] = ci | 0x04 // tag bit 2 marks "object pixel" for palette selection
		if useOBP1 {
			row[screenX] |= 0x08
		}
	}
}
