// Package bus wires the CPU-visible 64 KiB address space to the
// cartridge, PPU, timer, serial port, and interrupt controller. Timer
// and serial logic live in their own components, each with its own
// per-M-cycle Tick, rather than being inlined into the address-decode
// switch; the PPU and the bus's own clock both run on M-cycles, not
// T-cycles.
package bus

import (
	"bytes"
	"encoding/gob"

	"github.com/dmgcore/gbcore/internal/cart"
	"github.com/dmgcore/gbcore/internal/irq"
	"github.com/dmgcore/gbcore/internal/ppu"
	"github.com/dmgcore/gbcore/internal/serial"
	"github.com/dmgcore/gbcore/internal/timer"
)

// Bus dispatches CPU reads/writes to the cartridge, WRAM, HRAM, PPU,
// timer, serial port, joypad, and interrupt registers, and steps
// OAM-DMA.
type Bus struct {
	cart cart.Cartridge

	wram [0x2000]byte // 0xC000-0xDFFF; echo 0xE000-0xFDFF mirrors 0xC000-0xDDFF
	hram [0x7F]byte   // 0xFF80-0xFFFE

	ppu    *ppu.PPU
	timer  *timer.Timer
	serial *serial.Port
	irq    *irq.Controller

	joypSelect byte
	joypad     byte
	joypLower4 byte

	dma       byte // FF46
	dmaActive bool
	dmaSrc    uint16
	dmaIndex  int

	bootROM     []byte
	bootEnabled bool
}

// New constructs a Bus with whatever cartridge cart.NewCartridge picks
// from rom's header (ROM-only for a zeroed or header-less image).
func New(rom []byte) *Bus { return NewWithCartridge(cart.NewCartridge(rom)) }

// NewWithCartridge wires a provided cartridge implementation.
func NewWithCartridge(c cart.Cartridge) *Bus {
	b := &Bus{cart: c, irq: irq.New()}
	b.ppu = ppu.New(func(bit int) { b.irq.Request(bit) })
	b.timer = timer.New(func() { b.irq.Request(irq.Timer) })
	b.serial = serial.New(nil, func() { b.irq.Request(irq.Serial) })
	return b
}

// PPU, Cart, Timer, Serial expose the owned components for callers
// that need more than the CPU-facing Read/Write surface (rendering,
// save-state files, a real serial Connection).
func (b *Bus) PPU() *ppu.PPU         { return b.ppu }
func (b *Bus) Cart() cart.Cartridge  { return b.cart }
func (b *Bus) Timer() *timer.Timer   { return b.timer }
func (b *Bus) Serial() *serial.Port  { return b.serial }

// --- internal/cpu.MemoryBus ---

func (b *Bus) ReadSigned(addr uint16) int8 { return int8(b.Read(addr)) }

func (b *Bus) ReadInterruptEnable() byte { return b.irq.IE() }
func (b *Bus) ReadInterruptFlag() byte   { return b.irq.IF() }

func (b *Bus) WriteInterruptFlag(bit uint, value bool) { b.irq.SetBit(bit, value) }

func (b *Bus) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		if b.bootEnabled && addr < 0x0100 && len(b.bootROM) >= 0x100 {
			return b.bootROM[addr]
		}
		return b.cart.Read(addr)
	case addr >= 0x8000 && addr <= 0x9FFF:
		return b.ppu.CPURead(addr)
	case addr >= 0xA000 && addr <= 0xBFFF:
		return b.cart.Read(addr)
	case addr >= 0xC000 && addr <= 0xDFFF:
		return b.wram[addr-0xC000]
	case addr >= 0xE000 && addr <= 0xFDFF:
		return b.wram[addr-0x2000-0xC000]
	case addr >= 0xFF80 && addr <= 0xFFFE:
		return b.hram[addr-0xFF80]
	case addr >= 0xFE00 && addr <= 0xFE9F:
		return b.ppu.CPURead(addr)
	case addr == 0xFF00:
		return b.readJOYP()
	case addr == 0xFF01:
		return b.serial.SB()
	case addr == 0xFF02:
		return b.serial.SC()
	case addr == 0xFF04:
		return b.timer.DIV()
	case addr == 0xFF05:
		return b.timer.TIMA()
	case addr == 0xFF06:
		return b.timer.TMA()
	case addr == 0xFF07:
		return 0xF8 | (b.timer.TAC() & 0x07)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		return b.ppu.CPURead(addr)
	case addr == 0xFF46:
		return b.dma
	case addr == 0xFF50:
		return 0xFF
	case addr == 0xFF0F:
		return 0xE0 | b.irq.IF()
	case addr == 0xFFFF:
		return b.irq.IE()
	}
	return 0xFF
}

func (b *Bus) Write(addr uint16, value byte) {
	switch {
	case addr < 0x8000:
		b.cart.Write(addr, value)
	case addr >= 0x8000 && addr <= 0x9FFF:
		b.ppu.CPUWrite(addr, value)
	case addr >= 0xA000 && addr <= 0xBFFF:
		b.cart.Write(addr, value)
	case addr >= 0xC000 && addr <= 0xDFFF:
		b.wram[addr-0xC000] = value
	case addr >= 0xE000 && addr <= 0xFDFF:
		b.wram[addr-0x2000-0xC000] = value
	case addr >= 0xFF80 && addr <= 0xFFFE:
		b.hram[addr-0xFF80] = value
	case addr >= 0xFE00 && addr <= 0xFE9F:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF00:
		b.joypSelect = value & 0x30
		b.updateJoypadIRQ()
	case addr == 0xFF01:
		b.serial.WriteSB(value)
	case addr == 0xFF02:
		b.serial.WriteSC(value)
	case addr == 0xFF04:
		b.timer.WriteDIV(value)
	case addr == 0xFF05:
		b.timer.WriteTIMA(value)
	case addr == 0xFF06:
		b.timer.WriteTMA(value)
	case addr == 0xFF07:
		b.timer.WriteTAC(value)
	case addr == 0xFF40, addr == 0xFF41, addr == 0xFF42, addr == 0xFF43,
		addr == 0xFF44, addr == 0xFF45,
		addr == 0xFF47, addr == 0xFF48, addr == 0xFF49,
		addr == 0xFF4A, addr == 0xFF4B:
		b.ppu.CPUWrite(addr, value)
	case addr == 0xFF46:
		b.dma = value
		b.dmaActive = true
		b.dmaSrc = uint16(value) << 8
		b.dmaIndex = 0
	case addr == 0xFF50:
		if value != 0x00 {
			b.bootEnabled = false
		}
	case addr == 0xFF0F:
		b.irq.SetIF(value)
	case addr == 0xFFFF:
		b.irq.SetIE(value)
	}
}

func (b *Bus) readJOYP() byte {
	res := byte(0xC0 | (b.joypSelect & 0x30) | 0x0F)
	if (b.joypSelect & 0x10) == 0 { // P14 low selects D-Pad
		if b.joypad&JoypRight != 0 {
			res &^= 0x01
		}
		if b.joypad&JoypLeft != 0 {
			res &^= 0x02
		}
		if b.joypad&JoypUp != 0 {
			res &^= 0x04
		}
		if b.joypad&JoypDown != 0 {
			res &^= 0x08
		}
	}
	if (b.joypSelect & 0x20) == 0 { // P15 low selects Buttons
		if b.joypad&JoypA != 0 {
			res &^= 0x01
		}
		if b.joypad&JoypB != 0 {
			res &^= 0x02
		}
		if b.joypad&JoypSelectBtn != 0 {
			res &^= 0x04
		}
		if b.joypad&JoypStart != 0 {
			res &^= 0x08
		}
	}
	return res
}

// Joypad button bitmasks for SetJoypadState. Bits set mean "pressed".
const (
	JoypRight     = 1 << 0
	JoypLeft      = 1 << 1
	JoypUp        = 1 << 2
	JoypDown      = 1 << 3
	JoypA         = 1 << 4
	JoypB         = 1 << 5
	JoypSelectBtn = 1 << 6
	JoypStart     = 1 << 7
)

// SetJoypadState sets which buttons are currently pressed. Pass a
// mask built from the Joyp* constants; set bits mean pressed.
func (b *Bus) SetJoypadState(mask byte) {
	b.joypad = mask
	b.updateJoypadIRQ()
}

// SetSerialConnection swaps the far end of the serial cable.
func (b *Bus) SetSerialConnection(conn serial.Connection) { b.serial.SetConnection(conn) }

// SetBootROM loads a DMG boot ROM mapped at 0x0000-0x00FF until
// disabled via an 0xFF50 write.
func (b *Bus) SetBootROM(data []byte) {
	b.bootROM = nil
	b.bootEnabled = false
	if len(data) >= 0x100 {
		b.bootROM = make([]byte, 0x100)
		copy(b.bootROM, data[:0x100])
		b.bootEnabled = true
	}
}

// TickM advances the bus's owned components — timer, serial, PPU, and
// OAM-DMA — by exactly one M-cycle. The system tick loop calls this
// once per CPU M-cycle, after the CPU's own phase, in a fixed order:
// Timer, then Serial, then PPU, then OAM-DMA.
func (b *Bus) TickM() {
	b.timer.TickM()
	b.serial.TickM()
	b.ppu.TickM()
	b.stepDMA()
}

func (b *Bus) stepDMA() {
	if !b.dmaActive {
		return
	}
	v := b.Read(b.dmaSrc + uint16(b.dmaIndex))
	b.ppu.CPUWrite(0xFE00+uint16(b.dmaIndex), v)
	b.dmaIndex++
	if b.dmaIndex >= 0xA0 {
		b.dmaActive = false
	}
}

// updateJoypadIRQ recomputes JOYP lower 4 bits (active-low) and raises
// the Joypad interrupt on any 1->0 transition.
func (b *Bus) updateJoypadIRQ() {
	newLower := byte(0x0F)
	if (b.joypSelect & 0x10) == 0 {
		if b.joypad&JoypRight != 0 {
			newLower &^= 0x01
		}
		if b.joypad&JoypLeft != 0 {
			newLower &^= 0x02
		}
		if b.joypad&JoypUp != 0 {
			newLower &^= 0x04
		}
		if b.joypad&JoypDown != 0 {
			newLower &^= 0x08
		}
	}
	if (b.joypSelect & 0x20) == 0 {
		if b.joypad&JoypA != 0 {
			newLower &^= 0x01
		}
		if b.joypad&JoypB != 0 {
			newLower &^= 0x02
		}
		if b.joypad&JoypSelectBtn != 0 {
			newLower &^= 0x04
		}
		if b.joypad&JoypStart != 0 {
			newLower &^= 0x08
		}
	}
	if b.joypLower4&^newLower != 0 {
		b.irq.Request(irq.Joypad)
	}
	b.joypLower4 = newLower
}

// --- Save/Load state ---

type busState struct {
	WRAM    [0x2000]byte
	HRAM    [0x7F]byte
	IE, IF  byte
	JoypSel byte
	Joypad  byte
	JoypL4  byte
	DMA     byte
	DMAOn   bool
	DMASrc  uint16
	DMAIdx  int
	BootEn  bool
}

func (b *Bus) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	_ = enc.Encode(busState{
		WRAM: b.wram, HRAM: b.hram,
		IE: b.irq.IE(), IF: b.irq.IF(),
		JoypSel: b.joypSelect, Joypad: b.joypad, JoypL4: b.joypLower4,
		DMA: b.dma, DMAOn: b.dmaActive, DMASrc: b.dmaSrc, DMAIdx: b.dmaIndex,
		BootEn: b.bootEnabled,
	})
	_ = enc.Encode(b.timer.SaveState())
	_ = enc.Encode(b.serial.SaveState())
	_ = enc.Encode(b.ppu.SaveState())
	if sb, ok := b.cart.(interface{ SaveState() []byte }); ok {
		_ = enc.Encode(sb.SaveState())
	} else {
		_ = enc.Encode([]byte(nil))
	}
	return buf.Bytes()
}

func (b *Bus) LoadState(data []byte) {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var s busState
	if err := dec.Decode(&s); err != nil {
		return
	}
	b.wram, b.hram = s.WRAM, s.HRAM
	b.irq.SetIE(s.IE)
	b.irq.SetIF(s.IF)
	b.joypSelect, b.joypad, b.joypLower4 = s.JoypSel, s.Joypad, s.JoypL4
	b.dma, b.dmaActive, b.dmaSrc, b.dmaIndex = s.DMA, s.DMAOn, s.DMASrc, s.DMAIdx
	b.bootEnabled = s.BootEn

	var timerBlob, serialBlob, ppuBlob, cartBlob []byte
	if err := dec.Decode(&timerBlob); err == nil {
		b.timer.LoadState(timerBlob)
	}
	if err := dec.Decode(&serialBlob); err == nil {
		b.serial.LoadState(serialBlob)
	}
	if err := dec.Decode(&ppuBlob); err == nil {
		b.ppu.LoadState(ppuBlob)
	}
	if err := dec.Decode(&cartBlob); err == nil {
		if lb, ok := b.cart.(interface{ LoadState([]byte) }); ok {
			lb.LoadState(cartBlob)
		}
	}
}
