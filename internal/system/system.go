// Package system wires a CPU and a Bus into the cooperative tick loop:
// a single-threaded, lock-free driver that advances the CPU one
// M-cycle, then the Bus's owned components (Timer, Serial, PPU,
// OAM-DMA) by that same M-cycle, in that fixed order.
package system

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/dmgcore/gbcore/internal/bus"
	"github.com/dmgcore/gbcore/internal/cart"
	"github.com/dmgcore/gbcore/internal/cpu"
)

// Buttons mirrors the eight DMG joypad inputs a UI layer collects from
// the keyboard each frame.
type Buttons struct {
	A, B, Start, Select   bool
	Up, Down, Left, Right bool
}

func (b Buttons) mask() byte {
	var m byte
	if b.Right {
		m |= bus.JoypRight
	}
	if b.Left {
		m |= bus.JoypLeft
	}
	if b.Up {
		m |= bus.JoypUp
	}
	if b.Down {
		m |= bus.JoypDown
	}
	if b.A {
		m |= bus.JoypA
	}
	if b.B {
		m |= bus.JoypB
	}
	if b.Select {
		m |= bus.JoypSelectBtn
	}
	if b.Start {
		m |= bus.JoypStart
	}
	return m
}

// Screen dimensions of the DMG LCD.
const (
	Width  = 160
	Height = 144
)

// cyclesPerLine and linesPerFrame give one full frame as exactly
// 154*114 M-cycles: 144 visible scanlines plus 10 VBlank lines, each
// 114 M-cycles long.
const (
	cyclesPerLine = 114
	linesPerFrame = 154
)

// Machine couples a CPU to a Bus and drives them in lockstep. It owns
// no goroutines: StepFrame and StepCycles are synchronous calls a
// caller's own loop (a CLI's frame pump, ebiten's Update, a test) can
// invoke as often as it likes.
type Machine struct {
	bus *bus.Bus
	cpu *cpu.CPU
}

// New constructs a Machine with no cartridge loaded. Call LoadCartridge
// before stepping.
func New() *Machine {
	m := &Machine{}
	m.bus = bus.New(make([]byte, 0x8000))
	m.cpu = cpu.New(m.bus)
	m.cpu.ResetPostBoot()
	return m
}

// LoadCartridge replaces the Bus's cartridge with one parsed from rom,
// and optionally installs a DMG boot ROM to run from 0x0000 instead of
// the documented post-boot register state.
func (m *Machine) LoadCartridge(rom []byte, boot []byte) error {
	if len(rom) < 0x8000 {
		return fmt.Errorf("rom too small: %d bytes", len(rom))
	}
	c, err := cart.New(rom)
	if err != nil {
		return fmt.Errorf("load cartridge: %w", err)
	}
	m.bus = bus.NewWithCartridge(c)
	m.cpu = cpu.New(m.bus)
	if len(boot) >= 0x100 {
		m.bus.SetBootROM(boot)
		m.cpu.PC = 0x0000
		m.cpu.SP = 0xFFFE
		m.cpu.IME = false
	} else {
		m.cpu.ResetPostBoot()
	}
	return nil
}

// Bus exposes the underlying Bus, for callers (cmd/testrunner, tests)
// that need raw memory/serial/timer access the Machine doesn't wrap.
func (m *Machine) Bus() *bus.Bus { return m.bus }

// CPU exposes the underlying CPU, for trace tooling.
func (m *Machine) CPU() *cpu.CPU { return m.cpu }

// Tick advances the whole machine by exactly one M-cycle: the CPU's
// phase first, then the Bus's owned components (timer, serial, PPU,
// OAM-DMA).
func (m *Machine) Tick() {
	m.cpu.Tick()
	m.bus.TickM()
}

// StepCycles advances the machine by n M-cycles.
func (m *Machine) StepCycles(n int) {
	for i := 0; i < n; i++ {
		m.Tick()
	}
}

// StepFrame advances the machine by exactly one full frame's worth of
// M-cycles (154 lines * 114 M-cycles/line), matching the PPU's own
// line/frame timing so callers never straddle it out of step.
func (m *Machine) StepFrame() {
	m.StepCycles(cyclesPerLine * linesPerFrame)
}

// SetButtons records which joypad buttons are currently pressed.
func (m *Machine) SetButtons(b Buttons) { m.bus.SetJoypadState(b.mask()) }

// Framebuffer decodes the PPU's packed per-pixel bytes (2-bit color
// index, object flag, OBP1-select) into packed 8-bit RGBA using the
// four-shade DMG palette, resolving each pixel through the
// currently-active BGP, OBP0, or OBP1 register the same way real
// hardware would at the moment of display. The result is a fresh
// 160*144*4 byte slice.
func (m *Machine) Framebuffer() []byte {
	p := m.bus.PPU()
	fb := p.Framebuffer()
	out := make([]byte, Width*Height*4)
	bgp, obp0, obp1 := p.BGP(), p.OBP0(), p.OBP1()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			packed := fb[y][x]
			idx := packed & 0x03
			shade := resolveShade(packed, idx, bgp, obp0, obp1)
			r, g, b, a := shadeToRGBA(shade)
			off := (y*Width + x) * 4
			out[off+0] = r
			out[off+1] = g
			out[off+2] = b
			out[off+3] = a
		}
	}
	return out
}

// resolveShade looks the 2-bit color index up in whichever palette the
// pixel's packed flags select: OBP0/OBP1 for sprite pixels (bit2 set,
// bit3 choosing between them), BGP otherwise.
func resolveShade(packed, idx, bgp, obp0, obp1 byte) byte {
	var palette byte
	switch {
	case packed&0x04 == 0:
		palette = bgp
	case packed&0x08 != 0:
		palette = obp1
	default:
		palette = obp0
	}
	return (palette >> (idx * 2)) & 0x03
}

// shadeToRGBA maps a 2-bit DMG shade to an approximate green-tinted
// palette resembling the original monochrome display: 0=white..3=black.
func shadeToRGBA(shade byte) (r, g, b, a byte) {
	switch shade {
	case 0:
		return 0xE0, 0xF8, 0xD0, 0xFF
	case 1:
		return 0x88, 0xC0, 0x70, 0xFF
	case 2:
		return 0x34, 0x68, 0x56, 0xFF
	default:
		return 0x08, 0x18, 0x20, 0xFF
	}
}

// SaveBattery returns the cartridge's persistent RAM, if any.
func (m *Machine) SaveBattery() ([]byte, bool) {
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return nil, false
	}
	return bb.SaveRAM(), true
}

// LoadBattery restores previously-saved cartridge RAM, if the loaded
// cartridge supports it.
func (m *Machine) LoadBattery(data []byte) bool {
	bb, ok := m.bus.Cart().(cart.BatteryBacked)
	if !ok {
		return false
	}
	bb.LoadRAM(data)
	return true
}

// SaveState serializes the whole machine: the CPU's own state blob
// followed by the Bus's (which itself nests cartridge/PPU/timer/serial
// sub-blobs). Only valid at an instruction boundary, per cpu.SaveState.
func (m *Machine) SaveState() []byte {
	var buf bytes.Buffer
	enc := gob.NewEncoder(&buf)
	if err := enc.Encode(m.cpu.SaveState()); err != nil {
		panic(err)
	}
	if err := enc.Encode(m.bus.SaveState()); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// LoadState restores a blob produced by SaveState.
func (m *Machine) LoadState(data []byte) error {
	dec := gob.NewDecoder(bytes.NewReader(data))
	var cpuBlob, busBlob []byte
	if err := dec.Decode(&cpuBlob); err != nil {
		return fmt.Errorf("decode cpu state: %w", err)
	}
	if err := dec.Decode(&busBlob); err != nil {
		return fmt.Errorf("decode bus state: %w", err)
	}
	m.cpu.LoadState(cpuBlob)
	m.bus.LoadState(busBlob)
	return nil
}
