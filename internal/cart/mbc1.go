package cart

import (
	"bytes"
	"encoding/gob"
)

// MBC1 banks ROM in 16 KiB windows and RAM in 8 KiB windows, selected
// by up to four control writes into 0x0000-0x7FFF. It covers the
// common case — up to 2 MiB ROM, 32 KiB RAM — and leaves battery/RTC
// handling to whoever owns persistence (MBC3 is the one with a real
// clock; this cartridge has none).
type MBC1 struct {
	rom []byte
	ram []byte

	bankLow  byte // lower 5 bits of the ROM bank select; 0 remaps to 1
	bankHigh byte // 2 extra bits: RAM bank select in mode 1, high ROM bits otherwise
	ramOn    bool
	mode     byte // 0: ROM banking mode (default); 1: RAM banking mode
}

func NewMBC1(rom []byte, ramSize int) *MBC1 {
	m := &MBC1{rom: rom, bankLow: 1}
	if ramSize > 0 {
		m.ram = make([]byte, ramSize)
	}
	return m
}

// romBank returns the 16 KiB bank mapped into whichever ROM window
// addr falls in. The upper two select bits always feed the
// 0x4000-0x7FFF window; they only affect the fixed 0x0000-0x3FFF
// window while in RAM-banking mode.
func (m *MBC1) romBank(addr uint16) int {
	if addr < 0x4000 {
		if m.mode == 0 {
			return 0
		}
		return int(m.bankHigh&0x03) << 5
	}
	return int(m.bankLow) | int(m.bankHigh&0x03)<<5
}

func (m *MBC1) ramBank() int {
	if m.mode == 1 {
		return int(m.bankHigh & 0x03)
	}
	return 0
}

func (m *MBC1) Read(addr uint16) byte {
	switch {
	case addr < 0x8000:
		winOff := addr
		if addr >= 0x4000 {
			winOff = addr - 0x4000
		}
		off := m.romBank(addr)*0x4000 + int(winOff)
		if off < len(m.rom) {
			return m.rom[off]
		}
		return 0xFF
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramOn || len(m.ram) == 0 {
			return 0xFF
		}
		off := m.ramBank()*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			return m.ram[off]
		}
		return 0xFF
	default:
		return 0xFF
	}
}

func (m *MBC1) Write(addr uint16, value byte) {
	switch {
	case addr < 0x2000:
		m.ramOn = value&0x0F == 0x0A
	case addr < 0x4000:
		m.bankLow = value & 0x1F
		if m.bankLow == 0 {
			m.bankLow = 1
		}
	case addr < 0x6000:
		m.bankHigh = value & 0x03
	case addr < 0x8000:
		m.mode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramOn || len(m.ram) == 0 {
			return
		}
		off := m.ramBank()*0x2000 + int(addr-0xA000)
		if off < len(m.ram) {
			m.ram[off] = value
		}
	}
}

// mbc1State is the serialized form of the banking registers and
// external RAM contents.
type mbc1State struct {
	RAM               []byte
	BankLow, BankHigh byte
	RAMOn             bool
	Mode              byte
}

func (m *MBC1) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(mbc1State{
		RAM:      append([]byte(nil), m.ram...),
		BankLow:  m.bankLow,
		BankHigh: m.bankHigh,
		RAMOn:    m.ramOn,
		Mode:     m.mode,
	})
	return buf.Bytes()
}

func (m *MBC1) LoadState(data []byte) {
	var s mbc1State
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	if len(m.ram) == len(s.RAM) {
		copy(m.ram, s.RAM)
	}
	m.bankLow = s.BankLow
	m.bankHigh = s.BankHigh
	m.ramOn = s.RAMOn
	m.mode = s.Mode
}

// SaveRAM/LoadRAM implement BatteryBacked for MBC1+RAM+BATTERY
// cartridges with persistent external RAM.
func (m *MBC1) SaveRAM() []byte {
	if len(m.ram) == 0 {
		return nil
	}
	out := make([]byte, len(m.ram))
	copy(out, m.ram)
	return out
}

func (m *MBC1) LoadRAM(data []byte) {
	if len(m.ram) == 0 || len(data) == 0 {
		return
	}
	copy(m.ram, data)
}
