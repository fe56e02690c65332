// Package serial models the SB/SC shift register: on an
// internally-clocked transfer, one bit is exchanged with an external
// Connection every 128 M-cycles, so a full byte takes 8*128 M-cycles
// to shift out, rather than completing the instant SC's start bit is
// written.
package serial

import (
	"bytes"
	"encoding/gob"
)

const bitPeriod = 128 // M-cycles per exchanged bit (8192 Hz)

// Connection is the abstract collaborator on the far end of the
// cable. ExchangeBit sends the outgoing bit and returns the incoming
// one.
type Connection interface {
	ExchangeBit(out bool) bool
}

// nullConnection is the default when nothing is plugged into the
// cable: it always returns 1, the idle-high line level an
// unconnected link input would float to.
type nullConnection struct{}

func (nullConnection) ExchangeBit(bool) bool { return true }

// Port models SB (0xFF01) and SC (0xFF02).
type Port struct {
	sb byte
	sc byte

	conn     Connection
	cycle    int // M-cycles elapsed within the current bit
	bitsLeft int

	req func() // raises the Serial IF bit
}

func New(conn Connection, req func()) *Port {
	if conn == nil {
		conn = nullConnection{}
	}
	return &Port{conn: conn, req: req}
}

func (p *Port) SB() byte { return p.sb }

// SC reads back with the unused bits 1-6 pinned high.
func (p *Port) SC() byte { return 0x7E | (p.sc & 0x81) }

func (p *Port) WriteSB(v byte) { p.sb = v }

func (p *Port) WriteSC(v byte) {
	p.sc = v & 0x81
	if p.sc&0x80 == 0 {
		p.bitsLeft = 0
		return
	}
	if p.sc&0x01 != 0 { // internal clock: this is the only source this core drives
		p.cycle = 0
		p.bitsLeft = 8
	} else {
		p.bitsLeft = 0 // external clock: no pulses arrive without a driven Connection
	}
}

// SetConnection swaps the collaborator on the far end of the cable.
func (p *Port) SetConnection(conn Connection) {
	if conn == nil {
		conn = nullConnection{}
	}
	p.conn = conn
}

// TickM advances the shift register by one M-cycle.
func (p *Port) TickM() {
	if p.sc&0x80 == 0 || p.bitsLeft == 0 {
		return
	}
	p.cycle++
	if p.cycle < bitPeriod {
		return
	}
	p.cycle = 0
	out := p.sb&0x80 != 0
	in := p.conn.ExchangeBit(out)
	p.sb <<= 1
	if in {
		p.sb |= 1
	}
	p.bitsLeft--
	if p.bitsLeft == 0 {
		p.sc &^= 0x80
		if p.req != nil {
			p.req()
		}
	}
}

type serialState struct {
	SB, SC           byte
	Cycle, BitsLeft  int
}

func (p *Port) SaveState() []byte {
	var buf bytes.Buffer
	_ = gob.NewEncoder(&buf).Encode(serialState{p.sb, p.sc, p.cycle, p.bitsLeft})
	return buf.Bytes()
}

func (p *Port) LoadState(data []byte) {
	var s serialState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	p.sb, p.sc, p.cycle, p.bitsLeft = s.SB, s.SC, s.Cycle, s.BitsLeft
}
