package cpu

import (
	"bytes"
	"encoding/gob"
)

// cpuState is the gob-serializable register file. Save states are
// only supported at an instruction boundary (empty microOp queue);
// resuming mid-instruction would need to also capture and restore
// wherever the in-flight microOp queue was, which isn't modeled.
type cpuState struct {
	A, F byte
	B, C byte
	D, E byte
	H, L byte

	SP, PC uint16
	IME    bool

	Halted, Stopped bool
	EICountdown     int
}

// SaveState serializes the register file. Callers should only invoke
// this between Tick calls where IsHalted/IsStopped reflect a settled
// state, i.e. never from inside a microOp.
func (c *CPU) SaveState() []byte {
	s := cpuState{
		A: c.A, F: c.F,
		B: c.B, C: c.C,
		D: c.D, E: c.E,
		H: c.H, L: c.L,
		SP: c.SP, PC: c.PC,
		IME:         c.IME,
		Halted:      c.halted,
		Stopped:     c.stopped,
		EICountdown: c.eiCountdown,
	}
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(s); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// LoadState restores a blob produced by SaveState. Any in-flight
// microOp queue is discarded; the next Tick begins a fresh
// beginInstruction, matching the instruction-boundary restriction
// save states are documented to require.
func (c *CPU) LoadState(data []byte) {
	var s cpuState
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&s); err != nil {
		return
	}
	c.A, c.F = s.A, s.F
	c.B, c.C = s.B, s.C
	c.D, c.E = s.D, s.E
	c.H, c.L = s.H, s.L
	c.SP, c.PC = s.SP, s.PC
	c.IME = s.IME
	c.halted = s.Halted
	c.stopped = s.Stopped
	c.eiCountdown = s.EICountdown
	c.queue = nil
}
