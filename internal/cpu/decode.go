package cpu

// decode dispatches a freshly-fetched primary opcode. One-phase
// instructions execute immediately (the fetch M-cycle IS their only
// phase); multi-phase instructions populate c.queue with the
// remaining M-cycles of work and return — each subsequent Tick() call
// runs one more entry until the queue drains and the next
// beginInstruction call fetches afresh.
func (c *CPU) decode(op byte) {
	c.beginBytes(op)

	// LD r,r' / LD r,(HL) / LD (HL),r / HALT occupy the whole
	// 0x40-0x7F block except for the opcode that would be LD (HL),(HL).
	if op >= 0x40 && op <= 0x7F {
		if op == 0x76 {
			c.halted = true
			c.finishDecode()
			return
		}
		dst := Register((op >> 3) & 7)
		src := Register(op & 7)
		c.decodeLoadRegReg(dst, src)
		return
	}

	// ALU A,r / ALU A,(HL) occupy 0x80-0xBF.
	if op >= 0x80 && op <= 0xBF {
		c.decodeALURegBlock(op)
		return
	}

	switch op {
	case 0x00: // NOP
		c.finishDecode()
	case 0x10: // STOP
		c.stopped = true
		c.queue = []microOp{func(c *CPU) { c.fetch8Traced(); c.finishDecode() }}
	case 0x76: // unreachable (handled above); kept for clarity
		c.halted = true
		c.finishDecode()
	case 0xF3: // DI
		c.IME = false
		c.eiCountdown = 0
		c.finishDecode()
	case 0xFB: // EI
		c.eiCountdown = 2
		c.finishDecode()

	// rotate-A (always clear Z)
	case 0x07: // RLCA
		res, cy := rlc(c.A)
		c.A = res
		c.setFlags(false, false, false, cy)
		c.finishDecode()
	case 0x0F: // RRCA
		res, cy := rrc(c.A)
		c.A = res
		c.setFlags(false, false, false, cy)
		c.finishDecode()
	case 0x17: // RLA
		res, cy := rl(c.A, c.flag(flagC))
		c.A = res
		c.setFlags(false, false, false, cy)
		c.finishDecode()
	case 0x1F: // RRA
		res, cy := rr(c.A, c.flag(flagC))
		c.A = res
		c.setFlags(false, false, false, cy)
		c.finishDecode()

	case 0x27: // DAA
		res, cy := daa(c.A, c.flag(flagN), c.flag(flagH), c.flag(flagC))
		c.A = res
		c.setFlags(res == 0, c.flag(flagN), false, cy)
		c.finishDecode()
	case 0x2F: // CPL
		c.A = ^c.A
		c.F = (c.F & (flagZ | flagC)) | flagN | flagH
		c.finishDecode()
	case 0x37: // SCF
		c.F = (c.F & flagZ) | flagC
		c.finishDecode()
	case 0x3F: // CCF
		cy := !c.flag(flagC)
		c.F = (c.F & flagZ)
		if cy {
			c.F |= flagC
		}
		c.finishDecode()

	case 0xCB:
		c.queue = []microOp{func(c *CPU) {
			cb := c.fetch8Traced()
			c.decodeCB(cb)
		}}

	// 8-bit register<->immediate
	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x3E:
		c.decodeLoadRegImm(Register((op >> 3) & 7))

	// (HL),d8
	case 0x36:
		c.decodeLoadHLImm()

	// A<->(BC)/(DE)
	case 0x02:
		c.decodeStoreAToAddr(c.getBC())
	case 0x12:
		c.decodeStoreAToAddr(c.getDE())
	case 0x0A:
		c.decodeLoadAFromAddr(c.getBC())
	case 0x1A:
		c.decodeLoadAFromAddr(c.getDE())

	// LDI/LDD
	case 0x22:
		c.decodeStoreAToAddr(c.getHL())
		c.appendHLStep(1)
	case 0x2A:
		c.decodeLoadAFromAddr(c.getHL())
		c.appendHLStep(1)
	case 0x32:
		c.decodeStoreAToAddr(c.getHL())
		c.appendHLStep(-1)
	case 0x3A:
		c.decodeLoadAFromAddr(c.getHL())
		c.appendHLStep(-1)

	// LDH
	case 0xE0:
		c.decodeLDHWrite()
	case 0xF0:
		c.decodeLDHRead()
	case 0xE2: // LD (FF00+C),A
		c.queue = []microOp{func(c *CPU) {
			c.write8(0xFF00+uint16(c.C), c.A)
			c.finishDecode()
		}}
	case 0xF2: // LD A,(FF00+C)
		c.queue = []microOp{func(c *CPU) {
			c.A = c.read8(0xFF00 + uint16(c.C))
			c.finishDecode()
		}}

	// 8-bit INC/DEC register
	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x3C:
		c.decodeIncReg(Register((op >> 3) & 7))
	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x3D:
		c.decodeDecReg(Register((op >> 3) & 7))
	case 0x34:
		c.decodeIncHL()
	case 0x35:
		c.decodeDecHL()

	// ALU A,d8
	case 0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE:
		c.decodeALUImm(op)

	// 16-bit loads
	case 0x01:
		c.decodeLoadRRImm(RegBC)
	case 0x11:
		c.decodeLoadRRImm(RegDE)
	case 0x21:
		c.decodeLoadRRImm(RegHL)
	case 0x31:
		c.decodeLoadRRImm(RegSP)
	case 0x08: // LD (a16),SP
		c.decodeLoadAddrSP()
	case 0xF9: // LD SP,HL
		c.queue = []microOp{func(c *CPU) {
			c.SP = c.getHL()
			c.finishDecode()
		}}
	case 0xF8: // LD HL,SP+r8
		c.queue = []microOp{func(c *CPU) {
			c.scratch.lo = c.fetch8Traced()
		}, func(c *CPU) {
			res, h, cy := addSPSigned(c.SP, int8(c.scratch.lo))
			c.setHL(res)
			c.setFlags(false, false, h, cy)
			c.finishDecode()
		}}
	case 0xE8: // ADD SP,r8
		c.queue = []microOp{func(c *CPU) {
			c.scratch.lo = c.fetch8Traced()
		}, func(c *CPU) {
			res, h, cy := addSPSigned(c.SP, int8(c.scratch.lo))
			c.scratch.addr = res
			c.setFlags(false, false, h, cy)
		}, func(c *CPU) {
			c.SP = c.scratch.addr
			c.finishDecode()
		}}

	// A <-> (a16)
	case 0xEA:
		c.decodeStoreAAddr16()
	case 0xFA:
		c.decodeLoadAAddr16()

	// 16-bit INC/DEC
	case 0x03:
		c.decodeIncRR(RegBC)
	case 0x13:
		c.decodeIncRR(RegDE)
	case 0x23:
		c.decodeIncRR(RegHL)
	case 0x33:
		c.decodeIncRR(RegSP)
	case 0x0B:
		c.decodeDecRR(RegBC)
	case 0x1B:
		c.decodeDecRR(RegDE)
	case 0x2B:
		c.decodeDecRR(RegHL)
	case 0x3B:
		c.decodeDecRR(RegSP)

	// ADD HL,rr
	case 0x09:
		c.decodeAddHL(RegBC)
	case 0x19:
		c.decodeAddHL(RegDE)
	case 0x29:
		c.decodeAddHL(RegHL)
	case 0x39:
		c.decodeAddHL(RegSP)

	// control flow
	case 0xC3:
		c.decodeJPImm()
	case 0xE9: // JP HL
		c.PC = c.getHL()
		c.finishDecode()
	case 0x18:
		c.decodeJR()
	case 0x20:
		c.decodeJRCond(CondNZ)
	case 0x28:
		c.decodeJRCond(CondZ)
	case 0x30:
		c.decodeJRCond(CondNC)
	case 0x38:
		c.decodeJRCond(CondC)
	case 0xC2:
		c.decodeJPCond(CondNZ)
	case 0xCA:
		c.decodeJPCond(CondZ)
	case 0xD2:
		c.decodeJPCond(CondNC)
	case 0xDA:
		c.decodeJPCond(CondC)

	case 0xCD:
		c.decodeCall()
	case 0xC4:
		c.decodeCallCond(CondNZ)
	case 0xCC:
		c.decodeCallCond(CondZ)
	case 0xD4:
		c.decodeCallCond(CondNC)
	case 0xDC:
		c.decodeCallCond(CondC)

	case 0xC9:
		c.decodeRet(false)
	case 0xD9:
		c.decodeRet(true)
	case 0xC0:
		c.decodeRetCond(CondNZ)
	case 0xC8:
		c.decodeRetCond(CondZ)
	case 0xD0:
		c.decodeRetCond(CondNC)
	case 0xD8:
		c.decodeRetCond(CondC)

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF:
		c.decodeRST(uint16(op & 0x38))

	// PUSH/POP
	case 0xF5:
		c.decodePush(RegAF)
	case 0xC5:
		c.decodePush(RegBC)
	case 0xD5:
		c.decodePush(RegDE)
	case 0xE5:
		c.decodePush(RegHL)
	case 0xF1:
		c.decodePop(RegAF)
	case 0xC1:
		c.decodePop(RegBC)
	case 0xD1:
		c.decodePop(RegDE)
	case 0xE1:
		c.decodePop(RegHL)

	default:
		c.decodeIllegal(op)
	}
}

// decodeIllegal models the "halt and catch fire" sink real SM83
// silicon falls into on an undefined opcode: a fixpoint that re-emits
// itself every cycle without ever advancing PC, rather than skipping
// past the byte or panicking.
func (c *CPU) decodeIllegal(op byte) {
	c.PC--
	c.finishDecode()
}

func (c *CPU) appendHLStep(delta int) {
	c.setHL(uint16(int32(c.getHL()) + int32(delta)))
}

// --- 8-bit load family ---

func (c *CPU) decodeLoadRegReg(dst, src Register) {
	if src == 6 && dst == 6 {
		c.decodeIllegal(0x76)
		return
	}
	if src == 6 {
		c.queue = []microOp{func(c *CPU) {
			v := c.read8(c.getHL())
			c.SetReg8(dst, v)
			c.finishDecode()
		}}
		return
	}
	if dst == 6 {
		c.queue = []microOp{func(c *CPU) {
			c.write8(c.getHL(), c.Reg8(src))
			c.finishDecode()
		}}
		return
	}
	c.SetReg8(dst, c.Reg8(src))
	c.finishDecode()
}

func (c *CPU) decodeLoadRegImm(dst Register) {
	c.queue = []microOp{func(c *CPU) {
		v := c.fetch8Traced()
		c.SetReg8(dst, v)
		c.finishDecode()
	}}
}

func (c *CPU) decodeLoadHLImm() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.val = c.fetch8Traced()
	}, func(c *CPU) {
		c.write8(c.getHL(), c.scratch.val)
		c.finishDecode()
	}}
}

func (c *CPU) decodeStoreAToAddr(addr uint16) {
	c.queue = []microOp{func(c *CPU) {
		c.write8(addr, c.A)
		c.finishDecode()
	}}
}

func (c *CPU) decodeLoadAFromAddr(addr uint16) {
	c.queue = []microOp{func(c *CPU) {
		c.A = c.read8(addr)
		c.finishDecode()
	}}
}

func (c *CPU) decodeLDHWrite() { // LD (FF00+n),A
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.write8(0xFF00+uint16(c.scratch.lo), c.A)
		c.finishDecode()
	}}
}

func (c *CPU) decodeLDHRead() { // LD A,(FF00+n)
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.A = c.read8(0xFF00 + uint16(c.scratch.lo))
		c.finishDecode()
	}}
}

func (c *CPU) decodeStoreAAddr16() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
	}, func(c *CPU) {
		c.write8(uint16(c.scratch.hi)<<8|uint16(c.scratch.lo), c.A)
		c.finishDecode()
	}}
}

func (c *CPU) decodeLoadAAddr16() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
	}, func(c *CPU) {
		c.A = c.read8(uint16(c.scratch.hi)<<8 | uint16(c.scratch.lo))
		c.finishDecode()
	}}
}

// --- 8-bit arithmetic/logic ---

func (c *CPU) aluApply(opGroup byte, operand byte) {
	switch opGroup {
	case 0: // ADD
		res, h, cy := add8(c.A, operand)
		c.A = res
		c.setFlags(res == 0, false, h, cy)
	case 1: // ADC
		res, h, cy := adc8(c.A, operand, c.flag(flagC))
		c.A = res
		c.setFlags(res == 0, false, h, cy)
	case 2: // SUB
		res, h, cy := sub8(c.A, operand)
		c.A = res
		c.setFlags(res == 0, true, h, cy)
	case 3: // SBC
		res, h, cy := sbc8(c.A, operand, c.flag(flagC))
		c.A = res
		c.setFlags(res == 0, true, h, cy)
	case 4: // AND
		res := and8(c.A, operand)
		c.A = res
		c.setFlags(res == 0, false, true, false)
	case 5: // XOR
		res := xor8(c.A, operand)
		c.A = res
		c.setFlags(res == 0, false, false, false)
	case 6: // OR
		res := or8(c.A, operand)
		c.A = res
		c.setFlags(res == 0, false, false, false)
	case 7: // CP
		res, h, cy := sub8(c.A, operand)
		c.setFlags(res == 0, true, h, cy)
	}
}

func (c *CPU) decodeALURegBlock(op byte) {
	group := (op >> 3) & 7
	src := Register(op & 7)
	if src == 6 {
		c.queue = []microOp{func(c *CPU) {
			v := c.read8(c.getHL())
			c.aluApply(group, v)
			c.finishDecode()
		}}
		return
	}
	c.aluApply(group, c.Reg8(src))
	c.finishDecode()
}

func (c *CPU) decodeALUImm(op byte) {
	group := (op >> 3) & 7
	c.queue = []microOp{func(c *CPU) {
		v := c.fetch8Traced()
		c.aluApply(group, v)
		c.finishDecode()
	}}
}

func (c *CPU) decodeIncReg(r Register) {
	old := c.Reg8(r)
	res, h := inc8(old)
	c.SetReg8(r, res)
	c.setFlags(res == 0, false, h, c.flag(flagC))
	c.finishDecode()
}

func (c *CPU) decodeDecReg(r Register) {
	old := c.Reg8(r)
	res, h := dec8(old)
	c.SetReg8(r, res)
	c.setFlags(res == 0, true, h, c.flag(flagC))
	c.finishDecode()
}

func (c *CPU) decodeIncHL() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.val = c.read8(c.getHL())
	}, func(c *CPU) {
		res, h := inc8(c.scratch.val)
		c.write8(c.getHL(), res)
		c.setFlags(res == 0, false, h, c.flag(flagC))
		c.finishDecode()
	}}
}

func (c *CPU) decodeDecHL() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.val = c.read8(c.getHL())
	}, func(c *CPU) {
		res, h := dec8(c.scratch.val)
		c.write8(c.getHL(), res)
		c.setFlags(res == 0, true, h, c.flag(flagC))
		c.finishDecode()
	}}
}

// --- 16-bit loads / arithmetic ---

func (c *CPU) decodeLoadRRImm(r DoubleRegister) {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
	}, func(c *CPU) {
		c.SetReg16(r, uint16(c.scratch.hi)<<8|uint16(c.scratch.lo))
		c.finishDecode()
	}}
}

func (c *CPU) decodeLoadAddrSP() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.addr = uint16(c.scratch.hi)<<8 | uint16(c.scratch.lo)
		c.write8(c.scratch.addr, byte(c.SP))
	}, func(c *CPU) {
		c.write8(c.scratch.addr+1, byte(c.SP>>8))
		c.finishDecode()
	}}
}

func (c *CPU) decodeIncRR(r DoubleRegister) {
	c.queue = []microOp{func(c *CPU) {
		c.SetReg16(r, c.Reg16(r)+1)
		c.finishDecode()
	}}
}

func (c *CPU) decodeDecRR(r DoubleRegister) {
	c.queue = []microOp{func(c *CPU) {
		c.SetReg16(r, c.Reg16(r)-1)
		c.finishDecode()
	}}
}

func (c *CPU) decodeAddHL(r DoubleRegister) {
	c.queue = []microOp{func(c *CPU) {
		res, h, cy := add16(c.getHL(), c.Reg16(r))
		c.setHL(res)
		c.setFlags(c.flag(flagZ), false, h, cy)
		c.finishDecode()
	}}
}

// --- control flow ---

func (c *CPU) decodeJPImm() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
	}, func(c *CPU) {
		c.PC = uint16(c.scratch.hi)<<8 | uint16(c.scratch.lo)
		c.finishDecode()
	}}
}

func (c *CPU) decodeJPCond(cc Condition) {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
		if !c.checkCondition(cc) {
			c.finishDecode()
			return
		}
		c.queue = append(c.queue, func(c *CPU) {
			c.PC = uint16(c.scratch.hi)<<8 | uint16(c.scratch.lo)
			c.finishDecode()
		})
	}}
}

func (c *CPU) decodeJR() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.PC = uint16(int32(c.PC) + int32(int8(c.scratch.lo)))
		c.finishDecode()
	}}
}

func (c *CPU) decodeJRCond(cc Condition) {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
		if !c.checkCondition(cc) {
			c.finishDecode()
			return
		}
		c.queue = append(c.queue, func(c *CPU) {
			c.PC = uint16(int32(c.PC) + int32(int8(c.scratch.lo)))
			c.finishDecode()
		})
	}}
}

func (c *CPU) decodeCall() {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
	}, func(c *CPU) {
		c.SP--
	}, func(c *CPU) {
		c.SP--
		c.write8(c.SP, byte(c.PC))
		c.write8(c.SP+1, byte(c.PC>>8))
	}, func(c *CPU) {
		c.PC = uint16(c.scratch.hi)<<8 | uint16(c.scratch.lo)
		c.finishDecode()
	}}
}

func (c *CPU) decodeCallCond(cc Condition) {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.fetch8Traced()
	}, func(c *CPU) {
		c.scratch.hi = c.fetch8Traced()
		if !c.checkCondition(cc) {
			c.finishDecode()
			return
		}
		c.queue = append(c.queue, func(c *CPU) {
			c.SP--
		}, func(c *CPU) {
			c.SP--
			c.write8(c.SP, byte(c.PC))
			c.write8(c.SP+1, byte(c.PC>>8))
		}, func(c *CPU) {
			c.PC = uint16(c.scratch.hi)<<8 | uint16(c.scratch.lo)
			c.finishDecode()
		})
	}}
}

func (c *CPU) popPC() uint16 {
	lo := c.read8(c.SP)
	hi := c.read8(c.SP + 1)
	c.SP += 2
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) decodeRet(enableIME bool) {
	c.queue = []microOp{func(c *CPU) {
	}, func(c *CPU) {
		c.scratch.addr = c.popPC()
	}, func(c *CPU) {
		c.PC = c.scratch.addr
		if enableIME {
			c.IME = true
		}
		c.finishDecode()
	}}
}

func (c *CPU) decodeRetCond(cc Condition) {
	c.queue = []microOp{func(c *CPU) {
		if !c.checkCondition(cc) {
			c.finishDecode()
			return
		}
		c.queue = append(c.queue, func(c *CPU) {
			// internal delay: the condition check itself costs the
			// branch an extra M-cycle over the unconditional RET's
			// fetch+pop+jump, matching decodeRet's own filler phase.
		}, func(c *CPU) {
			c.scratch.addr = c.popPC()
		}, func(c *CPU) {
			c.PC = c.scratch.addr
			c.finishDecode()
		})
	}}
}

func (c *CPU) decodeRST(target uint16) {
	c.queue = []microOp{func(c *CPU) {
		c.SP--
	}, func(c *CPU) {
		c.SP--
		c.write8(c.SP, byte(c.PC))
		c.write8(c.SP+1, byte(c.PC>>8))
	}, func(c *CPU) {
		c.PC = target
		c.finishDecode()
	}}
}

func (c *CPU) decodePush(r DoubleRegister) {
	c.queue = []microOp{func(c *CPU) {
		c.SP--
	}, func(c *CPU) {
		v := c.Reg16(r)
		c.SP--
		c.write8(c.SP, byte(v))
		c.write8(c.SP+1, byte(v>>8))
	}, func(c *CPU) {
		c.finishDecode()
	}}
}

func (c *CPU) decodePop(r DoubleRegister) {
	c.queue = []microOp{func(c *CPU) {
		c.scratch.lo = c.read8(c.SP)
	}, func(c *CPU) {
		c.scratch.hi = c.read8(c.SP + 1)
		c.SP += 2
		c.SetReg16(r, uint16(c.scratch.hi)<<8|uint16(c.scratch.lo))
		c.finishDecode()
	}}
}
