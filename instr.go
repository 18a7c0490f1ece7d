package main

// Named x86-64 register encodings used by the instruction encoder.
// Only the subset the front end actually drives is named; the encoder
// never needs the full architectural register file.
const (
	regRAX byte = 0
	regRCX byte = 1
	regRDX byte = 2
	regRBX byte = 3
	regRSP byte = 4
	regRBP byte = 5
	regRSI byte = 6
	regRDI byte = 7
	regR8  byte = 8
	regR9  byte = 9
)

// argRegisters is the System V integer argument order: rdi, rsi, rdx,
// rcx, r8, r9.
var argRegisters = [6]byte{regRDI, regRSI, regRDX, regRCX, regR8, regR9}

// Condition codes for setcc/jcc, indexed by the six ordering
// predicates the front end supports.
const (
	ccLess         byte = 0xC // L
	ccLessEqual    byte = 0xE // LE
	ccGreater      byte = 0xF // G
	ccGreaterEqual byte = 0xD // GE
	ccEqual        byte = 0x4 // E
	ccNotEqual     byte = 0x5 // NE
)

// encoder wraps a codeBuffer with named emitters, one per x86-64
// instruction the front end uses. Every emitter writes exactly the
// bytes of the named instruction at the current cursor and touches no
// other state, matching the contract described for the instruction
// layer.
type encoder struct {
	out *codeBuffer
}

func newEncoder(out *codeBuffer) *encoder {
	return &encoder{out: out}
}

func rex(w, r, x, b bool) byte {
	var v byte = 0x40
	if w {
		v |= 0x08
	}
	if r {
		v |= 0x04
	}
	if x {
		v |= 0x02
	}
	if b {
		v |= 0x01
	}
	return v
}

func modRM(mod, reg, rm byte) byte {
	return (mod&0x3)<<6 | (reg&0x7)<<3 | (rm & 0x7)
}

func ext(reg byte) bool { return reg >= 8 }

// --- stack ops ---

func (e *encoder) pushReg(reg byte) {
	if ext(reg) {
		e.out.emitByte(rex(false, false, false, true))
	}
	e.out.emitByte(0x50 + (reg & 0x7))
}

func (e *encoder) popReg(reg byte) {
	if ext(reg) {
		e.out.emitByte(rex(false, false, false, true))
	}
	e.out.emitByte(0x58 + (reg & 0x7))
}

// --- data movement ---

// movImmediate loads a 64-bit immediate into reg: one of the argument
// registers when called for syscall/function-call argument setup.
func (e *encoder) movImmediate(reg byte, imm uint64) {
	e.out.emitByte(rex(true, false, false, ext(reg)))
	e.out.emitByte(0xB8 + (reg & 0x7))
	e.out.emitU64(imm)
}

// movRegReg emits `dst = src`.
func (e *encoder) movRegReg(dst, src byte) {
	e.out.emitByte(rex(true, ext(src), false, ext(dst)))
	e.out.emitByte(0x89)
	e.out.emitByte(modRM(3, src, dst))
	e.out.trace(" ; mov %s, %s\n", regName(dst), regName(src))
}

// --- arithmetic: dst op= src, both 64-bit GPRs ---

func (e *encoder) addRegReg(dst, src byte) {
	e.out.emitByte(rex(true, ext(src), false, ext(dst)))
	e.out.emitByte(0x01)
	e.out.emitByte(modRM(3, src, dst))
}

func (e *encoder) subRegReg(dst, src byte) {
	e.out.emitByte(rex(true, ext(src), false, ext(dst)))
	e.out.emitByte(0x29)
	e.out.emitByte(modRM(3, src, dst))
}

func (e *encoder) imulRegReg(dst, src byte) {
	e.out.emitByte(rex(true, ext(dst), false, ext(src)))
	e.out.emitByte(0x0F)
	e.out.emitByte(0xAF)
	e.out.emitByte(modRM(3, dst, src))
}

// cqo sign-extends rax into rdx:rax, required before idiv.
func (e *encoder) cqo() {
	e.out.emitByte(rex(true, false, false, false))
	e.out.emitByte(0x99)
}

// idivReg divides rdx:rax by reg, leaving the quotient in rax and the
// remainder in rdx.
func (e *encoder) idivReg(reg byte) {
	e.out.emitByte(rex(true, false, false, ext(reg)))
	e.out.emitByte(0xF7)
	e.out.emitByte(modRM(3, 7, reg))
}

// --- comparisons ---

func (e *encoder) cmpRegReg(lhs, rhs byte) {
	e.out.emitByte(rex(true, ext(rhs), false, ext(lhs)))
	e.out.emitByte(0x39)
	e.out.emitByte(modRM(3, rhs, lhs))
	e.out.trace(" ; cmp %s, %s\n", regName(lhs), regName(rhs))
}

// setccZeroExtend writes `reg = (flags satisfy cc) ? 1 : 0` using a
// byte setcc into the register's low byte followed by a zero-extending
// move into the full 64-bit register.
func (e *encoder) setccZeroExtend(cc byte, reg byte) {
	e.out.emitByte(rex(false, false, false, ext(reg)))
	e.out.emitByte(0x0F)
	e.out.emitByte(0x90 + cc)
	e.out.emitByte(modRM(3, 0, reg))
	e.out.emitByte(rex(true, ext(reg), false, ext(reg)))
	e.out.emitByte(0x0F)
	e.out.emitByte(0xB6)
	e.out.emitByte(modRM(3, reg, reg))
}

// --- control flow ---

func (e *encoder) testRegReg(reg byte) {
	e.out.emitByte(rex(true, ext(reg), false, ext(reg)))
	e.out.emitByte(0x85)
	e.out.emitByte(modRM(3, reg, reg))
}

// jzRel32 emits a near jump-if-zero with a placeholder 32-bit
// displacement and returns the offset of the four zero bytes, for the
// caller to register as a pending fixup.
func (e *encoder) jzRel32() int {
	e.out.emitByte(0x0F)
	e.out.emitByte(0x80 + ccEqual)
	return e.out.reserve(4)
}

// jmpRel32 emits an unconditional near jump with a placeholder
// displacement, returning the fixup offset.
func (e *encoder) jmpRel32() int {
	e.out.emitByte(0xE9)
	return e.out.reserve(4)
}

// callRel32 emits a direct near call with a placeholder displacement,
// returning the fixup offset.
func (e *encoder) callRel32() int {
	e.out.emitByte(0xE8)
	return e.out.reserve(4)
}

func (e *encoder) syscall() {
	e.out.emitByte(0x0F)
	e.out.emitByte(0x05)
}

func (e *encoder) ret() {
	e.out.emitByte(0xC3)
}

// --- frame management ---

// subRsp emits `sub rsp, imm32`.
func (e *encoder) subRsp(imm int32) {
	e.out.emitByte(rex(true, false, false, false))
	e.out.emitByte(0x81)
	e.out.emitByte(modRM(3, 5, regRSP))
	e.out.emitI32(imm)
}

// addRsp emits `add rsp, imm32`.
func (e *encoder) addRsp(imm int32) {
	e.out.emitByte(rex(true, false, false, false))
	e.out.emitByte(0x81)
	e.out.emitByte(modRM(3, 0, regRSP))
	e.out.emitI32(imm)
}

// prologue emits `push rbp; mov rbp, rsp; sub rsp, scratch`.
func (e *encoder) prologue(scratch int32) {
	e.pushReg(regRBP)
	e.movRegReg(regRBP, regRSP)
	if scratch != 0 {
		e.subRsp(scratch)
	}
}

// epilogue emits `add rsp, scratch; pop rbp; ret`.
func (e *encoder) epilogue(scratch int32) {
	if scratch != 0 {
		e.addRsp(scratch)
	}
	e.popReg(regRBP)
	e.ret()
}

// --- frame-relative load/store for locals and parameters ---

// loadFrame emits `mov dst, [rbp+offset]`.
func (e *encoder) loadFrame(dst byte, offset int32) {
	e.out.emitByte(rex(true, ext(dst), false, false))
	e.out.emitByte(0x8B)
	e.out.emitByte(modRM(2, dst, regRBP))
	e.out.emitI32(offset)
}

// storeFrame emits `mov [rbp+offset], src`.
func (e *encoder) storeFrame(offset int32, src byte) {
	e.out.emitByte(rex(true, ext(src), false, false))
	e.out.emitByte(0x89)
	e.out.emitByte(modRM(2, src, regRBP))
	e.out.emitI32(offset)
}

// leaRipRel emits `lea reg, [rip+disp32]` with a placeholder
// displacement and returns its fixup offset. Used to materialise the
// address of an inline string span.
func (e *encoder) leaRipRel(reg byte) int {
	e.out.emitByte(rex(true, ext(reg), false, false))
	e.out.emitByte(0x8D)
	e.out.emitByte(modRM(0, reg, 5)) // mod=00, rm=101: RIP-relative
	return e.out.reserve(4)
}

// loadByteZX emits `movzx dst, byte [addrReg]`, zero-extending a
// single loaded byte into the full 64-bit destination register.
func (e *encoder) loadByteZX(dst, addrReg byte) {
	e.out.emitByte(rex(true, ext(dst), false, ext(addrReg)))
	e.out.emitByte(0x0F)
	e.out.emitByte(0xB6)
	e.out.emitByte(modRM(0, dst, addrReg))
	if (addrReg & 0x7) == regRSP {
		e.out.emitByte(0x24)
	}
}

// keepSpin emits `pause; jmp -2`, a two-instruction self-loop used by
// the `keep` statement to hold the process resident.
func (e *encoder) keepSpin() {
	e.out.emitByte(0xF3)
	e.out.emitByte(0x90)
	e.out.emitByte(0xEB)
	e.out.emitByte(0xFE) // -2 as a signed rel8: jumps back to `pause`
}

// --- absolute-address load/store for globals ---

// loadAbsolute loads the 64-bit value at the fixed address addr into
// reg, using reg itself to hold the address while it materialises:
// mov reg, imm64(addr); mov reg, [reg].
func (e *encoder) loadAbsolute(reg byte, addr uint64) {
	e.movImmediate(reg, addr)
	e.out.emitByte(rex(true, ext(reg), false, ext(reg)))
	e.out.emitByte(0x8B)
	e.out.emitByte(modRM(0, reg, reg))
	if (reg & 0x7) == regRSP || (reg&0x7) == regRBP {
		e.out.emitByte(0x24) // SIB: rsp/r12 require a SIB byte for [reg]
	}
}

// storeAbsolute stores valueReg to the fixed address addr, using
// scratchReg to hold the address. valueReg is preserved across the
// address materialisation by spilling it to the stack first, per the
// documented encoding convention for global stores.
func (e *encoder) storeAbsolute(addr uint64, valueReg, scratchReg byte) {
	e.pushReg(valueReg)
	e.movImmediate(scratchReg, addr)
	e.popReg(valueReg)
	e.out.emitByte(rex(true, ext(valueReg), false, ext(scratchReg)))
	e.out.emitByte(0x89)
	e.out.emitByte(modRM(0, valueReg, scratchReg))
	if (scratchReg & 0x7) == regRSP || (scratchReg&0x7) == regRBP {
		e.out.emitByte(0x24)
	}
}

// --- single-byte load/store used by peek/poke/putchar/getchar ---

func (e *encoder) loadByte(dst, addrReg byte) {
	e.out.emitByte(rex(false, ext(dst), false, ext(addrReg)))
	e.out.emitByte(0x8A)
	e.out.emitByte(modRM(0, dst, addrReg))
	if (addrReg & 0x7) == regRSP {
		e.out.emitByte(0x24)
	}
}

func (e *encoder) storeByte(addrReg, src byte) {
	e.out.emitByte(rex(false, ext(src), false, ext(addrReg)))
	e.out.emitByte(0x88)
	e.out.emitByte(modRM(0, src, addrReg))
	if (addrReg & 0x7) == regRSP {
		e.out.emitByte(0x24)
	}
}
