package main

import (
	"fmt"
	"strings"
)

// compiler holds every piece of state the statement/expression driver
// touches: the source being scanned, the code buffer and encoder it
// emits into, the symbol and label tables, the active loop stack, and
// the Unified Field / Fate / Tile metadata carried purely for the
// closing report.
type compiler struct {
	source []byte
	pos    int

	code *codeBuffer
	data *codeBuffer // reserved per the documented resource bound; the
	// only data-emitting statements (out/emit) inline their bytes
	// directly into the code buffer via a jump-over, so nothing
	// currently appends here.
	enc *encoder

	syms   *symbolTable
	labels *labelTable

	loopStack      []loopFrame
	currentScratch int32 // 512 at top level, 256 inside a function body

	field    unifiedField
	fate     *fateScheduler
	tiles    *tileManager
	platform platformInfo

	stringCounter int
	verbose       bool
}

func newCompiler(source []byte, verbose bool) *compiler {
	code := newCodeBuffer(codeBufferCapacity, "text")
	data := newCodeBuffer(dataBufferCapacity, "data")
	code.verbose = verbose
	data.verbose = verbose
	return &compiler{
		source: source,
		code:   code,
		data:   data,
		enc:    newEncoder(code),
		syms:   newSymbolTable(),
		labels: newLabelTable(),
		fate:   newFateScheduler(),
		tiles:  newTileManager(),
	}
}

// genericBlockKeywords lists the named block declarations that are
// syntax-only: the leading keyword is recognised so its brace body can
// be skipped whole, but nothing inside is compiled. `fate` and
// `platform` carry their own dedicated handling (fate on/off, limit,
// platform.probe) and so are not listed here even though a bare
// `fate { ... }` or `platform { ... }` block also falls through to a
// skip.
var genericBlockKeywords = map[string]bool{
	"pool": true, "task": true, "gpu": true, "perf": true, "reg": true,
	"sys": true, "compiler": true, "collapse": true, "lib": true,
	"env": true, "rule": true, "intent": true, "tile": true,
	"codegen": true, "graphics": true, "gui": true, "style": true,
	"layout": true, "event": true, "db": true, "core": true,
	"kernel": true, "linux": true, "macos": true, "windows": true,
	"driver": true, "observe": true, "field": true, "use": true,
}

var syscallNumbers = map[string]uint64{
	"exit": 60, "write": 1, "read": 0, "open": 2, "close": 3, "mmap": 9,
}

// compileProgram drives the whole compilation in the fixed emission
// order: a first pass registers every `fn` declaration and its body
// span without emitting anything, then the top-level statements are
// compiled in source order (re-registering each `fn` as it is
// encountered), a safety exit(0) is appended, each registered function
// body is compiled in turn, and finally every pending fixup is
// resolved against the now-complete label table.
func (c *compiler) compileProgram() {
	c.firstPassScan()
	c.syms.resetFunctionCursor()

	c.pos = 0
	c.currentScratch = topLevelScratch
	c.enc.prologue(topLevelScratch)
	for {
		c.skipSpaceAndComments()
		if c.atEnd() {
			break
		}
		c.compileStatement()
	}
	c.enc.movImmediate(regRDI, 0)
	c.enc.movImmediate(regRAX, syscallNumbers["exit"])
	c.enc.syscall()

	for i := range c.syms.funcs {
		f := c.syms.funcs[i]
		if !f.hasBody {
			continue
		}
		c.labels.define(f.name, c.code.len())

		saved := c.syms.enterFunction()
		for pi, pname := range f.params {
			c.syms.declareParameter(pname, pi, len(f.params))
		}
		c.currentScratch = funcScratch
		c.enc.prologue(funcScratch)

		savedPos := c.pos
		c.pos = f.bodyStart
		for c.pos < f.bodyEnd {
			c.skipSpaceAndComments()
			if c.pos >= f.bodyEnd {
				break
			}
			c.compileStatement()
		}
		c.pos = savedPos

		c.enc.epilogue(funcScratch)
		c.syms.exitFunction(saved)
	}

	c.labels.resolve(c.code)
}

// firstPassScan walks the whole source once, recording every `fn`
// declaration's name, parameters, and body span. Everything else is
// skipped a byte at a time, with string literals consumed whole so a
// brace or the text "fn" inside one is never mistaken for code.
func (c *compiler) firstPassScan() {
	saved := c.pos
	c.pos = 0
	for !c.atEnd() {
		c.skipSpaceAndComments()
		if c.atEnd() {
			break
		}
		if c.matchKeyword("fn") {
			c.compileFnDeclaration()
			continue
		}
		if c.peek() == '"' {
			c.readStringLiteral()
			continue
		}
		c.pos++
	}
	c.pos = saved
}

// compileFnDeclaration parses `name param... { ... }`, records the
// function (name, parameters, body span), and emits nothing: the body
// is compiled later, once, when the function itself is emitted.
func (c *compiler) compileFnDeclaration() {
	name := c.readIdentifier()
	if name == "" {
		return
	}
	var params []string
	c.skipSpaceAndComments()
	for !c.atEnd() && c.peek() != '{' {
		p := c.readIdentifier()
		if p == "" {
			break
		}
		params = append(params, p)
		c.skipSpaceAndComments()
	}
	c.skipSpaceAndComments()
	if c.atEnd() || c.peek() != '{' {
		return
	}
	blockStart := c.pos
	c.skipBalancedBlock()
	c.syms.declareFunction(function{
		name:      name,
		params:    params,
		bodyStart: blockStart + 1,
		bodyEnd:   c.pos - 1,
		hasBody:   true,
	})
}

// compileStatement dispatches on the leading keyword of a single
// statement, per the statement table in §4.5.
func (c *compiler) compileStatement() {
	c.skipSpaceAndComments()
	if c.atEnd() {
		return
	}
	switch {
	case c.matchKeyword("out"):
		c.compileOut(false)
	case c.matchKeyword("emit"):
		c.compileOut(true)
	case c.matchKeyword("fn"):
		c.compileFnDeclaration()
	case c.matchKeyword("when"):
		c.compileWhen()
	case c.matchKeyword("otherwise"):
		c.compileBlock()
	case c.matchKeyword("loop"):
		c.compileLoop()
	case c.matchKeyword("break"):
		c.compileBreak()
	case c.matchKeyword("return"):
		c.compileReturn()
	case c.matchArrow():
		c.compileReturn()
	case c.matchKeyword("keep"):
		c.enc.keepSpin()
	case c.matchKeyword("fate"):
		c.compileFate()
	case c.matchKeyword("limit"):
		c.compileLimit()
	case c.matchKeyword("unified"):
		c.compileUnified()
	case c.matchKeyword("peek"):
		c.compilePeek()
	case c.matchKeyword("poke"):
		c.compilePoke()
	case c.matchKeyword("putchar"), c.matchKeyword("byte"):
		c.compilePutchar()
	case c.matchKeyword("getchar"):
		c.compileGetchar()
	default:
		c.compileIdentifierStatement()
	}
}

// matchArrow recognises the dual-role `->` token used as `return`
// outside a loop and `break`-with-value inside one.
func (c *compiler) matchArrow() bool {
	c.skipSpaceAndComments()
	if c.peek() == '-' && c.peekAt(1) == '>' {
		c.pos += 2
		c.skipSpaceAndComments()
		return true
	}
	return false
}

// compileIdentifierStatement handles every statement form that starts
// with a bare identifier: the platform/bridge/compat probes, named
// block declarations, `syscall.<name>(...)`, assignment, and function
// calls used as statements. A leading token that matches none of these
// is an unrecognised statement keyword and the rest of the line is
// discarded.
func (c *compiler) compileIdentifierStatement() {
	start := c.pos
	name := c.readIdentifier()
	if name == "" {
		c.skipLine()
		return
	}

	switch name {
	case "platform.probe":
		c.platform = probePlatform(c.fate)
		return
	case "bridge.read":
		probeBridge(c.fate)
		return
	case "compat.probe":
		probeCompat(c.fate)
		return
	}

	if genericBlockKeywords[name] {
		c.skipSpaceAndComments()
		if c.peek() == '{' {
			c.skipBalancedBlock()
		}
		return
	}

	if strings.HasPrefix(name, "syscall.") {
		c.compileSyscallCall(strings.TrimPrefix(name, "syscall."))
		return
	}

	c.skipSpaceAndComments()
	if c.peek() == '=' && c.peekAt(1) != '=' {
		c.pos++
		c.compileAssignment(name)
		return
	}
	if c.peek() == '(' {
		c.compileCall(name)
		return
	}

	c.pos = start
	c.skipLine()
}

// compileBlock compiles `{ stmt* }`, consuming both braces. A missing
// opening brace leaves the cursor untouched and compiles nothing.
func (c *compiler) compileBlock() {
	c.skipSpaceAndComments()
	if !c.matchByte('{') {
		return
	}
	for {
		c.skipSpaceAndComments()
		if c.atEnd() || c.peek() == '}' {
			break
		}
		c.compileStatement()
	}
	c.matchByte('}')
}

// compileWhen compiles `when <expr> { ... }`: evaluate the condition,
// skip the block on zero.
func (c *compiler) compileWhen() {
	endLabel := whenEndLabel(c.labels.nextCondID())
	c.compileExpression()
	c.enc.testRegReg(regRAX)
	fixup := c.enc.jzRel32()
	c.labels.addFixup(fixup, endLabel)
	c.compileBlock()
	c.labels.define(endLabel, c.code.len())
}

// compileLoop compiles `loop { ... }`: place the start label, compile
// the block with it pushed on the loop stack (so break/-> inside can
// target its end), tick the Fate scheduler once per body, then emit
// the unconditional back edge and place the end label.
func (c *compiler) compileLoop() {
	id := c.labels.nextLoopID()
	start := loopStartLabel(id)
	end := loopEndLabel(id)

	c.labels.define(start, c.code.len())
	if len(c.loopStack) < maxLoopDepth {
		c.loopStack = append(c.loopStack, loopFrame{start: start, end: end})
	}

	c.compileBlock()
	c.fate.tick()

	if len(c.loopStack) > 0 && c.loopStack[len(c.loopStack)-1].end == end {
		c.loopStack = c.loopStack[:len(c.loopStack)-1]
	}

	back := c.enc.jmpRel32()
	c.labels.addFixup(back, start)
	c.labels.define(end, c.code.len())
}

// compileBreak jumps to the innermost loop's end label. Outside any
// loop it is a no-op.
func (c *compiler) compileBreak() {
	if len(c.loopStack) == 0 {
		return
	}
	top := c.loopStack[len(c.loopStack)-1]
	off := c.enc.jmpRel32()
	c.labels.addFixup(off, top.end)
}

// compileReturn compiles the value expression, then either jumps to
// the innermost loop's end label (the break-with-value role of `->`
// inside a loop) or emits the function epilogue directly (outside any
// loop).
func (c *compiler) compileReturn() {
	c.compileExpression()
	if len(c.loopStack) > 0 {
		top := c.loopStack[len(c.loopStack)-1]
		off := c.enc.jmpRel32()
		c.labels.addFixup(off, top.end)
		return
	}
	c.enc.epilogue(c.currentScratch)
}

// compileFate handles `fate on`, `fate off`, and the generic
// `fate { ... }` block declaration.
func (c *compiler) compileFate() {
	if c.matchKeyword("on") {
		c.fate.enabled = true
		return
	}
	if c.matchKeyword("off") {
		c.fate.enabled = false
		return
	}
	c.skipSpaceAndComments()
	if c.peek() == '{' {
		c.skipBalancedBlock()
	}
}

// compileLimit handles `limit N`, setting the Fate collapse threshold
// to 1/N.
func (c *compiler) compileLimit() {
	n, ok := c.readNumber()
	if ok {
		c.fate.setLimit(int(n))
	}
}

// compileUnified parses `unified { i: <n>, e: <n>, r: <n> }` and
// applies the clamped triple to the Unified Field.
func (c *compiler) compileUnified() {
	c.skipSpaceAndComments()
	if !c.matchByte('{') {
		return
	}
	var i, e, r float64
	for {
		c.skipSpaceAndComments()
		if c.atEnd() || c.peek() == '}' {
			break
		}
		name := c.readIdentifier()
		c.skipSpaceAndComments()
		c.matchByte(':')
		v, _ := c.readFloatLiteral()
		switch name {
		case "i":
			i = v
		case "e":
			e = v
		case "r":
			r = v
		}
		c.skipSpaceAndComments()
		c.matchByte(',')
	}
	c.matchByte('}')
	c.field.apply(i, e, r)
}

// compilePeek compiles `peek(addr)`, loading the byte at addr
// zero-extended into the expression result register.
func (c *compiler) compilePeek() {
	c.matchByte('(')
	c.compileExpression()
	c.matchByte(')')
	c.enc.loadByteZX(regRAX, regRAX)
}

// compilePoke compiles `poke(addr, value)`, storing value's low byte
// at addr.
func (c *compiler) compilePoke() {
	c.matchByte('(')
	c.compileExpression()
	c.enc.pushReg(regRAX)
	c.skipSpaceAndComments()
	c.matchByte(',')
	c.compileExpression()
	c.enc.movRegReg(regRBX, regRAX)
	c.enc.popReg(regRAX)
	c.matchByte(')')
	c.enc.storeByte(regRAX, regRBX)
}

// compilePutchar compiles `putchar(n)` / `byte(n)`: write n's low byte
// to stdout via a single-byte write syscall, using a 16-byte red zone
// on the stack as the syscall's buffer.
func (c *compiler) compilePutchar() {
	c.matchByte('(')
	c.compileExpression()
	c.matchByte(')')
	c.enc.subRsp(16)
	c.enc.storeByte(regRSP, regRAX)
	c.enc.movImmediate(regRDI, 1)
	c.enc.movRegReg(regRSI, regRSP)
	c.enc.movImmediate(regRDX, 1)
	c.enc.movImmediate(regRAX, syscallNumbers["write"])
	c.enc.syscall()
	c.enc.addRsp(16)
}

// compileGetchar compiles `getchar()`: read a single byte from stdin
// into the expression result register, via the same 16-byte red zone.
func (c *compiler) compileGetchar() {
	c.matchByte('(')
	c.matchByte(')')
	c.enc.subRsp(16)
	c.enc.movImmediate(regRDI, 0)
	c.enc.movRegReg(regRSI, regRSP)
	c.enc.movImmediate(regRDX, 1)
	c.enc.movImmediate(regRAX, syscallNumbers["read"])
	c.enc.syscall()
	c.enc.loadByteZX(regRAX, regRSP)
	c.enc.addRsp(16)
}

// compileSyscallCall compiles `syscall.<name>(args...)`: each argument
// is compiled left-to-right and spilled to the stack, then popped into
// the System V argument registers in reverse, before the syscall
// number is loaded and the instruction emitted. A literal-integer
// `exit` call is special-cased to skip the expression machinery
// entirely.
func (c *compiler) compileSyscallCall(name string) {
	num := syscallNumbers[name]
	c.matchByte('(')

	if name == "exit" {
		if lit, ok := c.readNumber(); ok {
			c.skipSpaceAndComments()
			c.matchByte(')')
			c.enc.movImmediate(regRDI, uint64(lit))
			c.enc.movImmediate(regRAX, num)
			c.enc.syscall()
			return
		}
	}

	var argCount int
	c.skipSpaceAndComments()
	for !c.atEnd() && c.peek() != ')' {
		c.compileExpression()
		c.enc.pushReg(regRAX)
		argCount++
		c.skipSpaceAndComments()
		if c.peek() == ',' {
			c.pos++
			c.skipSpaceAndComments()
		}
	}
	c.matchByte(')')

	for i := argCount - 1; i >= 0; i-- {
		if i < len(argRegisters) {
			c.enc.popReg(argRegisters[i])
		} else {
			c.enc.popReg(regRBX)
		}
	}
	c.enc.movImmediate(regRAX, num)
	c.enc.syscall()
}

// compileAssignment compiles `name = <expr>`, resolving or creating
// name (local inside a function body, global at top level) and
// storing the expression result to its frame offset or fixed address.
func (c *compiler) compileAssignment(name string) {
	c.compileExpression()
	v := c.syms.resolveOrCreate(name)
	switch v.scope {
	case scopeGlobal:
		c.enc.storeAbsolute(v.address, regRAX, regRBX)
	default:
		c.enc.storeFrame(v.offset, regRAX)
	}
}

// compileCall compiles `name(args...)` used either as a statement or
// as a primary expression: each argument is compiled and pushed
// left-to-right, a direct call to name's label is emitted, and on
// return the pushed arguments are popped off the stack. The callee's
// result is left in rax.
func (c *compiler) compileCall(name string) {
	c.matchByte('(')
	var argCount int
	c.skipSpaceAndComments()
	for !c.atEnd() && c.peek() != ')' {
		c.compileExpression()
		c.enc.pushReg(regRAX)
		argCount++
		c.skipSpaceAndComments()
		if c.peek() == ',' {
			c.pos++
			c.skipSpaceAndComments()
		}
	}
	c.matchByte(')')

	off := c.enc.callRel32()
	c.labels.addFixup(off, name)
	if argCount > 0 {
		c.enc.addRsp(int32(8 * argCount))
	}
}

// compileVariableLoad loads name's current value into rax. An
// undeclared name reads as a constant zero rather than an error.
func (c *compiler) compileVariableLoad(name string) {
	v, ok := c.syms.lookup(name)
	if !ok {
		c.enc.movImmediate(regRAX, 0)
		return
	}
	switch v.scope {
	case scopeGlobal:
		c.enc.loadAbsolute(regRAX, v.address)
	default:
		c.enc.loadFrame(regRAX, v.offset)
	}
}

// materializeString emits a forward jump over an inline byte span,
// places the span, and loads its address into rax via a RIP-relative
// lea — the shared tail used both by string-literal expressions and by
// `out`/`emit`, which additionally follow it with a write syscall.
func (c *compiler) materializeString(bytes []byte) {
	over := c.enc.jmpRel32()
	label := fmt.Sprintf("_str_%d", c.stringCounter)
	after := label + "_after"
	c.stringCounter++

	c.labels.addFixup(over, after)
	c.labels.define(label, c.code.len())
	c.code.emitBytes(bytes)
	c.labels.define(after, c.code.len())

	lea := c.enc.leaRipRel(regRAX)
	c.labels.addFixup(lea, label)
}

// compileOut compiles `out "..."` (escapes processed) and `emit "..."`
// (raw bytes, per §4.5's distinction between the two): materialise the
// string and issue a write(1, addr, len) syscall.
func (c *compiler) compileOut(raw bool) {
	var bytes []byte
	if raw {
		bytes = c.readRawStringLiteral()
	} else {
		bytes = c.readStringLiteral()
	}
	c.materializeString(bytes)
	c.enc.movRegReg(regRSI, regRAX)
	c.enc.movImmediate(regRDI, 1)
	c.enc.movImmediate(regRDX, uint64(len(bytes)))
	c.enc.movImmediate(regRAX, syscallNumbers["write"])
	c.enc.syscall()
}

// --- expressions ---
//
// Expressions are flat: a primary, optionally followed by one of the
// ten binary operators and a recursively-compiled right-hand
// expression. Because the right-hand side is the *entire* remaining
// expression rather than just the next primary, chained operators
// associate to the right — equivalent to fully parenthesising from the
// right, a deliberate simplification that skips precedence
// differentiation between `+ - * /` and the six comparisons.

func (c *compiler) compileExpression() {
	c.compilePrimary()
	c.skipSpaceAndComments()
	op, ok := c.peekBinaryOp()
	if !ok {
		return
	}
	c.consumeBinaryOp(op)
	c.enc.pushReg(regRAX)
	c.compileExpression()
	c.enc.movRegReg(regRBX, regRAX)
	c.enc.popReg(regRAX)
	c.applyBinaryOp(op)
}

func (c *compiler) compilePrimary() {
	c.skipSpaceAndComments()
	if v, ok := c.readNumber(); ok {
		c.enc.movImmediate(regRAX, uint64(v))
		return
	}
	if c.peek() == '"' {
		c.materializeString(c.readStringLiteral())
		return
	}
	if c.peek() == '(' {
		c.pos++
		c.compileExpression()
		c.skipSpaceAndComments()
		c.matchByte(')')
		return
	}
	name := c.readIdentifier()
	if name == "" {
		c.enc.movImmediate(regRAX, 0)
		return
	}
	c.skipSpaceAndComments()
	if c.peek() == '(' {
		c.compileCall(name)
		return
	}
	c.compileVariableLoad(name)
}

func (c *compiler) peekBinaryOp() (string, bool) {
	b0, b1 := c.peek(), c.peekAt(1)
	switch {
	case b0 == '+':
		return "+", true
	case b0 == '-':
		return "-", true
	case b0 == '*':
		return "*", true
	case b0 == '/':
		return "/", true
	case b0 == '<' && b1 == '=':
		return "<=", true
	case b0 == '<':
		return "<", true
	case b0 == '>' && b1 == '=':
		return ">=", true
	case b0 == '>':
		return ">", true
	case b0 == '=' && b1 == '=':
		return "==", true
	case b0 == '!' && b1 == '=':
		return "!=", true
	default:
		return "", false
	}
}

func (c *compiler) consumeBinaryOp(op string) {
	c.pos += len(op)
	c.skipSpaceAndComments()
}

// applyBinaryOp applies op to lhs (rax) and rhs (rbx), leaving the
// result in rax.
func (c *compiler) applyBinaryOp(op string) {
	switch op {
	case "+":
		c.enc.addRegReg(regRAX, regRBX)
	case "-":
		c.enc.subRegReg(regRAX, regRBX)
	case "*":
		c.enc.imulRegReg(regRAX, regRBX)
	case "/":
		c.enc.cqo()
		c.enc.idivReg(regRBX)
	case "<":
		c.enc.cmpRegReg(regRAX, regRBX)
		c.enc.setccZeroExtend(ccLess, regRAX)
	case "<=":
		c.enc.cmpRegReg(regRAX, regRBX)
		c.enc.setccZeroExtend(ccLessEqual, regRAX)
	case ">":
		c.enc.cmpRegReg(regRAX, regRBX)
		c.enc.setccZeroExtend(ccGreater, regRAX)
	case ">=":
		c.enc.cmpRegReg(regRAX, regRBX)
		c.enc.setccZeroExtend(ccGreaterEqual, regRAX)
	case "==":
		c.enc.cmpRegReg(regRAX, regRBX)
		c.enc.setccZeroExtend(ccEqual, regRAX)
	case "!=":
		c.enc.cmpRegReg(regRAX, regRBX)
		c.enc.setccZeroExtend(ccNotEqual, regRAX)
	}
}
