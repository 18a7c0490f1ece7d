package main

// scope distinguishes how a variable record's offset/address field is
// interpreted.
type scope int

const (
	scopeGlobal scope = iota
	scopeLocal
	scopeParameter
)

// variable binds an identifier to either a frame offset (local or
// parameter) or a fixed absolute address (global), per the invariants
// in §3: local offsets start at -8 and decrease by 8 per declaration,
// parameter offsets start at +16 and decrease by 8 per subsequent
// parameter, global addresses start at 0x600000 and increase by 8.
type variable struct {
	name    string
	scope   scope
	offset  int32  // valid when scope is local or parameter
	address uint64 // valid when scope is global
}

// function records a declared function: its name, parameter names in
// declaration order, the source byte span of its body, and the
// code-buffer offset its body is emitted at (filled in during
// function emission).
type function struct {
	name       string
	params     []string
	bodyStart  int
	bodyEnd    int
	codeOffset int
	hasBody    bool
}

// symbolTable tracks variables in a single growable array with a
// cursor, plus a separate function array. Lookup scans newest to
// oldest so that shadowing follows declaration recency, matching the
// description in §4.3.
type symbolTable struct {
	vars      []variable
	funcs     []function
	funcIndex map[string]int // name -> first matching index in funcs

	frameSize   int32
	inFunction  bool
	globalNext  uint64
}

func newSymbolTable() *symbolTable {
	return &symbolTable{
		vars:       make([]variable, 0, maxVariables),
		funcs:      make([]function, 0, maxFunctions),
		funcIndex:  make(map[string]int),
		globalNext: globalBaseAddress,
	}
}

// lookup finds the nearest (most recently declared) variable with the
// given name, scanning from the end of the array backward.
func (s *symbolTable) lookup(name string) (variable, bool) {
	for i := len(s.vars) - 1; i >= 0; i-- {
		if s.vars[i].name == name {
			return s.vars[i], true
		}
	}
	return variable{}, false
}

// declareLocal adds a local variable, assigning the next local frame
// offset and growing the frame size by 8.
func (s *symbolTable) declareLocal(name string) variable {
	if len(s.vars) >= maxVariables {
		return variable{name: name, scope: scopeLocal}
	}
	offset := localOffsetStart + int32(s.localCount())*localOffsetStep
	v := variable{name: name, scope: scopeLocal, offset: offset}
	s.vars = append(s.vars, v)
	s.frameSize += 8
	return v
}

// localCount counts locals declared since the current function's
// entry (i.e. since frameSize was last reset to 0 on entry).
func (s *symbolTable) localCount() int {
	return int(s.frameSize / 8)
}

// declareParameter adds a parameter variable at its positional offset.
// index is 0-based within the parameter list; total is the parameter
// count, so offset = 16 + 8*(total-1-index) per §3's declaration:
// "decrease by 8 for each subsequent parameter in declared order."
func (s *symbolTable) declareParameter(name string, index, total int) variable {
	offset := int32(paramOffsetStart + (total-1-index)*(-paramOffsetStep))
	v := variable{name: name, scope: scopeParameter, offset: offset}
	if len(s.vars) < maxVariables {
		s.vars = append(s.vars, v)
	}
	return v
}

// declareGlobal adds a global variable bound to the next address in
// the fixed sequence starting at 0x600000.
func (s *symbolTable) declareGlobal(name string) variable {
	v := variable{name: name, scope: scopeGlobal, address: s.globalNext}
	if len(s.vars) < maxVariables {
		s.vars = append(s.vars, v)
	}
	s.globalNext += globalAddressStep
	return v
}

// resolveOrCreate looks up name; if absent, it is created as a local
// (inside a function body) or a global (at top level), matching the
// "creation happens only at assignment" rule for `name = <expr>`.
func (s *symbolTable) resolveOrCreate(name string) variable {
	if v, ok := s.lookup(name); ok {
		return v
	}
	if s.inFunction {
		return s.declareLocal(name)
	}
	return s.declareGlobal(name)
}

// functionEntryState captures what must be restored when a function
// body finishes compiling.
type functionEntryState struct {
	varsLen    int
	frameSize  int32
	inFunction bool
}

// enterFunction saves the current scope state and switches into
// function-body mode with a fresh frame.
func (s *symbolTable) enterFunction() functionEntryState {
	saved := functionEntryState{varsLen: len(s.vars), frameSize: s.frameSize, inFunction: s.inFunction}
	s.frameSize = 0
	s.inFunction = true
	return saved
}

// exitFunction restores the scope state saved by enterFunction,
// dropping the function's locals and parameters from the table.
func (s *symbolTable) exitFunction(saved functionEntryState) {
	s.vars = s.vars[:saved.varsLen]
	s.frameSize = saved.frameSize
	s.inFunction = saved.inFunction
}

// declareFunction records a function discovered by the first-pass
// scan. Redefinition is not detected: a second declaration under the
// same name is simply appended, and funcIndex keeps pointing at the
// first (earliest-wins at emission, per §4.3).
func (s *symbolTable) declareFunction(f function) {
	if len(s.funcs) >= maxFunctions {
		return
	}
	if _, exists := s.funcIndex[f.name]; !exists {
		s.funcIndex[f.name] = len(s.funcs)
	}
	s.funcs = append(s.funcs, f)
}

// lookupFunction returns the first-registered function record for
// name, if any.
func (s *symbolTable) lookupFunction(name string) (function, bool) {
	idx, ok := s.funcIndex[name]
	if !ok {
		return function{}, false
	}
	return s.funcs[idx], true
}

// resetFunctionCursor truncates the function array back to zero
// before the main emission pass, so that top-level `fn` statements can
// re-register functions in source order without exceeding capacity
// (§4.5, "First-pass scan").
func (s *symbolTable) resetFunctionCursor() {
	s.funcs = s.funcs[:0]
	s.funcIndex = make(map[string]int)
}
