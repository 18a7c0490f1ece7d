package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDeclareLocalOffsets(t *testing.T) {
	s := newSymbolTable()
	v1 := s.declareLocal("a")
	v2 := s.declareLocal("b")
	v3 := s.declareLocal("c")

	require.Equal(t, int32(-8), v1.offset)
	require.Equal(t, int32(-16), v2.offset)
	require.Equal(t, int32(-24), v3.offset)
}

func TestDeclareParameterOffsets(t *testing.T) {
	s := newSymbolTable()
	params := []string{"a", "b", "c"}
	var got []int32
	for i, p := range params {
		v := s.declareParameter(p, i, len(params))
		got = append(got, v.offset)
	}
	require.Equal(t, []int32{32, 24, 16}, got)
}

func TestLookupShadowsNewestFirst(t *testing.T) {
	s := newSymbolTable()
	s.declareLocal("x")
	s.declareLocal("x")

	v, ok := s.lookup("x")
	require.True(t, ok)
	require.Equal(t, int32(-16), v.offset)
}

func TestDeclareGlobalAddresses(t *testing.T) {
	s := newSymbolTable()
	g1 := s.declareGlobal("counter")
	g2 := s.declareGlobal("total")
	require.Equal(t, uint64(0x600000), g1.address)
	require.Equal(t, uint64(0x600008), g2.address)
}

func TestResolveOrCreateTopLevelCreatesGlobal(t *testing.T) {
	s := newSymbolTable()
	v := s.resolveOrCreate("x")
	require.Equal(t, scopeGlobal, v.scope)
}

func TestResolveOrCreateInsideFunctionCreatesLocal(t *testing.T) {
	s := newSymbolTable()
	s.enterFunction()
	v := s.resolveOrCreate("x")
	require.Equal(t, scopeLocal, v.scope)
}

func TestEnterExitFunctionRestoresScope(t *testing.T) {
	s := newSymbolTable()
	s.declareGlobal("g")

	saved := s.enterFunction()
	s.declareLocal("local1")
	s.declareLocal("local2")
	require.True(t, s.inFunction)
	require.Len(t, s.vars, 3)

	s.exitFunction(saved)
	require.False(t, s.inFunction)
	require.Len(t, s.vars, 1)
	_, ok := s.lookup("local1")
	require.False(t, ok)
	_, ok = s.lookup("g")
	require.True(t, ok)
}

func TestDeclareFunctionKeepsFirstInIndex(t *testing.T) {
	s := newSymbolTable()
	s.declareFunction(function{name: "f", bodyStart: 0, bodyEnd: 10})
	s.declareFunction(function{name: "f", bodyStart: 20, bodyEnd: 30})

	f, ok := s.lookupFunction("f")
	require.True(t, ok)
	require.Equal(t, 0, f.bodyStart)
	require.Len(t, s.funcs, 2)
}

func TestResetFunctionCursor(t *testing.T) {
	s := newSymbolTable()
	s.declareFunction(function{name: "f"})
	s.resetFunctionCursor()
	require.Empty(t, s.funcs)
	_, ok := s.lookupFunction("f")
	require.False(t, ok)
}
