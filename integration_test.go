package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// These mirror the end-to-end scenarios: since the emitted binaries
// cannot be executed here, each checks the structural invariant that
// scenario is meant to exercise instead of the process's exit status.

func compileSource(t *testing.T, src string) *compiler {
	t.Helper()
	c := newCompiler([]byte(src), false)
	c.compileProgram()
	return c
}

func TestScenarioHelloWorldEmbedsLiteralBytes(t *testing.T) {
	c := compileSource(t, `out "Hi\n" syscall.exit(0)`)
	require.Contains(t, string(c.code.bytes()), "Hi\n")
}

func TestScenarioExitWithSubtraction(t *testing.T) {
	c := compileSource(t, `x = 7 y = 5 syscall.exit(x - y)`)
	// two globals declared, in source order
	vx, ok := c.syms.lookup("x")
	require.True(t, ok)
	vy, ok := c.syms.lookup("y")
	require.True(t, ok)
	require.Equal(t, uint64(0x600000), vx.address)
	require.Equal(t, uint64(0x600008), vy.address)
}

func TestScenarioFunctionCallResolvesFixup(t *testing.T) {
	c := compileSource(t, `fn add a b { -> a + b } syscall.exit(add(40, 2))`)
	f, ok := c.syms.lookupFunction("add")
	require.True(t, ok)
	require.Equal(t, []string{"a", "b"}, f.params)

	target, ok := c.labels.offsets["add"]
	require.True(t, ok, "the add function must have placed its label")
	require.Greater(t, target, 0)

	// every fixup referencing a defined label must have been patched
	// away from its zero placeholder.
	for _, fx := range c.labels.fixups {
		if _, defined := c.labels.offsets[fx.label]; defined {
			b := c.code.bytes()[fx.offset : fx.offset+4]
			if fx.label == "add" {
				require.False(t, b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 0,
					"call fixup to add should not remain zero")
			}
		}
	}
}

func TestScenarioLoopWithBreakBalancesLoopStack(t *testing.T) {
	c := compileSource(t, `i = 0 loop { i = i + 1 when i >= 5 { break } } syscall.exit(i)`)
	require.Empty(t, c.loopStack)
	v, ok := c.syms.lookup("i")
	require.True(t, ok)
	require.Equal(t, scopeGlobal, v.scope)
}

func TestScenarioGlobalMutationAcrossCalls(t *testing.T) {
	c := compileSource(t, `g = 100 fn bump { g = g + 1 } bump() bump() syscall.exit(g)`)
	v, ok := c.syms.lookup("g")
	require.True(t, ok)
	require.Equal(t, uint64(0x600000), v.address)
	f, ok := c.syms.lookupFunction("bump")
	require.True(t, ok)
	require.Empty(t, f.params)
}

func TestScenarioUnifiedFieldReportLine(t *testing.T) {
	c := compileSource(t, `unified { i: 0.9, e: 0.2, r: 0.5 } syscall.exit(0)`)
	report := c.report()
	require.True(t, strings.Contains(report.String(), "i=0.90 e=0.20 r=0.50"))
}

func TestCompileProgramResolvesAllDefinedFixups(t *testing.T) {
	c := compileSource(t, `
		fn square n { -> n * n }
		x = square(6)
		when x == 36 {
			out "ok\n"
		}
		syscall.exit(0)
	`)
	for _, fx := range c.labels.fixups {
		if _, defined := c.labels.offsets[fx.label]; !defined {
			continue
		}
		b := c.code.bytes()[fx.offset : fx.offset+4]
		require.False(t, b[0] == 0 && b[1] == 0 && b[2] == 0 && b[3] == 0,
			"fixup to defined label %q left unresolved", fx.label)
	}
}

func TestCompileProgramIsDeterministic(t *testing.T) {
	src := `x = 1 y = 2 syscall.exit(x + y)`
	a := compileSource(t, src)
	b := compileSource(t, src)
	require.Equal(t, a.code.bytes(), b.code.bytes())
}
