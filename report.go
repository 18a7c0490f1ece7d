package main

import "fmt"

// Report is the short statistical summary printed after a successful
// compilation: code size, symbol counts, Unified Field parameters,
// Tile pool usage, Fate mode, and the probed platform id.
type Report struct {
	CodeBytes     int
	VariableCount int
	FunctionCount int
	Field         unifiedField
	TileUsed      uint64
	FateMode      string
	PlatformID    int
}

func (r Report) String() string {
	return fmt.Sprintf(
		"code=%d bytes vars=%d funcs=%d %s tile_used=%d fate=%s platform=%d",
		r.CodeBytes, r.VariableCount, r.FunctionCount, r.Field, r.TileUsed, r.FateMode, r.PlatformID,
	)
}

// report assembles the closing statistics from the compiler's final
// state, mirroring the original's closing printf block.
func (c *compiler) report() Report {
	return Report{
		CodeBytes:     c.code.len(),
		VariableCount: len(c.syms.vars),
		FunctionCount: len(c.syms.funcs),
		Field:         c.field,
		TileUsed:      c.tiles.totalUsed(),
		FateMode:      c.fate.mode(),
		PlatformID:    c.platform.id,
	}
}
