package main

import "fmt"

// pendingFixup is a (code offset, target label name) pair: the four
// bytes at offset hold a placeholder relative displacement that must
// be patched in once every label is known.
type pendingFixup struct {
	offset int
	label  string
}

// labelTable tracks named code-buffer offsets and the fixups waiting
// to be resolved against them, implementing the single-pass
// backpatching scheme described in §4.4.
type labelTable struct {
	offsets map[string]int
	fixups  []pendingFixup

	condCounter int
	loopCounter int
}

func newLabelTable() *labelTable {
	return &labelTable{
		offsets: make(map[string]int),
		fixups:  make([]pendingFixup, 0, maxFixups),
	}
}

// define records name as pointing at the current code offset. A
// second definition under the same name overwrites the first — the
// table does not detect redefinition, matching the front end's own
// undefined-behaviour stance on duplicate function names.
func (l *labelTable) define(name string, offset int) {
	l.offsets[name] = offset
}

// addFixup registers a pending fixup at offset for label. offset must
// be the position of the four placeholder zero bytes (as returned by
// the encoder's jzRel32/jmpRel32/callRel32).
func (l *labelTable) addFixup(offset int, label string) {
	if len(l.fixups) >= maxFixups {
		return
	}
	l.fixups = append(l.fixups, pendingFixup{offset: offset, label: label})
}

// resolve patches every pending fixup whose label was defined,
// computing target - (fixupOffset + 4) as the signed 32-bit
// displacement. Fixups whose label is never defined are left as the
// zero bytes they were created with, per the documented limitation.
func (l *labelTable) resolve(buf *codeBuffer) {
	for _, fx := range l.fixups {
		target, ok := l.offsets[fx.label]
		if !ok {
			continue
		}
		disp := int32(target - (fx.offset + 4))
		buf.patchI32(fx.offset, disp)
	}
}

// nextCondID returns a fresh monotonic id for `when` blocks, used to
// build the `_when_end_<id>` label name.
func (l *labelTable) nextCondID() int {
	id := l.condCounter
	l.condCounter++
	return id
}

// nextLoopID returns a fresh monotonic id for `loop` blocks, used to
// build the `_loop_start_<id>` / `_loop_end_<id>` label names.
func (l *labelTable) nextLoopID() int {
	id := l.loopCounter
	l.loopCounter++
	return id
}

func whenEndLabel(id int) string  { return fmt.Sprintf("_when_end_%d", id) }
func loopStartLabel(id int) string { return fmt.Sprintf("_loop_start_%d", id) }
func loopEndLabel(id int) string   { return fmt.Sprintf("_loop_end_%d", id) }

// loopFrame is one entry of the loop-label stack consulted by `break`
// and the loop-local role of `->`.
type loopFrame struct {
	start string
	end   string
}
