package main

import "testing"

func TestCodeBufferEmitByte(t *testing.T) {
	buf := newCodeBuffer(16, "text")
	buf.emitByte(0x90)
	buf.emitByte(0xC3)
	if got := buf.bytes(); len(got) != 2 || got[0] != 0x90 || got[1] != 0xC3 {
		t.Fatalf("bytes() = % x, want [90 c3]", got)
	}
	if buf.len() != 2 {
		t.Fatalf("len() = %d, want 2", buf.len())
	}
}

func TestCodeBufferOverflowIsSilentlyDiscarded(t *testing.T) {
	buf := newCodeBuffer(2, "text")
	buf.emitByte(1)
	buf.emitByte(2)
	buf.emitByte(3) // past capacity
	buf.emitByte(4)
	if got := buf.bytes(); len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("bytes() = % x, want [01 02]", got)
	}
}

func TestCodeBufferEmitU32AndU64(t *testing.T) {
	buf := newCodeBuffer(16, "text")
	buf.emitU32(0x01020304)
	buf.emitU64(0x0102030405060708)
	want := []byte{0x04, 0x03, 0x02, 0x01, 0x08, 0x07, 0x06, 0x05, 0x04, 0x03, 0x02, 0x01}
	got := buf.bytes()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %02x, want %02x", i, got[i], want[i])
		}
	}
}

func TestCodeBufferReserveAndPatchI32(t *testing.T) {
	buf := newCodeBuffer(16, "text")
	buf.emitByte(0xE9)
	fixup := buf.reserve(4)
	buf.emitByte(0x90)

	buf.patchI32(fixup, -16)

	got := buf.bytes()
	if len(got) != 6 {
		t.Fatalf("len = %d, want 6", len(got))
	}
	want := []byte{0xE9, 0xF0, 0xFF, 0xFF, 0xFF, 0x90}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %02x, want %02x", i, got[i], want[i])
		}
	}
}

func TestCodeBufferPatchI32OutOfRangeIgnored(t *testing.T) {
	buf := newCodeBuffer(4, "text")
	buf.emitBytes([]byte{1, 2, 3, 4})
	buf.patchI32(100, 1) // should not panic or corrupt the buffer
	if got := buf.bytes(); len(got) != 4 {
		t.Fatalf("bytes() = % x, want unchanged 4-byte buffer", got)
	}
}
