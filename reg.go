package main

// Register name lookups for x86-64, trimmed to the general-purpose
// registers the encoder actually drives. Used only to make verbose
// tracing readable — the encoding itself works entirely in terms of
// the regRAX..regR9 byte constants in instr.go.

var registerNames = map[byte]string{
	regRAX: "rax",
	regRCX: "rcx",
	regRDX: "rdx",
	regRBX: "rbx",
	regRSP: "rsp",
	regRBP: "rbp",
	regRSI: "rsi",
	regRDI: "rdi",
	regR8:  "r8",
	regR9:  "r9",
}

// regName returns the System V name for an encoder register constant,
// or a raw numeric fallback for anything outside the named set.
func regName(enc byte) string {
	if name, ok := registerNames[enc]; ok {
		return name
	}
	return "r" + string(rune('0'+enc))
}
