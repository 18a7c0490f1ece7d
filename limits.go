package main

// Fixed resource bounds. Exceeding any of these is a soft failure:
// further inserts are silently discarded, matching the error model
// described for the compiler as a whole.
const (
	codeBufferCapacity = 4 * 1024 * 1024 // ≥4 MiB
	dataBufferCapacity = 1 * 1024 * 1024 // ≥1 MiB

	maxVariables = 4096
	maxFunctions = 2048
	maxLabels    = 8192
	maxFixups    = 8192

	maxParameters = 16
	maxLoopDepth  = 16

	maxIdentifierBytes = 255
)

// Layout constants shared by the symbol table and the ELF writer.
const (
	localOffsetStart  = -8
	localOffsetStep   = -8
	paramOffsetStart  = 16
	paramOffsetStep   = -8
	globalBaseAddress = 0x600000
	globalAddressStep = 8

	elfBaseAddress  = 0x400000
	elfEntryOffset  = 120
	topLevelScratch = 512
	funcScratch     = 256
)
