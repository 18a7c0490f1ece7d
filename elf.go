package main

import "encoding/binary"

// writeELF wraps code (the emitted instruction/data bytes) in a
// minimal static ELF64 executable per the fixed layout: a 64-byte
// ELF header, a single 56-byte LOAD program header, then the code
// bytes themselves starting at file offset 120. globalNext is the
// address one past the last allocated global (globalBaseAddress if
// none were declared), used to size the segment's memsz so that
// global storage is zero-filled by the kernel at load time.
func writeELF(code []byte, globalNext uint64) []byte {
	const base = uint64(elfBaseAddress)
	const headerTotal = 120 // 64-byte ELF header + 56-byte program header

	globalBytes := globalNext - globalBaseAddress
	if globalBytes < 0x1000 {
		globalBytes = 0x1000
	}
	memsz := (globalBaseAddress - base) + globalBytes + 0x10000
	filesz := uint64(headerTotal + len(code))

	buf := make([]byte, headerTotal+len(code))

	// ELF64 header (64 bytes)
	buf[0], buf[1], buf[2], buf[3] = 0x7F, 0x45, 0x4C, 0x46 // magic
	buf[4] = 2                                              // EI_CLASS: 64-bit
	buf[5] = 1                                              // EI_DATA: little-endian
	buf[6] = 1                                              // EI_VERSION
	// buf[7] EI_OSABI, buf[8] EI_ABIVERSION, buf[9:16] padding left zero

	binary.LittleEndian.PutUint16(buf[16:18], 2)              // e_type: ET_EXEC
	binary.LittleEndian.PutUint16(buf[18:20], 0x3E)           // e_machine: x86-64
	binary.LittleEndian.PutUint32(buf[20:24], 1)              // e_version
	binary.LittleEndian.PutUint64(buf[24:32], base+elfEntryOffset) // e_entry
	binary.LittleEndian.PutUint64(buf[32:40], 64)             // e_phoff
	binary.LittleEndian.PutUint64(buf[40:48], 0)              // e_shoff: none
	binary.LittleEndian.PutUint32(buf[48:52], 0)              // e_flags
	binary.LittleEndian.PutUint16(buf[52:54], 64)              // e_ehsize
	binary.LittleEndian.PutUint16(buf[54:56], 56)              // e_phentsize
	binary.LittleEndian.PutUint16(buf[56:58], 1)               // e_phnum
	binary.LittleEndian.PutUint16(buf[58:60], 0)               // e_shentsize
	binary.LittleEndian.PutUint16(buf[60:62], 0)               // e_shnum
	binary.LittleEndian.PutUint16(buf[62:64], 0)               // e_shstrndx

	// Program header (56 bytes, at offset 64)
	ph := buf[64:120]
	binary.LittleEndian.PutUint32(ph[0:4], 1)   // p_type: PT_LOAD
	binary.LittleEndian.PutUint32(ph[4:8], 7)   // p_flags: R+W+X
	binary.LittleEndian.PutUint64(ph[8:16], 0)  // p_offset
	binary.LittleEndian.PutUint64(ph[16:24], base) // p_vaddr
	binary.LittleEndian.PutUint64(ph[24:32], base) // p_paddr
	binary.LittleEndian.PutUint64(ph[32:40], filesz)
	binary.LittleEndian.PutUint64(ph[40:48], memsz)
	binary.LittleEndian.PutUint64(ph[48:56], 0x1000) // p_align

	copy(buf[headerTotal:], code)
	return buf
}
