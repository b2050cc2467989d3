// Package output wraps an assembled byte stream in a minimal ELF64
// executable (Sarcophage) for a code stream meant to run as a standalone
// process. Boot images get no wrapper here: the emitter's own Assemble
// pass already pads and signs them. Sarcophage does not inspect the bytes
// it wraps.
package output

const (
	elfHeaderSize     = 64
	programHeaderSize = 56
	elfHeaderTotal    = elfHeaderSize + programHeaderSize // 120

	loadVAddr = 0x400000
	entryAddr = loadVAddr + elfHeaderTotal // 0x400078
)

// Sarcophage wraps code in a minimal, single PT_LOAD, statically linked
// ELF64 executable: no sections, no dynamic linking, no relocation — the
// whole image is one readable-executable segment starting at loadVAddr.
func Sarcophage(code []byte) []byte {
	fileSize := uint64(elfHeaderTotal + len(code))

	out := make([]byte, 0, fileSize)
	out = append(out, elfIdent()...)
	out = append(out, leU16(2)...)       // e_type: ET_EXEC
	out = append(out, leU16(0x3E)...)    // e_machine: EM_X86_64
	out = append(out, leU32(1)...)       // e_version
	out = append(out, leU64(uint64(entryAddr))...)
	out = append(out, leU64(elfHeaderSize)...) // e_phoff
	out = append(out, leU64(0)...)              // e_shoff
	out = append(out, leU32(0)...)              // e_flags
	out = append(out, leU16(elfHeaderSize)...)  // e_ehsize
	out = append(out, leU16(programHeaderSize)...)
	out = append(out, leU16(1)...) // e_phnum
	out = append(out, leU16(0)...) // e_shentsize
	out = append(out, leU16(0)...) // e_shnum
	out = append(out, leU16(0)...) // e_shstrndx

	out = append(out, leU32(1)...)                     // p_type: PT_LOAD
	out = append(out, leU32(5)...)                     // p_flags: R+X
	out = append(out, leU64(0)...)                     // p_offset
	out = append(out, leU64(uint64(loadVAddr))...)     // p_vaddr
	out = append(out, leU64(uint64(loadVAddr))...)     // p_paddr
	out = append(out, leU64(fileSize)...)              // p_filesz
	out = append(out, leU64(fileSize)...)              // p_memsz
	out = append(out, leU64(0x1000)...)                // p_align

	out = append(out, code...)
	return out
}

func elfIdent() []byte {
	id := make([]byte, 16)
	id[0], id[1], id[2], id[3] = 0x7F, 'E', 'L', 'F'
	id[4] = 2 // ELFCLASS64
	id[5] = 1 // ELFDATA2LSB
	id[6] = 1 // EV_CURRENT
	return id
}

func leU16(v uint16) []byte { return []byte{byte(v), byte(v >> 8)} }
func leU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}
func leU64(v uint64) []byte {
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
	return b
}
