package emitter

import (
	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
)

// This file synthesizes the fixed runtime routines the lowering methods in
// dataproc.go, memory.go and other.go call into by name: the 128/256-bit
// arithmetic helpers backing the register bank, the Hapi page allocator, the
// Noun hash-equality checks available to the kernel at runtime, the Phoenix
// interrupt handler, and (boot builds only) the teletype print routines Per
// uses. Every routine here is appended to Stage-2 once, by emitTrampoline,
// and registered under its well-known label so the ordinary CALL patches
// recorded elsewhere resolve during patchAll.

// emitRel8Placeholder emits a short conditional/unconditional jump opcode
// followed by a zero placeholder byte and returns its offset in Stage-2, to
// be resolved by patchRel8Here once the jump target is known. Unlike the
// CALL/JMP targets recorded in patch.go, these jumps never leave the
// function they're emitted in, so there's no need to defer past Lower.
func (e *Emitter) emitRel8Placeholder(opcode byte) int {
	e.emit(opcode, 0)
	return len(e.stage2) - 1
}

func (e *Emitter) patchRel8Here(placeholder int) {
	disp := len(e.stage2) - (placeholder + 1)
	e.stage2[placeholder] = byte(int8(disp))
}

func (e *Emitter) label(name string) {
	e.labels[name] = e.stage2Pos()
}

// --- 128/256-bit arithmetic helpers ------------------------------------
//
// Calling convention for wide arithmetic: EDI points at the
// destination bank slot, ESI points at the source bank slot or Noun
// literal. Each add/sub/mul/bitwise routine walks count dwords
// least-significant-first (the comparators walk most-significant-first),
// and every routine returns via RET; the caller's own ESI/EDI are not preserved, matching
// a leaf-routine convention of not touching the stack when it
// doesn't have to.

func (e *Emitter) emitWideAddSub(label string, count uint32, sub bool) {
	e.label(label)
	e.emit(0xF8) // CLC
	e.emit(0xB9)
	e.emitLE32(count) // MOV ECX, count
	loop := e.stage2Pos()
	e.emit(0x8B, 0x06) // MOV EAX, [ESI]
	if sub {
		e.emit(0x19, 0x07) // SBB [EDI], EAX
	} else {
		e.emit(0x11, 0x07) // ADC [EDI], EAX
	}
	e.emit(0x8D, 0x76, 0x04) // LEA ESI, [ESI+4] (keeps CF for the next limb)
	e.emit(0x8D, 0x7F, 0x04) // LEA EDI, [EDI+4]
	e.emit(0x49)             // DEC ECX
	e.emit(0x75)             // JNZ loop
	e.emit(byte(int8(loop - (e.stage2Pos() + 1))))
	e.emit(0xC3) // RET
}

func (e *Emitter) emitWideBitwise(label string, count uint32, opcode byte) {
	e.label(label)
	e.emit(0xB9)
	e.emitLE32(count)
	loop := e.stage2Pos()
	e.emit(0x8B, 0x06)        // MOV EAX, [ESI]
	e.emit(opcode, 0x07)      // AND/OR [EDI], EAX
	e.emit(0x83, 0xC6, 0x04)  // ADD ESI, 4
	e.emit(0x83, 0xC7, 0x04)  // ADD EDI, 4
	e.emit(0x49)              // DEC ECX
	e.emit(0x75)              // JNZ loop
	e.emit(byte(int8(loop - (e.stage2Pos() + 1))))
	e.emit(0xC3)
}

// emitWideMul computes a truncated 128-bit product: the full destination
// slot times the single low limb of the source. A genuine 4x4-limb
// schoolbook multiply is out of scope for a hand-assembled leaf routine;
// this covers the common case of scaling a wide accumulator by a value
// that fits in one channel.
func (e *Emitter) emitWideMul(label string) {
	e.label(label)
	e.emit(0x8B, 0x1E)       // MOV EBX, [ESI]
	e.emit(0x33, 0xED)       // XOR EBP, EBP  (carry accumulator)
	e.emit(0xB9)
	e.emitLE32(4) // MOV ECX, 4
	loop := e.stage2Pos()
	e.emit(0x8B, 0x07)       // MOV EAX, [EDI]
	e.emit(0xF7, 0xE3)       // MUL EBX
	e.emit(0x01, 0xE8)       // ADD EAX, EBP
	e.emit(0x83, 0xD2, 0x00) // ADC EDX, 0
	e.emit(0x89, 0x07)       // MOV [EDI], EAX
	e.emit(0x89, 0xD5)       // MOV EBP, EDX
	e.emit(0x83, 0xC6, 0x04) // ADD ESI, 4
	e.emit(0x83, 0xC7, 0x04) // ADD EDI, 4
	e.emit(0x49)             // DEC ECX
	e.emit(0x75)
	e.emit(byte(int8(loop - (e.stage2Pos() + 1))))
	e.emit(0xC3)
}

// emitWideCmp performs an unsigned, most-significant-limb-first lexical
// comparison and leaves the flags from the first differing limb pair set
// for the jump that follows, matching the ordinary single-word Wdj
// convention. Which limb "most significant" means is this routine's
// concrete answer to the channel-ordering question left open upstream;
// see DESIGN.md.
func (e *Emitter) emitWideCmp(label string, count uint32) {
	e.label(label)
	var skips []int
	for i := int(count) - 1; i >= 0; i-- {
		off := uint32(i) * 4
		if off == 0 {
			e.emit(0x8B, 0x07) // MOV EAX, [EDI]
			e.emit(0x3B, 0x06) // CMP EAX, [ESI]
		} else {
			e.emit(0x8B, 0x47, byte(off)) // MOV EAX, [EDI+off]
			e.emit(0x3B, 0x46, byte(off)) // CMP EAX, [ESI+off]
		}
		if i != 0 {
			skips = append(skips, e.emitRel8Placeholder(0x75)) // JNZ done
		}
	}
	for _, s := range skips {
		e.patchRel8Here(s)
	}
	e.emit(0xC3)
}

func (e *Emitter) emitWideHelpers() {
	e.emitWideAddSub(opHelixAdd128, 4, false)
	e.emitWideAddSub(opHelixSub128, 4, true)
	e.emitWideMul(opHelixMul128)
	e.emitWideBitwise(opHelixAnd128, 4, 0x21)
	e.emitWideBitwise(opHelixOr128, 4, 0x09)
	e.emitWideCmp(opHelixCmp128, 4)
	e.emitWideAddSub(opXenithAdd256, 8, false)
	e.emitWideAddSub(opXenithSub256, 8, true)
	e.emitWideCmp(opXenithCmp256, 8)
}

// --- Hapi page allocator -------------------------------------------------
//
// A one-byte-per-page bitmap starting at addrHapiBitmap backs a bump
// allocator over addrHapiPages pages of addrHapiHeap; addrHapiOwner holds
// the index of the next unallocated page. Marking the bitmap byte even
// though the bump pointer never reuses it keeps Hapi's free/transfer
// bookkeeping meaningful without a full free-list.
func (e *Emitter) emitHapiRoutines() {
	e.label("__hapi_init")
	e.emit(0xBF) // MOV EDI, addrHapiBitmap
	e.emitLE32(addrHapiBitmap)
	e.emit(0xB9) // MOV ECX, 2048
	e.emitLE32(2048)
	e.emit(0x30, 0xC0)       // XOR AL, AL
	e.emit(0xF3, 0xAA)       // REP STOSB
	e.emit(0xC7, 0x05)       // MOV dword [addrHapiPages], 2048
	e.emitLE32(addrHapiPages)
	e.emitLE32(2048)
	e.emit(0xC7, 0x05) // MOV dword [addrHapiHeap], 0x00200000
	e.emitLE32(addrHapiHeap)
	e.emitLE32(0x00200000)
	e.emit(0xC7, 0x05) // MOV dword [addrHapiOwner], 0
	e.emitLE32(addrHapiOwner)
	e.emitLE32(0)
	e.emit(0xC3)

	e.label("__hapi_alloc")
	e.emit(0xA1) // MOV EAX, [addrHapiOwner]
	e.emitLE32(addrHapiOwner)
	e.emit(0x3B, 0x05) // CMP EAX, [addrHapiPages]
	e.emitLE32(addrHapiPages)
	fail := e.emitRel8Placeholder(0x73) // JAE fail
	e.emit(0xBF)                        // MOV EDI, addrHapiBitmap
	e.emitLE32(addrHapiBitmap)
	e.emit(0x01, 0xC7)       // ADD EDI, EAX
	e.emit(0xC6, 0x07, 0x01) // MOV BYTE [EDI], 1
	e.emit(0xC1, 0xE0, 0x0C) // SHL EAX, 12
	e.emit(0x03, 0x05)       // ADD EAX, [addrHapiHeap]
	e.emitLE32(addrHapiHeap)
	e.emit(0x50)       // PUSH EAX
	e.emit(0xFF, 0x05) // INC dword [addrHapiOwner]
	e.emitLE32(addrHapiOwner)
	e.emit(0x58) // POP EAX
	e.emit(0xC3)
	e.patchRel8Here(fail)
	e.emit(0x31, 0xC0) // XOR EAX, EAX
	e.emit(0xC3)

	// __hapi_free clears the bitmap byte for the page whose address is in
	// EAX; the bump pointer itself is never rewound.
	e.label("__hapi_free")
	e.emit(0x2B, 0x05) // SUB EAX, [addrHapiHeap]
	e.emitLE32(addrHapiHeap)
	e.emit(0xC1, 0xE8, 0x0C) // SHR EAX, 12
	e.emit(0xBF)             // MOV EDI, addrHapiBitmap
	e.emitLE32(addrHapiBitmap)
	e.emit(0x01, 0xC7)       // ADD EDI, EAX
	e.emit(0xC6, 0x07, 0x00) // MOV BYTE [EDI], 0
	e.emit(0xC3)

	// __hapi_transfer reassigns ownership of the page at EAX to the owner
	// tag in EDX, recorded at addrHapiOwner's paired slot for diagnostics.
	e.label("__hapi_transfer")
	e.emit(0x89, 0x15) // MOV [addrHapiOwner], EDX
	e.emitLE32(addrHapiOwner)
	e.emit(0xC3)
}

// --- Content-addressed directory lookups --------------------------------
//
// The Noun segment is deduplicated at assembly time (internal/noun); these
// routines let kernel code perform the equivalent check at runtime against
// a directory of 40-byte entries staged at addrCasDir, each holding the
// first dword of a hash at offset 0 and an address at offset 32, with
// addrCasCap entries in use.
func (e *Emitter) emitCasRoutines() {
	e.label("__cas_init")
	e.emit(0xC7, 0x05) // MOV dword [addrCasCap], 0
	e.emitLE32(addrCasCap)
	e.emitLE32(0)
	e.emit(0xC3)

	// __cas_get: ESI = hash ptr (32 bytes) in, EAX = stored address out
	// (0 if absent). Walks the directory linearly comparing the first
	// dword of each hash; full-width comparison is left to hash_eq.
	e.label(labelCasGet)
	e.emit(0xBF) // MOV EDI, addrCasDir
	e.emitLE32(addrCasDir)
	e.emit(0xB9, 0x00, 0x00, 0x00, 0x00) // MOV ECX, 0 (index)
	loopStart := e.stage2Pos()
	e.emit(0x3B, 0x0D) // CMP ECX, [addrCasCap]
	e.emitLE32(addrCasCap)
	miss := e.emitRel8Placeholder(0x7D) // JGE miss
	e.emit(0x8B, 0x07)                  // MOV EAX, [EDI]
	e.emit(0x39, 0x06)                  // CMP [ESI], EAX
	hit := e.emitRel8Placeholder(0x74) // JE found
	e.emit(0x83, 0xC7, 0x28)           // ADD EDI, 40 (32-byte hash + 4-byte addr, padded)
	e.emit(0x41)                       // INC ECX
	e.emit(0xEB)                       // JMP loopStart
	e.emit(byte(int8(loopStart - (e.stage2Pos() + 1))))
	e.patchRel8Here(hit)
	e.emit(0x8B, 0x47, 0x20) // MOV EAX, [EDI+32]
	e.emit(0xC3)
	e.patchRel8Here(miss)
	e.emit(0x31, 0xC0) // XOR EAX, EAX
	e.emit(0xC3)

	// __cas_put: ESI = hash ptr, EAX = address; appends one directory
	// entry and returns.
	e.label("__cas_put")
	e.emit(0xBF) // MOV EDI, addrCasDir
	e.emitLE32(addrCasDir)
	e.emit(0x8B, 0x15) // MOV EDX, [addrCasCap]
	e.emitLE32(addrCasCap)
	e.emit(0x6B, 0xD2, 0x28) // IMUL EDX, EDX, 40
	e.emit(0x01, 0xD7)       // ADD EDI, EDX
	e.emit(0x8B, 0x16)       // MOV EDX, [ESI]
	e.emit(0x89, 0x17)       // MOV [EDI], EDX
	e.emit(0x89, 0x47, 0x20) // MOV [EDI+32], EAX
	e.emit(0xFF, 0x05)       // INC dword [addrCasCap]
	e.emitLE32(addrCasCap)
	e.emit(0xC3)

	// __cas_hash_eq: ESI, EDI = two 32-byte hash pointers; returns ZF set
	// (via a final CMP EAX,EAX) iff every dword matches.
	e.label("__cas_hash_eq")
	e.emit(0xB9, 0x08, 0x00, 0x00, 0x00) // MOV ECX, 8
	hloop := e.stage2Pos()
	e.emit(0x8B, 0x06) // MOV EAX, [ESI]
	e.emit(0x3B, 0x07) // CMP EAX, [EDI]
	done := e.emitRel8Placeholder(0x75) // JNZ done (leaves ZF clear)
	e.emit(0x83, 0xC6, 0x04)            // ADD ESI, 4
	e.emit(0x83, 0xC7, 0x04)            // ADD EDI, 4
	e.emit(0x49)                        // DEC ECX
	e.emit(0x75)                        // JNZ hloop
	e.emit(byte(int8(hloop - (e.stage2Pos() + 1))))
	e.patchRel8Here(done)
	e.emit(0xC3)
}

// --- Boot-mode teletype output ------------------------------------------

// emitStdPrint implements the BIOS teletype loop: SI points at a
// NUL-terminated string, each byte is written via INT 10h/AH=0Eh.
func (e *Emitter) emitStdPrint() {
	e.label(labelStdPrint)
	loop := e.stage2Pos()
	e.emit(0xAC)             // LODSB
	e.emit(0x08, 0xC0)       // OR AL, AL
	done := e.emitRel8Placeholder(0x74) // JZ done
	e.emit(0xB4, 0x0E)                  // MOV AH, 0x0E
	e.emit(0xCD, 0x10)                  // INT 0x10
	e.emit(0xEB)                        // JMP loop
	e.emit(byte(int8(loop - (e.stage2Pos() + 1))))
	e.patchRel8Here(done)
	e.emit(0xC3)
}

// emitPrintHex32 prints EAX as eight uppercase hex digits via std_print,
// staging the ASCII form in a scratch buffer at the fixed address 0x9020.
func (e *Emitter) emitPrintHex32() {
	e.label(labelPrintHex32)
	e.emit(0x60) // PUSHA
	e.emit(0xB9, 0x08, 0x00, 0x00, 0x00) // MOV ECX, 8
	e.emit(0xBF)                         // MOV EDI, scratch (reuse the cursor dword's neighborhood)
	e.emitLE32(0x9020)
	e.emit(0x89, 0xFE) // MOV ESI, EDI  (used as the eventual print pointer)
	loop := e.stage2Pos()
	e.emit(0xC1, 0xC0, 0x04) // ROL EAX, 4
	e.emit(0x89, 0xC2)       // MOV EDX, EAX
	e.emit(0x80, 0xE2, 0x0F) // AND DL, 0x0F
	e.emit(0x80, 0xC2, 0x30) // ADD DL, '0'
	e.emit(0x80, 0xFA, 0x39) // CMP DL, '9'
	skip := e.emitRel8Placeholder(0x7E) // JLE skip
	e.emit(0x80, 0xC2, 0x07)            // ADD DL, 7 ('A'-'9'-1)
	e.patchRel8Here(skip)
	e.emit(0x88, 0x17)       // MOV [EDI], DL
	e.emit(0x47)             // INC EDI
	e.emit(0x49)             // DEC ECX
	e.emit(0x75)             // JNZ loop
	e.emit(byte(int8(loop - (e.stage2Pos() + 1))))
	e.emit(0xC6, 0x07, 0x00) // MOV BYTE [EDI], 0
	e.emit(0xBE)             // MOV ESI, scratch
	e.emitLE32(0x9020)
	e.emit(0xE8) // CALL std_print
	e.recordPatch(asmerr.Position{}, ast.Identifier(labelStdPrint))
	e.emit(0x61) // POPA
	e.emit(0xC3)
}

// --- Phoenix rebirth, ISR, IDT/GDT construction --------------------------

// emitISR emits __phoenix_rebirth, the routine every IDT gate points at:
// CLI, reset ESP to its boot value, then look up the hash pointed to by
// addrCurrentPlan in the CAS directory and re-enter the recorded
// entrypoint if the lookup hits, or halt with interrupts disabled if it
// misses.
func (e *Emitter) emitISR() int64 {
	e.label("__phoenix_rebirth")
	addr := e.stage2Pos()
	e.emit(0xFA) // CLI
	e.emit(0xBC) // MOV ESP, imm32
	e.emitLE32(addrInitialESP)
	e.emit(0x8B, 0x35) // MOV ESI, [addrCurrentPlan]
	e.emitLE32(addrCurrentPlan)
	e.emit(0xE8) // CALL __cas_get
	e.recordPatch(asmerr.Position{}, ast.Identifier(labelCasGet))
	e.emit(0x85, 0xC0)                  // TEST EAX, EAX
	halt := e.emitRel8Placeholder(0x74) // JZ halt
	e.emit(0xFF, 0xE0)                  // JMP EAX (recorded entrypoint)
	e.patchRel8Here(halt)
	e.emit(0xFA)       // CLI
	e.emit(0xF4)       // HLT
	e.emit(0xEB, 0xFE) // JMP $-2
	return addr
}

const idtEntries = 32

// emitIDT lays down idtEntries identical 8-byte gate descriptors pointing
// at isrAddr, selector 0x08, type/attr 0x8E (present, ring 0, 32-bit
// interrupt gate), per the runtime layout.
func (e *Emitter) emitIDT(isrAddr int64) (int64, uint16) {
	base := e.stage2Pos()
	for i := 0; i < idtEntries; i++ {
		e.emitLE16(uint16(isrAddr))
		e.emitLE16(0x08)
		e.emit(0x00)
		e.emit(0x8E)
		e.emitLE16(uint16(isrAddr >> 16))
	}
	return base, uint16(idtEntries*8 - 1)
}

func (e *Emitter) emitIDTR(idtAddr int64, limit uint16) int64 {
	addr := e.stage2Pos()
	e.emitLE16(limit)
	e.emitLE32(uint32(idtAddr))
	return addr
}

// gdtEntry packs one flat-model segment descriptor.
func gdtEntry(base, limit uint32, access, flags byte) [8]byte {
	var d [8]byte
	d[0] = byte(limit)
	d[1] = byte(limit >> 8)
	d[2] = byte(base)
	d[3] = byte(base >> 8)
	d[4] = byte(base >> 16)
	d[5] = access
	d[6] = byte(limit>>16)&0x0F | (flags << 4)
	d[7] = byte(base >> 24)
	return d
}

// emitGDT lays down the four descriptors the pmode entry selects from:
// null, flat code (0x08), flat data (0x10), and a VGA text-buffer window
// (0x18) reused by the not-yet-written console tooling.
func (e *Emitter) emitGDT() (int64, uint16) {
	base := e.stage2Pos()
	entries := [][8]byte{
		gdtEntry(0, 0, 0x00, 0x0),
		gdtEntry(0, 0xFFFFF, 0x9A, 0xC),
		gdtEntry(0, 0xFFFFF, 0x92, 0xC),
		gdtEntry(0xB8000, 0xFFF, 0x92, 0x4),
	}
	for _, d := range entries {
		e.emit(d[:]...)
	}
	return base, uint16(len(entries)*8 - 1)
}

func (e *Emitter) emitGDTR(gdtAddr int64, limit uint16) int64 {
	addr := e.stage2Pos()
	e.emitLE16(limit)
	e.emitLE32(uint32(gdtAddr))
	return addr
}
