package emitter

// Fixed runtime addresses for the globals the synthesized helpers operate
// on.
const (
	addrCursor      = 0x9000
	addrCurrentPlan = 0x9004
	addrHapiBitmap  = 0x9008
	addrHapiPages   = 0x900C
	addrHapiHeap    = 0x9010
	addrHapiOwner   = 0x9014
	addrCasDir      = 0x9018
	addrCasCap      = 0x901C
	addrInitialESP  = 0x0009FC00
)

// stage2Pos returns the absolute address of the next byte appended to
// Stage-2; valid only while e.inKernel is true.
func (e *Emitter) stage2Pos() int64 {
	return baseStage2 + int64(len(e.stage2))
}

// patchLE16At overwrites two placeholder bytes already written to Stage-2
// with the little-endian encoding of v. Used for the handful of fixups the
// trampoline resolves immediately, without deferring to the generic patch
// list, because the target (a record further down in the same function)
// is known before Lower returns.
func (e *Emitter) patchLE16At(offset int, v uint16) {
	e.stage2[offset] = byte(v)
	e.stage2[offset+1] = byte(v >> 8)
}

func (e *Emitter) patchLE32At(offset int, v uint32) {
	e.stage2[offset] = byte(v)
	e.stage2[offset+1] = byte(v >> 8)
	e.stage2[offset+2] = byte(v >> 16)
	e.stage2[offset+3] = byte(v >> 24)
}

// emitTrampoline appends the real-mode-to-protected-mode switch, the
// runtime helper routines, and the GDT/IDT/Phoenix machinery to Stage-2,
// exactly once, immediately after the kernel label is recorded.
func (e *Emitter) emitTrampoline() error {
	// 1. Real-mode preface.
	e.emit(0xFA)       // CLI
	e.emit(0x31, 0xC0) // XOR AX, AX
	e.emit(0x8E, 0xD8) // MOV DS, AX
	e.emit(0xE4, 0x92) // IN AL, 92h
	e.emit(0x0C, 0x02) // OR AL, 2
	e.emit(0xE6, 0x92) // OUT 92h, AL

	e.emit(0x0F, 0x01, 0x16) // LGDT [disp16]
	lgdtDispOffset := len(e.stage2)
	e.emitLE16(0)

	e.emit(0x0F, 0x20, 0xC0) // MOV EAX, CR0
	e.emit(0x66, 0x0C, 0x01) // OR AL, 1 (set PE)
	e.emit(0x0F, 0x22, 0xC0) // MOV CR0, EAX

	e.emit(0x66, 0xEA) // far JMP ptr16:32
	farJmpOffsetOffset := len(e.stage2)
	e.emitLE32(0)
	e.emitLE16(0x08)

	// 2. Protected-mode entry. Every subsequent operand-width decision
	// respects pmodeEnabled from this point on.
	e.pmodeEnabled = true
	pmodeEntry := e.stage2Pos()

	e.emit(0x66, 0xB8, 0x10, 0x00) // MOV AX, 0x10
	e.emit(0x8E, 0xD8)             // MOV DS, AX
	e.emit(0x8E, 0xC0)             // MOV ES, AX
	e.emit(0x8E, 0xD0)             // MOV SS, AX
	e.emit(0x8E, 0xE0)             // MOV FS, AX
	e.emit(0x66, 0xB8, 0x18, 0x00) // MOV AX, 0x18
	e.emit(0x8E, 0xE8)             // MOV GS, AX

	e.emit(0xBC) // MOV ESP, imm32
	e.emitLE32(addrInitialESP)
	e.emit(0xFC) // CLD

	for _, addr := range []uint32{addrCursor, addrCurrentPlan, addrHapiBitmap, addrHapiPages, addrHapiHeap, addrHapiOwner, addrCasDir, addrCasCap} {
		e.emit(0xC7, 0x05) // MOV dword [disp32], imm32
		e.emitLE32(addr)
		e.emitLE32(0)
	}

	e.emit(0x0F, 0x01, 0x1E) // LIDT [disp16]
	lidtDispOffset := len(e.stage2)
	e.emitLE16(0)

	// 3. Synthesized helpers, at well-known labels.
	e.emitWideHelpers()
	e.emitHapiRoutines()
	e.emitCasRoutines()
	if e.boot {
		e.emitStdPrint()
		e.emitPrintHex32()
	}

	// 4. ISR, IDT, IDTR, GDT, GDTR, Phoenix.
	isrAddr := e.emitISR()
	idtAddr, idtLimit := e.emitIDT(isrAddr)
	idtrAddr := e.emitIDTR(idtAddr, idtLimit)
	gdtAddr, gdtLimit := e.emitGDT()
	gdtrAddr := e.emitGDTR(gdtAddr, gdtLimit)

	e.patchLE16At(lgdtDispOffset, uint16(gdtrAddr))
	e.patchLE16At(lidtDispOffset, uint16(idtrAddr))
	e.patchLE32At(farJmpOffsetOffset, uint32(pmodeEntry))

	return nil
}
