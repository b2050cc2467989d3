package emitter_test

import (
	"testing"

	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/emitter"
	"github.com/hackia/thot/internal/noun"
)

func assembleOne(t *testing.T, instructions []ast.Instruction) []byte {
	t.Helper()
	e := emitter.New(false)
	if err := e.Lower(instructions); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	img, err := e.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return img
}

func TestLowerHenekNumberEmits66B8Imm32(t *testing.T) {
	img := assembleOne(t, []ast.Instruction{
		ast.Henek{Destination: "ka", Value: ast.Number(42)},
	})
	want := []byte{0x66, 0xB8, 42, 0, 0, 0}
	if string(img) != string(want) {
		t.Fatalf("got % X, want % X", img, want)
	}
}

func TestLowerSemaRegisterToRegister(t *testing.T) {
	img := assembleOne(t, []ast.Instruction{
		ast.Sema{Destination: "ka", Value: ast.Register("ib")},
	})
	// ADD %ka, %ib -> 66 01 C8 (ModRM: C0 | (regCode(ib)=1)<<3 | regCode(ka)=0)
	want := []byte{0x66, 0x01, 0xC8}
	if string(img) != string(want) {
		t.Fatalf("got % X, want % X", img, want)
	}
}

func TestLowerWdjImmediateUsesGroup1Cmp(t *testing.T) {
	img := assembleOne(t, []ast.Instruction{
		ast.Wdj{Left: "ka", Right: ast.Number(10)},
	})
	// CMP %ka, 10 -> 66 81 F8 0A 00 00 00 (ModRM: C0 | 7<<3 | 0 = F8)
	want := []byte{0x66, 0x81, 0xF8, 10, 0, 0, 0}
	if string(img) != string(want) {
		t.Fatalf("got % X, want % X", img, want)
	}
}

func TestLowerNehehPatchesForwardLabel(t *testing.T) {
	img := assembleOne(t, []ast.Instruction{
		ast.Neheh{Target: ast.Identifier("fin")},
		ast.Henek{Destination: "ka", Value: ast.Number(5)},
		ast.Label{Name: "fin"},
	})
	// E9 <disp16> then the henek's 6 bytes; the jump lands just past them,
	// so its displacement is 6 (the length of the intervening henek).
	want := []byte{0xE9, 0x06, 0x00, 0x66, 0xB8, 0x05, 0x00, 0x00, 0x00}
	if string(img) != string(want) {
		t.Fatalf("got % X, want % X", img, want)
	}
}

func TestAssembleFailsOnUnresolvedJumpTarget(t *testing.T) {
	e := emitter.New(false)
	err := e.Lower([]ast.Instruction{
		ast.Neheh{Target: ast.Identifier("nowhere")},
	})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if _, err := e.Assemble(); err == nil {
		t.Fatal("expected an error for a jump to an undefined label")
	}
}

func TestLowerPerAfterKernelEntryIsRejected(t *testing.T) {
	e := emitter.New(false)
	err := e.Lower([]ast.Instruction{
		ast.Label{Name: "kernel"},
		ast.Per{Message: ast.StringLiteral("too late")},
	})
	if err == nil {
		t.Fatal("expected an error lowering per once the kernel label has entered protected mode")
	}
}

func TestLowerPerBeforeKernelEntrySucceeds(t *testing.T) {
	e := emitter.New(true)
	err := e.Lower([]ast.Instruction{
		ast.Per{Message: ast.StringLiteral("hi")},
		ast.Label{Name: "kernel"},
	})
	if err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if _, err := e.Assemble(); err != nil {
		t.Fatalf("Assemble: %v", err)
	}
}

func TestEmitISRPerformsCasLookupAndHaltFallback(t *testing.T) {
	e := emitter.New(true)
	if err := e.Lower([]ast.Instruction{
		ast.Label{Name: "kernel"},
	}); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	img, err := e.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	addr, ok := e.Labels()["__phoenix_rebirth"]
	if !ok {
		t.Fatal("expected a __phoenix_rebirth label")
	}
	off := int(512 + (addr - 0x7E00))
	isr := img[off : off+27]

	if isr[0] != 0xFA {
		t.Fatalf("got %#x at the ISR entry, want 0xFA (CLI)", isr[0])
	}
	if isr[1] != 0xBC {
		t.Fatalf("got %#x, want 0xBC (MOV ESP,imm32)", isr[1])
	}
	esp := uint32(isr[2]) | uint32(isr[3])<<8 | uint32(isr[4])<<16 | uint32(isr[5])<<24
	if esp != 0x0009FC00 {
		t.Fatalf("got ESP reset value %#x, want 0x9FC00", esp)
	}
	if isr[6] != 0x8B || isr[7] != 0x35 {
		t.Fatalf("got % X, want 8B 35 (MOV ESI,[disp32])", isr[6:8])
	}
	plan := uint32(isr[8]) | uint32(isr[9])<<8 | uint32(isr[10])<<16 | uint32(isr[11])<<24
	if plan != 0x9004 {
		t.Fatalf("got addrCurrentPlan operand %#x, want 0x9004", plan)
	}
	if isr[12] != 0xE8 {
		t.Fatalf("got %#x at 12, want 0xE8 (CALL __cas_get)", isr[12])
	}
	if isr[17] != 0x85 || isr[18] != 0xC0 {
		t.Fatalf("got % X, want 85 C0 (TEST EAX,EAX)", isr[17:19])
	}
	if isr[19] != 0x74 || isr[20] != 2 {
		t.Fatalf("got % X, want 74 02 (JZ halt)", isr[19:21])
	}
	if isr[21] != 0xFF || isr[22] != 0xE0 {
		t.Fatalf("got % X, want FF E0 (JMP EAX)", isr[21:23])
	}
	want := []byte{0xFA, 0xF4, 0xEB, 0xFE}
	if string(isr[23:27]) != string(want) {
		t.Fatalf("got % X, want FA F4 EB FE (CLI;HLT;JMP $-2)", isr[23:27])
	}
}

func TestLowerHenekWideHelixLiteralStagesThroughNoun(t *testing.T) {
	img := assembleOne(t, []ast.Instruction{
		ast.Henek{Destination: "eka", Value: ast.Helix{Ra: 10, Apophis: 20}},
	})
	// MOV ESI,imm32(noun addr) ; MOV EDI,imm32(bank slot for ka) ; MOV ECX,4 ; REP MOVSD
	if len(img) < 17 {
		t.Fatalf("got %d bytes, want at least 17", len(img))
	}
	if img[0] != 0xBE {
		t.Fatalf("got opcode %#x at 0, want 0xBE (MOV ESI,imm32)", img[0])
	}
	nounAddr := uint32(img[1]) | uint32(img[2])<<8 | uint32(img[3])<<16 | uint32(img[4])<<24
	wantAddr := uint32(noun.Base + 48) // first payload in an empty Noun store sits right after its 48-byte header
	if nounAddr != wantAddr {
		t.Fatalf("got noun source address %#x, want %#x", nounAddr, wantAddr)
	}
	if img[5] != 0xBF {
		t.Fatalf("got opcode %#x at 5, want 0xBF (MOV EDI,imm32)", img[5])
	}
	bankSlot := uint32(img[6]) | uint32(img[7])<<8 | uint32(img[8])<<16 | uint32(img[9])<<24
	if bankSlot != 0x9100 { // ka is bank slot 0
		t.Fatalf("got bank slot address %#x, want 0x9100", bankSlot)
	}
	if img[10] != 0xB9 {
		t.Fatalf("got opcode %#x at 10, want 0xB9 (MOV ECX,imm32)", img[10])
	}
	count := uint32(img[11]) | uint32(img[12])<<8 | uint32(img[13])<<16 | uint32(img[14])<<24
	if count != 4 {
		t.Fatalf("got dword count %d, want 4 for an Extreme-level move", count)
	}
	if img[15] != 0xF3 || img[16] != 0xA5 {
		t.Fatalf("got trailing bytes % X, want F3 A5 (REP MOVSD)", img[15:17])
	}
}

func TestAssembleBootModeProducesSectorPaddedImage(t *testing.T) {
	e := emitter.New(true)
	if err := e.Lower([]ast.Instruction{
		ast.Henek{Destination: "ka", Value: ast.Number(1)},
	}); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	img, err := e.Assemble()
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if len(img)%512 != 0 {
		t.Fatalf("got image length %d, want a multiple of 512", len(img))
	}
	if len(img) < 1024 {
		t.Fatalf("got image length %d, want at least 1024 (Stage-1 + Stage-2 sectors)", len(img))
	}
	if img[510] != 0x55 || img[511] != 0xAA {
		t.Fatalf("got boot signature % X at 510:512, want 55 AA", img[510:512])
	}
}

func TestAssembleBootModeRejectsOversizedStage1(t *testing.T) {
	e := emitter.New(true)
	instructions := make([]ast.Instruction, 0, 100)
	for i := 0; i < 100; i++ {
		instructions = append(instructions, ast.Henek{Destination: "ka", Value: ast.Number(int32(i))})
	}
	if err := e.Lower(instructions); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	if _, err := e.Assemble(); err == nil {
		t.Fatal("expected an overflow error once Stage-1 exceeds 510 bytes")
	}
}

func TestLabelsExposesFinalAddresses(t *testing.T) {
	e := emitter.New(false)
	if err := e.Lower([]ast.Instruction{
		ast.Henek{Destination: "ka", Value: ast.Number(1)},
		ast.Label{Name: "here"},
	}); err != nil {
		t.Fatalf("Lower: %v", err)
	}
	labels := e.Labels()
	addr, ok := labels["here"]
	if !ok {
		t.Fatal("expected \"here\" in the label map")
	}
	if addr != 0x7C00+6 {
		t.Fatalf("got address %#x, want %#x", addr, 0x7C00+6)
	}
}
