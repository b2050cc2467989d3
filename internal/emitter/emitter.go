// Package emitter lowers a flattened Maât instruction stream into IA-32
// machine code split across a 512-byte Stage-1 region and a Stage-2 kernel
// region, plus the Noun data segment they reference.
package emitter

import (
	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/noun"
	"github.com/hackia/thot/internal/register"
)

const (
	baseStage1 = 0x7C00
	baseStage2 = 0x7E00

	// extremeBankBase is the fixed runtime address of the six general
	// registers' 128/256-bit backing store: 6 slots of 32 bytes, one per
	// register. A Level=Extreme register uses the low 16 bytes of its
	// slot; a Level=Xenith register uses the full 32.
	extremeBankBase = 0x9100
	bankSlotSize    = 32
)

// region identifies which of the two code buffers is currently active.
type region int

const (
	regionStage1 region = iota
	regionStage2
)

// Emitter holds all mutable state for one lowering pass. A fresh Emitter
// must be constructed per compilation; state is not safe to reuse.
type Emitter struct {
	boot bool

	stage1 []byte
	stage2 []byte
	noun   *noun.Store

	labels    map[string]int64
	variables map[string]uint16
	patches   []jumpPatch

	inKernel     bool
	pmodeEnabled bool
}

// New creates an Emitter. boot selects whether the bootloader-only helpers
// (std_print, print_hex_32) are available to Per.
func New(boot bool) *Emitter {
	return &Emitter{
		boot:      boot,
		noun:      noun.New(),
		labels:    make(map[string]int64),
		variables: make(map[string]uint16),
	}
}

// Labels exposes the final label->address map after Lower has run, for
// tooling (internal/inspector, the HTTP API) that wants to browse an
// assembly without re-deriving addresses itself.
func (e *Emitter) Labels() map[string]int64 {
	return e.labels
}

func (e *Emitter) curRegion() region {
	if e.inKernel {
		return regionStage2
	}
	return regionStage1
}

func (e *Emitter) curBase() int64 {
	if e.inKernel {
		return baseStage2
	}
	return baseStage1
}

func (e *Emitter) curBuf() *[]byte {
	if e.inKernel {
		return &e.stage2
	}
	return &e.stage1
}

func (e *Emitter) emit(bytes ...byte) {
	buf := e.curBuf()
	*buf = append(*buf, bytes...)
}

func (e *Emitter) emitLE32(v uint32) {
	e.emit(byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *Emitter) emitLE16(v uint16) {
	e.emit(byte(v), byte(v>>8))
}

// emit66 prepends the operand-size override only in real mode, per the
// mode-dependent prefix discipline.
func (e *Emitter) emit66() {
	if !e.pmodeEnabled {
		e.emit(0x66)
	}
}

// emit67 prepends the address-size override only in real mode.
func (e *Emitter) emit67() {
	if !e.pmodeEnabled {
		e.emit(0x67)
	}
}

func bankSlot(b register.Base) uint32 {
	idx := map[register.Base]uint32{
		register.Ka: 0, register.Ib: 1, register.Da: 2,
		register.Ba: 3, register.Si: 4, register.Di: 5,
	}[b]
	return extremeBankBase + idx*bankSlotSize
}

// helixImmediate packs a Helix literal into a single 32-bit value for
// Level<=High destinations: Ra occupies the high 16 bits, Apophis the low
// 16 bits, little-endian on the wire (property P2).
func helixImmediate(h ast.Helix) uint32 {
	return uint32(h.Ra)<<16 | uint32(h.Apophis)
}

// Lower walks the flattened instruction stream and appends bytes to the
// Stage-1/Stage-2 buffers, the Noun segment, the label map and the jump
// patch list. It does not perform the patch pass or final assembly; call
// Assemble for that once every instruction has been lowered.
func (e *Emitter) Lower(instructions []ast.Instruction) error {
	for _, instr := range instructions {
		if err := e.lowerOne(instr); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) lowerOne(instr ast.Instruction) error {
	switch v := instr.(type) {
	case ast.Label:
		return e.lowerLabel(v)
	case ast.Henek:
		return e.lowerHenek(v)
	case ast.Sema:
		return e.lowerArith(v.Meta, v.Destination, v.Value, "sema", groupAdd, opHelixAdd128, opXenithAdd256, false)
	case ast.Kheb:
		return e.lowerArith(v.Meta, v.Destination, v.Value, "kheb", groupSub, opHelixSub128, opXenithSub256, false)
	case ast.Shesa:
		return e.lowerShesa(v)
	case ast.Henet:
		return e.lowerArith(v.Meta, v.Destination, v.Value, "henet", groupAnd, opHelixAnd128, "", false)
	case ast.Mer:
		return e.lowerArith(v.Meta, v.Destination, v.Value, "mer", groupOr, opHelixOr128, "", false)
	case ast.Wdj:
		return e.lowerWdj(v)
	case ast.Neheh:
		return e.lowerDirectJump(v.Meta, v.Target, 0xE9, false)
	case ast.Jena:
		return e.lowerDirectJump(v.Meta, v.Target, 0xE8, false)
	case ast.Ankh:
		return e.lowerCondJump(v.Meta, v.Target, 0x84)
	case ast.Isfet:
		return e.lowerCondJump(v.Meta, v.Target, 0x85)
	case ast.Her:
		return e.lowerCondJump(v.Meta, v.Target, 0x8F)
	case ast.Kher:
		return e.lowerCondJump(v.Meta, v.Target, 0x8C)
	case ast.HerAnkh:
		return e.lowerCondJump(v.Meta, v.Target, 0x8D)
	case ast.KherAnkh:
		return e.lowerCondJump(v.Meta, v.Target, 0x8E)
	case ast.Kheper:
		return e.lowerKheper(v)
	case ast.Sena:
		return e.lowerSena(v)
	case ast.Push:
		return e.lowerPush(v)
	case ast.Pop:
		return e.lowerPop(v)
	case ast.In:
		return e.lowerInOut(v.Meta, v.Port, 0xE4, 0xEC)
	case ast.Out:
		return e.lowerInOut(v.Meta, v.Port, 0xE6, 0xEE)
	case ast.Duat:
		return e.lowerDuat(v)
	case ast.Sedjem:
		return e.lowerSedjem(v)
	case ast.Wab:
		e.emit(0xB8, 0x03, 0x00, 0xCD, 0x10)
		return nil
	case ast.Rdtsc:
		e.emit(0x0F, 0x31)
		return nil
	case ast.Kherp:
		e.emit(0xB8, 0x08, 0x02, 0xBB, 0x00, 0x7E, 0xB9, 0x02, 0x00, 0xBA, 0x80, 0x00, 0xCD, 0x13)
		return nil
	case ast.Return:
		return e.lowerReturn(v)
	case ast.Per:
		return e.lowerPer(v)
	case ast.Nama:
		return e.lowerNama(v)
	case ast.Smen, ast.CurrentAddressInstr:
		return nil
	case ast.Dema:
		return asmerr.New(asmerr.Reference, v.Pos(), "the emitter found a 'dema %q' instruction — the weaver forgot to flatten this tablet before code generation", v.Path)
	default:
		return asmerr.New(asmerr.Syntax, instr.Pos(), "unsupported instruction %T", instr)
	}
}

func (e *Emitter) lowerLabel(l ast.Label) error {
	if ast.IsKernelLabel(l.Name) && !e.inKernel {
		e.inKernel = true
		e.labels[l.Name] = e.curBase() + int64(len(*e.curBuf()))
		return e.emitTrampoline()
	}
	e.labels[l.Name] = e.curBase() + int64(len(*e.curBuf()))
	return nil
}
