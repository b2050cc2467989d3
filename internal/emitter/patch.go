package emitter

import (
	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
)

// Group1 ALU /op selectors used with register.ModRMImm.
const (
	groupAdd uint8 = 0
	groupOr  uint8 = 1
	groupAnd uint8 = 4
	groupSub uint8 = 5
	groupCmp uint8 = 7
)

// Well-known labels for the synthesized 128/256-bit helpers, resolved by
// the ordinary jump-patch mechanism once the trampoline has emitted them.
const (
	opHelixAdd128  = "__helix_add128"
	opHelixSub128  = "__helix_sub128"
	opHelixMul128  = "__helix_mul128"
	opHelixAnd128  = "__helix_and128"
	opHelixOr128   = "__helix_or128"
	opHelixCmp128  = "__helix_cmp128"
	opXenithAdd256 = "__xenith_add256"
	opXenithSub256 = "__xenith_sub256"
	opXenithCmp256 = "__xenith_cmp256"

	labelStdPrint   = "std_print"
	labelPrintHex32 = "print_hex_32"
	labelCasGet     = "__cas_get"
)

// jumpPatch is a deferred relative-displacement fixup: write size bytes at
// offset (within the named region's buffer) once every label is known.
type jumpPatch struct {
	offset int
	target ast.Expression
	region region
	size   int
	pos    asmerr.Position
}

// recordPatch pushes a placeholder jump/call record and writes size zero
// bytes at the current cursor: the displacement cannot be computed at
// emission time, since the target may be a label defined later in the
// stream.
func (e *Emitter) recordPatch(pos asmerr.Position, target ast.Expression) {
	size := 2
	if e.pmodeEnabled {
		size = 4
	}
	buf := e.curBuf()
	e.patches = append(e.patches, jumpPatch{
		offset: len(*buf),
		target: target,
		region: e.curRegion(),
		size:   size,
		pos:    pos,
	})
	for i := 0; i < size; i++ {
		e.emit(0)
	}
}

func (e *Emitter) lowerDirectJump(meta ast.Meta, target ast.Expression, opcode byte, _ bool) error {
	e.emit(opcode)
	e.recordPatch(meta.Pos(), target)
	return nil
}

func (e *Emitter) lowerCondJump(meta ast.Meta, target ast.Expression, secondByte byte) error {
	e.emit(0x0F, secondByte)
	e.recordPatch(meta.Pos(), target)
	return nil
}

// patchAll resolves every recorded jump/call against the final label map.
func (e *Emitter) patchAll() error {
	for _, p := range e.patches {
		var buf *[]byte
		var base int64
		switch p.region {
		case regionStage1:
			buf = &e.stage1
			base = baseStage1
		default:
			buf = &e.stage2
			base = baseStage2
		}

		name, ok := p.target.(ast.Identifier)
		if !ok {
			if lbl, isLbl := p.target.(ast.Register); isLbl {
				name = ast.Identifier(lbl)
			} else {
				return asmerr.New(asmerr.Reference, p.pos, "jump target is not a resolvable label: %v", p.target)
			}
		}
		addr, ok := e.labels[string(name)]
		if !ok {
			return asmerr.New(asmerr.Reference, p.pos, "missing label: %s", name)
		}

		disp := addr - (base + int64(p.offset) + int64(p.size))
		if p.size == 2 {
			if disp < -32768 || disp > 32767 {
				return asmerr.New(asmerr.Range, p.pos, "jump displacement out of i16 range for label %s: %d", name, disp)
			}
			d := uint16(int16(disp))
			(*buf)[p.offset] = byte(d)
			(*buf)[p.offset+1] = byte(d >> 8)
		} else {
			if disp < -2147483648 || disp > 2147483647 {
				return asmerr.New(asmerr.Range, p.pos, "jump displacement out of i32 range for label %s: %d", name, disp)
			}
			d := uint32(int32(disp))
			(*buf)[p.offset] = byte(d)
			(*buf)[p.offset+1] = byte(d >> 8)
			(*buf)[p.offset+2] = byte(d >> 16)
			(*buf)[p.offset+3] = byte(d >> 24)
		}
	}
	return nil
}

// Assemble runs the patch pass and concatenates the final byte image: boot
// mode produces a sector-padded, signed image; non-boot mode is a bare
// concatenation left for the ELF wrapper.
func (e *Emitter) Assemble() ([]byte, error) {
	if err := e.patchAll(); err != nil {
		return nil, err
	}

	if !e.boot {
		out := make([]byte, 0, len(e.stage1)+len(e.stage2)+e.noun.Len())
		out = append(out, e.stage1...)
		out = append(out, e.stage2...)
		out = append(out, e.noun.Bytes()...)
		return out, nil
	}

	if len(e.stage1) > 510 {
		return nil, asmerr.New(asmerr.Range, asmerr.Position{}, "stage-1 overflows 510 bytes in boot mode: %d", len(e.stage1))
	}

	out := make([]byte, len(e.stage1), 512)
	copy(out, e.stage1)
	for len(out) < 510 {
		out = append(out, 0)
	}
	out = append(out, 0x55, 0xAA)

	stage2 := make([]byte, len(e.stage2))
	copy(stage2, e.stage2)
	for len(stage2) < 512 {
		stage2 = append(stage2, 0)
	}
	out = append(out, stage2...)
	out = append(out, e.noun.Bytes()...)

	for len(out)%512 != 0 {
		out = append(out, 0)
	}
	return out, nil
}
