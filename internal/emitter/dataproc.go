package emitter

import (
	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/level"
	"github.com/hackia/thot/internal/register"
)

// lowerHenek emits Henek (MOV): segment-dest uses 8E /r; general registers
// at Level<=High use B8+rd imm32 (Number/Helix) or 8B /r (register source);
// Extreme/Xenith move through the register bank via REP MOVSD, with Helix
// literals staged through the Noun.
func (e *Emitter) lowerHenek(h ast.Henek) error {
	destSpec, err := register.Parse(h.Destination)
	if err != nil {
		return err
	}

	if destSpec.Kind == register.KindSegment {
		src, ok := h.Value.(ast.Register)
		if !ok {
			return asmerr.New(asmerr.Type, h.Pos(), "segment registers require a register source")
		}
		srcSpec, err := register.ParseGeneral(string(src))
		if err != nil {
			return err
		}
		e.emit(0x8E, register.ModRMSegLoad(destSpec.Seg, srcSpec.Base))
		return nil
	}

	if destSpec.Level <= level.High {
		e.emit66()
		switch val := h.Value.(type) {
		case ast.Number:
			e.emit(0xB8 + destSpec.Code())
			e.emitLE32(uint32(int32(val)))
		case ast.Helix:
			e.emit(0xB8 + destSpec.Code())
			e.emitLE32(helixImmediate(val))
		case ast.Register:
			srcSpec, err := register.ParseGeneral(string(val))
			if err != nil {
				return err
			}
			e.emit(0x8B, register.ModRMMovRegRM(destSpec.Base, srcSpec.Base))
		default:
			return asmerr.New(asmerr.Type, h.Pos(), "henek does not support this operand form")
		}
		return nil
	}

	return e.lowerBankMove(h.Pos(), destSpec, h.Value)
}

// lowerBankMove implements the Extreme/Xenith register-bank copy shared by
// Henek's wide forms: a Helix literal is staged in the Noun and copied in;
// a register source is copied directly, slot to slot.
func (e *Emitter) lowerBankMove(pos asmerr.Position, destSpec register.Spec, value ast.Expression) error {
	count := uint32(4)
	if destSpec.Level == level.Xenith {
		count = 8
	}

	var srcAddr uint32
	switch v := value.(type) {
	case ast.Helix:
		var addr uint16
		var err error
		if destSpec.Level == level.Xenith {
			addr, err = e.noun.AllocXenithLiteral(v.Ra, v.Apophis)
		} else {
			addr, err = e.noun.AllocHelixLiteral(v.Ra, v.Apophis)
		}
		if err != nil {
			return err
		}
		srcAddr = uint32(addr)
	case ast.Register:
		srcSpec, err := register.ParseGeneral(string(v))
		if err != nil {
			return err
		}
		srcAddr = bankSlot(srcSpec.Base)
	default:
		return asmerr.New(asmerr.Type, pos, "wide registers only accept Helix literals or registers")
	}

	e.emit(0xBE) // MOV ESI, imm32
	e.emitLE32(srcAddr)
	e.emit(0xBF) // MOV EDI, imm32
	e.emitLE32(bankSlot(destSpec.Base))
	e.emit(0xB9) // MOV ECX, imm32
	e.emitLE32(count)
	e.emit(0xF3, 0xA5) // REP MOVSD
	return nil
}

// lowerArith implements the shared shape of Sema/Kheb/Henet/Mer: Level<=High
// uses the Group-1 ALU opcodes (immediate or register-to-register); Extreme
// (and, when helperXenith is set, Xenith) defers to a synthesized helper.
func (e *Emitter) lowerArith(meta ast.Meta, destName string, value ast.Expression, verb string, group uint8, helperExtreme, helperXenith string, _ bool) error {
	destSpec, err := register.ParseGeneral(destName)
	if err != nil {
		return err
	}

	if destSpec.Level <= level.High {
		e.emit66()
		switch v := value.(type) {
		case ast.Number:
			e.emit(0x81, register.ModRMImm(destSpec.Base, group))
			e.emitLE32(uint32(int32(v)))
		case ast.Helix:
			e.emit(0x81, register.ModRMImm(destSpec.Base, group))
			e.emitLE32(helixImmediate(v))
		case ast.Register:
			srcSpec, err := register.ParseGeneral(string(v))
			if err != nil {
				return err
			}
			e.emit(groupRegOpcode(group), register.ModRMRegReg(destSpec.Base, srcSpec.Base))
		default:
			return asmerr.New(asmerr.Type, meta.Pos(), "%s does not support this operand form", verb)
		}
		return nil
	}

	helper := helperExtreme
	if destSpec.Level == level.Xenith {
		if helperXenith == "" {
			return asmerr.New(asmerr.Type, meta.Pos(), "%s does not support Xenith-width registers", verb)
		}
		helper = helperXenith
	}
	return e.callWideHelper(meta, destSpec, value, helper)
}

// groupRegOpcode returns the register-to-register opcode paired with a
// Group-1 immediate /op selector.
func groupRegOpcode(group uint8) byte {
	switch group {
	case groupAdd:
		return 0x01
	case groupOr:
		return 0x09
	case groupAnd:
		return 0x21
	case groupSub:
		return 0x29
	case groupCmp:
		return 0x39
	default:
		return 0x01
	}
}

// callWideHelper stages operand pointers into EDI (destination slot) and
// ESI (source slot or Noun literal address) and calls the named 128/256-bit
// helper, whose patch is resolved once the trampoline has appended it.
func (e *Emitter) callWideHelper(meta ast.Meta, destSpec register.Spec, value ast.Expression, helper string) error {
	var srcAddr uint32
	switch v := value.(type) {
	case ast.Helix:
		var addr uint16
		var err error
		if destSpec.Level == level.Xenith {
			addr, err = e.noun.AllocXenithLiteral(v.Ra, v.Apophis)
		} else {
			addr, err = e.noun.AllocHelixLiteral(v.Ra, v.Apophis)
		}
		if err != nil {
			return err
		}
		srcAddr = uint32(addr)
	case ast.Register:
		srcSpec, err := register.ParseGeneral(string(v))
		if err != nil {
			return err
		}
		srcAddr = bankSlot(srcSpec.Base)
	default:
		return asmerr.New(asmerr.Type, meta.Pos(), "wide arithmetic only accepts Helix literals or registers")
	}

	e.emit(0xBF) // MOV EDI, imm32 (destination slot)
	e.emitLE32(bankSlot(destSpec.Base))
	e.emit(0xBE) // MOV ESI, imm32 (source slot or literal)
	e.emitLE32(srcAddr)
	e.emit(0xE8) // CALL
	e.recordPatch(meta.Pos(), ast.Identifier(helper))
	return nil
}

// lowerShesa emits Shesa (IMUL): `69 /r id` immediate form, `0F AF /r`
// register form at Level<=High; Extreme defers to __helix_mul128.
func (e *Emitter) lowerShesa(s ast.Shesa) error {
	destSpec, err := register.ParseGeneral(s.Destination)
	if err != nil {
		return err
	}

	if destSpec.Level <= level.High {
		e.emit66()
		switch v := s.Value.(type) {
		case ast.Number:
			e.emit(0x69, register.ModRMRegReg(destSpec.Base, destSpec.Base))
			e.emitLE32(uint32(int32(v)))
		case ast.Helix:
			e.emit(0x69, register.ModRMRegReg(destSpec.Base, destSpec.Base))
			e.emitLE32(helixImmediate(v))
		case ast.Register:
			srcSpec, err := register.ParseGeneral(string(v))
			if err != nil {
				return err
			}
			e.emit(0x0F, 0xAF, register.ModRMRegReg(destSpec.Base, srcSpec.Base))
		default:
			return asmerr.New(asmerr.Type, s.Pos(), "shesa does not support this operand form")
		}
		return nil
	}

	return e.callWideHelper(s.Meta, destSpec, s.Value, opHelixMul128)
}

// lowerWdj emits Wdj (CMP): Group-1 /7 immediate or 0x39 register-to-register
// at Level<=High; Extreme/Xenith defer to the 128/256-bit comparator.
func (e *Emitter) lowerWdj(w ast.Wdj) error {
	leftSpec, err := register.ParseGeneral(w.Left)
	if err != nil {
		return err
	}

	if leftSpec.Level <= level.High {
		e.emit66()
		switch v := w.Right.(type) {
		case ast.Number:
			e.emit(0x81, register.ModRMImm(leftSpec.Base, groupCmp))
			e.emitLE32(uint32(int32(v)))
		case ast.Helix:
			e.emit(0x81, register.ModRMImm(leftSpec.Base, groupCmp))
			e.emitLE32(helixImmediate(v))
		case ast.Register:
			rightSpec, err := register.ParseGeneral(string(v))
			if err != nil {
				return err
			}
			e.emit(0x39, register.ModRMRegReg(leftSpec.Base, rightSpec.Base))
		default:
			return asmerr.New(asmerr.Type, w.Pos(), "wdj does not support this operand form")
		}
		return nil
	}

	helper := opHelixCmp128
	if leftSpec.Level == level.Xenith {
		helper = opXenithCmp256
	}
	return e.callWideHelper(w.Meta, leftSpec, w.Right, helper)
}
