package emitter

import (
	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/level"
	"github.com/hackia/thot/internal/register"
)

// addrMode describes how an addressing-form expression resolves: either a
// direct displacement or register-indirect through %ba.
type addrMode struct {
	disp       uint32
	indirectBA bool
}

func (e *Emitter) resolveAddr(pos asmerr.Position, addr ast.Expression) (addrMode, error) {
	switch v := addr.(type) {
	case ast.Number:
		return addrMode{disp: uint32(int32(v))}, nil
	case ast.Identifier:
		a, ok := e.variables[string(v)]
		if !ok {
			return addrMode{}, asmerr.New(asmerr.Reference, pos, "variable %q not found", v)
		}
		return addrMode{disp: uint32(a)}, nil
	case ast.Register:
		spec, err := register.ParseGeneral(string(v))
		if err != nil {
			return addrMode{}, err
		}
		if spec.Base != register.Ba {
			return addrMode{}, asmerr.New(asmerr.Type, pos, "register-indirect addressing only supports %%ba, found %%%s", v)
		}
		return addrMode{indirectBA: true}, nil
	default:
		return addrMode{}, asmerr.New(asmerr.Type, pos, "invalid addressing form: %v", addr)
	}
}

func (m addrMode) modrm(regField uint8) byte {
	if m.indirectBA {
		return 0x07 | (regField << 3)
	}
	return 0x06 | (regField << 3)
}

// emitMemDisp writes the ModR/M byte and, when not register-indirect, the
// displacement at the width appropriate to the current mode.
func (e *Emitter) emitMemDisp(opcode byte, regField uint8, m addrMode) {
	e.emit(opcode, m.modrmForMode(e.pmodeEnabled, regField))
	if !m.indirectBA {
		if e.pmodeEnabled {
			e.emitLE32(m.disp)
		} else {
			e.emitLE16(uint16(m.disp))
		}
	}
}

// modrmForMode mirrors modrm but chooses rm=101 (disp32-only) in protected
// mode instead of rm=110 (disp16-only), matching the wider displacement.
func (m addrMode) modrmForMode(pmode bool, regField uint8) byte {
	if m.indirectBA {
		return 0x07 | (regField << 3)
	}
	if pmode {
		return 0x05 | (regField << 3)
	}
	return 0x06 | (regField << 3)
}

// lowerKheper emits Kheper (store register to memory).
func (e *Emitter) lowerKheper(k ast.Kheper) error {
	srcSpec, err := register.ParseGeneral(k.Source)
	if err != nil {
		return err
	}

	if srcSpec.Level <= level.High {
		if !e.pmodeEnabled {
			e.emit(0x66, 0x67)
		}
		m, err := e.resolveAddr(k.Pos(), k.Address)
		if err != nil {
			return err
		}
		e.emitMemDisp(0x89, srcSpec.Code(), m)
		return nil
	}
	if srcSpec.Level != level.Extreme {
		return asmerr.New(asmerr.Type, k.Pos(), "kheper does not support %%%s (%s)", k.Source, srcSpec.Level)
	}

	m, err := e.resolveAddr(k.Pos(), k.Address)
	if err != nil {
		return err
	}
	if m.indirectBA {
		return asmerr.New(asmerr.Type, k.Pos(), "kheper for wide registers requires a direct address")
	}
	e.emit(0xBE) // MOV ESI, bank slot
	e.emitLE32(bankSlot(srcSpec.Base))
	e.emit(0xBF) // MOV EDI, addr
	e.emitLE32(m.disp)
	e.emit(0xB9)
	e.emitLE32(4)
	e.emit(0xF3, 0xA5)
	return nil
}

// lowerSena emits Sena (load register from memory).
func (e *Emitter) lowerSena(s ast.Sena) error {
	destSpec, err := register.ParseGeneral(s.Destination)
	if err != nil {
		return err
	}

	if destSpec.Level <= level.High {
		if !e.pmodeEnabled {
			e.emit(0x66, 0x67)
		}
		m, err := e.resolveAddr(s.Pos(), s.Address)
		if err != nil {
			return err
		}
		e.emitMemDisp(0x8B, destSpec.Code(), m)
		return nil
	}
	if destSpec.Level != level.Extreme {
		return asmerr.New(asmerr.Type, s.Pos(), "sena does not support %%%s (%s)", s.Destination, destSpec.Level)
	}

	m, err := e.resolveAddr(s.Pos(), s.Address)
	if err != nil {
		return err
	}
	if m.indirectBA {
		return asmerr.New(asmerr.Type, s.Pos(), "sena for wide registers requires a direct address")
	}
	e.emit(0xBF) // MOV EDI, bank slot
	e.emitLE32(bankSlot(destSpec.Base))
	e.emit(0xBE) // MOV ESI, addr
	e.emitLE32(m.disp)
	e.emit(0xB9)
	e.emitLE32(4)
	e.emit(0xF3, 0xA5)
	return nil
}

// lowerPush emits Push: `50+rd` with a 0x66 prefix at Level<=High; Extreme
// copies the register's bank slot onto a 16-byte reserved stack gap.
func (e *Emitter) lowerPush(p ast.Push) error {
	switch v := p.Target.(type) {
	case ast.Register:
		spec, err := register.ParseGeneral(string(v))
		if err != nil {
			return err
		}
		if spec.Level <= level.High {
			e.emit66()
			e.emit(0x50 + spec.Code())
			return nil
		}
		if spec.Level != level.Extreme {
			return asmerr.New(asmerr.Type, p.Pos(), "push does not support %%%s (%s)", string(v), spec.Level)
		}
		return e.pushWideSlot(spec)
	case ast.Number:
		e.emit66()
		e.emit(0x68)
		e.emitLE32(uint32(int32(v)))
		return nil
	default:
		return asmerr.New(asmerr.Type, p.Pos(), "push only supports registers and numbers")
	}
}

// pushWideSlot implements `SUB ESP,16; ESI<-slot; EDI<-ESP; REP MOVSD
// count=4` for a Level=Extreme Push.
func (e *Emitter) pushWideSlot(spec register.Spec) error {
	e.emit(0x81, 0xEC) // SUB ESP, imm32
	e.emitLE32(16)
	e.emit(0xBE) // MOV ESI, bank slot
	e.emitLE32(bankSlot(spec.Base))
	e.emit(0x89, 0xE7) // MOV EDI, ESP
	e.emit(0xB9)       // MOV ECX, imm32
	e.emitLE32(4)
	e.emit(0xF3, 0xA5) // REP MOVSD
	return nil
}

// lowerPop emits Pop: `58+rd` with a 0x66 prefix at Level<=High; Extreme
// copies the top 16 bytes of the stack back into the register's bank slot.
func (e *Emitter) lowerPop(p ast.Pop) error {
	spec, err := register.ParseGeneral(p.Destination)
	if err != nil {
		return err
	}
	if spec.Level <= level.High {
		e.emit66()
		e.emit(0x58 + spec.Code())
		return nil
	}
	if spec.Level != level.Extreme {
		return asmerr.New(asmerr.Type, p.Pos(), "pop does not support %%%s (%s)", p.Destination, spec.Level)
	}

	e.emit(0x89, 0xE6) // MOV ESI, ESP
	e.emit(0xBF)       // MOV EDI, bank slot
	e.emitLE32(bankSlot(spec.Base))
	e.emit(0xB9)
	e.emitLE32(4)
	e.emit(0xF3, 0xA5)
	e.emit(0x81, 0xC4) // ADD ESP, imm32
	e.emitLE32(16)
	return nil
}

// lowerDuat emits Duat: one `C6 06 disp16 ib` per character plus a
// trailing NUL terminator.
func (e *Emitter) lowerDuat(d ast.Duat) error {
	for i, c := range []byte(d.Phrase) {
		e.emit(0xC6, 0x06)
		e.emitLE16(d.Address + uint16(i))
		e.emit(c)
	}
	e.emit(0xC6, 0x06)
	e.emitLE16(d.Address + uint16(len(d.Phrase)))
	e.emit(0x00)
	return nil
}
