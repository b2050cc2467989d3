package emitter

import (
	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
)

// lowerInOut emits In/Out: a Helix-truncated-to-8-bits port literal uses the
// immediate form; the %da register form uses the fixed DX-addressed form.
// The parser has already rejected any other register as a port.
func (e *Emitter) lowerInOut(meta ast.Meta, port ast.Expression, immOp, regOp byte) error {
	switch v := port.(type) {
	case ast.Number:
		e.emit(immOp, byte(int32(v)))
		return nil
	case ast.Helix:
		e.emit(immOp, byte(v.Ra))
		return nil
	case ast.Register:
		e.emit(regOp)
		return nil
	default:
		return asmerr.New(asmerr.Type, meta.Pos(), "port must be a number or the %%da register")
	}
}

// lowerSedjem emits Sedjem: the BIOS keyboard-read interrupt. The parser
// guarantees Destination is %ka at Base level.
func (e *Emitter) lowerSedjem(_ ast.Sedjem) error {
	e.emit(0xB4, 0x00, 0xCD, 0x16)
	return nil
}

// lowerReturn emits Return: a Number result loads EAX first; the trailing
// RET is unconditional.
func (e *Emitter) lowerReturn(r ast.Return) error {
	if n, ok := r.Result.(ast.Number); ok {
		e.emit66()
		e.emit(0xB8)
		e.emitLE32(uint32(int32(n)))
	}
	e.emit(0xC3)
	return nil
}

// lowerPer emits Per: the message is staged in the Noun, SI loaded with its
// address, then std_print is called via the ordinary patch mechanism.
// std_print prints through the BIOS teletype interrupt, which only exists
// in real mode, so Per cannot be lowered once the trampoline has entered
// protected mode.
func (e *Emitter) lowerPer(p ast.Per) error {
	msg, ok := p.Message.(ast.StringLiteral)
	if !ok {
		return nil
	}
	if e.pmodeEnabled {
		return asmerr.New(asmerr.Type, p.Pos(), "per requires the BIOS teletype interrupt and is only valid before the kernel region enters protected mode")
	}
	addr, err := e.noun.AllocString(string(msg))
	if err != nil {
		return err
	}
	e.emit(0xBE) // MOV SI, addr
	e.emitLE16(addr)
	e.emit(0xE8)
	e.recordPatch(p.Pos(), ast.Identifier(labelStdPrint))
	return nil
}

// lowerNama allocates its value in the Noun and records the resulting
// address under name; it never emits instruction bytes.
func (e *Emitter) lowerNama(n ast.Nama) error {
	var addr uint16
	var err error
	switch v := n.Value.(type) {
	case ast.Number:
		payload := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
		addr, err = e.noun.Alloc(0x1, payload, 0)
	case ast.StringLiteral:
		addr, err = e.noun.AllocString(string(v))
	default:
		return asmerr.New(asmerr.Type, n.Pos(), "unsupported type for a Noun binding")
	}
	if err != nil {
		return err
	}
	e.variables[n.Name] = addr
	return nil
}
