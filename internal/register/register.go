// Package register implements the Maât register model: the six general-
// purpose registers, the three segment registers, and the ModR/M helpers the
// emitter uses to lower register operands to IA-32 opcode bytes.
package register

import (
	"fmt"

	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/level"
)

// Base identifies a general-purpose register regardless of its Level.
type Base int

const (
	Ka Base = iota
	Ib
	Da
	Ba
	Si
	Di
)

var baseNames = map[Base]string{Ka: "ka", Ib: "ib", Da: "da", Ba: "ba", Si: "si", Di: "di"}

func (b Base) String() string { return baseNames[b] }

// Seg identifies a segment register. Segment registers are always Base level.
type Seg int

const (
	Ds Seg = iota
	Es
	Ss
)

var segNames = map[Seg]string{Ds: "ds", Es: "es", Ss: "ss"}

func (s Seg) String() string { return segNames[s] }

// Kind distinguishes a general register from a segment register.
type Kind int

const (
	KindGeneral Kind = iota
	KindSegment
)

// Spec is a fully resolved register: its kind, and (for general registers)
// its operand Level.
type Spec struct {
	Kind  Kind
	Base  Base
	Seg   Seg
	Level level.Level
}

// regCode returns the IA-32 register index used in ModR/M bytes, 0..7.
// General registers use {0,1,2,3,6,7}; the gap at 4/5 (SP/BP) is unused by
// Maât's six general registers.
func regCode(b Base) uint8 {
	switch b {
	case Ka:
		return 0
	case Ib:
		return 1
	case Da:
		return 2
	case Ba:
		return 3
	case Si:
		return 6
	case Di:
		return 7
	default:
		panic(fmt.Sprintf("register: unknown base %d", b))
	}
}

// Code returns the IA-32 register index for s.Base when s is General.
func (s Spec) Code() uint8 { return regCode(s.Base) }

// segCode returns the ModR/M reg-field code for a segment register. This is
// a distinct table from regCode — segment selector load uses 8E /r with
// these codes, not the general register codes.
func segCode(s Seg) uint8 {
	switch s {
	case Es:
		return 0
	case Ss:
		return 2
	case Ds:
		return 3
	default:
		panic(fmt.Sprintf("register: unknown segment %d", s))
	}
}

// ModRMImm builds the ModR/M byte for `81 /op` immediate-form arithmetic
// against a register destination.
func ModRMImm(b Base, op uint8) uint8 {
	return 0xC0 | (op << 3) | regCode(b)
}

// ModRMRegReg builds the ModR/M byte for a register-to-register ALU op
// (dest <- op(dest, src)), src in the reg field.
func ModRMRegReg(dest, src Base) uint8 {
	return 0xC0 | (regCode(src) << 3) | regCode(dest)
}

// ModRMMovRegRM builds the ModR/M byte for `8B /r` (dest <- [src]-as-register
// i.e. MOV dest, src register-to-register form used by Henek).
func ModRMMovRegRM(dest, src Base) uint8 {
	return 0xC0 | (regCode(dest) << 3) | regCode(src)
}

// ModRMSegLoad builds the ModR/M byte for `8E /r` (segment register <- general
// register).
func ModRMSegLoad(seg Seg, src Base) uint8 {
	return 0xC0 | (segCode(seg) << 3) | regCode(src)
}

// ChannelMax returns the maximum value (inclusive) that fits in one channel
// of a Helix literal destined for a register at the given Level: 2^(bits/2)-1.
func ChannelMax(l level.Level) uint64 {
	bits := uint(l.Bits()) / 2
	if bits >= 64 {
		return ^uint64(0)
	}
	return (uint64(1) << bits) - 1
}

// EnsureNumberFits validates that n fits the signed range of l. Levels at or
// above High (32 bits) accept any int32.
func EnsureNumberFits(context, reg string, l level.Level, n int32) error {
	bits := l.Bits()
	if bits >= 32 {
		return nil
	}
	max := int64(1)<<(bits-1) - 1
	min := -(int64(1) << (bits - 1))
	v := int64(n)
	if v < min || v > max {
		return asmerr.New(asmerr.Range, asmerr.Position{}, "overflow in %s for %%%s (%s): value=%d (min=%d max=%d)", context, reg, l, n, min, max)
	}
	return nil
}

// EnsureHelixFits validates that both channels of a Helix literal fit within
// l's per-channel bound.
func EnsureHelixFits(context, reg string, l level.Level, ra, apophis uint16) error {
	max := ChannelMax(l)
	if uint64(ra) > max || uint64(apophis) > max {
		return asmerr.New(asmerr.Type, asmerr.Position{}, "overflow in %s for %%%s (%s): ra=%d apophis=%d (max per channel = %d)", context, reg, l, ra, apophis, max)
	}
	return nil
}

// EnsureSameLevel validates two operand Levels are equal.
func EnsureSameLevel(context, leftName string, leftLevel level.Level, rightName string, rightLevel level.Level) error {
	if leftLevel != rightLevel {
		return asmerr.New(asmerr.Type, asmerr.Position{}, "size mismatch in %s: %%%s (%s) vs %%%s (%s)", context, leftName, leftLevel, rightName, rightLevel)
	}
	return nil
}

// EnsureSupportedLevel validates that l does not exceed High, for
// instructions that have no 128/256-bit lowering.
func EnsureSupportedLevel(context, reg string, l level.Level) error {
	if l > level.High {
		return asmerr.New(asmerr.Type, asmerr.Position{}, "unsupported register size in %s: %%%s (%s)", context, reg, l)
	}
	return nil
}

// Parse resolves a register name (without the leading %) into a Spec.
// A two-character name resolves to a Base-level register. A three-character
// name is a one-letter size prefix in {m,h,v,e,x} followed by the 2-letter
// base name. Segment register names reject any size prefix.
func Parse(name string) (Spec, error) {
	var lvl level.Level
	var baseName string

	switch len(name) {
	case 2:
		lvl = level.Base
		baseName = name
	case 3:
		l, ok := level.FromPrefix(name[0])
		if !ok {
			return Spec{}, asmerr.New(asmerr.Reference, asmerr.Position{}, "unknown register prefix: %%%s", name)
		}
		lvl = l
		baseName = name[1:]
	default:
		return Spec{}, asmerr.New(asmerr.Reference, asmerr.Position{}, "unknown register: %%%s", name)
	}

	switch baseName {
	case "ka":
		return Spec{Kind: KindGeneral, Base: Ka, Level: lvl}, nil
	case "ib":
		return Spec{Kind: KindGeneral, Base: Ib, Level: lvl}, nil
	case "da":
		return Spec{Kind: KindGeneral, Base: Da, Level: lvl}, nil
	case "ba":
		return Spec{Kind: KindGeneral, Base: Ba, Level: lvl}, nil
	case "si":
		return Spec{Kind: KindGeneral, Base: Si, Level: lvl}, nil
	case "di":
		return Spec{Kind: KindGeneral, Base: Di, Level: lvl}, nil
	case "ds":
		if lvl != level.Base {
			return Spec{}, asmerr.New(asmerr.Reference, asmerr.Position{}, "segment registers cannot be prefixed: %%%s", name)
		}
		return Spec{Kind: KindSegment, Seg: Ds, Level: level.Base}, nil
	case "es":
		if lvl != level.Base {
			return Spec{}, asmerr.New(asmerr.Reference, asmerr.Position{}, "segment registers cannot be prefixed: %%%s", name)
		}
		return Spec{Kind: KindSegment, Seg: Es, Level: level.Base}, nil
	case "ss":
		if lvl != level.Base {
			return Spec{}, asmerr.New(asmerr.Reference, asmerr.Position{}, "segment registers cannot be prefixed: %%%s", name)
		}
		return Spec{Kind: KindSegment, Seg: Ss, Level: level.Base}, nil
	default:
		return Spec{}, asmerr.New(asmerr.Reference, asmerr.Position{}, "unknown register: %%%s", name)
	}
}

// ParseGeneral resolves name and requires it to be a general register.
func ParseGeneral(name string) (Spec, error) {
	spec, err := Parse(name)
	if err != nil {
		return Spec{}, err
	}
	if spec.Kind != KindGeneral {
		return Spec{}, asmerr.New(asmerr.Reference, asmerr.Position{}, "expected a general register, found %%%s", name)
	}
	return spec, nil
}

// ToU8 serializes a general register's identity as (level_index<<3)|base_index.
func (s Spec) ToU8() uint8 {
	if s.Kind != KindGeneral {
		return s.Level.Index() << 3
	}
	return (s.Level.Index() << 3) | uint8(s.Base)
}

// Name returns the register's textual name, ignoring any Level prefix.
func (s Spec) Name() string {
	if s.Kind == KindSegment {
		return s.Seg.String()
	}
	return s.Base.String()
}
