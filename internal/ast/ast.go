// Package ast defines the Maât abstract syntax tree: instructions and their
// expression operands, as produced by internal/parser and consumed by
// internal/weaver and internal/emitter.
package ast

import "github.com/hackia/thot/internal/asmerr"

// Expression is an operand leaf.
type Expression interface {
	isExpression()
}

type Number int32

func (Number) isExpression() {}

// Helix is a dual-field integer literal: two u16 "channels" separated by ':'
// in source (e.g. 10:20).
type Helix struct {
	Ra      uint16
	Apophis uint16
}

func (Helix) isExpression() {}

// Register names a register operand by its textual name (without the % sigil).
type Register string

func (Register) isExpression() {}

// Identifier names either a label or a nama/smen-bound variable, resolved
// later by the emitter or parser.
type Identifier string

func (Identifier) isExpression() {}

type StringLiteral string

func (StringLiteral) isExpression() {}

// CurrentAddress is the `$` operand: the address of the instruction being
// assembled.
type CurrentAddress struct{}

func (CurrentAddress) isExpression() {}

// Instruction is a tagged-union AST node. Each concrete type below
// corresponds to exactly one Maât verb (or the pseudo-ops Label/Smen/Nama/
// Dema/CurrentAddress).
type Instruction interface {
	isInstruction()
	Pos() asmerr.Position
}

// Meta carries the source position common to every instruction node.
type Meta struct {
	P asmerr.Position
}

func (m Meta) Pos() asmerr.Position { return m.P }

type Henek struct {
	Meta
	Destination string
	Value       Expression
}

func (Henek) isInstruction() {}

type Sema struct {
	Meta
	Destination string
	Value       Expression
}

func (Sema) isInstruction() {}

type Kheb struct {
	Meta
	Destination string
	Value       Expression
}

func (Kheb) isInstruction() {}

type Shesa struct {
	Meta
	Destination string
	Value       Expression
}

func (Shesa) isInstruction() {}

type Henet struct {
	Meta
	Destination string
	Value       Expression
}

func (Henet) isInstruction() {}

type Mer struct {
	Meta
	Destination string
	Value       Expression
}

func (Mer) isInstruction() {}

type Wdj struct {
	Meta
	Left  string
	Right Expression
}

func (Wdj) isInstruction() {}

type Neheh struct {
	Meta
	Target Expression
}

func (Neheh) isInstruction() {}

type Ankh struct {
	Meta
	Target Expression
}

func (Ankh) isInstruction() {}

type Isfet struct {
	Meta
	Target Expression
}

func (Isfet) isInstruction() {}

type Her struct {
	Meta
	Target Expression
}

func (Her) isInstruction() {}

type Kher struct {
	Meta
	Target Expression
}

func (Kher) isInstruction() {}

type HerAnkh struct {
	Meta
	Target Expression
}

func (HerAnkh) isInstruction() {}

type KherAnkh struct {
	Meta
	Target Expression
}

func (KherAnkh) isInstruction() {}

type Jena struct {
	Meta
	Target Expression
}

func (Jena) isInstruction() {}

type Kheper struct {
	Meta
	Source  string
	Address Expression
}

func (Kheper) isInstruction() {}

type Sena struct {
	Meta
	Destination string
	Address     Expression
}

func (Sena) isInstruction() {}

type In struct {
	Meta
	Port Expression
}

func (In) isInstruction() {}

type Out struct {
	Meta
	Port Expression
}

func (Out) isInstruction() {}

type Push struct {
	Meta
	Target Expression
}

func (Push) isInstruction() {}

type Pop struct {
	Meta
	Destination string
}

func (Pop) isInstruction() {}

type Nama struct {
	Meta
	Name  string
	Value Expression
}

func (Nama) isInstruction() {}

type Smen struct {
	Meta
	Name  string
	Value int32
}

func (Smen) isInstruction() {}

type Duat struct {
	Meta
	Phrase  string
	Address uint16
}

func (Duat) isInstruction() {}

type Label struct {
	Meta
	Name string
}

func (Label) isInstruction() {}

type Return struct {
	Meta
	Result Expression
}

func (Return) isInstruction() {}

type Wab struct{ Meta }

func (Wab) isInstruction() {}

type Sedjem struct {
	Meta
	Destination string
}

func (Sedjem) isInstruction() {}

type Rdtsc struct{ Meta }

func (Rdtsc) isInstruction() {}

type Kherp struct{ Meta }

func (Kherp) isInstruction() {}

type Per struct {
	Meta
	Message Expression
}

func (Per) isInstruction() {}

type CurrentAddressInstr struct{ Meta }

func (CurrentAddressInstr) isInstruction() {}

// Dema is only legal before the weaver runs; the emitter treats any
// surviving Dema node as a fatal ReferenceError.
type Dema struct {
	Meta
	Path string
}

func (Dema) isInstruction() {}

// IsKernelLabel reports whether name is one of the two spellings of the
// kernel-entry label.
func IsKernelLabel(name string) bool {
	return name == "kernel" || name == "noyau"
}
