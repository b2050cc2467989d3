package tools

import "github.com/hackia/thot/internal/ast"

// XrefEntry records every line a label or nama/smen binding is referenced
// from, keyed by name.
type XrefEntry struct {
	Name         string
	DefinedLine  int
	ReferencedAt []int
}

// Xref builds a cross-reference table over a flattened instruction stream:
// one entry per label and per smen/nama binding, with every jump target or
// value read that resolves to it.
func Xref(instructions []ast.Instruction) map[string]*XrefEntry {
	table := map[string]*XrefEntry{}

	entry := func(name string) *XrefEntry {
		e, ok := table[name]
		if !ok {
			e = &XrefEntry{Name: name}
			table[name] = e
		}
		return e
	}

	for _, instr := range instructions {
		switch v := instr.(type) {
		case ast.Label:
			entry(v.Name).DefinedLine = v.Pos().Line
		case ast.Smen:
			entry(v.Name).DefinedLine = v.Pos().Line
		case ast.Nama:
			entry(v.Name).DefinedLine = v.Pos().Line
		default:
			if target, ok := jumpTarget(instr); ok {
				recordIdentifierRef(table, entry, target, instr.Pos().Line)
			}
		}
	}

	for _, instr := range instructions {
		for _, expr := range operandsOf(instr) {
			if id, ok := expr.(ast.Identifier); ok {
				entry(string(id)).ReferencedAt = append(entry(string(id)).ReferencedAt, instr.Pos().Line)
			}
		}
	}

	return table
}

func recordIdentifierRef(table map[string]*XrefEntry, entry func(string) *XrefEntry, target ast.Expression, line int) {
	id, ok := target.(ast.Identifier)
	if !ok {
		return
	}
	e := entry(string(id))
	e.ReferencedAt = append(e.ReferencedAt, line)
}

// operandsOf returns every Expression operand an instruction carries, for
// the value-side (non-jump-target) identifier references Xref also wants
// (e.g. `henek %ka nom_de_variable`).
func operandsOf(instr ast.Instruction) []ast.Expression {
	switch v := instr.(type) {
	case ast.Henek:
		return []ast.Expression{v.Value}
	case ast.Sema:
		return []ast.Expression{v.Value}
	case ast.Kheb:
		return []ast.Expression{v.Value}
	case ast.Shesa:
		return []ast.Expression{v.Value}
	case ast.Henet:
		return []ast.Expression{v.Value}
	case ast.Mer:
		return []ast.Expression{v.Value}
	case ast.Wdj:
		return []ast.Expression{v.Right}
	case ast.Kheper:
		return []ast.Expression{v.Address}
	case ast.Sena:
		return []ast.Expression{v.Address}
	case ast.Per:
		return []ast.Expression{v.Message}
	case ast.Return:
		return []ast.Expression{v.Result}
	default:
		return nil
	}
}
