package tools

import (
	"fmt"
	"strings"

	"github.com/hackia/thot/internal/ast"
)

// FormatOptions controls the canonical re-indentation Format produces.
type FormatOptions struct {
	InstructionColumn int // column the verb starts at when no label precedes it
	IndentSize        int // not read by Format: every instruction starts at InstructionColumn
}

// DefaultFormatOptions matches the column widths the rest of the pack's
// example tablets use.
func DefaultFormatOptions() *FormatOptions {
	return &FormatOptions{InstructionColumn: 8, IndentSize: 8}
}

// Format renders a flattened instruction stream back to canonical Maât
// source text: one label per line with no indent, every other instruction
// indented to InstructionColumn.
func Format(instructions []ast.Instruction, opts *FormatOptions) string {
	if opts == nil {
		opts = DefaultFormatOptions()
	}

	var b strings.Builder
	indent := strings.Repeat(" ", opts.InstructionColumn)

	for _, instr := range instructions {
		if lbl, ok := instr.(ast.Label); ok {
			fmt.Fprintf(&b, "%s:\n", lbl.Name)
			continue
		}
		b.WriteString(indent)
		b.WriteString(renderInstruction(instr))
		b.WriteString("\n")
	}

	return b.String()
}

func renderExpr(e ast.Expression) string {
	switch v := e.(type) {
	case ast.Number:
		return fmt.Sprintf("%d", int32(v))
	case ast.Helix:
		return fmt.Sprintf("%d:%d", v.Ra, v.Apophis)
	case ast.Register:
		return "%" + string(v)
	case ast.Identifier:
		return string(v)
	case ast.StringLiteral:
		return fmt.Sprintf("%q", string(v))
	case ast.CurrentAddress:
		return "$"
	default:
		return "?"
	}
}

func renderInstruction(instr ast.Instruction) string {
	switch v := instr.(type) {
	case ast.Henek:
		return fmt.Sprintf("henek %%%s, %s", v.Destination, renderExpr(v.Value))
	case ast.Sema:
		return fmt.Sprintf("sema %%%s, %s", v.Destination, renderExpr(v.Value))
	case ast.Kheb:
		return fmt.Sprintf("kheb %%%s, %s", v.Destination, renderExpr(v.Value))
	case ast.Shesa:
		return fmt.Sprintf("shesa %%%s, %s", v.Destination, renderExpr(v.Value))
	case ast.Henet:
		return fmt.Sprintf("henet %%%s, %s", v.Destination, renderExpr(v.Value))
	case ast.Mer:
		return fmt.Sprintf("mer %%%s, %s", v.Destination, renderExpr(v.Value))
	case ast.Wdj:
		return fmt.Sprintf("wdj %%%s, %s", v.Left, renderExpr(v.Right))
	case ast.Neheh:
		return fmt.Sprintf("neheh %s", renderExpr(v.Target))
	case ast.Jena:
		return fmt.Sprintf("jena %s", renderExpr(v.Target))
	case ast.Ankh:
		return fmt.Sprintf("ankh %s", renderExpr(v.Target))
	case ast.Isfet:
		return fmt.Sprintf("isfet %s", renderExpr(v.Target))
	case ast.Her:
		return fmt.Sprintf("her %s", renderExpr(v.Target))
	case ast.Kher:
		return fmt.Sprintf("kher %s", renderExpr(v.Target))
	case ast.HerAnkh:
		return fmt.Sprintf("her_ankh %s", renderExpr(v.Target))
	case ast.KherAnkh:
		return fmt.Sprintf("kher_ankh %s", renderExpr(v.Target))
	case ast.Kheper:
		return fmt.Sprintf("kheper %%%s, %s", v.Source, renderExpr(v.Address))
	case ast.Sena:
		return fmt.Sprintf("sena %%%s, %s", v.Destination, renderExpr(v.Address))
	case ast.In:
		return fmt.Sprintf("in %s", renderExpr(v.Port))
	case ast.Out:
		return fmt.Sprintf("out %s", renderExpr(v.Port))
	case ast.Push:
		return fmt.Sprintf("push %s", renderExpr(v.Target))
	case ast.Pop:
		return fmt.Sprintf("pop %%%s", v.Destination)
	case ast.Nama:
		return fmt.Sprintf("nama %s = %s", v.Name, renderExpr(v.Value))
	case ast.Smen:
		return fmt.Sprintf("smen %s = %d", v.Name, v.Value)
	case ast.Duat:
		return fmt.Sprintf("duat %q, %d", v.Phrase, v.Address)
	case ast.Return:
		if v.Result == nil {
			return "return"
		}
		return fmt.Sprintf("return %s", renderExpr(v.Result))
	case ast.Wab:
		return "wab"
	case ast.Sedjem:
		return fmt.Sprintf("sedjem %%%s", v.Destination)
	case ast.Rdtsc:
		return "rdtsc"
	case ast.Kherp:
		return "kherp"
	case ast.Per:
		return fmt.Sprintf("per %s", renderExpr(v.Message))
	case ast.CurrentAddressInstr:
		return "$"
	case ast.Dema:
		return fmt.Sprintf("dema %q", v.Path)
	default:
		return "; <unknown instruction>"
	}
}
