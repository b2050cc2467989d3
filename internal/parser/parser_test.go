package parser_test

import (
	"testing"

	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/lexer"
	"github.com/hackia/thot/internal/parser"
)

func parseOne(t *testing.T, src string) ast.Instruction {
	t.Helper()
	l := lexer.New("t.maat", src)
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	instr, err := p.ParseInstruction()
	if err != nil {
		t.Fatalf("ParseInstruction(%q): %v", src, err)
	}
	return instr
}

func TestParseHenekNumber(t *testing.T) {
	instr := parseOne(t, "henek %ka, 42")
	h, ok := instr.(ast.Henek)
	if !ok {
		t.Fatalf("got %T, want ast.Henek", instr)
	}
	if h.Destination != "ka" {
		t.Fatalf("got destination %q, want ka", h.Destination)
	}
	n, ok := h.Value.(ast.Number)
	if !ok || n != 42 {
		t.Fatalf("got value %#v, want Number(42)", h.Value)
	}
}

func TestParseHenekHelix(t *testing.T) {
	instr := parseOne(t, "henek %hka, 10:20")
	h := instr.(ast.Henek)
	helix, ok := h.Value.(ast.Helix)
	if !ok {
		t.Fatalf("got %T, want ast.Helix", h.Value)
	}
	if helix.Ra != 10 || helix.Apophis != 20 {
		t.Fatalf("got %+v, want ra=10 apophis=20", helix)
	}
}

func TestParseHenekHelixOverflowsBaseLevel(t *testing.T) {
	l := lexer.New("t.maat", "henek %ka, 300:1")
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	if _, err := p.ParseInstruction(); err == nil {
		t.Fatal("expected an overflow error for a Base-level register given a 300 channel value")
	}
}

func TestParseWdjMismatchedLevelsRejected(t *testing.T) {
	l := lexer.New("t.maat", "wdj %ka, %hib")
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	if _, err := p.ParseInstruction(); err == nil {
		t.Fatal("expected a size-mismatch error comparing a Base register against a High register")
	}
}

func TestParseLabel(t *testing.T) {
	instr := parseOne(t, "debut:")
	lbl, ok := instr.(ast.Label)
	if !ok || lbl.Name != "debut" {
		t.Fatalf("got %#v, want Label{Name: debut}", instr)
	}
}

func TestParseSmenDefinesConstant(t *testing.T) {
	l := lexer.New("t.maat", "smen taille = 64\nhenek %ka, taille")
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	if _, err := p.ParseInstruction(); err != nil {
		t.Fatalf("parsing smen: %v", err)
	}
	instr, err := p.ParseInstruction()
	if err != nil {
		t.Fatalf("parsing henek referencing the constant: %v", err)
	}
	h := instr.(ast.Henek)
	n, ok := h.Value.(ast.Number)
	if !ok || n != 64 {
		t.Fatalf("got %#v, want Number(64) substituted for taille", h.Value)
	}
}

func TestParseTabletStopsAtEOF(t *testing.T) {
	l := lexer.New("t.maat", "henek %ka, 1\nsema %ka, 2\n")
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	instructions, err := p.ParseTablet()
	if err != nil {
		t.Fatalf("ParseTablet: %v", err)
	}
	if len(instructions) != 2 {
		t.Fatalf("got %d instructions, want 2", len(instructions))
	}
}
