package tools_test

import (
	"testing"

	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/tools"
)

func TestXrefRecordsLabelDefinitionLine(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Label{Meta: ast.Meta{P: asmerr.Position{Line: 3}}, Name: "debut"},
	}
	table := tools.Xref(instructions)
	entry, ok := table["debut"]
	if !ok {
		t.Fatal("expected an entry for \"debut\"")
	}
	if entry.DefinedLine != 3 {
		t.Fatalf("got defined line %d, want 3", entry.DefinedLine)
	}
}

func TestXrefRecordsJumpTargetReferences(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Label{Meta: ast.Meta{P: asmerr.Position{Line: 1}}, Name: "fin"},
		ast.Neheh{Meta: ast.Meta{P: asmerr.Position{Line: 5}}, Target: ast.Identifier("fin")},
		ast.Ankh{Meta: ast.Meta{P: asmerr.Position{Line: 6}}, Target: ast.Identifier("fin")},
	}
	table := tools.Xref(instructions)
	entry, ok := table["fin"]
	if !ok {
		t.Fatal("expected an entry for \"fin\"")
	}
	if len(entry.ReferencedAt) != 2 || entry.ReferencedAt[0] != 5 || entry.ReferencedAt[1] != 6 {
		t.Fatalf("got referenced lines %v, want [5 6]", entry.ReferencedAt)
	}
}

func TestXrefRecordsSmenAndNamaDefinitions(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Smen{Meta: ast.Meta{P: asmerr.Position{Line: 1}}, Name: "taille", Value: 64},
		ast.Nama{Meta: ast.Meta{P: asmerr.Position{Line: 2}}, Name: "compteur", Value: ast.Number(0)},
	}
	table := tools.Xref(instructions)
	if table["taille"].DefinedLine != 1 {
		t.Fatalf("got taille defined at line %d, want 1", table["taille"].DefinedLine)
	}
	if table["compteur"].DefinedLine != 2 {
		t.Fatalf("got compteur defined at line %d, want 2", table["compteur"].DefinedLine)
	}
}

func TestXrefRecordsValueOperandReferences(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Smen{Meta: ast.Meta{P: asmerr.Position{Line: 1}}, Name: "taille", Value: 64},
		ast.Henek{Meta: ast.Meta{P: asmerr.Position{Line: 4}}, Destination: "ka", Value: ast.Identifier("taille")},
	}
	table := tools.Xref(instructions)
	entry, ok := table["taille"]
	if !ok {
		t.Fatal("expected an entry for \"taille\"")
	}
	if len(entry.ReferencedAt) != 1 || entry.ReferencedAt[0] != 4 {
		t.Fatalf("got referenced lines %v, want [4]", entry.ReferencedAt)
	}
}
