package tools_test

import (
	"strings"
	"testing"

	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/tools"
)

func TestFormatLabelHasNoIndent(t *testing.T) {
	out := tools.Format([]ast.Instruction{
		ast.Label{Name: "debut"},
	}, tools.DefaultFormatOptions())
	want := "debut:\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestFormatInstructionIsIndentedToInstructionColumn(t *testing.T) {
	opts := &tools.FormatOptions{InstructionColumn: 4, IndentSize: 4}
	out := tools.Format([]ast.Instruction{
		ast.Henek{Destination: "ka", Value: ast.Number(1)},
	}, opts)
	want := "    henek %ka, 1\n"
	if out != want {
		t.Fatalf("got %q, want %q", out, want)
	}
}

func TestFormatRendersHelixLiteral(t *testing.T) {
	out := tools.Format([]ast.Instruction{
		ast.Henek{Destination: "hka", Value: ast.Helix{Ra: 10, Apophis: 20}},
	}, tools.DefaultFormatOptions())
	if !strings.Contains(out, "henek %hka, 10:20") {
		t.Fatalf("got %q, want a line containing \"henek %%hka, 10:20\"", out)
	}
}

func TestFormatRendersDuatWithQuotedPhrase(t *testing.T) {
	out := tools.Format([]ast.Instruction{
		ast.Duat{Phrase: "boot", Address: 0x7C00},
	}, tools.DefaultFormatOptions())
	if !strings.Contains(out, `duat "boot", 31744`) {
		t.Fatalf("got %q, want a line containing the quoted phrase and decimal address", out)
	}
}

func TestFormatRoundTripsMultipleInstructions(t *testing.T) {
	out := tools.Format([]ast.Instruction{
		ast.Label{Name: "debut"},
		ast.Henek{Destination: "ka", Value: ast.Number(1)},
		ast.Neheh{Target: ast.Identifier("debut")},
	}, tools.DefaultFormatOptions())
	for _, line := range []string{"debut:", "henek %ka, 1", "neheh debut"} {
		if !strings.Contains(out, line) {
			t.Fatalf("got %q, want a line containing %q", out, line)
		}
	}
}
