package weaver_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/lexer"
	"github.com/hackia/thot/internal/parser"
	"github.com/hackia/thot/internal/weaver"
)

func mustParse(t *testing.T, filename, src string) []ast.Instruction {
	t.Helper()
	l := lexer.New(filename, src)
	p, err := parser.New(l)
	if err != nil {
		t.Fatalf("parser.New: %v", err)
	}
	instructions, err := p.ParseTablet()
	if err != nil {
		t.Fatalf("ParseTablet(%s): %v", filename, err)
	}
	return instructions
}

func TestWeaveFlattensNonDemaInstructionsUnchanged(t *testing.T) {
	dir := t.TempDir()
	instructions := mustParse(t, "main.maat", "henek %ka, 1\nsema %ka, 2\n")

	out, err := weaver.Weave(instructions, dir)
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d instructions, want 2", len(out))
	}
}

func TestWeaveInlinesOneLevelOfDema(t *testing.T) {
	dir := t.TempDir()
	subPath := filepath.Join(dir, "sub.maat")
	if err := os.WriteFile(subPath, []byte("henek %ib, 5\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	instructions := mustParse(t, filepath.Join(dir, "main.maat"), `henek %ka, 1
dema "sub"
sema %ka, 2
`)

	out, err := weaver.Weave(instructions, dir)
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}
	if len(out) != 3 {
		t.Fatalf("got %d instructions, want 3 (henek, inlined henek, sema)", len(out))
	}
	if _, ok := out[1].(ast.Henek); !ok {
		t.Fatalf("got %T at position 1, want the inlined ast.Henek from sub.maat", out[1])
	}
}

func TestWeaveResolvesNestedDemaRecursively(t *testing.T) {
	dir := t.TempDir()
	leafPath := filepath.Join(dir, "leaf.maat")
	midPath := filepath.Join(dir, "mid.maat")
	if err := os.WriteFile(leafPath, []byte("henek %ib, 9\n"), 0o644); err != nil {
		t.Fatalf("WriteFile leaf: %v", err)
	}
	if err := os.WriteFile(midPath, []byte(`dema "leaf"
sema %ib, 1
`), 0o644); err != nil {
		t.Fatalf("WriteFile mid: %v", err)
	}

	instructions := mustParse(t, filepath.Join(dir, "main.maat"), `dema "mid"
`)

	out, err := weaver.Weave(instructions, dir)
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("got %d instructions, want 2 (leaf's henek, mid's sema)", len(out))
	}
	if _, ok := out[0].(ast.Henek); !ok {
		t.Fatalf("got %T at position 0, want ast.Henek from leaf.maat", out[0])
	}
	if _, ok := out[1].(ast.Sema); !ok {
		t.Fatalf("got %T at position 1, want ast.Sema from mid.maat", out[1])
	}
}

func TestWeaveMissingTabletReportsReferenceError(t *testing.T) {
	dir := t.TempDir()
	instructions := mustParse(t, filepath.Join(dir, "main.maat"), `dema "does_not_exist"
`)

	if _, err := weaver.Weave(instructions, dir); err == nil {
		t.Fatal("expected an error for a dema referencing a missing tablet")
	}
}

func TestWeaveConstantsDoNotLeakBetweenTablets(t *testing.T) {
	dir := t.TempDir()
	subPath := filepath.Join(dir, "sub.maat")
	if err := os.WriteFile(subPath, []byte("smen taille = 64\nhenek %ka, taille\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	instructions := mustParse(t, filepath.Join(dir, "main.maat"), `dema "sub"
henek %ib, taille
`)

	// The including tablet's own reference to "taille" never saw the smen
	// from sub.maat, so it parses as an unresolved identifier rather than
	// folding to 64.
	out, err := weaver.Weave(instructions, dir)
	if err != nil {
		t.Fatalf("Weave: %v", err)
	}
	last, ok := out[len(out)-1].(ast.Henek)
	if !ok {
		t.Fatalf("got %T, want ast.Henek", out[len(out)-1])
	}
	if _, ok := last.Value.(ast.Identifier); !ok {
		t.Fatalf("got %#v, want an unresolved ast.Identifier(\"taille\")", last.Value)
	}
}
