package tools_test

import (
	"testing"

	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/tools"
)

func TestLintFlagsUndefinedJumpTarget(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Neheh{Target: ast.Identifier("nowhere")},
	}
	issues := tools.Lint(instructions, tools.DefaultLintOptions())
	if len(issues) != 1 || issues[0].Code != "UNDEF_LABEL" {
		t.Fatalf("got %+v, want exactly one UNDEF_LABEL issue", issues)
	}
}

func TestLintAcceptsForwardJumpToDefinedLabel(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Neheh{Target: ast.Identifier("fin")},
		ast.Label{Name: "fin"},
	}
	issues := tools.Lint(instructions, tools.DefaultLintOptions())
	for _, issue := range issues {
		if issue.Code == "UNDEF_LABEL" {
			t.Fatalf("got UNDEF_LABEL for a forward reference to a label defined later: %+v", issue)
		}
	}
}

func TestLintFlagsConstantRedefinition(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Smen{Name: "taille", Value: 1},
		ast.Smen{Name: "taille", Value: 2},
	}
	issues := tools.Lint(instructions, tools.DefaultLintOptions())
	if len(issues) != 1 || issues[0].Code != "SMEN_REDEFINE" {
		t.Fatalf("got %+v, want exactly one SMEN_REDEFINE issue", issues)
	}
}

func TestLintFlagsDeadCodeAfterUnconditionalJump(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Neheh{Target: ast.Identifier("fin")},
		ast.Henek{Destination: "ka", Value: ast.Number(1)},
		ast.Label{Name: "fin"},
	}
	issues := tools.Lint(instructions, tools.DefaultLintOptions())
	var found bool
	for _, issue := range issues {
		if issue.Code == "DEAD_CODE" {
			found = true
		}
	}
	if !found {
		t.Fatalf("got %+v, want a DEAD_CODE issue for the henek stranded after neheh", issues)
	}
}

func TestLintDoesNotFlagCodeAfterAnInterveningLabel(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Neheh{Target: ast.Identifier("fin")},
		ast.Label{Name: "reachable"},
		ast.Henek{Destination: "ka", Value: ast.Number(1)},
		ast.Label{Name: "fin"},
	}
	issues := tools.Lint(instructions, tools.DefaultLintOptions())
	for _, issue := range issues {
		if issue.Code == "DEAD_CODE" {
			t.Fatalf("got a DEAD_CODE issue for code following a label: %+v", issue)
		}
	}
}

func TestLintDisabledChecksProduceNoIssues(t *testing.T) {
	instructions := []ast.Instruction{
		ast.Neheh{Target: ast.Identifier("nowhere")},
	}
	issues := tools.Lint(instructions, &tools.LintOptions{})
	if len(issues) != 0 {
		t.Fatalf("got %+v, want no issues when every check is disabled", issues)
	}
}
