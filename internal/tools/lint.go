// Package tools implements thot's static-analysis commands: lint, format
// and cross-reference. All three operate on the flattened instruction
// stream service.Lower produces, never on raw source text.
package tools

import (
	"fmt"

	"github.com/hackia/thot/internal/ast"
)

// LintLevel is the severity of a single finding.
type LintLevel int

const (
	LintError LintLevel = iota
	LintWarning
	LintInfo
)

func (l LintLevel) String() string {
	switch l {
	case LintError:
		return "error"
	case LintWarning:
		return "warning"
	default:
		return "info"
	}
}

// LintIssue is one finding, tied back to the source position the offending
// instruction's Meta carries.
type LintIssue struct {
	Level   LintLevel
	Line    int
	Column  int
	Message string
	Code    string
}

func (i *LintIssue) String() string {
	return fmt.Sprintf("line %d:%d: %s: %s [%s]", i.Line, i.Column, i.Level, i.Message, i.Code)
}

// LintOptions controls which checks run.
type LintOptions struct {
	CheckUndefinedLabels bool
	CheckDeadCode        bool
	CheckRedefinition    bool
}

// DefaultLintOptions enables every check.
func DefaultLintOptions() *LintOptions {
	return &LintOptions{
		CheckUndefinedLabels: true,
		CheckDeadCode:        true,
		CheckRedefinition:    true,
	}
}

// Lint walks a flattened instruction stream once, reporting undefined jump
// targets, redefined smen constants, and unreachable code directly after an
// unconditional neheh with no intervening label.
func Lint(instructions []ast.Instruction, opts *LintOptions) []*LintIssue {
	if opts == nil {
		opts = DefaultLintOptions()
	}

	var issues []*LintIssue
	labels := map[string]bool{}
	constants := map[string]int{}

	for _, instr := range instructions {
		switch v := instr.(type) {
		case ast.Label:
			labels[v.Name] = true
		case ast.Smen:
			if opts.CheckRedefinition {
				if _, ok := constants[v.Name]; ok {
					pos := v.Pos()
					issues = append(issues, &LintIssue{
						Level: LintWarning, Line: pos.Line, Column: pos.Column,
						Message: fmt.Sprintf("constant %q redefined", v.Name),
						Code:    "SMEN_REDEFINE",
					})
				}
			}
			constants[v.Name]++
		}
	}

	if opts.CheckUndefinedLabels {
		issues = append(issues, checkJumpTargets(instructions, labels)...)
	}
	if opts.CheckDeadCode {
		issues = append(issues, checkDeadCode(instructions)...)
	}

	return issues
}

func jumpTarget(instr ast.Instruction) (ast.Expression, bool) {
	switch v := instr.(type) {
	case ast.Neheh:
		return v.Target, true
	case ast.Jena:
		return v.Target, true
	case ast.Ankh:
		return v.Target, true
	case ast.Isfet:
		return v.Target, true
	case ast.Her:
		return v.Target, true
	case ast.Kher:
		return v.Target, true
	case ast.HerAnkh:
		return v.Target, true
	case ast.KherAnkh:
		return v.Target, true
	default:
		return nil, false
	}
}

func checkJumpTargets(instructions []ast.Instruction, labels map[string]bool) []*LintIssue {
	var issues []*LintIssue
	for _, instr := range instructions {
		target, ok := jumpTarget(instr)
		if !ok {
			continue
		}
		name, ok := target.(ast.Identifier)
		if !ok {
			continue
		}
		if !labels[string(name)] {
			pos := instr.Pos()
			issues = append(issues, &LintIssue{
				Level: LintError, Line: pos.Line, Column: pos.Column,
				Message: fmt.Sprintf("jump target %q is never defined", name),
				Code:    "UNDEF_LABEL",
			})
		}
	}
	return issues
}

func checkDeadCode(instructions []ast.Instruction) []*LintIssue {
	var issues []*LintIssue
	afterUnconditionalJump := false
	for _, instr := range instructions {
		if _, isLabel := instr.(ast.Label); isLabel {
			afterUnconditionalJump = false
			continue
		}
		if afterUnconditionalJump {
			pos := instr.Pos()
			issues = append(issues, &LintIssue{
				Level: LintWarning, Line: pos.Line, Column: pos.Column,
				Message: "unreachable: no label between this and the preceding unconditional jump",
				Code:    "DEAD_CODE",
			})
		}
		if _, isJump := instr.(ast.Neheh); isJump {
			afterUnconditionalJump = true
		}
		if _, isReturn := instr.(ast.Return); isReturn {
			afterUnconditionalJump = true
		}
	}
	return issues
}
