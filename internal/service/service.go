// Package service wires the lexer, parser, weaver and emitter into the one
// pipeline the CLI, HTTP API and inspector all drive: source text in,
// assembled bytes out.
package service

import (
	"path/filepath"

	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/emitter"
	"github.com/hackia/thot/internal/lexer"
	"github.com/hackia/thot/internal/output"
	"github.com/hackia/thot/internal/parser"
	"github.com/hackia/thot/internal/weaver"
)

// Options controls how a tablet is assembled.
type Options struct {
	Boot bool
	// TabletDir is the directory Dema paths resolve relative to; defaults
	// to filepath.Dir(filename) when empty.
	TabletDir string
}

// Result is everything a caller might want out of a successful assembly,
// beyond the final byte image: enough to drive the inspector without
// re-running the pipeline.
type Result struct {
	Image        []byte
	Instructions []ast.Instruction
	Labels       map[string]int64
}

// Assemble runs the full pipeline over source text and returns the final
// wrapped image: a boot-sector image when opts.Boot is set, otherwise an
// ELF64 executable.
func Assemble(filename, src string, opts Options) (*Result, error) {
	instructions, err := Lower(filename, src, opts)
	if err != nil {
		return nil, err
	}

	em := emitter.New(opts.Boot)
	if err := em.Lower(instructions); err != nil {
		return nil, err
	}

	code, err := em.Assemble()
	if err != nil {
		return nil, err
	}

	if !opts.Boot {
		code = output.Sarcophage(code)
	}

	return &Result{Image: code, Instructions: instructions, Labels: em.Labels()}, nil
}

// Lower runs tokenizing, parsing and tablet-weaving only, returning the
// flattened instruction stream without generating code. Shared by Assemble
// and the lint/format tools, which need the AST but not a byte image.
func Lower(filename, src string, opts Options) ([]ast.Instruction, error) {
	lex := lexer.New(filename, src)
	p, err := parser.New(lex)
	if err != nil {
		return nil, err
	}

	instructions, err := p.ParseTablet()
	if err != nil {
		return nil, err
	}

	dir := opts.TabletDir
	if dir == "" {
		dir = filepath.Dir(filename)
	}

	return weaver.Weave(instructions, dir)
}
