// Package weaver flattens dema include directives into a single
// instruction stream before the emitter ever sees them.
package weaver

import (
	"os"
	"path/filepath"

	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/lexer"
	"github.com/hackia/thot/internal/parser"
)

// Weave walks instructions and replaces every Dema with the parsed contents
// of the tablet it names, resolved relative to dir, recursively. smen
// constants folded while parsing an included tablet do not leak back into
// the including one — each tablet parses with its own Parser.
func Weave(instructions []ast.Instruction, dir string) ([]ast.Instruction, error) {
	final := make([]ast.Instruction, 0, len(instructions))

	for _, instr := range instructions {
		dema, ok := instr.(ast.Dema)
		if !ok {
			final = append(final, instr)
			continue
		}

		path := dema.Path
		if filepath.Ext(path) == "" {
			path += ".maat"
		}
		full := filepath.Join(dir, path)

		src, err := os.ReadFile(full)
		if err != nil {
			return nil, asmerr.Wrap(asmerr.Reference, dema.Pos(), err, "the scribe could not find the tablet: %s", full)
		}

		sub, err := parseTablet(full, string(src))
		if err != nil {
			return nil, err
		}

		woven, err := Weave(sub, filepath.Dir(full))
		if err != nil {
			return nil, err
		}
		final = append(final, woven...)
	}

	return final, nil
}

func parseTablet(filename, src string) ([]ast.Instruction, error) {
	lex := lexer.New(filename, src)
	p, err := parser.New(lex)
	if err != nil {
		return nil, err
	}
	return p.ParseTablet()
}
