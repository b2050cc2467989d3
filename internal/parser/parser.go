// Package parser turns a lexer.Lexer token stream into an internal/ast tree,
// folding smen constants and validating register/operand shapes as it goes.
package parser

import (
	"github.com/hackia/thot/internal/asmerr"
	"github.com/hackia/thot/internal/ast"
	"github.com/hackia/thot/internal/lexer"
	"github.com/hackia/thot/internal/level"
	"github.com/hackia/thot/internal/register"
)

// Parser is a single-pass recursive-descent parser over one tablet's tokens.
type Parser struct {
	lex       *lexer.Lexer
	cur       lexer.Token
	constants map[string]int32
}

// New creates a Parser and loads its first token.
func New(lex *lexer.Lexer) (*Parser, error) {
	p := &Parser{lex: lex, constants: make(map[string]int32)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Parser) advance() error {
	tok, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *Parser) pos() asmerr.Position {
	return asmerr.Position{Line: p.cur.Line, Column: p.cur.Column}
}

// AtEOF reports whether the token stream is exhausted.
func (p *Parser) AtEOF() bool { return p.cur.Type == lexer.EOF }

func (p *Parser) expect(t lexer.TokenType) error {
	if p.cur.Type != t {
		return asmerr.New(asmerr.Syntax, p.pos(), "expected %s, found %s", t, p.cur.Type)
	}
	return p.advance()
}

// ParseExpression parses level 1: '+'/'-' folded eagerly against constants
// already known in this tablet, deferring to ParseTerm for '*'/'/'.
func (p *Parser) ParseExpression() (ast.Expression, error) {
	left, err := p.ParseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur.Type == lexer.Plus || p.cur.Type == lexer.Minus {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.ParseTerm()
		if err != nil {
			return nil, err
		}
		ln, lok := left.(ast.Number)
		rn, rok := right.(ast.Number)
		if !lok || !rok {
			return nil, asmerr.New(asmerr.Type, p.pos(), "Isfet: Thot only solves constants at the moment")
		}
		if op == lexer.Plus {
			left = ast.Number(int32(ln) + int32(rn))
		} else {
			left = ast.Number(int32(ln) - int32(rn))
		}
	}
	return left, nil
}

func (p *Parser) parseExpressionAtom() (ast.Expression, error) {
	switch p.cur.Type {
	case lexer.Number:
		n := p.cur.Number
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Number(n), nil
	case lexer.HelixTok:
		ra, apo := p.cur.Ra, p.cur.Apophis
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Helix{Ra: ra, Apophis: apo}, nil
	case lexer.RegisterTok:
		name := p.cur.Literal
		if _, err := register.Parse(name); err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Register(name), nil
	case lexer.Identifier:
		name := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		if v, ok := p.constants[name]; ok {
			return ast.Number(v), nil
		}
		return ast.Identifier(name), nil
	case lexer.StringLiteral:
		s := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.StringLiteral(s), nil
	case lexer.Dollar:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.CurrentAddress{}, nil
	case lexer.Minus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.Number {
			return nil, asmerr.New(asmerr.Syntax, p.pos(), "the '-' sign must be followed by a number")
		}
		n := -p.cur.Number
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Number(n), nil
	default:
		return nil, asmerr.New(asmerr.Syntax, p.pos(), "expression expected, found %s", p.cur.Type)
	}
}

// ParseTerm parses level 2: '*'/'/' over immediate constants only.
func (p *Parser) ParseTerm() (ast.Expression, error) {
	var left ast.Expression
	switch p.cur.Type {
	case lexer.Minus:
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.Number {
			return nil, asmerr.New(asmerr.Syntax, p.pos(), "'-' expects a number")
		}
		left = ast.Number(-p.cur.Number)
	case lexer.HelixTok:
		left = ast.Helix{Ra: p.cur.Ra, Apophis: p.cur.Apophis}
	case lexer.Identifier:
		if v, ok := p.constants[p.cur.Literal]; ok {
			left = ast.Number(v)
		} else {
			left = ast.Identifier(p.cur.Literal)
		}
	case lexer.Number:
		left = ast.Number(p.cur.Number)
	case lexer.StringLiteral:
		left = ast.StringLiteral(p.cur.Literal)
	case lexer.Dollar:
		left = ast.CurrentAddress{}
	case lexer.RegisterTok:
		if _, err := register.Parse(p.cur.Literal); err != nil {
			return nil, err
		}
		left = ast.Register(p.cur.Literal)
	default:
		return nil, asmerr.New(asmerr.Syntax, p.pos(), "expression expected, found %s", p.cur.Type)
	}
	if err := p.advance(); err != nil {
		return nil, err
	}

	for p.cur.Type == lexer.Star || p.cur.Type == lexer.Slash {
		op := p.cur.Type
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.Number {
			return nil, asmerr.New(asmerr.Syntax, p.pos(), "'%s' expects a number on the right", op)
		}
		rn := p.cur.Number
		if err := p.advance(); err != nil {
			return nil, err
		}
		if ln, ok := left.(ast.Number); ok {
			if op == lexer.Star {
				left = ast.Number(int32(ln) * rn)
			} else {
				if rn == 0 {
					return nil, asmerr.New(asmerr.Range, p.pos(), "division by zero in constant expression")
				}
				left = ast.Number(int32(ln) / rn)
			}
		}
	}
	return left, nil
}

// validateOperand enforces size agreement and the per-Level
// operand-shape rules shared by every arithmetic/move instruction: up to
// High accepts Register/Helix/Number; Extreme accepts only same-Level
// Register or Helix; Xenith (only when allowXenith) follows the same rule
// as Extreme.
func validateOperand(verb, destName string, destLevel level.Level, value ast.Expression, allowXenith bool) error {
	switch {
	case destLevel <= level.High:
		switch v := value.(type) {
		case ast.Register:
			srcSpec, err := register.ParseGeneral(string(v))
			if err != nil {
				return err
			}
			return register.EnsureSameLevel(verb, destName, destLevel, string(v), srcSpec.Level)
		case ast.Helix:
			return register.EnsureHelixFits(verb, destName, destLevel, v.Ra, v.Apophis)
		case ast.Number:
			return register.EnsureNumberFits(verb, destName, destLevel, int32(v))
		}
		return nil
	case destLevel == level.Extreme || (allowXenith && destLevel == level.Xenith):
		switch v := value.(type) {
		case ast.Register:
			srcSpec, err := register.ParseGeneral(string(v))
			if err != nil {
				return err
			}
			return register.EnsureSameLevel(verb, destName, destLevel, string(v), srcSpec.Level)
		case ast.Helix:
			return nil
		default:
			return asmerr.New(asmerr.Type, asmerr.Position{}, "%s for %s registers only accepts Helix literals or registers", verb, destLevel)
		}
	default:
		return asmerr.New(asmerr.Type, asmerr.Position{}, "%s does not support %%%s (%s)", verb, destName, destLevel)
	}
}

// requireRegister consumes the current token as a register name.
func (p *Parser) requireRegister(verb string) (string, error) {
	if p.cur.Type != lexer.RegisterTok {
		return "", asmerr.New(asmerr.Syntax, p.pos(), "'%s' requires a register", verb)
	}
	name := p.cur.Literal
	return name, p.advance()
}

func (p *Parser) parseRegValueInstr(verb string, allowXenith bool, build func(dest string, value ast.Expression) ast.Instruction) (ast.Instruction, error) {
	if err := p.advance(); err != nil {
		return nil, err
	}
	dest, err := p.requireRegister(verb)
	if err != nil {
		return nil, err
	}
	destSpec, err := register.Parse(dest)
	if err != nil {
		return nil, err
	}
	if destSpec.Kind == register.KindSegment && verb != "henek" {
		if _, err := register.ParseGeneral(dest); err != nil {
			return nil, err
		}
	}
	if err := p.expect(lexer.Comma); err != nil {
		return nil, err
	}
	value, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if err := validateOperand(verb, dest, destSpec.Level, value, allowXenith); err != nil {
		return nil, err
	}
	return build(dest, value), nil
}

// ParseInstruction parses one full instruction or pseudo-op.
func (p *Parser) ParseInstruction() (ast.Instruction, error) {
	pos := p.pos()
	tok := p.cur

	if tok.Type == lexer.Identifier {
		name := tok.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.Colon {
			return nil, asmerr.New(asmerr.Syntax, pos, "at the start of a line, %q must be followed by ':', found %s", name, p.cur.Type)
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Label{Meta: ast.Meta{P: pos}, Name: name}, nil
	}

	if tok.Type != lexer.Verb {
		return nil, asmerr.New(asmerr.Syntax, pos, "unknown instruction %s", tok.Type)
	}

	switch tok.Literal {
	case "henek":
		i, err := p.parseRegValueInstr("henek", true, func(d string, v ast.Expression) ast.Instruction {
			return ast.Henek{Meta: ast.Meta{P: pos}, Destination: d, Value: v}
		})
		return i, err
	case "sema":
		i, err := p.parseRegValueInstr("sema", true, func(d string, v ast.Expression) ast.Instruction {
			return ast.Sema{Meta: ast.Meta{P: pos}, Destination: d, Value: v}
		})
		return i, err
	case "kheb":
		i, err := p.parseRegValueInstr("kheb", true, func(d string, v ast.Expression) ast.Instruction {
			return ast.Kheb{Meta: ast.Meta{P: pos}, Destination: d, Value: v}
		})
		return i, err
	case "shesa":
		i, err := p.parseRegValueInstr("shesa", false, func(d string, v ast.Expression) ast.Instruction {
			return ast.Shesa{Meta: ast.Meta{P: pos}, Destination: d, Value: v}
		})
		return i, err
	case "henet":
		i, err := p.parseRegValueInstr("henet", false, func(d string, v ast.Expression) ast.Instruction {
			return ast.Henet{Meta: ast.Meta{P: pos}, Destination: d, Value: v}
		})
		return i, err
	case "mer":
		i, err := p.parseRegValueInstr("mer", false, func(d string, v ast.Expression) ast.Instruction {
			return ast.Mer{Meta: ast.Meta{P: pos}, Destination: d, Value: v}
		})
		return i, err
	case "wdj":
		if err := p.advance(); err != nil {
			return nil, err
		}
		left, err := p.requireRegister("wdj")
		if err != nil {
			return nil, err
		}
		leftSpec, err := register.ParseGeneral(left)
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		right, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if err := validateOperand("wdj", left, leftSpec.Level, right, true); err != nil {
			return nil, err
		}
		return ast.Wdj{Meta: ast.Meta{P: pos}, Left: left, Right: right}, nil

	case "neheh", "ankh", "isfet", "jena":
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		switch tok.Literal {
		case "neheh":
			return ast.Neheh{Meta: ast.Meta{P: pos}, Target: target}, nil
		case "ankh":
			return ast.Ankh{Meta: ast.Meta{P: pos}, Target: target}, nil
		case "isfet":
			return ast.Isfet{Meta: ast.Meta{P: pos}, Target: target}, nil
		default:
			return ast.Jena{Meta: ast.Meta{P: pos}, Target: target}, nil
		}

	case "her", "kher", "her_ankh", "kher_ankh":
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		switch tok.Literal {
		case "her":
			return ast.Her{Meta: ast.Meta{P: pos}, Target: target}, nil
		case "kher":
			return ast.Kher{Meta: ast.Meta{P: pos}, Target: target}, nil
		case "her_ankh":
			return ast.HerAnkh{Meta: ast.Meta{P: pos}, Target: target}, nil
		default:
			return ast.KherAnkh{Meta: ast.Meta{P: pos}, Target: target}, nil
		}

	case "smen":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.Identifier {
			return nil, asmerr.New(asmerr.Syntax, pos, "smen requires a name")
		}
		name := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Equals); err != nil {
			return nil, err
		}
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		n, ok := value.(ast.Number)
		if !ok {
			return nil, asmerr.New(asmerr.Type, pos, "smen requires a fixed numerical value")
		}
		p.constants[name] = int32(n)
		return ast.Smen{Meta: ast.Meta{P: pos}, Name: name, Value: int32(n)}, nil

	case "kheper":
		if err := p.advance(); err != nil {
			return nil, err
		}
		src, err := p.requireRegister("kheper")
		if err != nil {
			return nil, err
		}
		if _, err := register.ParseGeneral(src); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		addr, err := p.parseBracketedOrBare()
		if err != nil {
			return nil, err
		}
		return ast.Kheper{Meta: ast.Meta{P: pos}, Source: src, Address: addr}, nil

	case "sena":
		if err := p.advance(); err != nil {
			return nil, err
		}
		dest, err := p.requireRegister("sena")
		if err != nil {
			return nil, err
		}
		if _, err := register.ParseGeneral(dest); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		addr, err := p.parseBracketedOrBare()
		if err != nil {
			return nil, err
		}
		if r, ok := addr.(ast.Register); ok {
			if _, err := register.ParseGeneral(string(r)); err != nil {
				return nil, err
			}
		}
		return ast.Sena{Meta: ast.Meta{P: pos}, Destination: dest, Address: addr}, nil

	case "dema":
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		s, ok := v.(ast.StringLiteral)
		if !ok {
			return nil, asmerr.New(asmerr.Syntax, pos, "dema expects the path of the scroll in quotes")
		}
		return ast.Dema{Meta: ast.Meta{P: pos}, Path: string(s)}, nil

	case "rdtsc":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Rdtsc{Meta: ast.Meta{P: pos}}, nil

	case "kherp":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Kherp{Meta: ast.Meta{P: pos}}, nil

	case "wab":
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ast.Wab{Meta: ast.Meta{P: pos}}, nil

	case "duat":
		if err := p.advance(); err != nil {
			return nil, err
		}
		v, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		phrase, ok := v.(ast.StringLiteral)
		if !ok {
			return nil, asmerr.New(asmerr.Syntax, pos, "duat expects a phrase in quotes")
		}
		if err := p.expect(lexer.Comma); err != nil {
			return nil, err
		}
		av, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		an, ok := av.(ast.Number)
		if !ok {
			return nil, asmerr.New(asmerr.Syntax, pos, "duat expects a numeric address")
		}
		return ast.Duat{Meta: ast.Meta{P: pos}, Phrase: string(phrase), Address: uint16(an)}, nil

	case "push":
		if err := p.advance(); err != nil {
			return nil, err
		}
		target, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if r, ok := target.(ast.Register); ok {
			if _, err := register.ParseGeneral(string(r)); err != nil {
				return nil, err
			}
		}
		return ast.Push{Meta: ast.Meta{P: pos}, Target: target}, nil

	case "pop":
		if err := p.advance(); err != nil {
			return nil, err
		}
		dest, err := p.requireRegister("pop")
		if err != nil {
			return nil, err
		}
		if _, err := register.ParseGeneral(dest); err != nil {
			return nil, err
		}
		return ast.Pop{Meta: ast.Meta{P: pos}, Destination: dest}, nil

	case "in", "out":
		if err := p.advance(); err != nil {
			return nil, err
		}
		port, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if r, ok := port.(ast.Register); ok {
			spec, err := register.ParseGeneral(string(r))
			if err != nil {
				return nil, err
			}
			if spec.Base != register.Da || spec.Level != level.Base {
				return nil, asmerr.New(asmerr.Syntax, pos, "'%s' requires %%da as register port", tok.Literal)
			}
		}
		if tok.Literal == "in" {
			return ast.In{Meta: ast.Meta{P: pos}, Port: port}, nil
		}
		return ast.Out{Meta: ast.Meta{P: pos}, Port: port}, nil

	case "sedjem":
		if err := p.advance(); err != nil {
			return nil, err
		}
		dest, err := p.requireRegister("sedjem")
		if err != nil {
			return nil, err
		}
		spec, err := register.ParseGeneral(dest)
		if err != nil {
			return nil, err
		}
		if spec.Base != register.Ka || spec.Level != level.Base {
			return nil, asmerr.New(asmerr.Syntax, pos, "'sedjem' requires %%ka as destination")
		}
		return ast.Sedjem{Meta: ast.Meta{P: pos}, Destination: dest}, nil

	case "per":
		if err := p.advance(); err != nil {
			return nil, err
		}
		msg, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		return ast.Per{Meta: ast.Meta{P: pos}, Message: msg}, nil

	case "return":
		if err := p.advance(); err != nil {
			return nil, err
		}
		result, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if r, ok := result.(ast.Register); ok {
			spec, err := register.ParseGeneral(string(r))
			if err != nil {
				return nil, err
			}
			if spec.Base != register.Ka || spec.Level != level.Base {
				return nil, asmerr.New(asmerr.Syntax, pos, "'return' only supports %%ka as a register result")
			}
		}
		return ast.Return{Meta: ast.Meta{P: pos}, Result: result}, nil

	case "nama":
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.Type != lexer.Identifier {
			return nil, asmerr.New(asmerr.Syntax, pos, "'nama' requires a variable name (e.g. nama age = 10)")
		}
		name := p.cur.Literal
		if err := p.advance(); err != nil {
			return nil, err
		}
		if err := p.expect(lexer.Equals); err != nil {
			return nil, err
		}
		value, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		return ast.Nama{Meta: ast.Meta{P: pos}, Name: name, Value: value}, nil

	default:
		return nil, asmerr.New(asmerr.Syntax, pos, "unknown instruction %s", tok.Literal)
	}
}

// parseBracketedOrBare parses `[expr]` or a bare expression, used by kheper
// and sena for their address operand.
func (p *Parser) parseBracketedOrBare() (ast.Expression, error) {
	if p.cur.Type == lexer.OpenBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.CloseBracket); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return p.ParseExpression()
}

// ParseTablet parses every instruction in the token stream until EOF.
func (p *Parser) ParseTablet() ([]ast.Instruction, error) {
	var out []ast.Instruction
	for !p.AtEOF() {
		instr, err := p.ParseInstruction()
		if err != nil {
			return nil, err
		}
		out = append(out, instr)
	}
	return out, nil
}
