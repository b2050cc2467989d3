// Package lexer tokenizes Maât tablet source text.
package lexer

import (
	"strconv"
	"strings"

	"github.com/hackia/thot/internal/asmerr"
)

// Lexer scans a tablet's source text into a Token stream, one Next() call at
// a time.
type Lexer struct {
	filename string
	input    string
	pos      int
	line     int
	column   int
	ch       byte
}

// New creates a Lexer for the given source text.
func New(filename, input string) *Lexer {
	l := &Lexer{filename: filename, input: input, line: 1}
	l.readChar()
	return l
}

func (l *Lexer) readChar() {
	if l.pos >= len(l.input) {
		l.ch = 0
	} else {
		l.ch = l.input[l.pos]
	}
	if l.ch == '\n' {
		l.line++
		l.column = 0
	} else {
		l.column++
	}
	l.pos++
}

func (l *Lexer) peekChar() byte {
	if l.pos >= len(l.input) {
		return 0
	}
	return l.input[l.pos]
}

func (l *Lexer) pos2() asmerr.Position {
	return asmerr.Position{Filename: l.filename, Line: l.line, Column: l.column}
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' || c == '\n' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isHex(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
func isAlpha(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isAlnum(c byte) bool { return isAlpha(c) || isDigit(c) }

// Next returns the next token in the stream.
func (l *Lexer) Next() (Token, error) {
	for isSpace(l.ch) {
		l.readChar()
	}

	line, col := l.line, l.column

	if l.ch == ';' {
		for l.ch != '\n' && l.ch != 0 {
			l.readChar()
		}
		return l.Next()
	}

	if l.ch == 0 {
		return Token{Type: EOF, Line: line, Column: col}, nil
	}

	switch l.ch {
	case '=':
		l.readChar()
		return Token{Type: Equals, Line: line, Column: col}, nil
	case '+':
		l.readChar()
		return Token{Type: Plus, Line: line, Column: col}, nil
	case '$':
		l.readChar()
		return Token{Type: Dollar, Line: line, Column: col}, nil
	case '-':
		l.readChar()
		return Token{Type: Minus, Line: line, Column: col}, nil
	case '*':
		l.readChar()
		return Token{Type: Star, Line: line, Column: col}, nil
	case '/':
		l.readChar()
		return Token{Type: Slash, Line: line, Column: col}, nil
	case '[':
		l.readChar()
		return Token{Type: OpenBracket, Line: line, Column: col}, nil
	case ']':
		l.readChar()
		return Token{Type: CloseBracket, Line: line, Column: col}, nil
	case ',':
		l.readChar()
		return Token{Type: Comma, Line: line, Column: col}, nil
	case ':':
		l.readChar()
		return Token{Type: Colon, Line: line, Column: col}, nil
	case '.':
		l.readChar()
		return Token{Type: Dot, Line: line, Column: col}, nil
	case '(':
		l.readChar()
		return Token{Type: OpenParen, Line: line, Column: col}, nil
	case ')':
		l.readChar()
		return Token{Type: CloseParen, Line: line, Column: col}, nil
	case '"':
		return l.readString(line, col)
	case '%':
		return l.readRegister(line, col)
	}

	if isDigit(l.ch) {
		return l.readNumberOrHelix(line, col)
	}

	if isAlpha(l.ch) {
		return l.readWord(line, col)
	}

	return Token{}, asmerr.New(asmerr.Lexical, l.pos2(), "unknown character: %q", string(l.ch))
}

func (l *Lexer) readString(line, col int) (Token, error) {
	l.readChar() // consume opening quote
	var b strings.Builder
	for l.ch != '"' {
		if l.ch == 0 {
			return Token{}, asmerr.New(asmerr.Lexical, asmerr.Position{Filename: l.filename, Line: line, Column: col}, "unterminated string literal")
		}
		if l.ch == '\\' {
			l.readChar()
			switch l.ch {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteByte(l.ch)
			}
			l.readChar()
			continue
		}
		b.WriteByte(l.ch)
		l.readChar()
	}
	l.readChar() // consume closing quote
	return Token{Type: StringLiteral, Literal: b.String(), Line: line, Column: col}, nil
}

func (l *Lexer) readRegister(line, col int) (Token, error) {
	l.readChar() // consume '%'
	start := l.pos - 1
	for isAlpha(l.ch) {
		l.readChar()
	}
	name := l.input[start : l.pos-1]
	if name == "" {
		return Token{}, asmerr.New(asmerr.Lexical, asmerr.Position{Filename: l.filename, Line: line, Column: col}, "expected a register name after %%")
	}
	return Token{Type: RegisterTok, Literal: name, Line: line, Column: col}, nil
}

// readNumberOrHelix reads a decimal or hex integer, then checks for a
// trailing ':apophis' to form a Helix token. A missing second channel
// (trailing ':' with no digits) defaults Apophis to 0.
func (l *Lexer) readNumberOrHelix(line, col int) (Token, error) {
	isHexLit := false
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		isHexLit = true
		l.readChar() // consume '0'
		l.readChar() // consume 'x'
	}

	start := l.pos - 1
	for (isHexLit && isHex(l.ch)) || (!isHexLit && isDigit(l.ch)) {
		l.readChar()
	}
	raStr := l.input[start : l.pos-1]

	var ra uint64
	var err error
	if isHexLit {
		ra, err = strconv.ParseUint(raStr, 16, 16)
	} else {
		ra, err = strconv.ParseUint(raStr, 10, 16)
	}
	if err != nil {
		return Token{}, asmerr.Wrap(asmerr.Lexical, asmerr.Position{Filename: l.filename, Line: line, Column: col}, err, "malformed numeric literal %q", raStr)
	}

	if l.ch == ':' {
		l.readChar() // consume ':'
		astart := l.pos - 1
		for isDigit(l.ch) {
			l.readChar()
		}
		apoStr := l.input[astart : l.pos-1]
		var apo uint64
		if apoStr != "" {
			apo, err = strconv.ParseUint(apoStr, 10, 16)
			if err != nil {
				return Token{}, asmerr.Wrap(asmerr.Lexical, asmerr.Position{Filename: l.filename, Line: line, Column: col}, err, "malformed Helix apophis channel %q", apoStr)
			}
		}
		return Token{Type: HelixTok, Ra: uint16(ra), Apophis: uint16(apo), Line: line, Column: col}, nil
	}

	return Token{Type: Number, Number: int32(ra), Line: line, Column: col}, nil
}

func (l *Lexer) readWord(line, col int) (Token, error) {
	start := l.pos - 1
	for isAlnum(l.ch) {
		l.readChar()
	}
	word := l.input[start : l.pos-1]
	if verbs[word] {
		return Token{Type: Verb, Literal: word, Line: line, Column: col}, nil
	}
	return Token{Type: Identifier, Literal: word, Line: line, Column: col}, nil
}
