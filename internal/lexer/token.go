package lexer

import "fmt"

// TokenType identifies the lexical category of a Token.
type TokenType int

const (
	EOF TokenType = iota
	Verb
	RegisterTok
	Identifier
	Number
	HelixTok
	StringLiteral

	Comma
	Colon
	Dot
	OpenParen
	CloseParen
	OpenBracket
	CloseBracket
	Equals
	Plus
	Minus
	Star
	Slash
	Dollar
)

var typeNames = map[TokenType]string{
	EOF:           "EOF",
	Verb:          "VERB",
	RegisterTok:   "REGISTER",
	Identifier:    "IDENTIFIER",
	Number:        "NUMBER",
	HelixTok:      "HELIX",
	StringLiteral: "STRING",
	Comma:         ",",
	Colon:         ":",
	Dot:           ".",
	OpenParen:     "(",
	CloseParen:    ")",
	OpenBracket:   "[",
	CloseBracket:  "]",
	Equals:        "=",
	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	Slash:         "/",
	Dollar:        "$",
}

func (t TokenType) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TokenType(%d)", t)
}

// Token is a single lexical unit plus its numeric payload (for Number/Helix)
// and its source position.
type Token struct {
	Type    TokenType
	Literal string
	Number  int32
	Ra      uint16
	Apophis uint16
	Line    int
	Column  int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q) at %d:%d", t.Type, t.Literal, t.Line, t.Column)
}

// verbs is the set of recognized Maât instruction mnemonics; any other
// alphabetic word is an Identifier (a label use or a nama/smen name).
var verbs = map[string]bool{
	"henek": true, "sema": true, "wdj": true, "duat": true, "ankh": true,
	"sena": true, "neheh": true, "kheper": true, "per": true, "return": true,
	"sedjem": true, "wab": true, "jena": true, "isfet": true, "kheb": true,
	"henet": true, "mer": true, "her": true, "kher": true, "her_ankh": true,
	"kher_ankh": true, "dema": true, "push": true, "pop": true, "in": true,
	"out": true, "nama": true, "smen": true, "rdtsc": true, "kherp": true,
	"shesa": true,
}
