package frontend

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// PipeLexer tokenizes machine-description files. Reservation
// expressions travel through the file as string literals and are
// tokenized separately by ExprLexer.
var PipeLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		// Comments
		{"Comment", `//[^\n]*`, nil},

		// Reservation-expression and condition strings
		{"String", `"(\\"|[^"])*"`, nil},

		// Keywords and identifiers (order matters)
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},

		// Integer literals
		{"Integer", `[0-9]+`, nil},

		// Punctuation
		{"Punctuation", `[(){}:;,=|]`, nil},

		// Whitespace
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})

// ExprLexer tokenizes the reservation-expression grammar:
// E ::= '(' E ')' | name | name '*' N | E ',' E | E '+' E | E '|' E |
// 'nothing'.
var ExprLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
		{"Integer", `[0-9]+`, nil},
		{"Punctuation", `[()*+,|]`, nil},
		{"Whitespace", `[ \t\r\n]+`, nil},
	},
})
