// Package frontend parses machine-description files into the raw
// declaration records the core consumes. The core never imports this
// package; it exists so the pipeline can be exercised end to end from
// text, and it owns the reservation-expression grammar.
//
// The declaration syntax is line-oriented, one declaration per
// semicolon:
//
//	automaton pipe ;
//	unit alu, mul : pipe ;
//	query unit fdiv : pipe ;
//	reservation ld = "alu, nothing" ;
//	insn add 1 = "alu" ;
//	insn load 3 when "(eq_attr \"type\" \"load\")" = "ld" ;
//	bypass 1 prod cons guard forward_p ;
//	exclusion alu, mul : fdiv ;
//	presence alu : (mul fdiv) | (mul) ;
//	final_absence fdiv : (alu) ;
package frontend

// File is a parsed machine-description file.
type File struct {
	Decls []*Decl `@@*`
}

// Decl is one declaration of any kind.
type Decl struct {
	Comment     *Comment         `  @@`
	Automaton   *AutomatonDecl   `| @@`
	Unit        *UnitDecl        `| @@`
	Reservation *ReservationDecl `| @@`
	Insn        *InsnDecl        `| @@`
	Bypass      *BypassDecl      `| @@`
	Exclusion   *ExclusionDecl   `| @@`
	Pattern     *PatternDecl     `| @@`
}

type Comment struct {
	Text string `@Comment`
}

type AutomatonDecl struct {
	Names []string `"automaton" @Ident ("," @Ident)* ";"`
}

type UnitDecl struct {
	Query     bool     `@"query"?`
	Names     []string `"unit" @Ident ("," @Ident)*`
	Automaton string   `(":" @Ident)? ";"`
}

type ReservationDecl struct {
	Name string `"reservation" @Ident`
	Expr string `"=" @String ";"`
}

type InsnDecl struct {
	Name      string `"insn" @Ident`
	Latency   int    `@Integer`
	Condition string `("when" @String)?`
	Expr      string `"=" @String ";"`
}

type BypassDecl struct {
	Latency int    `"bypass" @Integer`
	Out     string `@Ident`
	In      string `@Ident`
	Guard   string `("guard" @Ident)? ";"`
}

type ExclusionDecl struct {
	Left  []string `"exclusion" @Ident ("," @Ident)*`
	Right []string `":" @Ident ("," @Ident)* ";"`
}

type PatternDecl struct {
	Kind     string          `@("presence" | "final_presence" | "absence" | "final_absence")`
	Targets  []string        `@Ident ("," @Ident)*`
	Patterns []*PatternGroup `":" @@ ("|" @@)* ";"`
}

type PatternGroup struct {
	Units []string `"(" @Ident+ ")"`
}

// Expression grammar, precedence | < , < + < *.

type ExprNode struct {
	Alts []*SeqNode `@@ ("|" @@)*`
}

type SeqNode struct {
	Items []*AllNode `@@ ("," @@)*`
}

type AllNode struct {
	Items []*RepNode `@@ ("+" @@)*`
}

type RepNode struct {
	Atom   *AtomNode `@@`
	Repeat *int      `("*" @Integer)?`
}

type AtomNode struct {
	Paren   *ExprNode `  "(" @@ ")"`
	Nothing bool      `| @"nothing"`
	Name    string    `| @Ident`
}
