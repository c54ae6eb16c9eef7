package frontend

import (
	"fmt"
	"strings"

	"github.com/alecthomas/participle/v2"

	"pipehazard/internal/decl"
	"pipehazard/internal/errors"
	"pipehazard/internal/regexp"
)

var fileParser = participle.MustBuild[File](
	participle.Lexer(PipeLexer),
	participle.Elide("Whitespace"),
	participle.Unquote("String"),
	participle.UseLookahead(2),
)

var exprParser = participle.MustBuild[ExprNode](
	participle.Lexer(ExprLexer),
	participle.Elide("Whitespace"),
)

// ParseFile parses a machine-description file into the raw declaration
// records the checker consumes. A syntax error in the file itself is
// returned as err (a participle.Error carrying the position); malformed
// reservation-expression strings inside otherwise well-formed
// declarations are collected as diagnostics so several can be reported
// at once.
func ParseFile(filename, source string) ([]decl.Raw, errors.Diagnostics, error) {
	var diags errors.Diagnostics

	file, err := fileParser.ParseString(filename, source)
	if err != nil {
		return nil, diags, err
	}

	var raws []decl.Raw
	for _, d := range file.Decls {
		switch {
		case d.Comment != nil:
			// Comments carry no declaration.
		case d.Automaton != nil:
			for _, name := range d.Automaton.Names {
				raws = append(raws, &decl.RawAutomaton{Name: name})
			}
		case d.Unit != nil:
			for _, name := range d.Unit.Names {
				raws = append(raws, &decl.RawUnit{
					Name:          name,
					AutomatonName: d.Unit.Automaton,
					Query:         d.Unit.Query,
				})
			}
		case d.Reservation != nil:
			expr, perr := ParseReservation(d.Reservation.Expr)
			if perr != nil {
				diags.Add(reservationDiag(filename, d.Reservation.Name, perr))
				continue
			}
			raws = append(raws, &decl.RawReservation{Name: d.Reservation.Name, Expr: expr})
		case d.Insn != nil:
			expr, perr := ParseReservation(d.Insn.Expr)
			if perr != nil {
				diags.Add(reservationDiag(filename, d.Insn.Name, perr))
				continue
			}
			raws = append(raws, &decl.RawInsnReservation{
				Name:      d.Insn.Name,
				Condition: d.Insn.Condition,
				Latency:   d.Insn.Latency,
				Expr:      expr,
			})
		case d.Bypass != nil:
			raws = append(raws, &decl.RawBypass{
				OutName: d.Bypass.Out,
				InName:  d.Bypass.In,
				Latency: d.Bypass.Latency,
				Guard:   d.Bypass.Guard,
			})
		case d.Exclusion != nil:
			raws = append(raws, &decl.RawExclusion{
				Left:  d.Exclusion.Left,
				Right: d.Exclusion.Right,
			})
		case d.Pattern != nil:
			raw := &decl.RawPattern{Kind: patternKind(d.Pattern.Kind), Targets: d.Pattern.Targets}
			for _, group := range d.Pattern.Patterns {
				raw.Patterns = append(raw.Patterns, group.Units)
			}
			raws = append(raws, raw)
		}
	}
	return raws, diags, nil
}

func patternKind(keyword string) decl.PatternKind {
	switch keyword {
	case "presence":
		return decl.Presence
	case "final_presence":
		return decl.FinalPresence
	case "absence":
		return decl.Absence
	default:
		return decl.FinalAbsence
	}
}

func reservationDiag(filename, name string, err error) errors.Diagnostic {
	b := errors.NewError(errors.ErrEmptyReservationString,
		fmt.Sprintf("reservation expression of %q: %s", name, err)).At(name)
	if pe, ok := err.(participle.Error); ok {
		pos := pe.Position()
		b.WithPosition(errors.Position{Filename: filename, Line: pos.Line, Column: pos.Column})
	}
	return b.Build()
}

// ParseReservation parses one reservation-expression string into the
// regexp sum type. Singleton alternations, sequences, and
// groups collapse to their only operand.
func ParseReservation(s string) (regexp.Expr, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("empty reservation string")
	}
	node, err := exprParser.ParseString("", s)
	if err != nil {
		return nil, err
	}
	return node.toExpr()
}

func (e *ExprNode) toExpr() (regexp.Expr, error) {
	var alts []regexp.Expr
	for _, alt := range e.Alts {
		item, err := alt.toExpr()
		if err != nil {
			return nil, err
		}
		alts = append(alts, item)
	}
	if len(alts) == 1 {
		return alts[0], nil
	}
	return &regexp.Oneof{Items: alts}, nil
}

func (s *SeqNode) toExpr() (regexp.Expr, error) {
	var items []regexp.Expr
	for _, it := range s.Items {
		item, err := it.toExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &regexp.Sequence{Items: items}, nil
}

func (a *AllNode) toExpr() (regexp.Expr, error) {
	var items []regexp.Expr
	for _, it := range a.Items {
		item, err := it.toExpr()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if len(items) == 1 {
		return items[0], nil
	}
	return &regexp.Allof{Items: items}, nil
}

func (r *RepNode) toExpr() (regexp.Expr, error) {
	atom, err := r.Atom.toExpr()
	if err != nil {
		return nil, err
	}
	if r.Repeat == nil {
		return atom, nil
	}
	n := *r.Repeat
	switch {
	case n < 1:
		return nil, fmt.Errorf("repeat count must be at least 1, got %d", n)
	case n == 1:
		return atom, nil
	default:
		return &regexp.Repeat{Item: atom, N: n}, nil
	}
}

func (a *AtomNode) toExpr() (regexp.Expr, error) {
	switch {
	case a.Paren != nil:
		return a.Paren.toExpr()
	case a.Nothing:
		return regexp.Nothing, nil
	default:
		return &regexp.Unit{Name: a.Name}, nil
	}
}
