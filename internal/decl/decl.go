// Package decl defines the declaration sum types: the raw
// records an upstream parser produces, and the linked, checker-populated
// model the rest of the pipeline consumes.
package decl

import "pipehazard/internal/regexp"

// Raw is the tagged-sum interface every record delivered by an upstream
// parser implements. The checker is the sole consumer of Raw values.
type Raw interface{ isRaw() }

// RawAutomaton declares an automaton name.
type RawAutomaton struct {
	Name string
}

// RawUnit declares a functional unit. AutomatonName is "" when the unit
// is not explicitly assigned to an automaton; such units land in the
// default automaton 0.
type RawUnit struct {
	Name          string
	AutomatonName string
	Query         bool
}

// RawReservation declares a named, reusable reservation expression.
type RawReservation struct {
	Name string
	Expr regexp.Expr
}

// RawInsnReservation declares one instruction's reservation.
type RawInsnReservation struct {
	Name      string
	Condition string // opaque RTL-condition attribute text
	Latency   int
	Expr      regexp.Expr
}

// RawBypass declares a forwarding path between two instructions.
type RawBypass struct {
	OutName string
	InName  string
	Latency int
	Guard   string // optional guard-predicate name, "" if absent
}

// RawExclusion declares that every unit named on the left may not
// co-reserve, in the same cycle, with any unit named on the right
// (symmetrized by the checker).
type RawExclusion struct {
	Left  []string
	Right []string
}

// PatternKind distinguishes the four pattern-constraint record kinds.
type PatternKind int

const (
	Presence PatternKind = iota
	FinalPresence
	Absence
	FinalAbsence
)

// RawPattern declares a presence/final-presence/absence/final-absence
// constraint: every unit named in Targets gets every pattern in Patterns
// appended to the list selected by Kind.
type RawPattern struct {
	Kind     PatternKind
	Targets  []string
	Patterns [][]string
}

func (*RawAutomaton) isRaw()       {}
func (*RawUnit) isRaw()            {}
func (*RawReservation) isRaw()     {}
func (*RawInsnReservation) isRaw() {}
func (*RawBypass) isRaw()          {}
func (*RawExclusion) isRaw()       {}
func (*RawPattern) isRaw()         {}
