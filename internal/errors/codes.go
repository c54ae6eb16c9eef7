// Package errors defines the diagnostic types shared by every phase of
// the automaton generator: the declaration checker, the regexp
// transformer, the automaton builder, and the table encoder.
package errors

// Error codes identify a diagnostic independent of its message text, the
// way Rust/clang-style compilers do. Codes are grouped by the phase that
// raises them.
//
// Code ranges:
//
//	E01xx: declaration checker diagnostics
//	E02xx: regexp transformer diagnostics
//	E03xx: automaton builder diagnostics
//	E09xx: configuration/option diagnostics
const (
	// Checker — unconditional errors

	ErrUndeclaredName                = "E0101" // reference to a name with no matching declaration
	ErrWrongKind                     = "E0102" // name resolved to the wrong declaration kind
	ErrReservedName                  = "E0103" // "nothing" used as a unit/reservation name
	ErrQuotedName                    = "E0104" // declaration name contains a double-quote
	ErrDuplicateBypass               = "E0105" // same (out,in) bypass pair at different latencies
	ErrSelfExclusion                 = "E0106" // a unit declared to exclude itself
	ErrCrossAutomatonExclusion       = "E0107" // exclusion pair spans two automata
	ErrSelfAbsence                   = "E0108" // a unit's absence pattern names itself
	ErrCrossAutomatonPresenceAbsence = "E0109" // presence/absence set spans >1 automaton
	ErrReservationCycle              = "E0110" // a reservation definition cycles back to itself
	ErrNegativeLatency               = "E0111" // a latency value is negative
	ErrDuplicateDeclaration          = "E0112" // a unit/reservation/instruction name declared twice

	// Checker — warning-capable under -w

	ErrDuplicateAutomaton          = "E0151" // automaton name declared more than once
	ErrDuplicateBypassSameLatency  = "E0152" // duplicate bypass at the identical latency
	ErrExcludesAndRequiresPresence = "E0153" // "excludes X and requires presence of X"
	ErrRequiresAbsenceAndPresence  = "E0154" // "requires both absence and presence of X"
	WarnUnusedAutomaton            = "E0155" // automaton declared but never referenced
	WarnUnusedUnit                 = "E0156" // unit declared but never reserved
	WarnUnusedReservation          = "E0157" // reservation declared but never referenced

	// Regexp transformer

	ErrDistributionViolation = "E0201" // a Oneof alternative omits automaton activity others have

	// Automaton builder — internal consistency

	ErrUnreachableStateAfterMinimize = "E0301" // minimization left an unreachable state

	// Configuration

	ErrUnknownOption          = "E0901" // unrecognized configuration option
	ErrUnimplementedOption    = "E0902" // recognized but unimplemented option (-split)
	ErrEmptyReservationString = "E0903" // empty or unparseable reservation-expression string
)

// warningCapable is the fixed set of diagnostics -w is permitted to demote
// from error to warning severity.
var warningCapable = map[string]bool{
	ErrDuplicateAutomaton:          true,
	ErrDuplicateBypassSameLatency:  true,
	ErrExcludesAndRequiresPresence: true,
	ErrRequiresAbsenceAndPresence:  true,
	WarnUnusedAutomaton:            true,
	WarnUnusedUnit:                 true,
	WarnUnusedReservation:          true,
}

// IsWarningCapable reports whether -w may downgrade code from Error to Warning.
func IsWarningCapable(code string) bool {
	return warningCapable[code]
}
