package emit

import "io"

// CPUState is a scheduler-visible machine state: one state order number
// per automaton, StateSize entries long.
type CPUState []int

// QuerySurface enumerates the runtime queries the generated code must
// provide, each defined in terms of the tables. The
// internal/query package is the reference implementation; external
// emitters must realize the same contract in their target language.
type QuerySurface interface {
	StateSize() int
	StateReset(s CPUState)

	// StateTransition issues insn if possible (negative result, state
	// advanced) or reports the cycles to wait (state unchanged).
	StateTransition(s CPUState, insn int) int

	StateAlts(s CPUState, insn int) int
	StateDeadlockP(s CPUState) bool
	MinIssueDelay(s CPUState, insn int) int
	MinInsnConflictDelay(s CPUState, insn1, insn2 int) int
	InsnLatency(insn1, insn2 int) int
	PrintReservation(w io.Writer, insn int) error
	GetCPUUnitCode(name string) int
	CPUUnitReservationP(s CPUState, code int) bool

	CleanInsnCache()
	Finish()
}
