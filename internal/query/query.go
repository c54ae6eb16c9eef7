// Package query realizes the runtime query surface over
// the encoded tables: the same functions the external emitter writes
// into generated source, here as a directly usable implementation that
// also pins down what each query returns in terms of the tables.
package query

import (
	"fmt"
	"io"

	"pipehazard/internal/emit"
)

var _ emit.QuerySurface = (*DFA)(nil)

// DFA answers scheduler queries against a finished model. Construct it
// with Start; Finish releases the per-instruction code cache.
type DFA struct {
	model *emit.Model

	// classCache memoizes translate lookups per (automaton,
	// instruction); dfa_clean_insn_cache drops it.
	classCache [][]int
}

// Start builds the query object for a model (dfa_start).
func Start(m *emit.Model) *DFA {
	d := &DFA{model: m}
	d.CleanInsnCache()
	return d
}

// Finish releases the caches (dfa_finish). The DFA must not be used
// afterwards.
func (d *DFA) Finish() {
	d.classCache = nil
	d.model = nil
}

// CleanInsnCache drops the per-instruction class cache
// (dfa_clean_insn_cache).
func (d *DFA) CleanInsnCache() {
	d.classCache = make([][]int, len(d.model.Automata))
	for i, am := range d.model.Automata {
		d.classCache[i] = make([]int, len(am.Tables.Translate))
		for c := range d.classCache[i] {
			d.classCache[i][c] = -1
		}
	}
}

func (d *DFA) class(automatonIdx, insn int) int {
	cache := d.classCache[automatonIdx]
	if insn >= 0 && insn < len(cache) {
		if cached := cache[insn]; cached >= 0 {
			return cached
		}
		class := d.model.Automata[automatonIdx].Tables.TranslateInsn(insn)
		cache[insn] = class
		return class
	}
	return d.model.Automata[automatonIdx].Tables.TranslateInsn(insn)
}

// StateSize reports how many table indices a scheduler state holds: one
// per automaton.
func (d *DFA) StateSize() int { return len(d.model.Automata) }

// NewState allocates a reset state.
func (d *DFA) NewState() emit.CPUState {
	s := make(emit.CPUState, d.StateSize())
	d.StateReset(s)
	return s
}

// StateReset moves the state back to each automaton's start state.
func (d *DFA) StateReset(s emit.CPUState) {
	for i, am := range d.model.Automata {
		s[i] = am.StartState
	}
}

// StateTransition attempts to issue insn from s. When every automaton
// has a transition for the instruction's class the state advances and a
// negative value is returned; otherwise s is left unchanged and the
// result is the number of cycles the instruction must wait (the maximum
// min-issue-delay across the blocking automata). Passing the
// advance-cycle code moves every automaton one cycle forward.
func (d *DFA) StateTransition(s emit.CPUState, insn int) int {
	next := make(emit.CPUState, len(s))
	for i, am := range d.model.Automata {
		class := d.class(i, insn)
		to := am.Tables.Transition.Get(s[i], class)
		if to >= am.StatesNum {
			delay := 0
			for j, other := range d.model.Automata {
				cls := d.class(j, insn)
				if other.Tables.Transition.Get(s[j], cls) >= other.StatesNum {
					if md := other.Tables.MinIssueDelay.Get(s[j], cls); md > delay {
						delay = md
					}
				}
			}
			return delay
		}
		next[i] = to
	}
	copy(s, next)
	return -1
}

// StateAlts reports how many distinct reservation alternatives the
// instruction has from s: the minimum of the per-automaton
// state-alternatives entries, since every automaton's choice constrains
// the whole machine. Zero means the instruction cannot issue.
func (d *DFA) StateAlts(s emit.CPUState, insn int) int {
	alts := 0
	for i, am := range d.model.Automata {
		a := am.Tables.StateAlts.Get(s[i], d.class(i, insn))
		if a == 0 {
			return 0
		}
		if alts == 0 || a < alts {
			alts = a
		}
	}
	return alts
}

// StateDeadlockP reports whether s is dead-locked: some automaton's only
// way forward is advance-cycle, so no instruction at all can issue this
// cycle.
func (d *DFA) StateDeadlockP(s emit.CPUState) bool {
	for i, am := range d.model.Automata {
		if am.Tables.Deadlock[s[i]] {
			return true
		}
	}
	return false
}

// MinIssueDelay reports the minimum number of cycles insn must wait
// before it can issue from s: the maximum of the per-automaton
// min-issue-delay entries.
func (d *DFA) MinIssueDelay(s emit.CPUState, insn int) int {
	delay := 0
	for i, am := range d.model.Automata {
		if md := am.Tables.MinIssueDelay.Get(s[i], d.class(i, insn)); md > delay {
			delay = md
		}
	}
	return delay
}

// MinInsnConflictDelay reports how long insn2 must wait after insn1
// issues from a fresh machine: insn1 is issued from the start state and
// insn2's min-issue-delay is read off the resulting state.
func (d *DFA) MinInsnConflictDelay(s emit.CPUState, insn1, insn2 int) int {
	probe := d.NewState()
	d.StateTransition(probe, insn1)
	return d.MinIssueDelay(probe, insn2)
}

// InsnLatency reports the result latency between a producer and a
// consumer: a declared bypass overrides the producer's default latency.
func (d *DFA) InsnLatency(insn1, insn2 int) int {
	if insn1 < 0 || insn1 >= len(d.model.Insns) {
		return 0
	}
	producer := d.model.Insns[insn1]
	for _, b := range producer.Bypasses {
		if b.InCode == insn2 {
			return b.Latency
		}
	}
	return producer.Latency
}

// PrintReservation writes insn's canonical reservation expression, or
// "nothing" for the advance-cycle code and other out-of-range ids.
func (d *DFA) PrintReservation(w io.Writer, insn int) error {
	text := "nothing"
	if insn >= 0 && insn < len(d.model.Insns) && d.model.Insns[insn].Reservation != "" {
		text = d.model.Insns[insn].Reservation
	}
	_, err := fmt.Fprint(w, text)
	return err
}

// GetCPUUnitCode resolves a query unit name to its dense code, or -1.
func (d *DFA) GetCPUUnitCode(name string) int {
	for code, n := range d.model.QueryUnits {
		if n == name {
			return code
		}
	}
	return -1
}

// CPUUnitReservationP reports whether the query unit with the given code
// is reserved on cycle 0 of s.
func (d *DFA) CPUUnitReservationP(s emit.CPUState, code int) bool {
	if code < 0 || code >= len(d.model.QueryUnits) {
		return false
	}
	for i, am := range d.model.Automata {
		if am.Tables.ReservedUnits[s[i]].Test(code) {
			return true
		}
	}
	return false
}
