package encode

import (
	"pipehazard/internal/automaton"
	"pipehazard/internal/bitset"
	"pipehazard/internal/decl"
)

// Tables holds the six per-automaton lookup tables, keyed by
// (state_order_num, equiv_class_num) or state_order_num alone.
type Tables struct {
	StatesNum  int
	ClassesNum int

	// Translate maps instruction id to equivalence-class id. Its length
	// is insns_num + 1: the trailing entry is the advance-cycle
	// pseudo-instruction, and any out-of-range instruction id reads as
	// ClassesNum.
	Translate []int

	// Transition yields the next state's order number, or StatesNum when
	// the instruction cannot issue from the state.
	Transition *Compressed

	// StateAlts yields the alternatives count of the transition, zero
	// when there is none.
	StateAlts *Compressed

	// MinIssueDelay yields the minimum number of cycles the instruction
	// class must wait before it can issue from the state.
	MinIssueDelay *PackedMatrix

	// Deadlock is 1 per state whose only outgoing arc is advance-cycle.
	Deadlock []bool

	// ReservedUnits holds, per state, one bit per query unit indicating
	// whether the unit is reserved on cycle 0 of the state's bitset.
	ReservedUnits []bitset.Bits
}

// TranslateInsn maps an instruction id (or any out-of-range value) to
// its equivalence class.
func (t *Tables) TranslateInsn(code int) int {
	if code < 0 || code >= len(t.Translate) {
		return t.ClassesNum
	}
	return t.Translate[code]
}

// Encode builds the tables for every automaton of a finished build.
func Encode(d *decl.Description, automata []*automaton.Automaton) []*Tables {
	out := make([]*Tables, len(automata))
	for i, a := range automata {
		out[i] = encodeAutomaton(d, a)
	}
	return out
}

func encodeAutomaton(d *decl.Description, a *automaton.Automaton) *Tables {
	states := len(a.States)
	classes := a.InsnEquivClassesNum
	t := &Tables{StatesNum: states, ClassesNum: classes}

	t.Translate = make([]int, len(d.Insns)+1)
	for _, ai := range a.AInsns {
		if ai.AdvanceCycle() {
			t.Translate[len(d.Insns)] = ai.EquivClassNum
		} else {
			t.Translate[ai.Insn.Num] = ai.EquivClassNum
		}
	}

	transition := newMatrix(states, classes, states)
	alts := newMatrix(states, classes, 0)
	for _, s := range a.States {
		for _, arc := range s.Arcs {
			class := arc.Insn.EquivClassNum
			transition[s.OrderNum][class] = arc.To.OrderNum
			alts[s.OrderNum][class] = arc.AltsCount
		}
	}
	t.Transition = compress(transition, states, classes, states)
	t.StateAlts = compress(alts, states, classes, 0)

	t.MinIssueDelay = newPackedMatrix(minIssueDelays(a, transition), states, classes)

	t.Deadlock = make([]bool, states)
	for _, s := range a.States {
		t.Deadlock[s.OrderNum] = len(s.Arcs) == 1 && s.Arcs[0].Insn.AdvanceCycle()
	}

	t.ReservedUnits = make([]bitset.Bits, states)
	for _, s := range a.States {
		reserved := bitset.NewBits(len(d.QueryUnits))
		for _, u := range a.Units {
			if u.Query && s.Reservs.Test(0, u.UnitNum) {
				reserved.Set(u.QueryNum)
			}
		}
		t.ReservedUnits[s.OrderNum] = reserved
	}
	return t
}

func newMatrix(rows, cols, fill int) [][]int {
	m := make([][]int, rows)
	for r := range m {
		m[r] = make([]int, cols)
		for c := range m[r] {
			m[r][c] = fill
		}
	}
	return m
}

// minIssueDelays computes, for every (state, class), the minimum cycle
// count before the class can issue: advance-cycle arcs cost one cycle,
// every other arc costs zero. Implemented as a
// multi-source 0/1 shortest path on the reversed arc graph, one run per
// class, memoized in the result matrix. States from which the class can
// never issue read as zero; the transition table already reports the
// inability.
func minIssueDelays(a *automaton.Automaton, transition [][]int) [][]int {
	states := len(a.States)
	classes := a.InsnEquivClassesNum
	delays := newMatrix(states, classes, 0)

	type rev struct {
		pred   int
		weight int
	}
	incoming := make([][]rev, states)
	for _, s := range a.States {
		for _, arc := range s.Arcs {
			w := 0
			if arc.Insn.AdvanceCycle() {
				w = 1
			}
			incoming[arc.To.OrderNum] = append(incoming[arc.To.OrderNum], rev{pred: s.OrderNum, weight: w})
		}
	}

	dist := make([]int, states)
	for class := 0; class < classes; class++ {
		var deque []int
		for s := 0; s < states; s++ {
			if transition[s][class] != states {
				dist[s] = 0
				deque = append(deque, s)
			} else {
				dist[s] = -1
			}
		}
		for len(deque) > 0 {
			u := deque[0]
			deque = deque[1:]
			for _, in := range incoming[u] {
				nd := dist[u] + in.weight
				if dist[in.pred] == -1 || nd < dist[in.pred] {
					dist[in.pred] = nd
					if in.weight == 0 {
						deque = append([]int{in.pred}, deque...)
					} else {
						deque = append(deque, in.pred)
					}
				}
			}
		}
		for s := 0; s < states; s++ {
			if dist[s] > 0 {
				delays[s][class] = dist[s]
			}
		}
	}
	return delays
}
