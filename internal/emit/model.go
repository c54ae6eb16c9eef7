// Package emit defines the contract between the automaton generator's
// core and its external collaborators: the in-memory description
// object handed to the code writer and the report writer, and the
// runtime query surface the generated code must provide.
package emit

import (
	"io"

	"pipehazard/internal/automaton"
	"pipehazard/internal/decl"
	"pipehazard/internal/encode"
)

// Model is the description object the core hands to collaborators once
// every phase has completed.
type Model struct {
	Automata []*AutomatonModel
	Insns    []*InsnModel

	// QueryUnits lists the query units' names in dense QueryNum order
	// (get_cpu_unit_code resolves names against this list).
	QueryUnits []string

	// MaxIssueRate is the length of the longest acyclic path from any
	// state, ignoring advance-cycle arcs and self-loops.
	MaxIssueRate int

	// AdvanceCycleCode is the instruction id of the advance-cycle
	// pseudo-instruction: one past the last declared instruction.
	AdvanceCycleCode int

	// MaxInsnQueueIndex is the smallest 2^k - 1 not below the maximum of
	// default latencies, bypass latencies, and MaxInsnReservCycles.
	MaxInsnQueueIndex int
}

// AutomatonModel is one automaton's share of the model: identity, the
// six tables, and the construction statistics the report echoes.
type AutomatonModel struct {
	Name      string
	Num       int
	UnitNames []string

	StartState      int
	StatesNum       int
	EquivClassesNum int
	Tables          *encode.Tables

	NDFAStatesNum    int
	NDFAArcsNum      int
	DFAStatesNum     int
	DFAArcsNum       int
	MinimalStatesNum int
	MinimalArcsNum   int
	LockedStatesNum  int
}

// InsnModel is one instruction's share of the model. Condition is the
// opaque RTL-condition text; Reservation is the canonical
// per-instruction expression rendered as a printable string, used by
// print_reservation.
type InsnModel struct {
	Name        string
	Code        int
	Latency     int
	Condition   string
	Reservation string
	Bypasses    []*BypassModel
}

// BypassModel is one forwarding path out of an instruction.
type BypassModel struct {
	InName  string
	InCode  int
	Latency int
	Guard   string
}

// Emitter is the external code writer: it realizes the runtime query
// surface from the model's tables.
type Emitter interface {
	Emit(m *Model) error
}

// Reporter is the external report writer (-v): it renders the report
// from the linked description, the built automata, and the model.
type Reporter interface {
	Report(w io.Writer, d *decl.Description, automata []*automaton.Automaton, m *Model) error
}

// BuildModel assembles the model from the linked description, the built
// automata, and their encoded tables.
func BuildModel(d *decl.Description, automata []*automaton.Automaton, tables []*encode.Tables) *Model {
	m := &Model{AdvanceCycleCode: len(d.Insns)}
	for _, u := range d.QueryUnits {
		m.QueryUnits = append(m.QueryUnits, u.Name)
	}

	for i, a := range automata {
		am := &AutomatonModel{
			Name:             a.Name,
			Num:              a.Num,
			StartState:       a.StartState.OrderNum,
			StatesNum:        len(a.States),
			EquivClassesNum:  a.InsnEquivClassesNum,
			Tables:           tables[i],
			NDFAStatesNum:    a.NDFAStatesNum,
			NDFAArcsNum:      a.NDFAArcsNum,
			DFAStatesNum:     a.DFAStatesNum,
			DFAArcsNum:       a.DFAArcsNum,
			MinimalStatesNum: a.MinimalStatesNum,
			MinimalArcsNum:   a.MinimalArcsNum,
			LockedStatesNum:  a.LockedStatesNum,
		}
		for _, u := range a.Units {
			am.UnitNames = append(am.UnitNames, u.Name)
		}
		m.Automata = append(m.Automata, am)

		if rate := maxIssueRate(a); rate > m.MaxIssueRate {
			m.MaxIssueRate = rate
		}
	}

	maxLatency := d.MaxInsnReservCycles
	for _, insn := range d.Insns {
		im := &InsnModel{
			Name:      insn.Name,
			Code:      insn.Num,
			Latency:   insn.Latency,
			Condition: insn.Condition,
		}
		if insn.Transformed != nil {
			im.Reservation = insn.Transformed.String()
		}
		for _, b := range insn.Bypasses {
			im.Bypasses = append(im.Bypasses, &BypassModel{
				InName:  b.InName,
				InCode:  b.In.Num,
				Latency: b.Latency,
				Guard:   b.Guard,
			})
			if b.Latency > maxLatency {
				maxLatency = b.Latency
			}
		}
		if insn.Latency > maxLatency {
			maxLatency = insn.Latency
		}
		m.Insns = append(m.Insns, im)
	}

	m.MaxInsnQueueIndex = 1
	for m.MaxInsnQueueIndex < maxLatency {
		m.MaxInsnQueueIndex = m.MaxInsnQueueIndex*2 + 1
	}
	return m
}

// maxIssueRate finds the longest path of same-cycle issues: arcs other
// than advance-cycle and self-loops, walked acyclically with
// memoization.
func maxIssueRate(a *automaton.Automaton) int {
	memo := make(map[*automaton.State]int)
	onPath := make(map[*automaton.State]bool)

	var longest func(s *automaton.State) int
	longest = func(s *automaton.State) int {
		if v, ok := memo[s]; ok {
			return v
		}
		if onPath[s] {
			return 0
		}
		onPath[s] = true
		best := 0
		for _, arc := range s.Arcs {
			if arc.Insn.AdvanceCycle() || arc.To == s {
				continue
			}
			if n := 1 + longest(arc.To); n > best {
				best = n
			}
		}
		onPath[s] = false
		memo[s] = best
		return best
	}

	rate := 0
	for _, s := range a.States {
		if n := longest(s); n > rate {
			rate = n
		}
	}
	if rate < 1 {
		rate = 1
	}
	return rate
}
