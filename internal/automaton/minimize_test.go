package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipehazard/internal/decl"
	"pipehazard/internal/regexp"
)

// canIssue walks an issue sequence from the start state; "@" means
// advance-cycle. It reports whether every step had an arc.
func canIssue(a *Automaton, sequence []string) bool {
	s := a.StartState
	for _, name := range sequence {
		var arc *Arc
		if name == "@" {
			arc = s.FindArc(a.AdvanceCycle)
		} else {
			arc = s.FindArc(a.ainsnFor(name))
		}
		if arc == nil {
			return false
		}
		s = arc.To
	}
	return true
}

func serializerRaws() []decl.Raw {
	return []decl.Raw{
		&decl.RawUnit{Name: "u1"},
		&decl.RawUnit{Name: "u2"},
		&decl.RawExclusion{Left: []string{"u1"}, Right: []string{"u2"}},
		&decl.RawInsnReservation{Name: "iA", Latency: 1, Expr: &regexp.Sequence{Items: []regexp.Expr{
			&regexp.Unit{Name: "u1"}, &regexp.Unit{Name: "u1"},
		}}},
		&decl.RawInsnReservation{Name: "iB", Latency: 1, Expr: &regexp.Unit{Name: "u2"}},
	}
}

// TestMinimizationPreservesLanguage enumerates every issue sequence up
// to a fixed depth and checks the minimized automaton accepts exactly
// the sequences the unminimized one does.
func TestMinimizationPreservesLanguage(t *testing.T) {
	minimized := Build(checkedDescription(t, serializerRaws()), Options{})[0]
	plain := Build(checkedDescription(t, serializerRaws()), Options{NoMinimize: true})[0]

	alphabet := []string{"iA", "iB", "@"}
	var sequences [][]string
	var grow func(prefix []string, depth int)
	grow = func(prefix []string, depth int) {
		if depth == 0 {
			return
		}
		for _, sym := range alphabet {
			next := append(append([]string{}, prefix...), sym)
			sequences = append(sequences, next)
			grow(next, depth-1)
		}
	}
	grow(nil, 5)

	for _, seq := range sequences {
		assert.Equal(t, canIssue(plain, seq), canIssue(minimized, seq),
			"sequence %v must be accepted identically before and after minimization", seq)
	}
	assert.LessOrEqual(t, len(minimized.States), len(plain.States))
}

func TestMinimizationKeepsStartStateReachable(t *testing.T) {
	a := Build(checkedDescription(t, serializerRaws()), Options{})[0]
	require.NotNil(t, a.StartState)
	assert.Equal(t, 0, a.StartState.OrderNum, "enumeration starts at the start state")

	// Every state is reachable from the start state.
	reachable := map[*State]bool{a.StartState: true}
	queue := []*State{a.StartState}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, arc := range s.Arcs {
			if !reachable[arc.To] {
				reachable[arc.To] = true
				queue = append(queue, arc.To)
			}
		}
	}
	assert.Len(t, a.States, len(reachable))
}

// TestMinimizationKeepsQueryUnitsApart pins the query-unit part of the
// refinement signature: a query unit reserved only on cycle 0 no longer
// influences any transition, so without the signature term the state
// would merge with the idle state and cpu_unit_reservation_p would
// change answers.
func TestMinimizationKeepsQueryUnitsApart(t *testing.T) {
	raws := []decl.Raw{
		&decl.RawUnit{Name: "port", Query: true},
		&decl.RawInsnReservation{Name: "iP", Latency: 1, Expr: &regexp.Sequence{Items: []regexp.Expr{
			regexp.Nothing, &regexp.Unit{Name: "port"},
		}}},
	}
	a := Build(checkedDescription(t, raws), Options{})[0]

	port, ok := a.Units[0], a.Units[0].Query
	require.True(t, ok)

	issued := a.StartState.FindArc(a.ainsnFor("iP")).To
	settled := issued.FindArc(a.AdvanceCycle).To
	assert.True(t, settled.Reservs.Test(0, port.UnitNum))
	assert.NotEqual(t, a.StartState, settled,
		"a state reserving a query unit on cycle 0 must survive minimization")
}

func TestHeuristicPartitionCoversAllUnits(t *testing.T) {
	d := checkedDescription(t, []decl.Raw{
		&decl.RawUnit{Name: "a"},
		&decl.RawUnit{Name: "b"},
		&decl.RawUnit{Name: "c"},
		&decl.RawUnit{Name: "d"},
		&decl.RawInsnReservation{Name: "i1", Latency: 1, Expr: &regexp.Sequence{Items: []regexp.Expr{
			&regexp.Unit{Name: "a"}, &regexp.Unit{Name: "b"},
		}}},
		&decl.RawInsnReservation{Name: "i2", Latency: 1, Expr: &regexp.Sequence{Items: []regexp.Expr{
			&regexp.Unit{Name: "c"}, &regexp.Unit{Name: "c"}, &regexp.Unit{Name: "d"},
		}}},
	})
	automata := Partition(d, 2)
	require.Len(t, automata, 2)

	seen := make(map[string]int)
	for _, a := range automata {
		for _, u := range a.Units {
			seen[u.Name]++
		}
	}
	for _, name := range []string{"a", "b", "c", "d"} {
		assert.Equal(t, 1, seen[name], "unit %s assigned exactly once", name)
	}
}

func TestDeclaredPartitionIsHonored(t *testing.T) {
	d := checkedDescription(t, []decl.Raw{
		&decl.RawAutomaton{Name: "pipeline"},
		&decl.RawAutomaton{Name: "fpu"},
		&decl.RawUnit{Name: "alu", AutomatonName: "pipeline"},
		&decl.RawUnit{Name: "fadd", AutomatonName: "fpu"},
		&decl.RawInsnReservation{Name: "add", Latency: 1, Expr: &regexp.Unit{Name: "alu"}},
		&decl.RawInsnReservation{Name: "fop", Latency: 2, Expr: &regexp.Unit{Name: "fadd"}},
	})
	// A declared assignment wins even when a heuristic count is passed.
	automata := Partition(d, 2)
	require.Len(t, automata, 2)
	assert.Equal(t, "pipeline", automata[0].Name)
	assert.Equal(t, "fpu", automata[1].Name)
	require.Len(t, automata[0].Units, 1)
	assert.Equal(t, "alu", automata[0].Units[0].Name)
}
