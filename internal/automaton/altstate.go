package automaton

import (
	"pipehazard/internal/bitset"
	"pipehazard/internal/decl"
	"pipehazard/internal/regexp"
)

// buildAInsns builds the per-automaton instruction views: for every
// instruction it enumerates the alternative reservation footprints of
// the canonical expression, interns each footprint as a state, and
// collapses instructions whose sorted alt-state lists coincide.
func (a *Automaton) buildAInsns(d *decl.Description) {
	for _, insn := range d.Insns {
		ai := &AInsn{Insn: insn, Automaton: a, FirstWithSameReservs: true}
		a.buildAltStates(ai, insn.Transformed)
		a.AInsns = append(a.AInsns, ai)
	}
	a.collapseSameReservs()

	// The advance-cycle pseudo-instruction is appended unconditionally
	// with an empty alt-state list; it represents "no instruction this
	// cycle".
	a.AdvanceCycle = &AInsn{Insn: nil, Automaton: a, FirstWithSameReservs: true}
	a.AInsns = append(a.AInsns, a.AdvanceCycle)
}

// buildAltStates walks the canonical oneof(sequence(allof(...))...) form
// once per alternative. Alternatives are visited in reverse enumeration
// order and each result is prepended, which restores the source order in
// the final list. The list order drives deterministic tie-breaking in
// the state-graph construction, so it must stay stable.
func (a *Automaton) buildAltStates(ai *AInsn, canonical regexp.Expr) {
	oneof, ok := canonical.(*regexp.Oneof)
	if !ok {
		return
	}
	for i := len(oneof.Items) - 1; i >= 0; i-- {
		state := a.altReservation(oneof.Items[i])
		interned, _ := a.internState(state)
		alt := a.pool.newAltState(interned)
		ai.AltStates = append([]*AltState{alt}, ai.AltStates...)
	}

	sorted := make([]*State, 0, len(ai.AltStates))
	for _, alt := range ai.AltStates {
		sorted = append(sorted, alt.State)
	}
	for _, s := range sortDedupeStates(sorted) {
		ai.SortedAltStates = append(ai.SortedAltStates, a.pool.newAltState(s))
	}
}

// altReservation builds the reservation footprint of one canonical
// alternative: bit (i, unit) is set when cycle position i's allof
// contains a unit this automaton owns.
func (a *Automaton) altReservation(alt regexp.Expr) *State {
	reservs := bitset.Empty(a.maxCycles, a.numUnits)
	seq, ok := alt.(*regexp.Sequence)
	if !ok {
		return a.pool.newState(a, reservs)
	}
	for i, node := range seq.Items {
		allof, ok := node.(*regexp.Allof)
		if !ok {
			continue
		}
		for _, leaf := range allof.Items {
			unitLeaf, ok := leaf.(*regexp.Unit)
			if !ok {
				continue
			}
			if u, found := findUnit(a.Units, unitLeaf.Name); found {
				_ = reservs.Set(i, u.UnitNum)
			}
		}
	}
	return a.pool.newState(a, reservs)
}

func findUnit(units []*decl.Unit, name string) (*decl.Unit, bool) {
	for _, u := range units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// collapseSameReservs clears FirstWithSameReservs on every instruction
// whose sorted alt-state list is pointwise equal to an earlier one and
// chains it behind the representative; only representatives drive the
// state-graph construction.
func (a *Automaton) collapseSameReservs() {
	for i, ai := range a.AInsns {
		if !ai.FirstWithSameReservs {
			continue
		}
		last := ai
		for _, other := range a.AInsns[i+1:] {
			if !other.FirstWithSameReservs || !sameAltStates(ai.SortedAltStates, other.SortedAltStates) {
				continue
			}
			other.FirstWithSameReservs = false
			last.NextSameReservs = other
			last = other
		}
	}
}

// sameAltStates compares two canonical alt-state lists by pointwise
// state-id equality.
func sameAltStates(x, y []*AltState) bool {
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i].State.UniqueNum != y[i].State.UniqueNum {
			return false
		}
	}
	return true
}
