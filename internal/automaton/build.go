package automaton

import (
	"fmt"
	"io"

	"pipehazard/internal/bitset"
	"pipehazard/internal/decl"
	"pipehazard/internal/intern"
)

// Options selects the construction variants this package implements.
type Options struct {
	// NDFA treats oneof alternatives nondeterministically and runs
	// subset construction afterwards.
	NDFA bool

	// NoMinimize skips minimization entirely (-no-minimization).
	NoMinimize bool

	// AutomataCount is the heuristic partition count k; ignored when
	// any automaton is declared.
	AutomataCount int

	// Progress receives one tick per 100 constructed states; nil disables the ticker.
	Progress io.Writer
}

// Build runs partitioning, alt-state enumeration, state construction,
// minimization, and instruction classification over a checked,
// transformed description, and returns the finalized automata.
func Build(d *decl.Description, opts Options) []*Automaton {
	maxCycles := d.MaxInsnReservCycles
	if maxCycles < 1 {
		maxCycles = 1
	}
	constraints := buildConstraints(d)
	matter := buildReservsMatter(d, maxCycles)

	automata := Partition(d, opts.AutomataCount)
	nextUnique := 0
	for _, a := range automata {
		a.constraints = constraints
		a.reservsMatter = matter
		a.maxCycles = maxCycles
		a.numUnits = len(d.Units)
		a.pool = newPool(&nextUnique)
		a.states = intern.NewContentTable[*State]()

		a.buildAInsns(d)
		a.makeStates(opts.NDFA, opts.Progress)
		a.NDFAStatesNum, a.NDFAArcsNum = a.countReachable()
		if opts.NDFA {
			a.determinize()
		}
		a.DFAStatesNum, a.DFAArcsNum = a.countReachable()
		if !opts.NoMinimize {
			a.minimize()
		}
		a.enumerateStates()
		a.classifyEquiv()
		a.pool.release()
	}
	return automata
}

// makeStates is the worklist state construction: starting from the
// all-zero state, attempt every representative instruction's
// alternatives under the unified intersection predicate, and always add
// the advance-cycle arc over the shifted reservation.
func (a *Automaton) makeStates(ndfa bool, progress io.Writer) {
	start, _ := a.internState(a.pool.newState(a, bitset.Empty(a.maxCycles, a.numUnits)))
	a.StartState = start
	stack := []*State{start}
	start.onWork = true
	processed := 0

	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		processed++
		if progress != nil && processed%100 == 0 {
			fmt.Fprint(progress, ".")
		}

		for _, ai := range a.AInsns {
			if ai.AdvanceCycle() || !ai.FirstWithSameReservs {
				continue
			}
			for _, alt := range ai.AltStates {
				if a.constraints.Intersects(s.Reservs, alt.State.Reservs, false) {
					continue
				}
				candidate := bitset.Mask(bitset.ReservationOr(s.Reservs, alt.State.Reservs), a.reservsMatter)
				if a.constraints.FinalViolation(candidate) {
					continue
				}
				next := a.pushState(candidate, &stack)
				a.addArc(s, next, ai)
				if !ndfa {
					// Deterministic mode stops after the first
					// succeeding alternative.
					break
				}
			}
		}

		shifted := bitset.Mask(bitset.Shift(s.Reservs), a.reservsMatter)
		next := a.pushState(shifted, &stack)
		a.addArc(s, next, a.AdvanceCycle)
	}
}

// pushState interns reservs as a state and schedules it for processing
// if it has never been on the work stack. Interning alone is not enough
// to decide scheduling: alt-state footprints were interned before
// graph construction began, yet still need their outgoing arcs built
// when first reached.
func (a *Automaton) pushState(reservs bitset.Reservation, stack *[]*State) *State {
	s, _ := a.internState(a.pool.newState(a, reservs))
	if !s.onWork {
		s.onWork = true
		*stack = append(*stack, s)
	}
	return s
}

// determinize is the subset construction: any state with more than one
// outgoing arc on the same instruction gets
// those arcs replaced by a single arc to a composed state whose
// component list is the sorted-dedup union of the destinations, and
// whose outgoing arcs are the union of the destinations' arcs.
func (a *Automaton) determinize() {
	queue := a.reachableStates()
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]

		for _, ai := range a.AInsns {
			var group []*Arc
			for _, arc := range s.Arcs {
				if arc.Insn == ai {
					group = append(group, arc)
				}
			}
			if len(group) < 2 {
				continue
			}

			var components []*State
			alts := 0
			for _, arc := range group {
				components = append(components, componentsOf(arc.To)...)
				alts += arc.AltsCount
			}
			composed, isNew := a.composeState(components)
			if isNew {
				queue = append(queue, composed)
			}

			kept := s.Arcs[:0]
			for _, arc := range s.Arcs {
				if arc.Insn == ai {
					a.pool.releaseArc(arc)
					continue
				}
				kept = append(kept, arc)
			}
			s.Arcs = kept
			arc := a.pool.newArc(s, composed, ai)
			arc.AltsCount = alts
			s.Arcs = append(s.Arcs, arc)
		}
	}
}

func componentsOf(s *State) []*State {
	if s.Composed() {
		return s.ComponentStates
	}
	return []*State{s}
}

// composeState interns the composed state for the given (possibly
// duplicated, unsorted) component set. A freshly created composed state
// carries the union of its components' reservations and outgoing arcs.
func (a *Automaton) composeState(components []*State) (*State, bool) {
	components = sortDedupeStates(components)
	reservs := bitset.Empty(a.maxCycles, a.numUnits)
	for _, c := range components {
		reservs = bitset.ReservationOr(reservs, c.Reservs)
	}
	candidate := a.pool.newState(a, reservs)
	candidate.ComponentStates = components
	composed, isNew := a.internState(candidate)
	if !isNew {
		return composed, false
	}
	for _, c := range components {
		for _, arc := range c.Arcs {
			merged := a.addArc(composed, arc.To, arc.Insn)
			// addArc counts one alternative; carry the rest over.
			merged.AltsCount += arc.AltsCount - 1
		}
	}
	return composed, true
}

// reachableStates returns every state reachable from the start state, in
// breadth-first discovery order.
func (a *Automaton) reachableStates() []*State {
	seen := map[*State]bool{a.StartState: true}
	order := []*State{a.StartState}
	for i := 0; i < len(order); i++ {
		for _, arc := range order[i].Arcs {
			if !seen[arc.To] {
				seen[arc.To] = true
				order = append(order, arc.To)
			}
		}
	}
	return order
}

func (a *Automaton) countReachable() (states, arcs int) {
	reachable := a.reachableStates()
	for _, s := range reachable {
		arcs += len(s.Arcs)
	}
	return len(reachable), arcs
}

// enumerateStates assigns dense OrderNums in breadth-first order from
// the start state and records the final statistics.
func (a *Automaton) enumerateStates() {
	a.States = a.reachableStates()
	a.MinimalArcsNum = 0
	a.LockedStatesNum = 0
	for i, s := range a.States {
		s.OrderNum = i
		a.MinimalArcsNum += len(s.Arcs)
		if locked(s) {
			a.LockedStatesNum++
		}
	}
	a.MinimalStatesNum = len(a.States)
}

// locked reports whether the state's only outgoing arc is advance-cycle.
func locked(s *State) bool {
	return len(s.Arcs) == 1 && s.Arcs[0].Insn.AdvanceCycle()
}
