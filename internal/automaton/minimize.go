package automaton

import (
	"fmt"
	"strings"
)

// minimize runs Hopcroft-style partition refinement over the
// reachable states, then merges each stable class into one
// representative. Pass t writes colors[t%2] while reading
// colors[(t-1)%2].
func (a *Automaton) minimize() {
	reachable := a.reachableStates()
	if len(reachable) < 2 {
		return
	}

	for _, s := range reachable {
		s.colors[0] = 0
	}
	classCount := 1

	for pass := 1; ; pass++ {
		read := (pass - 1) % 2
		write := pass % 2

		colorOf := make(map[string]int)
		next := 0
		for _, s := range reachable {
			key := a.refinementSignature(s, read)
			color, ok := colorOf[key]
			if !ok {
				color = next
				next++
				colorOf[key] = color
			}
			s.colors[write] = color
		}
		if next == classCount {
			// No class split; the partition written this pass is final.
			a.mergeClasses(reachable, write)
			return
		}
		classCount = next
	}
}

// refinementSignature captures everything that may distinguish two
// states within a class: the current class itself, the destination
// colors and alternatives-counts grouped by instruction, and the
// first-cycle presence of each query unit — queries like
// cpu_unit_reservation_p must remain answerable after minimization.
func (a *Automaton) refinementSignature(s *State, read int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "c%d", s.colors[read])
	for i, ai := range a.AInsns {
		arc := s.FindArc(ai)
		if arc == nil {
			continue
		}
		fmt.Fprintf(&b, "|%d:%d,%d", i, arc.To.colors[read], arc.AltsCount)
	}
	b.WriteByte('|')
	for _, u := range a.Units {
		if !u.Query {
			continue
		}
		if s.Reservs.Test(0, u.UnitNum) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// mergeClasses collapses every class to its first-discovered member.
// The representative inherits the sorted-dedup union of its members'
// component lists, arcs are re-targeted through the equivalence-class
// pointer, and the start state migrates too.
func (a *Automaton) mergeClasses(reachable []*State, final int) {
	repOf := make(map[int]*State)
	members := make(map[int][]*State)
	for _, s := range reachable {
		color := s.colors[final]
		if _, ok := repOf[color]; !ok {
			repOf[color] = s
		}
		members[color] = append(members[color], s)
		s.EquivTo = repOf[color]
	}

	for color, rep := range repOf {
		class := members[color]
		if len(class) < 2 {
			continue
		}
		var components []*State
		for _, m := range class {
			components = append(components, componentsOf(m)...)
		}
		rep.ComponentStates = sortDedupeStates(components)
	}

	for _, rep := range repOf {
		for _, arc := range rep.Arcs {
			arc.To = arc.To.EquivTo
			arc.From = rep
		}
	}
	for _, s := range reachable {
		if s.EquivTo != s {
			for _, arc := range s.Arcs {
				a.pool.releaseArc(arc)
			}
			s.Arcs = nil
		}
	}

	a.StartState = a.StartState.EquivTo
}
