// Package report writes the human-readable -v report:
// unit constraint echoes, reservation echoes, per-automaton state
// dumps, and numerical statistics.
package report

import (
	"fmt"
	"io"
	"strings"

	"pipehazard/internal/automaton"
	"pipehazard/internal/decl"
	"pipehazard/internal/emit"
	"pipehazard/internal/phaseclock"
)

// lineWidth bounds unit enumerations in the report.
const lineWidth = 70

var _ emit.Reporter = (*Writer)(nil)

// Writer renders the report. Timings is optional (-time) and appended
// to the statistics section when present.
type Writer struct {
	Timings []phaseclock.Entry
}

// Report renders the full report.
func (w *Writer) Report(out io.Writer, d *decl.Description, automata []*automaton.Automaton, m *emit.Model) error {
	p := &printer{out: out}

	p.unitSets(d)
	p.reservations(d)
	for _, a := range automata {
		p.automaton(d, a)
	}
	p.statistics(automata, m)
	p.timings(w.Timings)
	return p.err
}

type printer struct {
	out io.Writer
	err error
}

func (p *printer) printf(format string, args ...interface{}) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.out, format, args...)
}

// wrapped prints a labelled unit enumeration folded at the report line
// width.
func (p *printer) wrapped(label string, names []string) {
	if len(names) == 0 {
		return
	}
	line := label
	for i, n := range names {
		piece := n
		if i > 0 {
			piece = " " + n
		}
		if len(line)+len(piece) > lineWidth {
			p.printf("%s\n", line)
			line = strings.Repeat(" ", len(label)) + n
			continue
		}
		line += piece
	}
	p.printf("%s\n", line)
}

func patternNames(patterns [][]*decl.Unit) []string {
	var out []string
	for _, pat := range patterns {
		var units []string
		for _, u := range pat {
			units = append(units, u.Name)
		}
		out = append(out, "("+strings.Join(units, " ")+")")
	}
	return out
}

func unitNames(units []*decl.Unit) []string {
	var out []string
	for _, u := range units {
		out = append(out, u.Name)
	}
	return out
}

func (p *printer) unitSets(d *decl.Description) {
	for _, u := range d.Units {
		p.wrapped(fmt.Sprintf("unit %s exclusion_set: ", u.Name), unitNames(u.Exclusion))
		p.wrapped(fmt.Sprintf("unit %s presence_set: ", u.Name), patternNames(u.Presence))
		p.wrapped(fmt.Sprintf("unit %s final_presence_set: ", u.Name), patternNames(u.FinalPresence))
		p.wrapped(fmt.Sprintf("unit %s absence_set: ", u.Name), patternNames(u.Absence))
		p.wrapped(fmt.Sprintf("unit %s final_absence_set: ", u.Name), patternNames(u.FinalAbsence))
	}
	p.printf("\n")
}

func (p *printer) reservations(d *decl.Description) {
	for _, r := range d.Reservations {
		expr := r.Expr
		if r.Transformed != nil {
			expr = r.Transformed
		}
		p.printf("reservation %s: %s\n", r.Name, expr.String())
	}
	for _, insn := range d.Insns {
		expr := insn.Expr
		if insn.Transformed != nil {
			expr = insn.Transformed
		}
		p.printf("insn reservation %s (latency %d): %s\n", insn.Name, insn.Latency, expr.String())
	}
	p.printf("\n")
}

func (p *printer) automaton(d *decl.Description, a *automaton.Automaton) {
	name := a.Name
	if name == "" {
		name = fmt.Sprintf("#%d", a.Num)
	}
	p.printf("automaton %s\n", name)
	p.wrapped("  units: ", unitNames(a.Units))

	for _, s := range a.States {
		p.printf("  state %d: %s\n", s.OrderNum, reservsString(d, a, s))
		for _, arc := range s.Arcs {
			p.printf("    %s (class %d, %d alt) -> %d\n",
				arc.Insn.Name(), arc.Insn.EquivClassNum, arc.AltsCount, arc.To.OrderNum)
		}
	}
	p.printf("\n")
}

// reservsString renders a state's reservation bitset as a cycle-grouped
// expression: units reserved on the same cycle joined with +, cycles
// joined with comma, trailing empty cycles dropped.
func reservsString(d *decl.Description, a *automaton.Automaton, s *automaton.State) string {
	var cycles []string
	last := -1
	for c := 0; c < s.Reservs.MaxCycles; c++ {
		var units []string
		for _, u := range a.Units {
			if s.Reservs.Test(c, u.UnitNum) {
				units = append(units, u.Name)
			}
		}
		if len(units) == 0 {
			cycles = append(cycles, "nothing")
		} else {
			cycles = append(cycles, strings.Join(units, "+"))
			last = c
		}
	}
	if last < 0 {
		return "nothing"
	}
	return strings.Join(cycles[:last+1], ", ")
}

func (p *printer) statistics(automata []*automaton.Automaton, m *emit.Model) {
	p.printf("statistics\n")
	for i, a := range automata {
		am := m.Automata[i]
		p.printf("  automaton %d: NDFA %d states %d arcs; DFA %d states %d arcs; minimal %d states %d arcs\n",
			a.Num, a.NDFAStatesNum, a.NDFAArcsNum, a.DFAStatesNum, a.DFAArcsNum, a.MinimalStatesNum, a.MinimalArcsNum)
		p.printf("  automaton %d: %d equivalence classes, %d locked states\n",
			a.Num, a.InsnEquivClassesNum, a.LockedStatesNum)
		trans, alts := am.Tables.Transition, am.Tables.StateAlts
		p.printf("  automaton %d: transition table %d elements (comb %v), alternatives table %d elements (comb %v), min-delay %d bytes at %d bits\n",
			a.Num, trans.Size(), trans.Compressed(), alts.Size(), alts.Compressed(),
			am.Tables.MinIssueDelay.Size(), am.Tables.MinIssueDelay.BitsPerEntry)
	}
	p.printf("  max issue rate %d, advance cycle code %d, max insn queue index %d\n",
		m.MaxIssueRate, m.AdvanceCycleCode, m.MaxInsnQueueIndex)
}

func (p *printer) timings(entries []phaseclock.Entry) {
	if len(entries) == 0 {
		return
	}
	p.printf("\ntimings\n")
	for _, e := range entries {
		p.printf("  %-16s %s\n", e.Name, e.Duration)
	}
}
