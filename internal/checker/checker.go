// Package checker implements the declaration checker: it links names
// to declarations, detects reservation cycles, computes derived occupancy
// data, and either returns a fully-linked decl.Description or a set of
// diagnostics.
package checker

import (
	"fmt"
	"strings"

	"pipehazard/internal/decl"
	"pipehazard/internal/errors"
	"pipehazard/internal/intern"
	"pipehazard/internal/regexp"
)

// Options is the subset of the generator's configuration surface the
// checker itself consults.
type Options struct {
	AllowWarnings bool // -w: downgrade the fixed warning-capable set
}

// named is one entry of the namespace units and reservations share.
// Exactly one of the fields is set.
type named struct {
	unit   *decl.Unit
	reserv *decl.Reservation
}

type checker struct {
	opts  Options
	diags errors.Diagnostics

	// The three name-keyed intern tables.
	automata *intern.Table[*decl.Automaton]
	insns    *intern.Table[*decl.InsnReservation]
	names    *intern.Table[named]
}

// Check runs the checker end to end. On success it returns a linked
// Description and a Diagnostics with no Error-level entries (it may
// still carry warnings).
// On failure the Description is nil and the caller must not advance to
// the transformer: after a phase completes with any error, no further
// phase runs.
func Check(raws []decl.Raw, opts Options) (*decl.Description, errors.Diagnostics) {
	c := &checker{
		opts:     opts,
		automata: intern.NewTable[*decl.Automaton](),
		insns:    intern.NewTable[*decl.InsnReservation](),
		names:    intern.NewTable[named](),
	}
	d := c.run(raws)
	if c.diags.HasErrors() {
		return nil, c.diags
	}
	return d, c.diags
}

func (c *checker) err(code, msg, name string) {
	c.diags.Add(errors.NewError(code, msg).At(name).Build())
}

func (c *checker) warnOrErr(code, msg, name string) {
	c.diags.Add(errors.NewError(code, msg).At(name).Downgrade(c.opts.AllowWarnings).Build())
}

func (c *checker) findUnit(name string) (*decl.Unit, bool) {
	if entry, ok := c.names.Find(name); ok && entry.unit != nil {
		return entry.unit, true
	}
	return nil, false
}

func (c *checker) findReserv(name string) (*decl.Reservation, bool) {
	if entry, ok := c.names.Find(name); ok && entry.reserv != nil {
		return entry.reserv, true
	}
	return nil, false
}

// validateName rejects the two unconditional name-shape errors: the
// name "nothing" as a declaration name, and any name containing a
// double-quote.
func (c *checker) validateName(kind, name string) bool {
	ok := true
	if name == "nothing" {
		c.err(errors.ErrReservedName, `"nothing" cannot be used as a `+kind+" name", name)
		ok = false
	}
	if strings.Contains(name, `"`) {
		c.err(errors.ErrQuotedName, kind+" name must not contain a quote character", name)
		ok = false
	}
	return ok
}

func (c *checker) run(raws []decl.Raw) *decl.Description {
	var rawAutomata []*decl.RawAutomaton
	var rawUnits []*decl.RawUnit
	var rawReservations []*decl.RawReservation
	var rawInsns []*decl.RawInsnReservation
	var rawBypasses []*decl.RawBypass
	var rawExclusions []*decl.RawExclusion
	var rawPatterns []*decl.RawPattern

	for _, r := range raws {
		switch v := r.(type) {
		case *decl.RawAutomaton:
			rawAutomata = append(rawAutomata, v)
		case *decl.RawUnit:
			rawUnits = append(rawUnits, v)
		case *decl.RawReservation:
			rawReservations = append(rawReservations, v)
		case *decl.RawInsnReservation:
			rawInsns = append(rawInsns, v)
		case *decl.RawBypass:
			rawBypasses = append(rawBypasses, v)
		case *decl.RawExclusion:
			rawExclusions = append(rawExclusions, v)
		case *decl.RawPattern:
			rawPatterns = append(rawPatterns, v)
		}
	}

	automataOrder := c.linkAutomata(rawAutomata)
	units, defaultAutomaton := c.linkUnits(rawUnits)
	reservations := c.linkReservations(rawReservations)
	insns := c.linkInsns(rawInsns)
	bypasses := c.linkBypasses(rawBypasses)

	c.symmetrizeExclusions(rawExclusions)
	c.resolvePatterns(rawPatterns)

	referencedReservations := c.rewriteUnitsToReservs(reservations, insns)
	c.detectCycles(reservations)
	if c.diags.HasErrors() {
		return nil
	}

	automata := automataOrder
	if defaultAutomaton != nil {
		automata = append([]*decl.Automaton{defaultAutomaton}, automata...)
	}
	for i, a := range automata {
		a.Num = i
	}

	d := &decl.Description{
		Automata:     automata,
		Units:        units,
		Reservations: reservations,
		Insns:        insns,
		Bypasses:     bypasses,
	}
	for _, u := range units {
		if u.Query {
			d.QueryUnits = append(d.QueryUnits, u)
		}
	}

	reservedUnits := c.computeOccupancy(d, reservations)
	c.reportUnused(automata, units, reservations, reservedUnits, referencedReservations)

	return d
}

func (c *checker) linkAutomata(raws []*decl.RawAutomaton) []*decl.Automaton {
	var order []*decl.Automaton
	for _, ra := range raws {
		if !c.validateName("automaton", ra.Name) {
			continue
		}
		a, inserted := c.automata.InsertIfAbsent(ra.Name, func() *decl.Automaton {
			return &decl.Automaton{Name: ra.Name}
		})
		if !inserted {
			c.warnOrErr(errors.ErrDuplicateAutomaton, fmt.Sprintf("automaton %q already declared", ra.Name), ra.Name)
			continue
		}
		order = append(order, a)
	}
	return order
}

func (c *checker) linkUnits(raws []*decl.RawUnit) ([]*decl.Unit, *decl.Automaton) {
	var units []*decl.Unit
	var defaultAutomaton *decl.Automaton
	queryNum := 0

	for _, ru := range raws {
		if !c.validateName("unit", ru.Name) {
			continue
		}
		var am *decl.Automaton
		if ru.AutomatonName == "" {
			if defaultAutomaton == nil {
				defaultAutomaton = &decl.Automaton{Name: ""}
			}
			am = defaultAutomaton
		} else if found, ok := c.automata.Find(ru.AutomatonName); ok {
			am = found
		} else {
			c.err(errors.ErrUndeclaredName, fmt.Sprintf("unit %q references undeclared automaton %q", ru.Name, ru.AutomatonName), ru.AutomatonName)
			continue
		}
		u := &decl.Unit{Name: ru.Name, Automaton: am, Query: ru.Query, UnitNum: len(units), QueryNum: -1}
		entry, inserted := c.names.InsertIfAbsent(ru.Name, func() named { return named{unit: u} })
		if !inserted {
			kind := "unit"
			if entry.reserv != nil {
				kind = "reservation"
			}
			c.err(errors.ErrDuplicateDeclaration, fmt.Sprintf("unit %q collides with a %s of the same name", ru.Name, kind), ru.Name)
			continue
		}
		if ru.Query {
			u.QueryNum = queryNum
			queryNum++
		}
		units = append(units, u)
		am.Units = append(am.Units, u)
	}
	return units, defaultAutomaton
}

func (c *checker) linkReservations(raws []*decl.RawReservation) []*decl.Reservation {
	var out []*decl.Reservation
	for _, rr := range raws {
		if !c.validateName("reservation", rr.Name) {
			continue
		}
		res := &decl.Reservation{Name: rr.Name, Expr: rr.Expr}
		entry, inserted := c.names.InsertIfAbsent(rr.Name, func() named { return named{reserv: res} })
		if !inserted {
			if entry.unit != nil {
				c.err(errors.ErrWrongKind, fmt.Sprintf("%q is declared as both a unit and a reservation", rr.Name), rr.Name)
			} else {
				c.err(errors.ErrDuplicateDeclaration, fmt.Sprintf("reservation %q already declared", rr.Name), rr.Name)
			}
			continue
		}
		out = append(out, res)
	}
	return out
}

func (c *checker) linkInsns(raws []*decl.RawInsnReservation) []*decl.InsnReservation {
	var out []*decl.InsnReservation
	for _, ri := range raws {
		if !c.validateName("instruction", ri.Name) {
			continue
		}
		if ri.Latency < 0 {
			c.err(errors.ErrNegativeLatency, fmt.Sprintf("instruction %q has negative latency %d", ri.Name, ri.Latency), ri.Name)
		}
		insn, inserted := c.insns.InsertIfAbsent(ri.Name, func() *decl.InsnReservation {
			return &decl.InsnReservation{
				Name:              ri.Name,
				Num:               len(out),
				Condition:         ri.Condition,
				Latency:           ri.Latency,
				Expr:              ri.Expr,
				ImportantAutomata: map[int]bool{},
			}
		})
		if !inserted {
			c.err(errors.ErrDuplicateDeclaration, fmt.Sprintf("instruction %q already declared", ri.Name), ri.Name)
			continue
		}
		out = append(out, insn)
	}
	return out
}

func (c *checker) linkBypasses(raws []*decl.RawBypass) []*decl.Bypass {
	type key struct{ out, in string }
	seenLatencies := make(map[key][]int)
	var out []*decl.Bypass

	for _, rb := range raws {
		outInsn, ok1 := c.insns.Find(rb.OutName)
		if !ok1 {
			c.err(errors.ErrUndeclaredName, fmt.Sprintf("bypass references undeclared instruction %q", rb.OutName), rb.OutName)
			continue
		}
		inInsn, ok2 := c.insns.Find(rb.InName)
		if !ok2 {
			c.err(errors.ErrUndeclaredName, fmt.Sprintf("bypass references undeclared instruction %q", rb.InName), rb.InName)
			continue
		}
		if rb.Latency < 0 {
			c.err(errors.ErrNegativeLatency, fmt.Sprintf("bypass %s -> %s has negative latency %d", rb.OutName, rb.InName, rb.Latency), rb.OutName)
		}
		k := key{rb.OutName, rb.InName}
		for _, prev := range seenLatencies[k] {
			if prev == rb.Latency {
				c.warnOrErr(errors.ErrDuplicateBypassSameLatency,
					fmt.Sprintf("duplicate bypass %s -> %s at latency %d", rb.OutName, rb.InName, rb.Latency), rb.OutName)
			} else {
				c.err(errors.ErrDuplicateBypass,
					fmt.Sprintf("bypass %s -> %s declared at conflicting latencies %d and %d", rb.OutName, rb.InName, prev, rb.Latency), rb.OutName)
			}
		}
		seenLatencies[k] = append(seenLatencies[k], rb.Latency)

		b := &decl.Bypass{OutName: rb.OutName, InName: rb.InName, Latency: rb.Latency, Guard: rb.Guard, Out: outInsn, In: inInsn}
		outInsn.Bypasses = append(outInsn.Bypasses, b)
		out = append(out, b)
	}
	return out
}

// symmetrizeExclusions adds, for every declared pair (A, B), B to
// A.Exclusion and A to B.Exclusion.
func (c *checker) symmetrizeExclusions(raws []*decl.RawExclusion) {
	for _, rx := range raws {
		for _, ln := range rx.Left {
			lu, ok := c.findUnit(ln)
			if !ok {
				c.err(errors.ErrUndeclaredName, fmt.Sprintf("exclusion_set references undeclared unit %q", ln), ln)
				continue
			}
			for _, rn := range rx.Right {
				ru, ok := c.findUnit(rn)
				if !ok {
					c.err(errors.ErrUndeclaredName, fmt.Sprintf("exclusion_set references undeclared unit %q", rn), rn)
					continue
				}
				if lu == ru {
					c.err(errors.ErrSelfExclusion, fmt.Sprintf("unit %q cannot exclude itself", ln), ln)
					continue
				}
				if lu.Automaton != ru.Automaton {
					c.err(errors.ErrCrossAutomatonExclusion,
						fmt.Sprintf("exclusion between %q and %q spans two automata", ln, rn), ln)
					continue
				}
				if !lu.ExcludesUnit(ru) {
					lu.Exclusion = append(lu.Exclusion, ru)
				}
				if !ru.ExcludesUnit(lu) {
					ru.Exclusion = append(ru.Exclusion, lu)
				}
			}
		}
	}
}

// resolvePatterns links presence/absence name lists to unit pointers:
// patterns append to the Final lists when Kind is a Final* kind, to the
// plain lists otherwise.
func (c *checker) resolvePatterns(raws []*decl.RawPattern) {
	for _, rp := range raws {
		isAbsence := rp.Kind == decl.Absence || rp.Kind == decl.FinalAbsence
		kindName := patternKindName(rp.Kind)

		for _, targetName := range rp.Targets {
			target, ok := c.findUnit(targetName)
			if !ok {
				c.err(errors.ErrUndeclaredName, fmt.Sprintf("%s references undeclared unit %q", kindName, targetName), targetName)
				continue
			}
			for _, patternNames := range rp.Patterns {
				var patternUnits []*decl.Unit
				selfRef := false
				crossAutomaton := false
				ok := true
				for _, pn := range patternNames {
					if pn == targetName {
						selfRef = true
					}
					pu, found := c.findUnit(pn)
					if !found {
						c.err(errors.ErrUndeclaredName, fmt.Sprintf("%s pattern references undeclared unit %q", kindName, pn), pn)
						ok = false
						continue
					}
					if pu.Automaton != target.Automaton {
						crossAutomaton = true
					}
					patternUnits = append(patternUnits, pu)
				}
				if !ok {
					continue
				}
				if crossAutomaton {
					c.err(errors.ErrCrossAutomatonPresenceAbsence,
						fmt.Sprintf("%s pattern for %q spans two automata", kindName, targetName), targetName)
					continue
				}
				if selfRef && isAbsence {
					c.err(errors.ErrSelfAbsence, fmt.Sprintf("unit %q cannot require its own absence", targetName), targetName)
					continue
				}
				if len(patternUnits) == 1 && !isAbsence && target.ExcludesUnit(patternUnits[0]) {
					c.warnOrErr(errors.ErrExcludesAndRequiresPresence,
						fmt.Sprintf("unit %q excludes %q and also requires its presence", targetName, patternUnits[0].Name), targetName)
				}
				c.appendPattern(target, rp.Kind, patternUnits)
			}
		}
	}
}

func patternKindName(k decl.PatternKind) string {
	switch k {
	case decl.Presence:
		return "presence_set"
	case decl.FinalPresence:
		return "final_presence_set"
	case decl.Absence:
		return "absence_set"
	default:
		return "final_absence_set"
	}
}

func (c *checker) appendPattern(target *decl.Unit, kind decl.PatternKind, pattern []*decl.Unit) {
	conflict := func(existing [][]*decl.Unit) bool {
		for _, p := range existing {
			if sameUnitSet(p, pattern) {
				return true
			}
		}
		return false
	}
	switch kind {
	case decl.Presence:
		if conflict(target.Absence) {
			c.warnOrErr(errors.ErrRequiresAbsenceAndPresence, fmt.Sprintf("unit %q requires both absence and presence of the same pattern", target.Name), target.Name)
		}
		target.Presence = append(target.Presence, pattern)
	case decl.FinalPresence:
		if conflict(target.FinalAbsence) {
			c.warnOrErr(errors.ErrRequiresAbsenceAndPresence, fmt.Sprintf("unit %q requires both final absence and final presence of the same pattern", target.Name), target.Name)
		}
		target.FinalPresence = append(target.FinalPresence, pattern)
	case decl.Absence:
		if conflict(target.Presence) {
			c.warnOrErr(errors.ErrRequiresAbsenceAndPresence, fmt.Sprintf("unit %q requires both absence and presence of the same pattern", target.Name), target.Name)
		}
		target.Absence = append(target.Absence, pattern)
	case decl.FinalAbsence:
		if conflict(target.FinalPresence) {
			c.warnOrErr(errors.ErrRequiresAbsenceAndPresence, fmt.Sprintf("unit %q requires both final absence and final presence of the same pattern", target.Name), target.Name)
		}
		target.FinalAbsence = append(target.FinalAbsence, pattern)
	}
}

func sameUnitSet(a, b []*decl.Unit) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[*decl.Unit]bool, len(a))
	for _, u := range a {
		seen[u] = true
	}
	for _, u := range b {
		if !seen[u] {
			return false
		}
	}
	return true
}

// rewriteUnitsToReservs rewrites Unit(name) leaves whose name resolves
// to a reservation into Reserv(name); any leaf that
// resolves to neither a unit nor a reservation is an undeclared-name
// error. Returns the set of reservation names actually referenced, used
// by the unused-reservation warning.
func (c *checker) rewriteUnitsToReservs(reservations []*decl.Reservation, insns []*decl.InsnReservation) map[string]bool {
	referenced := make(map[string]bool)
	rewrite := func(e regexp.Expr) regexp.Expr {
		var walk func(regexp.Expr) regexp.Expr
		walk = func(e regexp.Expr) regexp.Expr {
			switch v := e.(type) {
			case *regexp.Unit:
				if _, isUnit := c.findUnit(v.Name); isUnit {
					return v
				}
				if _, isReserv := c.findReserv(v.Name); isReserv {
					referenced[v.Name] = true
					return &regexp.Reserv{Name: v.Name}
				}
				c.err(errors.ErrUndeclaredName, fmt.Sprintf("reservation expression references undeclared name %q", v.Name), v.Name)
				return v
			case *regexp.Reserv:
				referenced[v.Name] = true
				return v
			case *regexp.Sequence:
				return &regexp.Sequence{Items: walkAll(v.Items, walk)}
			case *regexp.Repeat:
				return &regexp.Repeat{Item: walk(v.Item), N: v.N}
			case *regexp.Allof:
				return &regexp.Allof{Items: walkAll(v.Items, walk)}
			case *regexp.Oneof:
				return &regexp.Oneof{Items: walkAll(v.Items, walk)}
			default:
				return e
			}
		}
		return walk(e)
	}

	for _, r := range reservations {
		r.Expr = rewrite(r.Expr)
	}
	for _, insn := range insns {
		insn.Expr = rewrite(insn.Expr)
	}
	return referenced
}

func walkAll(items []regexp.Expr, f func(regexp.Expr) regexp.Expr) []regexp.Expr {
	out := make([]regexp.Expr, len(items))
	for i, it := range items {
		out[i] = f(it)
	}
	return out
}

// detectCycles rejects self-referential reservation definitions with a
// standard white/gray/black DFS coloring over Reserv references.
func (c *checker) detectCycles(reservations []*decl.Reservation) {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	colors := make(map[string]int)
	reported := make(map[string]bool)

	var visit func(name string)
	visit = func(name string) {
		switch colors[name] {
		case gray:
			if !reported[name] {
				reported[name] = true
				c.err(errors.ErrReservationCycle, fmt.Sprintf("reservation %q is defined in terms of itself", name), name)
			}
			return
		case black:
			return
		}
		colors[name] = gray
		if res, ok := c.findReserv(name); ok {
			regexp.Walk(res.Expr, func(node regexp.Expr) {
				if r, ok := node.(*regexp.Reserv); ok {
					visit(r.Name)
				}
			})
		}
		colors[name] = black
	}

	for _, r := range reservations {
		if colors[r.Name] == white {
			visit(r.Name)
		}
	}
}

// computeOccupancy derives MinOccCycle/MaxOccCycle per unit, and
// Description.MaxInsnReservCycles. It walks each
// instruction's canonical form (computed locally via regexp.Transform;
// the "official" Transformed field is populated later by the transform
// phase)
// purely to read off which (unit, cycle) pairs are reachable. Returns the
// set of units actually reserved anywhere, used by the unused-unit
// warning.
func (c *checker) computeOccupancy(d *decl.Description, reservations []*decl.Reservation) map[*decl.Unit]bool {
	reservationExprs := make(map[string]regexp.Expr, len(reservations))
	for _, r := range reservations {
		reservationExprs[r.Name] = r.Expr
	}

	minOcc := make(map[*decl.Unit]int)
	maxOcc := make(map[*decl.Unit]int)
	reserved := make(map[*decl.Unit]bool)
	for _, u := range d.Units {
		minOcc[u] = -1
		maxOcc[u] = -1
	}

	for _, insn := range d.Insns {
		canonical := regexp.Transform(insn.Expr, reservationExprs)
		oneof, ok := canonical.(*regexp.Oneof)
		if !ok {
			continue
		}
		for _, alt := range oneof.Items {
			seq, ok := alt.(*regexp.Sequence)
			if !ok {
				continue
			}
			for cyc, node := range seq.Items {
				allof, ok := node.(*regexp.Allof)
				if !ok {
					continue
				}
				for _, leaf := range allof.Items {
					unitLeaf, ok := leaf.(*regexp.Unit)
					if !ok {
						continue
					}
					u, ok := c.findUnit(unitLeaf.Name)
					if !ok {
						continue
					}
					reserved[u] = true
					if minOcc[u] == -1 || cyc < minOcc[u] {
						minOcc[u] = cyc
					}
					if cyc > maxOcc[u] {
						maxOcc[u] = cyc
					}
					if cyc+1 > d.MaxInsnReservCycles {
						d.MaxInsnReservCycles = cyc + 1
					}
					if u.Automaton != nil {
						insn.ImportantAutomata[u.Automaton.Num] = true
					}
				}
			}
		}
	}

	for _, u := range d.Units {
		if minOcc[u] == -1 {
			minOcc[u] = 0
		}
		if maxOcc[u] == -1 {
			maxOcc[u] = 0
		}
		u.MinOccCycle = minOcc[u]
		u.MaxOccCycle = maxOcc[u]
	}
	return reserved
}

// reportUnused emits the three warning-capable "declared but never used"
// diagnostics.
func (c *checker) reportUnused(automata []*decl.Automaton, units []*decl.Unit, reservations []*decl.Reservation, reservedUnits map[*decl.Unit]bool, referencedReservations map[string]bool) {
	for _, a := range automata {
		if a.Name != "" && len(a.Units) == 0 {
			c.warnOrErr(errors.WarnUnusedAutomaton, fmt.Sprintf("automaton %q has no units", a.Name), a.Name)
		}
	}
	for _, u := range units {
		if !reservedUnits[u] {
			c.warnOrErr(errors.WarnUnusedUnit, fmt.Sprintf("unit %q is never reserved by any instruction", u.Name), u.Name)
		}
	}
	for _, r := range reservations {
		if !referencedReservations[r.Name] {
			c.warnOrErr(errors.WarnUnusedReservation, fmt.Sprintf("reservation %q is never referenced", r.Name), r.Name)
		}
	}
}
