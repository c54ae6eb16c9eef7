package automaton

import (
	"pipehazard/internal/bitset"
	"pipehazard/internal/decl"
)

// buildConstraints lowers the checker's linked per-unit exclusion,
// presence, and absence lists into the dense-unit-id form the bitset
// algebra's unified Intersects predicate consumes.
func buildConstraints(d *decl.Description) *bitset.Constraints {
	n := len(d.Units)
	c := bitset.NewConstraints(n)

	unitSet := func(units []*decl.Unit) bitset.Bits {
		set := bitset.NewBits(n)
		for _, u := range units {
			set.Set(u.UnitNum)
		}
		return set
	}

	for _, u := range d.Units {
		if len(u.Exclusion) > 0 {
			c.Exclusion[u.UnitNum] = unitSet(u.Exclusion)
		}
		for _, p := range u.Presence {
			c.Presence[u.UnitNum] = append(c.Presence[u.UnitNum], unitSet(p))
		}
		for _, p := range u.FinalPresence {
			c.FinalPresence[u.UnitNum] = append(c.FinalPresence[u.UnitNum], unitSet(p))
		}
		for _, p := range u.Absence {
			c.Absence[u.UnitNum] = append(c.Absence[u.UnitNum], unitSet(p))
		}
		for _, p := range u.FinalAbsence {
			c.FinalAbsence[u.UnitNum] = append(c.FinalAbsence[u.UnitNum], unitSet(p))
		}
	}
	return c
}

// constrainedUnits collects every unit that participates in any
// exclusion, presence, or absence relation, either as the constrained
// unit or as a pattern member. Such units can never be pruned from a
// state's reservation.
func constrainedUnits(d *decl.Description) map[*decl.Unit]bool {
	involved := make(map[*decl.Unit]bool)
	mark := func(patterns [][]*decl.Unit, owner *decl.Unit) {
		if len(patterns) == 0 {
			return
		}
		involved[owner] = true
		for _, p := range patterns {
			for _, u := range p {
				involved[u] = true
			}
		}
	}
	for _, u := range d.Units {
		if len(u.Exclusion) > 0 {
			involved[u] = true
			for _, e := range u.Exclusion {
				involved[e] = true
			}
		}
		mark(u.Presence, u)
		mark(u.FinalPresence, u)
		mark(u.Absence, u)
		mark(u.FinalAbsence, u)
	}
	return involved
}

// buildReservsMatter computes the state-pruning mask.
// A state bit at cycle c only ever shifts toward cycle 0, and an
// instruction reserves a unit no earlier than the unit's MinOccCycle, so
// a bit already below MinOccCycle can never conflict with any future
// issue and is prunable. Query units and units involved in any
// exclusion/presence/absence relation are kept at every cycle: queries
// and the unified intersection predicate read them regardless.
func buildReservsMatter(d *decl.Description, maxCycles int) bitset.Reservation {
	involved := constrainedUnits(d)
	matter := bitset.Empty(maxCycles, len(d.Units))
	for _, u := range d.Units {
		for c := 0; c < maxCycles; c++ {
			if c >= u.MinOccCycle || u.Query || involved[u] {
				_ = matter.Set(c, u.UnitNum)
			}
		}
	}
	return matter
}
