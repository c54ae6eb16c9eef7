package bitset

// Constraints carries the per-unit exclusion, presence, and absence
// pattern lists needed by the unified Intersects predicate.
// It is indexed purely by dense unit id, so this package stays
// free of any dependency on the declaration model (the checker builds a
// Constraints from its linked Unit declarations).
type Constraints struct {
	NumUnits int

	// Exclusion[u] is the set of unit ids that may not co-reserve with u
	// in the same cycle (symmetrized by the checker).
	Exclusion []Bits

	// Presence[u] / FinalPresence[u] are lists of patterns; each pattern
	// is a set of unit ids that must be co-reserved in the same cycle as
	// u for a presence constraint to be satisfied.
	Presence      [][]Bits
	FinalPresence [][]Bits

	// Absence[u] / FinalAbsence[u] are patterns that must NOT be fully
	// co-reserved alongside u in the same cycle.
	Absence      [][]Bits
	FinalAbsence [][]Bits
}

// NewConstraints allocates empty per-unit lists for n units.
func NewConstraints(n int) *Constraints {
	return &Constraints{
		NumUnits:      n,
		Exclusion:     make([]Bits, n),
		Presence:      make([][]Bits, n),
		FinalPresence: make([][]Bits, n),
		Absence:       make([][]Bits, n),
		FinalAbsence:  make([][]Bits, n),
	}
}

// unitsReservedAt returns the set of unit ids reserved on cycle c of r.
func unitsReservedAt(r Reservation, c int) Bits {
	units := NewBits(r.Units)
	for u := 0; u < r.Units; u++ {
		if r.Test(c, u) {
			units.Set(u)
		}
	}
	return units
}

// violatesExclusion checks that the union of the exclusion sets over
// units reserved in operand B (computed per cycle) does not overlap
// cycle-identical reservations in A.
func (c *Constraints) violatesExclusion(a, b Reservation) bool {
	cycles := a.MaxCycles
	for cyc := 0; cyc < cycles; cyc++ {
		bUnits := unitsReservedAt(b, cyc)
		excluded := NewBits(c.NumUnits)
		for u := 0; u < c.NumUnits; u++ {
			if bUnits.Test(u) && c.Exclusion[u].n == c.NumUnits {
				excluded = Or(excluded, c.Exclusion[u])
			}
		}
		aUnits := unitsReservedAt(a, cyc)
		if Intersects(excluded, aUnits) {
			return true
		}
	}
	return false
}

// violatesPresenceAbsence runs the presence/absence
// checks against a merged reservation set, using the final or non-final
// pattern lists depending on final.
func (c *Constraints) violatesPresenceAbsence(merged Reservation, final bool) bool {
	presence, absence := c.Presence, c.Absence
	if final {
		presence, absence = c.FinalPresence, c.FinalAbsence
	}
	for cyc := 0; cyc < merged.MaxCycles; cyc++ {
		reserved := unitsReservedAt(merged, cyc)
		for u := 0; u < c.NumUnits; u++ {
			if !reserved.Test(u) {
				continue
			}
			for _, pattern := range presence[u] {
				if pattern.n == reserved.n && !Subset(pattern, reserved) {
					return true
				}
			}
			for _, pattern := range absence[u] {
				if pattern.n == reserved.n && Subset(pattern, reserved) {
					return true
				}
			}
		}
	}
	return false
}

// FinalViolation checks a settled reservation set against the
// final-presence/final-absence lists alone; the builder invokes it only
// when a candidate state's reservation set is complete.
func (c *Constraints) FinalViolation(settled Reservation) bool {
	return c.violatesPresenceAbsence(settled, true)
}

// Intersects is the unified gatekeeper predicate of the state
// construction: true iff some cycle-unit bit is set in both a and b, or
// the union of the two would violate any exclusion/presence/absence
// pattern. final selects the final-presence/final-absence lists, which
// apply only when a state's reservation set is being settled.
func (c *Constraints) Intersects(a, b Reservation, final bool) bool {
	if RawIntersects(a, b) {
		return true
	}
	if c.violatesExclusion(a, b) {
		return true
	}
	merged := ReservationOr(a, b)
	return c.violatesPresenceAbsence(merged, final)
}
