package automaton

// classifyEquiv partitions instructions into equivalence classes: two
// instructions are equivalent when, from every state, they produce arcs
// to the same
// destination with the same alternatives count (or both have no arc).
// The source's cyclic class lists reduce to slices with a marked
// representative.
func (a *Automaton) classifyEquiv() {
	var initial []*AInsn
	for _, ai := range a.AInsns {
		if ai.FirstWithSameReservs {
			initial = append(initial, ai)
		}
	}
	classes := [][]*AInsn{initial}

	type arcKey struct {
		hasArc bool
		dest   int
		alts   int
	}
	keyFrom := func(s *State, ai *AInsn) arcKey {
		arc := s.FindArc(ai)
		if arc == nil {
			return arcKey{}
		}
		return arcKey{hasArc: true, dest: arc.To.OrderNum, alts: arc.AltsCount}
	}

	for _, s := range a.States {
		var refined [][]*AInsn
		for _, class := range classes {
			byKey := make(map[arcKey][]*AInsn)
			var order []arcKey
			for _, ai := range class {
				k := keyFrom(s, ai)
				if _, seen := byKey[k]; !seen {
					order = append(order, k)
				}
				byKey[k] = append(byKey[k], ai)
			}
			for _, k := range order {
				refined = append(refined, byKey[k])
			}
		}
		classes = refined
	}

	for num, class := range classes {
		for i, ai := range class {
			ai.EquivClassNum = num
			ai.FirstInEquivClass = i == 0
		}
	}
	a.InsnEquivClassesNum = len(classes)

	// Instructions collapsed by the alt-state builder share their
	// representative's class.
	for _, ai := range a.AInsns {
		for dup := ai.NextSameReservs; dup != nil; dup = dup.NextSameReservs {
			dup.EquivClassNum = ai.EquivClassNum
			dup.FirstInEquivClass = false
		}
	}
}
