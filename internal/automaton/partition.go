package automaton

import (
	"math"
	"sort"

	"pipehazard/internal/decl"
)

// Partition assigns every unit to one of the automata. In declared
// mode the checker already attached units to their
// named automata (units without a name sit in the unnamed automaton 0);
// the declaration is honored as-is. Heuristic mode kicks in only when
// the description declares no automaton at all and the caller supplied
// a count k > 1: units are packed into k buckets by descending
// MaxOccCycle so the estimated DFA size of any bucket stays under a
// shared bound. A count of 0 or 1 keeps the declared (or single default)
// automaton assignment.
func Partition(d *decl.Description, k int) []*Automaton {
	declared := false
	for _, a := range d.Automata {
		if a.Name != "" {
			declared = true
			break
		}
	}

	if !declared && k > 1 && len(d.Units) > 0 {
		return heuristicPartition(d, k)
	}

	out := make([]*Automaton, len(d.Automata))
	for i, a := range d.Automata {
		out[i] = &Automaton{Num: a.Num, Name: a.Name, Units: a.Units}
	}
	return out
}

// heuristicPartition estimates each unit's DFA-size contribution as
// (MaxOccCycle - MinOccCycle + 1) and greedily packs units, largest
// first, so the product of contributions in any bucket stays under
// B = the k-th root of an overflow-safe maximum. The products are
// tracked in log space.
func heuristicPartition(d *decl.Description, k int) []*Automaton {
	units := make([]*decl.Unit, len(d.Units))
	copy(units, d.Units)
	sort.SliceStable(units, func(i, j int) bool {
		return units[i].MaxOccCycle > units[j].MaxOccCycle
	})

	// Overflow-safe maximum for the whole machine; each bucket gets the
	// k-th root, i.e. an equal share of the log budget.
	logBound := math.Log(float64(math.MaxInt32)) / float64(k)

	automata := make([]*Automaton, k)
	for i := range automata {
		automata[i] = &Automaton{Num: i}
	}
	logWeight := make([]float64, k)

	for _, u := range units {
		contribution := math.Log(float64(u.MaxOccCycle - u.MinOccCycle + 1))
		best := -1
		for i := range automata {
			if logWeight[i]+contribution > logBound {
				continue
			}
			if best == -1 || logWeight[i] < logWeight[best] {
				best = i
			}
		}
		if best == -1 {
			// Nothing fits; fall back to the lightest bucket.
			best = 0
			for i := 1; i < k; i++ {
				if logWeight[i] < logWeight[best] {
					best = i
				}
			}
		}
		logWeight[best] += contribution
		automata[best].Units = append(automata[best].Units, u)
	}

	// Keep unit order inside each bucket stable with declaration order.
	for _, a := range automata {
		sort.SliceStable(a.Units, func(i, j int) bool {
			return a.Units[i].UnitNum < a.Units[j].UnitNum
		})
	}
	return automata
}
