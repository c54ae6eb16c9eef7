package regexp

// Transform rewrites e into the canonical normal form
// oneof(sequence(allof(unit|nothing)...)...). reservations maps a
// reservation name to its own (already cycle-checked) expression, used to
// substitute Reserv references — the checker guarantees reservations
// contains no cycle before Transform is ever called.
func Transform(e Expr, reservations map[string]Expr) Expr {
	e = substitute(e, reservations)
	for {
		next, changed := rewriteStep(e)
		e = next
		if !changed {
			break
		}
	}
	return canonicalize(e)
}

func substitute(e Expr, reservations map[string]Expr) Expr {
	switch v := e.(type) {
	case *Reserv:
		target, ok := reservations[v.Name]
		if !ok {
			return Nothing
		}
		return substitute(Copy(target), reservations)
	case *Sequence:
		return &Sequence{Items: substituteAll(v.Items, reservations)}
	case *Repeat:
		return &Repeat{Item: substitute(v.Item, reservations), N: v.N}
	case *Allof:
		return &Allof{Items: substituteAll(v.Items, reservations)}
	case *Oneof:
		return &Oneof{Items: substituteAll(v.Items, reservations)}
	default:
		return e
	}
}

func substituteAll(items []Expr, reservations map[string]Expr) []Expr {
	out := make([]Expr, len(items))
	for i, it := range items {
		out[i] = substitute(it, reservations)
	}
	return out
}

// rewriteStep applies one post-order pass of the three rewrite rules
// (unroll, flatten, lift) and reports whether anything changed, so the
// caller can iterate to a fixed point.
func rewriteStep(e Expr) (Expr, bool) {
	switch v := e.(type) {
	case *Unit, *NothingExpr, *Reserv:
		return e, false

	case *Repeat:
		item, childChanged := rewriteStep(v.Item)
		switch {
		case v.N >= 2:
			items := make([]Expr, v.N)
			for i := range items {
				items[i] = Copy(item)
			}
			return &Sequence{Items: items}, true
		case v.N == 1:
			return item, true
		default:
			return &Repeat{Item: item, N: v.N}, childChanged
		}

	case *Sequence:
		items, childChanged := rewriteAll(v.Items)
		if flat, ok := flattenOne(items, isSequence, asSequenceItems); ok {
			return &Sequence{Items: flat}, true
		}
		if lifted, ok := liftOneof(items, func(seqItems []Expr) Expr { return &Sequence{Items: seqItems} }); ok {
			return lifted, true
		}
		return &Sequence{Items: items}, childChanged

	case *Allof:
		items, childChanged := rewriteAll(v.Items)
		if flat, ok := flattenOne(items, isAllof, asAllofItems); ok {
			return &Allof{Items: flat}, true
		}
		if lifted, ok := liftOneof(items, func(allofItems []Expr) Expr { return &Allof{Items: allofItems} }); ok {
			return lifted, true
		}
		if transposed, ok := transposeAllofOfSequences(items); ok {
			return transposed, true
		}
		return &Allof{Items: items}, childChanged

	case *Oneof:
		items, childChanged := rewriteAll(v.Items)
		if flat, ok := flattenOne(items, isOneof, asOneofItems); ok {
			return &Oneof{Items: flat}, true
		}
		return &Oneof{Items: items}, childChanged

	default:
		panic("regexp: unknown expr type")
	}
}

func rewriteAll(items []Expr) ([]Expr, bool) {
	out := make([]Expr, len(items))
	changed := false
	for i, it := range items {
		r, c := rewriteStep(it)
		out[i] = r
		changed = changed || c
	}
	return out, changed
}

func isSequence(e Expr) bool { _, ok := e.(*Sequence); return ok }
func isAllof(e Expr) bool    { _, ok := e.(*Allof); return ok }
func isOneof(e Expr) bool    { _, ok := e.(*Oneof); return ok }

func asSequenceItems(e Expr) []Expr { return e.(*Sequence).Items }
func asAllofItems(e Expr) []Expr    { return e.(*Allof).Items }
func asOneofItems(e Expr) []Expr    { return e.(*Oneof).Items }

// flattenOne is the flatten rule: splice the first nested occurrence
// of the same constructor into the parent's item list.
func flattenOne(items []Expr, match func(Expr) bool, unwrap func(Expr) []Expr) ([]Expr, bool) {
	for i, it := range items {
		if match(it) {
			nested := unwrap(it)
			out := make([]Expr, 0, len(items)+len(nested)-1)
			out = append(out, items[:i]...)
			out = append(out, nested...)
			out = append(out, items[i+1:]...)
			return out, true
		}
	}
	return nil, false
}

// liftOneof lifts alternation out of Sequence and Allof: if any item
// is a Oneof, build a new Oneof whose alternatives substitute each
// Oneof branch back into the item list, rewrapped by wrap (Sequence or
// Allof).
func liftOneof(items []Expr, wrap func([]Expr) Expr) (Expr, bool) {
	for i, it := range items {
		one, ok := it.(*Oneof)
		if !ok {
			continue
		}
		alts := make([]Expr, len(one.Items))
		for j, branch := range one.Items {
			withBranch := make([]Expr, len(items))
			copy(withBranch, items)
			withBranch[i] = branch
			alts[j] = wrap(withBranch)
		}
		return &Oneof{Items: alts}, true
	}
	return nil, false
}

// transposeAllofOfSequences turns simultaneous sequences into a
// sequence of simultaneous cycles: Allof(Sequence(a1 .. am),
// Sequence(b1 .. bn), ..., unit, nothing) becomes Sequence(Allof(a1,
// b1, ...), Allof(a2, b2, ...), ...) where position 0 additionally
// carries every scalar (non-Sequence) operand.
func transposeAllofOfSequences(items []Expr) (Expr, bool) {
	var seqs [][]Expr
	var scalars []Expr
	for _, it := range items {
		if seq, ok := it.(*Sequence); ok {
			seqs = append(seqs, seq.Items)
		} else {
			scalars = append(scalars, it)
		}
	}
	if len(seqs) == 0 {
		return nil, false
	}
	maxLen := 0
	for _, s := range seqs {
		if len(s) > maxLen {
			maxLen = len(s)
		}
	}
	out := make([]Expr, maxLen)
	for i := 0; i < maxLen; i++ {
		var allofItems []Expr
		for _, s := range seqs {
			if i < len(s) {
				allofItems = append(allofItems, s[i])
			} else {
				allofItems = append(allofItems, Nothing)
			}
		}
		if i == 0 {
			allofItems = append(allofItems, scalars...)
		}
		out[i] = &Allof{Items: allofItems}
	}
	return &Sequence{Items: out}, true
}

// canonicalize pads out degenerate reductions so the result always has the
// shape oneof(sequence(allof(...))...) even when an alternative, a cycle,
// or a leaf collapsed to a bare node during rewriting.
func canonicalize(e Expr) Expr {
	top, ok := e.(*Oneof)
	if !ok {
		top = &Oneof{Items: []Expr{e}}
	}
	alts := make([]Expr, len(top.Items))
	for i, alt := range top.Items {
		alts[i] = canonicalizeSequence(alt)
	}
	return &Oneof{Items: alts}
}

func canonicalizeSequence(e Expr) Expr {
	seq, ok := e.(*Sequence)
	if !ok {
		seq = &Sequence{Items: []Expr{e}}
	}
	items := make([]Expr, len(seq.Items))
	for i, it := range seq.Items {
		items[i] = canonicalizeAllof(it)
	}
	return &Sequence{Items: items}
}

func canonicalizeAllof(e Expr) Expr {
	if _, ok := e.(*Allof); ok {
		return e
	}
	return &Allof{Items: []Expr{e}}
}

// IsCanonical reports whether e already has the canonical shape.
func IsCanonical(e Expr) bool {
	top, ok := e.(*Oneof)
	if !ok {
		return false
	}
	for _, alt := range top.Items {
		seq, ok := alt.(*Sequence)
		if !ok {
			return false
		}
		for _, node := range seq.Items {
			allof, ok := node.(*Allof)
			if !ok {
				return false
			}
			for _, leaf := range allof.Items {
				switch leaf.(type) {
				case *Unit, *NothingExpr:
				default:
					return false
				}
			}
		}
	}
	return true
}

// DistributionCheck verifies automaton activity is distributed evenly
// over a canonical expression's alternatives: for each
// cycle, every alternative that has any automaton activity on that cycle
// must mention every automaton that any (other) active alternative
// mentions on that same cycle. automatonOf resolves a unit name to its
// owning automaton name. The returned slice lists the offending automaton
// names (possibly with duplicates), empty if the check passes.
func DistributionCheck(canonical Expr, automatonOf func(unitName string) (automaton string, ok bool)) []string {
	oneof, ok := canonical.(*Oneof)
	if !ok || len(oneof.Items) < 2 {
		return nil
	}

	perAltPerCycle := make([]map[int]map[string]bool, len(oneof.Items))
	maxCycle := 0
	for ai, alt := range oneof.Items {
		seq, ok := alt.(*Sequence)
		if !ok {
			continue
		}
		byCycle := make(map[int]map[string]bool)
		for cyc, node := range seq.Items {
			allof, ok := node.(*Allof)
			if !ok {
				continue
			}
			set := make(map[string]bool)
			for _, leaf := range allof.Items {
				u, ok := leaf.(*Unit)
				if !ok {
					continue
				}
				if am, ok := automatonOf(u.Name); ok {
					set[am] = true
				}
			}
			byCycle[cyc] = set
			if cyc > maxCycle {
				maxCycle = cyc
			}
		}
		perAltPerCycle[ai] = byCycle
	}

	var violations []string
	for cyc := 0; cyc <= maxCycle; cyc++ {
		required := make(map[string]bool)
		activeAlts := map[int]bool{}
		for ai, byCycle := range perAltPerCycle {
			if set := byCycle[cyc]; len(set) > 0 {
				activeAlts[ai] = true
				for am := range set {
					required[am] = true
				}
			}
		}
		if len(activeAlts) < 2 {
			continue
		}
		for am := range required {
			for ai := range activeAlts {
				if !perAltPerCycle[ai][cyc][am] {
					violations = append(violations, am)
				}
			}
		}
	}
	return violations
}
