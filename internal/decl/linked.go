package decl

import "pipehazard/internal/regexp"

// Automaton owns the subset of units assigned to it.
type Automaton struct {
	Name  string
	Num   int
	Units []*Unit
}

// Unit is a linked functional-unit declaration. MinOccCycle
// and MaxOccCycle are derived by the checker; QueryNum is -1
// unless Query is set, in which case it is a dense id over query units
// only.
type Unit struct {
	Name      string
	Automaton *Automaton
	Query     bool
	UnitNum   int
	QueryNum  int

	Exclusion []*Unit

	Presence      [][]*Unit
	FinalPresence [][]*Unit
	Absence       [][]*Unit
	FinalAbsence  [][]*Unit

	MinOccCycle int
	MaxOccCycle int
}

// ExcludesUnit reports whether u's exclusion list contains other.
func (u *Unit) ExcludesUnit(other *Unit) bool {
	for _, e := range u.Exclusion {
		if e == other {
			return true
		}
	}
	return false
}

// Reservation is a linked, named reusable reservation expression. Expr is
// the original (possibly Reserv-referencing) tree; Transformed is filled
// in by the transformer once the expression's own cycle-free form is
// known.
type Reservation struct {
	Name        string
	Expr        regexp.Expr
	Transformed regexp.Expr
}

// InsnReservation is the linked per-instruction declaration.
type InsnReservation struct {
	Name      string
	Num       int
	Condition string
	Latency   int
	Expr      regexp.Expr

	// Transformed is Expr rewritten to canonical form by the
	// transformer.
	Transformed regexp.Expr

	Bypasses []*Bypass

	// EquivClassNum is assigned per-automaton by the classifier; AInsns
	// (in package automaton) hold the per-automaton view, this field is
	// unused by the
	// core and kept on the description-level model for completeness.
	EquivClassNum int

	// ImportantAutomata is the set of automaton numbers this instruction
	// has any reservation activity in.
	ImportantAutomata map[int]bool

	// FirstWithSameReservs collapses instructions with equal sorted
	// alt-state lists at the
	// description level (duplicated per-automaton in automaton.AInsn).
	FirstWithSameReservs bool
}

// Bypass is a linked forwarding-path declaration.
type Bypass struct {
	OutName string
	InName  string
	Latency int
	Guard   string
	Out     *InsnReservation
	In      *InsnReservation
}

// Description is the fully linked, checked declaration set the checker
// produces
// and every later phase consumes.
type Description struct {
	Automata     []*Automaton
	Units        []*Unit
	QueryUnits   []*Unit // dense subsequence of Units with Query set, in QueryNum order
	Reservations []*Reservation
	Insns        []*InsnReservation
	Bypasses     []*Bypass

	// MaxInsnReservCycles is one past the maximum cycle at which any
	// instruction reserves a unit.
	MaxInsnReservCycles int
}

// AutomatonOfUnit returns the owning automaton name for a unit name,
// satisfying the automatonOf callback shape regexp.DistributionCheck
// expects.
func (d *Description) AutomatonOfUnit(unitName string) (string, bool) {
	for _, u := range d.Units {
		if u.Name == unitName {
			return u.Automaton.Name, true
		}
	}
	return "", false
}

// FindUnit looks up a unit by name.
func (d *Description) FindUnit(name string) (*Unit, bool) {
	for _, u := range d.Units {
		if u.Name == name {
			return u, true
		}
	}
	return nil, false
}

// FindInsn looks up an instruction by name.
func (d *Description) FindInsn(name string) (*InsnReservation, bool) {
	for _, insn := range d.Insns {
		if insn.Name == name {
			return insn, true
		}
	}
	return nil, false
}
