package bitset

import "errors"

// ErrOutOfRange is returned by Reservation.Set when a cycle index is not
// less than the reservation's MaxCycles or a unit index is not less than
// its Units. Reservation.Test returns no error: it reports false for such
// indices.
var ErrOutOfRange = errors.New("bitset: cycle out of range")

// Reservation is a (cycle, unit)-indexed bitset: bit
// (c, u) is set iff unit u is reserved on cycle c of some possible
// execution. Length is MaxCycles * Units bits, word-packed via Bits.
type Reservation struct {
	bits      Bits
	MaxCycles int
	Units     int
}

// Empty allocates a fresh zero-initialized reservation bitset sized to
// (maxCycles, units).
func Empty(maxCycles, units int) Reservation {
	return Reservation{bits: NewBits(maxCycles * units), MaxCycles: maxCycles, Units: units}
}

func (r Reservation) index(c, u int) (int, error) {
	if c < 0 || c >= r.MaxCycles || u < 0 || u >= r.Units {
		return 0, ErrOutOfRange
	}
	return c*r.Units + u, nil
}

// Set marks unit u reserved on cycle c.
func (r Reservation) Set(c, u int) error {
	i, err := r.index(c, u)
	if err != nil {
		return err
	}
	r.bits.Set(i)
	return nil
}

// Test reports whether unit u is reserved on cycle c. An out-of-range
// cycle or unit reads as not reserved.
func (r Reservation) Test(c, u int) bool {
	i, err := r.index(c, u)
	if err != nil {
		return false
	}
	return r.bits.Test(i)
}

// Clone returns an independent copy.
func (r Reservation) Clone() Reservation {
	return Reservation{bits: r.bits.Clone(), MaxCycles: r.MaxCycles, Units: r.Units}
}

func mustCompatible(a, b Reservation) {
	if a.MaxCycles != b.MaxCycles || a.Units != b.Units {
		panic("bitset: incompatible reservation shapes")
	}
}

// ReservationOr returns the per-bit union of a and b.
func ReservationOr(a, b Reservation) Reservation {
	mustCompatible(a, b)
	return Reservation{bits: Or(a.bits, b.bits), MaxCycles: a.MaxCycles, Units: a.Units}
}

// ReservationAnd returns the per-bit intersection of a and b.
func ReservationAnd(a, b Reservation) Reservation {
	mustCompatible(a, b)
	return Reservation{bits: And(a.bits, b.bits), MaxCycles: a.MaxCycles, Units: a.Units}
}

// RawIntersects reports whether a and b share any set bit, ignoring any
// exclusion/presence/absence semantics (the raw bitwise test; see
// Constraints.Intersects for the unified predicate).
func RawIntersects(a, b Reservation) bool {
	mustCompatible(a, b)
	return Intersects(a.bits, b.bits)
}

// ReservationEqual reports bitwise equality of two reservation bitsets.
func ReservationEqual(a, b Reservation) bool {
	if a.MaxCycles != b.MaxCycles || a.Units != b.Units {
		return false
	}
	return Equal(a.bits, b.bits)
}

// ReservationHash is content-addressable, invariant under bit order.
func ReservationHash(r Reservation) uint64 {
	h := Hash(r.bits)
	h ^= uint64(r.MaxCycles)*31 + uint64(r.Units)
	return h
}

// Shift drops cycle 0 and shifts later cycles down by one; the tail
// cycle (MaxCycles-1) becomes empty — there is no cycle MaxCycles to
// shift into it. Keeping the operand's tail bits would make a
// reservation in the last cycle survive every advance-cycle and block
// its unit forever, so the tail is cleared.
func Shift(a Reservation) Reservation {
	out := Empty(a.MaxCycles, a.Units)
	for c := 0; c < a.MaxCycles-1; c++ {
		for u := 0; u < a.Units; u++ {
			if a.Test(c+1, u) {
				_ = out.Set(c, u)
			}
		}
	}
	return out
}

// Mask returns a Reservation containing only the bits of a that are
// also set in keep — used to apply the state-pruning mask during
// construction.
func Mask(a, keep Reservation) Reservation {
	return ReservationAnd(a, keep)
}
