package bitset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReservationSetTestOutOfRange(t *testing.T) {
	r := Empty(3, 2)
	require.NoError(t, r.Set(0, 1))
	assert.True(t, r.Test(0, 1))
	assert.False(t, r.Test(0, 0))
	assert.ErrorIs(t, r.Set(3, 0), ErrOutOfRange)
	assert.ErrorIs(t, r.Set(0, 2), ErrOutOfRange)
}

func TestReservationOrAnd(t *testing.T) {
	a := Empty(2, 2)
	_ = a.Set(0, 0)
	b := Empty(2, 2)
	_ = b.Set(0, 1)

	or := ReservationOr(a, b)
	assert.True(t, or.Test(0, 0))
	assert.True(t, or.Test(0, 1))

	and := ReservationAnd(a, b)
	assert.False(t, and.Test(0, 0))
	assert.False(t, and.Test(0, 1))
}

func TestShiftDropsCycleZeroAndEmptiesTail(t *testing.T) {
	r := Empty(3, 1)
	_ = r.Set(0, 0)
	_ = r.Set(1, 0)
	_ = r.Set(2, 0)

	shifted := Shift(r)
	assert.True(t, shifted.Test(0, 0), "cycle 1 moves down to cycle 0")
	assert.True(t, shifted.Test(1, 0), "cycle 2 moves down to cycle 1")
	assert.False(t, shifted.Test(2, 0), "tail cycle becomes empty")
}

func TestReservationHashEqualForEqualContent(t *testing.T) {
	a := Empty(2, 2)
	_ = a.Set(1, 1)
	b := Empty(2, 2)
	_ = b.Set(1, 1)

	assert.True(t, ReservationEqual(a, b))
	assert.Equal(t, ReservationHash(a), ReservationHash(b))

	_ = b.Set(0, 0)
	assert.False(t, ReservationEqual(a, b))
}

func TestConstraintsExclusion(t *testing.T) {
	// units: 0=u1, 1=u2; u1 excludes u2 symmetrically.
	c := NewConstraints(2)
	excl0 := NewBits(2)
	excl0.Set(1)
	excl1 := NewBits(2)
	excl1.Set(0)
	c.Exclusion[0] = excl0
	c.Exclusion[1] = excl1

	a := Empty(1, 2)
	_ = a.Set(0, 0) // reserves u1
	b := Empty(1, 2)
	_ = b.Set(0, 1) // reserves u2

	assert.True(t, c.Intersects(a, b, false), "exclusion pair must not co-reserve")
}

func TestConstraintsPresence(t *testing.T) {
	// presence_set(a, (b c)): reserving unit a requires b and c present.
	c := NewConstraints(3) // 0=a,1=b,2=c
	pattern := NewBits(3)
	pattern.Set(1)
	pattern.Set(2)
	c.Presence[0] = []Bits{pattern}

	onlyA := Empty(1, 3)
	_ = onlyA.Set(0, 0)
	empty := Empty(1, 3)

	assert.True(t, c.Intersects(onlyA, empty, false), "a without b,c violates presence")

	abc := Empty(1, 3)
	_ = abc.Set(0, 0)
	_ = abc.Set(0, 1)
	_ = abc.Set(0, 2)
	assert.False(t, c.Intersects(abc, empty, false), "a with b,c satisfies presence")
}

func TestConstraintsAbsence(t *testing.T) {
	c := NewConstraints(2)
	pattern := NewBits(2)
	pattern.Set(1)
	c.Absence[0] = []Bits{pattern} // unit 0 must not co-reserve with unit 1

	both := Empty(1, 2)
	_ = both.Set(0, 0)
	_ = both.Set(0, 1)
	empty := Empty(1, 2)

	assert.True(t, c.Intersects(both, empty, false))
}
