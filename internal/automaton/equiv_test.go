package automaton

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipehazard/internal/decl"
)

func TestIdenticalReservationsCollapseAndShareClass(t *testing.T) {
	d := checkedDescription(t, []decl.Raw{
		&decl.RawUnit{Name: "alu"},
		&decl.RawUnit{Name: "mul"},
		&decl.RawInsnReservation{Name: "add", Latency: 1, Expr: unit("alu")},
		&decl.RawInsnReservation{Name: "sub", Latency: 1, Expr: unit("alu")},
		&decl.RawInsnReservation{Name: "imul", Latency: 3, Expr: unit("mul")},
	})
	a := Build(d, Options{})[0]

	add := a.ainsnFor("add")
	sub := a.ainsnFor("sub")
	imul := a.ainsnFor("imul")

	assert.True(t, add.FirstWithSameReservs)
	assert.False(t, sub.FirstWithSameReservs, "sub duplicates add's reservation")
	assert.Equal(t, sub, add.NextSameReservs)

	assert.Equal(t, add.EquivClassNum, sub.EquivClassNum)
	assert.NotEqual(t, add.EquivClassNum, imul.EquivClassNum)
	assert.NotEqual(t, add.EquivClassNum, a.AdvanceCycle.EquivClassNum)

	// add, imul, advance-cycle: three distinguishable classes.
	assert.Equal(t, 3, a.InsnEquivClassesNum)
	assert.True(t, add.FirstInEquivClass)
	assert.False(t, sub.FirstInEquivClass)
}

// TestEquivClassMinimality checks no two instructions in different
// classes have identical arc signatures across all states.
func TestEquivClassMinimality(t *testing.T) {
	d := checkedDescription(t, []decl.Raw{
		&decl.RawUnit{Name: "u1"},
		&decl.RawUnit{Name: "u2"},
		&decl.RawExclusion{Left: []string{"u1"}, Right: []string{"u2"}},
		&decl.RawInsnReservation{Name: "iA", Latency: 1, Expr: unit("u1")},
		&decl.RawInsnReservation{Name: "iB", Latency: 1, Expr: unit("u2")},
	})
	a := Build(d, Options{})[0]

	signature := func(ai *AInsn) []int {
		var sig []int
		for _, s := range a.States {
			arc := s.FindArc(ai)
			if arc == nil {
				sig = append(sig, -1, -1)
				continue
			}
			sig = append(sig, arc.To.OrderNum, arc.AltsCount)
		}
		return sig
	}

	reps := make(map[int]*AInsn)
	for _, ai := range a.AInsns {
		if !ai.FirstWithSameReservs {
			continue
		}
		if other, dup := reps[ai.EquivClassNum]; dup {
			assert.Equal(t, signature(other), signature(ai),
				"instructions in one class must share every arc")
			continue
		}
		reps[ai.EquivClassNum] = ai
	}
	classes := make([]*AInsn, 0, len(reps))
	for _, ai := range reps {
		classes = append(classes, ai)
	}
	for i, x := range classes {
		for _, y := range classes[i+1:] {
			assert.NotEqual(t, signature(x), signature(y),
				"%s and %s sit in different classes but are indistinguishable", x.Name(), y.Name())
		}
	}
	require.Equal(t, a.InsnEquivClassesNum, len(reps))
}
