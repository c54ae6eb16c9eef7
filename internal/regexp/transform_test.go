package regexp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransformUnrollsRepeat(t *testing.T) {
	e := &Repeat{Item: &Unit{Name: "alu"}, N: 3}
	got := Transform(e, nil)
	require.True(t, IsCanonical(got))

	oneof := got.(*Oneof)
	require.Len(t, oneof.Items, 1)
	seq := oneof.Items[0].(*Sequence)
	require.Len(t, seq.Items, 3)
	for _, cyc := range seq.Items {
		allof := cyc.(*Allof)
		require.Len(t, allof.Items, 1)
		assert.Equal(t, "alu", allof.Items[0].(*Unit).Name)
	}
}

func TestTransformLiftsSequenceOneof(t *testing.T) {
	// alu, (mul | div)
	e := &Sequence{Items: []Expr{
		&Unit{Name: "alu"},
		&Oneof{Items: []Expr{&Unit{Name: "mul"}, &Unit{Name: "div"}}},
	}}
	got := Transform(e, nil)
	require.True(t, IsCanonical(got))
	oneof := got.(*Oneof)
	require.Len(t, oneof.Items, 2)
	for i, want := range []string{"mul", "div"} {
		seq := oneof.Items[i].(*Sequence)
		require.Len(t, seq.Items, 2)
		assert.Equal(t, "alu", seq.Items[0].(*Allof).Items[0].(*Unit).Name)
		assert.Equal(t, want, seq.Items[1].(*Allof).Items[0].(*Unit).Name)
	}
}

func TestTransformTransposesAllofOfSequences(t *testing.T) {
	// allof(sequence(a1,a2), sequence(b1,b2))
	e := &Allof{Items: []Expr{
		&Sequence{Items: []Expr{&Unit{Name: "a1"}, &Unit{Name: "a2"}}},
		&Sequence{Items: []Expr{&Unit{Name: "b1"}, &Unit{Name: "b2"}}},
	}}
	got := Transform(e, nil)
	require.True(t, IsCanonical(got))
	seq := got.(*Oneof).Items[0].(*Sequence)
	require.Len(t, seq.Items, 2)
	names := func(allof *Allof) []string {
		var out []string
		for _, leaf := range allof.Items {
			out = append(out, leaf.(*Unit).Name)
		}
		return out
	}
	assert.ElementsMatch(t, []string{"a1", "b1"}, names(seq.Items[0].(*Allof)))
	assert.ElementsMatch(t, []string{"a2", "b2"}, names(seq.Items[1].(*Allof)))
}

func TestTransformSubstitutesReserv(t *testing.T) {
	reservations := map[string]Expr{
		"R": &Sequence{Items: []Expr{&Unit{Name: "alu"}, Nothing}},
	}
	e := &Reserv{Name: "R"}
	got := Transform(e, reservations)
	require.True(t, IsCanonical(got))
	seq := got.(*Oneof).Items[0].(*Sequence)
	require.Len(t, seq.Items, 2)
	assert.Equal(t, "alu", seq.Items[0].(*Allof).Items[0].(*Unit).Name)
	_, isNothing := seq.Items[1].(*Allof).Items[0].(*NothingExpr)
	assert.True(t, isNothing)
}

func TestTransformNoCycleLeft(t *testing.T) {
	e := &Allof{Items: []Expr{
		&Unit{Name: "u"},
		&Oneof{Items: []Expr{&Unit{Name: "v"}, Nothing}},
	}}
	got := Transform(e, nil)
	Walk(got, func(node Expr) {
		switch node.(type) {
		case *Reserv:
			t.Fatal("canonical form must not contain Reserv")
		case *Repeat:
			t.Fatal("canonical form must not contain Repeat")
		}
	})
}

func TestDistributionCheckFlagsMissingAutomaton(t *testing.T) {
	automatonOf := func(name string) (string, bool) {
		switch name {
		case "u1":
			return "A0", true
		case "u2":
			return "A1", true
		}
		return "", false
	}
	// oneof(sequence(allof(u1,u2)) | sequence(allof(u1))) -- second alt
	// omits A1's activity though the first alt has it.
	canonical := &Oneof{Items: []Expr{
		&Sequence{Items: []Expr{&Allof{Items: []Expr{&Unit{Name: "u1"}, &Unit{Name: "u2"}}}}},
		&Sequence{Items: []Expr{&Allof{Items: []Expr{&Unit{Name: "u1"}}}}},
	}}
	violations := DistributionCheck(canonical, automatonOf)
	assert.NotEmpty(t, violations)
}

func TestDistributionCheckPassesWhenUniform(t *testing.T) {
	automatonOf := func(name string) (string, bool) { return "A0", true }
	canonical := &Oneof{Items: []Expr{
		&Sequence{Items: []Expr{&Allof{Items: []Expr{&Unit{Name: "u1"}}}}},
		&Sequence{Items: []Expr{&Allof{Items: []Expr{&Unit{Name: "u2"}}}}},
	}}
	assert.Empty(t, DistributionCheck(canonical, automatonOf))
}
