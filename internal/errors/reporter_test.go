package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilderDowngrade(t *testing.T) {
	d := NewError(ErrDuplicateAutomaton, "automaton 'foo' already declared").
		At("foo").Downgrade(true).Build()
	assert.Equal(t, Warning, d.Level)

	d2 := NewError(ErrUndeclaredName, "no such unit 'bar'").
		At("bar").Downgrade(true).Build()
	assert.Equal(t, Error, d2.Level, "non warning-capable codes never downgrade")
}

func TestDiagnosticsHasErrors(t *testing.T) {
	var diags Diagnostics
	diags.Add(NewWarning(WarnUnusedUnit, "unit 'mul' is never reserved").Build())
	assert.False(t, diags.HasErrors())
	assert.Len(t, diags.Warnings(), 1)

	diags.Add(NewError(ErrReservationCycle, "cyclic reservation 'R'").At("R").Build())
	assert.True(t, diags.HasErrors())
	assert.Len(t, diags.Errors(), 1)
}

func TestReporterFormatsWithAndWithoutPosition(t *testing.T) {
	r := NewReporter("cpu.md", "unit alu, mul;\ninsn_reservation add 1 alu;\n")

	withPos := NewError(ErrEmptyReservationString, "empty reservation string").
		WithPosition(Position{Filename: "cpu.md", Line: 2, Column: 5}).Build()
	out := r.Format(withPos)
	assert.Contains(t, out, "cpu.md:2:5")
	assert.Contains(t, out, "insn_reservation add 1 alu;")

	noPos := NewError(ErrUndeclaredName, "no such unit 'zzz'").At("zzz").Build()
	out2 := r.Format(noPos)
	assert.Contains(t, out2, `at "zzz"`)
}
