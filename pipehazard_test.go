package pipehazard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipehazard/internal/decl"
	"pipehazard/internal/errors"
	"pipehazard/internal/regexp"
)

func TestParseOptions(t *testing.T) {
	opts, diags := ParseOptions([]string{"-ndfa", "no-minimization", "-time", "-v", "-w"})
	require.False(t, diags.HasErrors())
	assert.True(t, opts.NDFA)
	assert.True(t, opts.NoMinimization)
	assert.True(t, opts.Time)
	assert.True(t, opts.Verbose)
	assert.True(t, opts.AllowWarnings)
}

func TestParseOptionsRejectsUnknown(t *testing.T) {
	_, diags := ParseOptions([]string{"-frobnicate"})
	require.True(t, diags.HasErrors())
	assert.Equal(t, errors.ErrUnknownOption, diags.Errors()[0].Code)
}

func TestParseOptionsRejectsSplit(t *testing.T) {
	_, diags := ParseOptions([]string{"-split"})
	require.True(t, diags.HasErrors())
	assert.Equal(t, errors.ErrUnimplementedOption, diags.Errors()[0].Code)
}

func trivialRaws() []decl.Raw {
	return []decl.Raw{
		&decl.RawUnit{Name: "alu"},
		&decl.RawUnit{Name: "mul"},
		&decl.RawInsnReservation{Name: "add", Latency: 1, Expr: &regexp.Unit{Name: "alu"}},
		&decl.RawInsnReservation{Name: "imul", Latency: 3, Expr: &regexp.Unit{Name: "mul"}},
	}
}

func TestGenerateTrivialMachine(t *testing.T) {
	result, diags := Generate(trivialRaws(), Options{})
	require.False(t, diags.HasErrors())
	require.NotNil(t, result)

	require.Len(t, result.Automata, 1)
	require.Len(t, result.Tables, 1)
	m := result.Model
	require.NotNil(t, m)

	assert.Equal(t, 2, m.AdvanceCycleCode)
	assert.Len(t, m.Insns, 2)
	assert.Equal(t, "add", m.Insns[0].Name)
	assert.NotEmpty(t, m.Insns[0].Reservation)

	// Latencies reach up to 3, so the queue index rounds up to 2^2-1.
	assert.Equal(t, 3, m.MaxInsnQueueIndex)
	assert.GreaterOrEqual(t, m.MaxIssueRate, 1)
}

func TestGenerateHaltsOnCheckerError(t *testing.T) {
	raws := []decl.Raw{
		&decl.RawUnit{Name: "u"},
		&decl.RawReservation{Name: "R", Expr: &regexp.Unit{Name: "S"}},
		&decl.RawReservation{Name: "S", Expr: &regexp.Unit{Name: "R"}},
		&decl.RawInsnReservation{Name: "i", Latency: 1, Expr: &regexp.Allof{Items: []regexp.Expr{
			&regexp.Unit{Name: "u"}, &regexp.Unit{Name: "R"},
		}}},
	}
	result, diags := Generate(raws, Options{})
	assert.Nil(t, result, "no phase may run past a failing checker")
	assert.True(t, diags.HasErrors())
}

func TestGenerateFlagsDistributionViolation(t *testing.T) {
	// One alternative reserves both automata's units on cycle 0, the
	// other only pipe's; fpu activity is unevenly distributed.
	raws := []decl.Raw{
		&decl.RawAutomaton{Name: "pipe"},
		&decl.RawAutomaton{Name: "fpu"},
		&decl.RawUnit{Name: "alu", AutomatonName: "pipe"},
		&decl.RawUnit{Name: "fadd", AutomatonName: "fpu"},
		&decl.RawInsnReservation{Name: "mixed", Latency: 1, Expr: &regexp.Oneof{Items: []regexp.Expr{
			&regexp.Allof{Items: []regexp.Expr{&regexp.Unit{Name: "alu"}, &regexp.Unit{Name: "fadd"}}},
			&regexp.Unit{Name: "alu"},
		}}},
	}
	result, diags := Generate(raws, Options{})
	assert.Nil(t, result)
	require.True(t, diags.HasErrors())
	assert.Equal(t, errors.ErrDistributionViolation, diags.Errors()[0].Code)
}

func TestGenerateCollectsTimings(t *testing.T) {
	result, diags := Generate(trivialRaws(), Options{Time: true})
	require.False(t, diags.HasErrors())

	var names []string
	for _, e := range result.Timings {
		names = append(names, e.Name)
	}
	assert.Equal(t, []string{"check", "transform", "build automata", "encode"}, names)

	result, _ = Generate(trivialRaws(), Options{})
	assert.Empty(t, result.Timings, "timings only collected under -time")
}

func TestGenerateEmitsProgressTicks(t *testing.T) {
	var ticks strings.Builder
	_, diags := Generate(trivialRaws(), Options{Progress: &ticks})
	require.False(t, diags.HasErrors())
	// Four states never reach the 100-state tick threshold.
	assert.Empty(t, ticks.String())
}
