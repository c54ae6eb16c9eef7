package report

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipehazard"
	"pipehazard/internal/decl"
	"pipehazard/internal/phaseclock"
	"pipehazard/internal/regexp"
)

func TestReportLayout(t *testing.T) {
	raws := []decl.Raw{
		&decl.RawAutomaton{Name: "pipe"},
		&decl.RawUnit{Name: "u1", AutomatonName: "pipe"},
		&decl.RawUnit{Name: "u2", AutomatonName: "pipe"},
		&decl.RawExclusion{Left: []string{"u1"}, Right: []string{"u2"}},
		&decl.RawInsnReservation{Name: "iA", Latency: 1, Expr: &regexp.Unit{Name: "u1"}},
		&decl.RawInsnReservation{Name: "iB", Latency: 2, Expr: &regexp.Unit{Name: "u2"}},
	}
	result, diags := pipehazard.Generate(raws, pipehazard.Options{})
	require.False(t, diags.HasErrors())

	var out strings.Builder
	w := &Writer{}
	require.NoError(t, w.Report(&out, result.Description, result.Automata, result.Model))
	text := out.String()

	// (i) unit constraint echo
	assert.Contains(t, text, "unit u1 exclusion_set: u2")
	assert.Contains(t, text, "unit u2 exclusion_set: u1")
	// (ii) reservation echo with canonical expressions
	assert.Contains(t, text, "insn reservation iA (latency 1)")
	assert.Contains(t, text, "insn reservation iB (latency 2)")
	// (iii) per-automaton state dump
	assert.Contains(t, text, "automaton pipe")
	assert.Contains(t, text, "state 0: nothing")
	assert.Contains(t, text, "$advance_cycle")
	// (iv) statistics
	assert.Contains(t, text, "statistics")
	assert.Contains(t, text, "max issue rate")
}

func TestReportWrapsLongUnitEnumerations(t *testing.T) {
	var raws []decl.Raw
	names := make([]string, 0, 24)
	for i := 0; i < 24; i++ {
		name := "long_unit_name_" + string(rune('a'+i))
		names = append(names, name)
		raws = append(raws, &decl.RawUnit{Name: name})
	}
	raws = append(raws, &decl.RawExclusion{Left: names[:1], Right: names[1:]})
	var allItems []regexp.Expr
	for _, n := range names {
		allItems = append(allItems, &regexp.Unit{Name: n})
	}
	raws = append(raws, &decl.RawInsnReservation{Name: "wide", Latency: 1, Expr: &regexp.Allof{Items: allItems}})

	result, diags := pipehazard.Generate(raws, pipehazard.Options{})
	require.False(t, diags.HasErrors())

	var out strings.Builder
	require.NoError(t, (&Writer{}).Report(&out, result.Description, result.Automata, result.Model))

	for _, line := range strings.Split(out.String(), "\n") {
		if strings.Contains(line, "exclusion_set") || strings.HasPrefix(strings.TrimSpace(line), "long_unit_name_") {
			assert.LessOrEqual(t, len(line), lineWidth+len("long_unit_name_x")+1,
				"unit enumerations fold near the report width: %q", line)
		}
	}
}

func TestReportIncludesTimings(t *testing.T) {
	raws := []decl.Raw{
		&decl.RawUnit{Name: "u"},
		&decl.RawInsnReservation{Name: "i", Latency: 1, Expr: &regexp.Unit{Name: "u"}},
	}
	result, diags := pipehazard.Generate(raws, pipehazard.Options{})
	require.False(t, diags.HasErrors())

	var out strings.Builder
	w := &Writer{Timings: []phaseclock.Entry{{Name: "check", Duration: 3 * time.Millisecond}}}
	require.NoError(t, w.Report(&out, result.Description, result.Automata, result.Model))
	assert.Contains(t, out.String(), "timings")
	assert.Contains(t, out.String(), "check")
}
