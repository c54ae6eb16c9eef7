// Package pipehazard compiles a declarative machine description of a
// processor pipeline into lookup tables and query functions an
// instruction scheduler consults at compile time. Generate drives the
// full pipeline: declaration checking, reservation-expression
// canonicalization, automaton construction with optional
// nondeterminism and minimization, and table encoding.
package pipehazard

import (
	"fmt"
	"io"

	"pipehazard/internal/automaton"
	"pipehazard/internal/checker"
	"pipehazard/internal/decl"
	"pipehazard/internal/emit"
	"pipehazard/internal/encode"
	"pipehazard/internal/errors"
	"pipehazard/internal/phaseclock"
	"pipehazard/internal/regexp"
)

// Options is the generator's configuration surface.
type Options struct {
	// NoMinimization skips the partition-refinement minimizer.
	NoMinimization bool

	// NDFA treats | nondeterministically and runs subset construction.
	NDFA bool

	// Time collects wall-clock timings per phase for the report.
	Time bool

	// Verbose asks for the human-readable report alongside the code.
	Verbose bool

	// AllowWarnings (-w) downgrades the fixed warning-capable error set.
	AllowWarnings bool

	// AutomataCount is the heuristic unit partition count; zero keeps
	// the declared (or single default) automaton assignment.
	AutomataCount int

	// Progress receives the state-construction ticker; nil disables it.
	Progress io.Writer
}

// ParseOptions recognizes the generator's option names (with or
// without a leading dash). Unknown options are rejected; split is
// recognized but unimplemented.
func ParseOptions(args []string) (Options, errors.Diagnostics) {
	var opts Options
	var diags errors.Diagnostics
	for _, arg := range args {
		name := arg
		if len(name) > 0 && name[0] == '-' {
			name = name[1:]
		}
		switch name {
		case "no-minimization":
			opts.NoMinimization = true
		case "ndfa":
			opts.NDFA = true
		case "time":
			opts.Time = true
		case "v":
			opts.Verbose = true
		case "w":
			opts.AllowWarnings = true
		case "split":
			diags.Add(errors.NewError(errors.ErrUnimplementedOption,
				"option split has not been implemented yet").At(arg).Build())
		default:
			diags.Add(errors.NewError(errors.ErrUnknownOption,
				fmt.Sprintf("unknown option %q", arg)).At(arg).Build())
		}
	}
	return opts, diags
}

// Result is everything the core hands to its collaborators: the linked
// description, the built automata, the encoded tables, the emitter
// model, and the phase timings when -time was set.
type Result struct {
	Description *decl.Description
	Automata    []*automaton.Automaton
	Tables      []*encode.Tables
	Model       *emit.Model
	Timings     []phaseclock.Entry
}

// Generate runs the whole pipeline over the parsed declaration records.
// Any phase that completes with an error stops the run: the Result is
// nil and the diagnostics carry the failures.
func Generate(raws []decl.Raw, opts Options) (*Result, errors.Diagnostics) {
	var clock *phaseclock.Clock
	if opts.Time {
		clock = &phaseclock.Clock{}
	}

	stopCheck := clock.Phase("check")
	d, diags := checker.Check(raws, checker.Options{AllowWarnings: opts.AllowWarnings})
	stopCheck()
	if diags.HasErrors() {
		return nil, diags
	}

	stopTransform := clock.Phase("transform")
	transform(d, &diags)
	stopTransform()
	if diags.HasErrors() {
		return nil, diags
	}

	stopBuild := clock.Phase("build automata")
	automata := automaton.Build(d, automaton.Options{
		NDFA:          opts.NDFA,
		NoMinimize:    opts.NoMinimization,
		AutomataCount: opts.AutomataCount,
		Progress:      opts.Progress,
	})
	stopBuild()

	stopEncode := clock.Phase("encode")
	tables := encode.Encode(d, automata)
	model := emit.BuildModel(d, automata, tables)
	stopEncode()

	return &Result{
		Description: d,
		Automata:    automata,
		Tables:      tables,
		Model:       model,
		Timings:     clock.Entries(),
	}, diags
}

// transform canonicalizes every reservation and instruction
// expression, then runs the distribution check over each canonical form.
func transform(d *decl.Description, diags *errors.Diagnostics) {
	reservationExprs := make(map[string]regexp.Expr, len(d.Reservations))
	for _, r := range d.Reservations {
		reservationExprs[r.Name] = r.Expr
	}

	for _, r := range d.Reservations {
		r.Transformed = regexp.Transform(r.Expr, reservationExprs)
	}
	for _, insn := range d.Insns {
		insn.Transformed = regexp.Transform(insn.Expr, reservationExprs)

		violated := make(map[string]bool)
		for _, am := range regexp.DistributionCheck(insn.Transformed, d.AutomatonOfUnit) {
			if violated[am] {
				continue
			}
			violated[am] = true
			diags.Add(errors.NewError(errors.ErrDistributionViolation,
				fmt.Sprintf("some alternative of %q misses automaton %q activity other alternatives have on the same cycle",
					insn.Name, am)).At(insn.Name).Build())
		}
	}
}
