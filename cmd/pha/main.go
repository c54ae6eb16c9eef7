// SPDX-License-Identifier: Apache-2.0
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/fatih/color"

	"pipehazard"
	"pipehazard/frontend"
	"pipehazard/internal/errors"
	"pipehazard/internal/report"
)

func main() {
	ndfa := flag.Bool("ndfa", false, "treat | nondeterministically and run subset construction")
	noMinimization := flag.Bool("no-minimization", false, "skip automaton minimization")
	timing := flag.Bool("time", false, "collect wall-clock timings per phase")
	verbose := flag.Bool("v", false, "write the human-readable report")
	warnings := flag.Bool("w", false, "downgrade warning-capable errors to warnings")
	split := flag.Bool("split", false, "")
	automataCount := flag.Int("automata", 0, "heuristic unit partition count")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("Usage: pha [options] <file.pipe>")
		os.Exit(1)
	}
	path := flag.Arg(0)

	var optionArgs []string
	if *ndfa {
		optionArgs = append(optionArgs, "ndfa")
	}
	if *noMinimization {
		optionArgs = append(optionArgs, "no-minimization")
	}
	if *timing {
		optionArgs = append(optionArgs, "time")
	}
	if *verbose {
		optionArgs = append(optionArgs, "v")
	}
	if *warnings {
		optionArgs = append(optionArgs, "w")
	}
	if *split {
		optionArgs = append(optionArgs, "split")
	}

	source, err := os.ReadFile(path)
	if err != nil {
		color.Red("Failed to read file: %s", err)
		os.Exit(1)
	}

	opts, optDiags := pipehazard.ParseOptions(optionArgs)
	opts.AutomataCount = *automataCount
	opts.Progress = os.Stderr
	reporter := errors.NewReporter(path, string(source))
	if printDiagnostics(reporter, optDiags) {
		os.Exit(1)
	}

	raws, parseDiags, err := frontend.ParseFile(path, string(source))
	if err != nil {
		reportParseError(string(source), err)
		os.Exit(1)
	}
	if printDiagnostics(reporter, parseDiags) {
		os.Exit(1)
	}

	result, diags := pipehazard.Generate(raws, opts)
	failed := printDiagnostics(reporter, diags)
	if failed || result == nil {
		os.Exit(1)
	}

	if opts.Verbose {
		if err := writeReport(path, result); err != nil {
			color.Red("Failed to write report: %s", err)
			os.Exit(1)
		}
	}

	for _, a := range result.Model.Automata {
		name := a.Name
		if name == "" {
			name = fmt.Sprintf("#%d", a.Num)
		}
		fmt.Printf("automaton %s: %d states, %d equivalence classes\n",
			name, a.StatesNum, a.EquivClassesNum)
	}
	color.Green("✅ Successfully processed %s", path)
}

// printDiagnostics renders every diagnostic and reports whether any was
// an error.
func printDiagnostics(reporter *errors.Reporter, diags errors.Diagnostics) bool {
	for _, d := range diags.All() {
		fmt.Fprint(os.Stderr, reporter.Format(d))
	}
	return diags.HasErrors()
}

// writeReport writes the -v report next to the input file; a partially
// written report is removed.
func writeReport(path string, result *pipehazard.Result) error {
	reportPath := strings.TrimSuffix(path, ".pipe") + ".report"
	f, err := os.Create(reportPath)
	if err != nil {
		return err
	}
	w := &report.Writer{Timings: result.Timings}
	if err := w.Report(f, result.Description, result.Automata, result.Model); err != nil {
		f.Close()
		os.Remove(reportPath)
		return err
	}
	return f.Close()
}

// reportParseError prints a friendly caret-style parse error message.
func reportParseError(src string, err error) {
	pe, ok := err.(participle.Error)
	if !ok {
		color.Red("Unexpected error: %s", err)
		return
	}

	pos := pe.Position()
	lines := strings.Split(src, "\n")
	if pos.Line <= 0 || pos.Line > len(lines) {
		color.Red("Syntax error at unknown location: %s", err)
		return
	}

	line := lines[pos.Line-1]
	caret := strings.Repeat(" ", pos.Column-1) + "^"

	color.Red("❌ Syntax error in %s at line %d, column %d:", pos.Filename, pos.Line, pos.Column)
	fmt.Println(line)
	color.HiRed(caret)
	fmt.Printf("→ %s\n", pe.Message())
}
