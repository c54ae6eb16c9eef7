package errors

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
)

// Level represents the severity of a diagnostic.
type Level string

const (
	Error   Level = "error"
	Warning Level = "warning"
)

// Position locates a diagnostic in source text. It is populated only by
// front-end collaborators (the parser); the core checker does not retain
// positions of its own, so Position is the zero value for
// core-originated diagnostics and HasPosition is false.
type Position struct {
	Filename string
	Line     int
	Column   int
}

// Diagnostic is a single error or warning raised by any phase of the
// pipeline. Name is the declaration at fault.
type Diagnostic struct {
	Level       Level
	Code        string
	Message     string
	Name        string
	Position    Position
	HasPosition bool
	Notes       []string
	Help        string
}

// Diagnostics accumulates diagnostics across one phase.
type Diagnostics struct {
	items []Diagnostic
}

func (d *Diagnostics) Add(diag Diagnostic) { d.items = append(d.items, diag) }

func (d *Diagnostics) All() []Diagnostic { return d.items }

func (d *Diagnostics) HasErrors() bool {
	for _, it := range d.items {
		if it.Level == Error {
			return true
		}
	}
	return false
}

func (d *Diagnostics) Errors() []Diagnostic {
	var out []Diagnostic
	for _, it := range d.items {
		if it.Level == Error {
			out = append(out, it)
		}
	}
	return out
}

func (d *Diagnostics) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, it := range d.items {
		if it.Level == Warning {
			out = append(out, it)
		}
	}
	return out
}

func (d *Diagnostics) Merge(other Diagnostics) {
	d.items = append(d.items, other.items...)
}

// Builder gives diagnostics a fluent construction style.
type Builder struct {
	diag Diagnostic
}

func New(level Level, code, message string) *Builder {
	return &Builder{diag: Diagnostic{Level: level, Code: code, Message: message}}
}

func NewError(code, message string) *Builder { return New(Error, code, message) }

func NewWarning(code, message string) *Builder { return New(Warning, code, message) }

func (b *Builder) At(name string) *Builder {
	b.diag.Name = name
	return b
}

func (b *Builder) WithPosition(pos Position) *Builder {
	b.diag.Position = pos
	b.diag.HasPosition = true
	return b
}

func (b *Builder) WithNote(note string) *Builder {
	b.diag.Notes = append(b.diag.Notes, note)
	return b
}

func (b *Builder) WithHelp(help string) *Builder {
	b.diag.Help = help
	return b
}

// Downgrade demotes the diagnostic to Warning when allowWarnings is true
// and the code is in the fixed warning-capable set; it
// is a no-op otherwise, leaving the diagnostic at Error severity.
func (b *Builder) Downgrade(allowWarnings bool) *Builder {
	if allowWarnings && IsWarningCapable(b.diag.Code) {
		b.diag.Level = Warning
	}
	return b
}

func (b *Builder) Build() Diagnostic { return b.diag }

// Reporter formats diagnostics for human consumption, Rust-style with a
// caret marker when a Position is available, or a compact "at NAME" line
// when it is not (core-originated diagnostics carry no position).
type Reporter struct {
	filename string
	lines    []string
}

func NewReporter(filename, source string) *Reporter {
	return &Reporter{filename: filename, lines: strings.Split(source, "\n")}
}

func (r *Reporter) Format(d Diagnostic) string {
	levelColor := r.levelColor(d.Level)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	var out strings.Builder
	header := levelColor(string(d.Level))
	if d.Code != "" {
		header = fmt.Sprintf("%s[%s]", header, d.Code)
	}
	out.WriteString(fmt.Sprintf("%s: %s\n", header, d.Message))

	if d.HasPosition && d.Position.Line > 0 && d.Position.Line <= len(r.lines) {
		width := r.lineNumberWidth(d.Position.Line)
		indent := strings.Repeat(" ", width)
		out.WriteString(fmt.Sprintf("%s %s %s:%d:%d\n", indent, dim("-->"), r.filename, d.Position.Line, d.Position.Column))
		out.WriteString(fmt.Sprintf("%s %s\n", indent, dim("│")))
		line := r.lines[d.Position.Line-1]
		out.WriteString(fmt.Sprintf("%s %s %s\n", bold(fmt.Sprintf("%*d", width, d.Position.Line)), dim("│"), line))
		marker := strings.Repeat(" ", max0(d.Position.Column-1)) + levelColor("^")
		out.WriteString(fmt.Sprintf("%s %s %s\n", indent, dim("│"), marker))
	} else if d.Name != "" {
		out.WriteString(fmt.Sprintf("  at %q\n", d.Name))
	}

	for _, note := range d.Notes {
		noteColor := color.New(color.FgBlue).SprintFunc()
		out.WriteString(fmt.Sprintf("  %s %s\n", noteColor("note:"), note))
	}
	if d.Help != "" {
		helpColor := color.New(color.FgGreen).SprintFunc()
		out.WriteString(fmt.Sprintf("  %s %s\n", helpColor("help:"), d.Help))
	}
	return out.String()
}

func (r *Reporter) levelColor(level Level) func(...interface{}) string {
	switch level {
	case Warning:
		return color.New(color.FgYellow, color.Bold).SprintFunc()
	default:
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
}

func (r *Reporter) lineNumberWidth(line int) int {
	width := len(fmt.Sprintf("%d", line))
	if width < 3 {
		width = 3
	}
	return width
}

func max0(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
