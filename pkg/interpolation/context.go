// Package interpolation implements Component J (spec.md §4.J):
// context-aware conversion of an interpolation-part array into a
// string. Grounded on the teacher's string-building helpers in
// runtime/execution (template.FuncMap-driven value-to-string
// conversion), generalized to mlld's six interpolation contexts.
package interpolation

// Context is the interpolation context tag named in spec.md §4.J.
type Context string

const (
	Default      Context = "Default"
	ShellCommand Context = "ShellCommand"
	JavaScript   Context = "JavaScript"
	Template     Context = "Template"
	Path         Context = "Path"
	Markdown     Context = "Markdown"
)
