// Package mlerr defines the typed error kinds the evaluation runtime raises.
//
// Every user-visible error carries a Span so the CLI can point back at the
// offending source location using the root environment's source cache.
package mlerr

import "fmt"

// Position is a single point in a source file.
type Position struct {
	Line   int
	Column int
	Offset int
}

// Span locates an error in a source document.
type Span struct {
	File  string
	Start Position
	End   Position
}

func (s Span) String() string {
	if s.File == "" {
		return fmt.Sprintf("%d:%d", s.Start.Line, s.Start.Column)
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Start.Line, s.Start.Column)
}

// IsZero reports whether the span was never populated. This mirrors the
// grammar-bug placeholder described in spec.md §4.I: a VariableReference
// with {start:0, end:0} carries a zero Span and is skipped rather than
// treated as a real source location.
func (s Span) IsZero() bool {
	return s.Start == Position{} && s.End == Position{}
}
