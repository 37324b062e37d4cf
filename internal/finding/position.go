package finding

import (
	"cmp"
	"fmt"
)

// Point is a zero-based (line, column) position in a document.
type Point struct {
	Line   int
	Column int
}

// Compare orders points by line, then column.
func (p Point) Compare(o Point) int {
	if c := cmp.Compare(p.Line, o.Line); c != 0 {
		return c
	}
	return cmp.Compare(p.Column, o.Column)
}

// String returns the point as "line:column" with one-based numbers.
func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Line+1, p.Column+1)
}

// Span is the region of a document a finding covers.
type Span struct {
	Start Point
	End   Point
}

// Valid reports whether the span starts at or before its end and has no
// negative coordinates.
func (s Span) Valid() bool {
	if s.Start.Line < 0 || s.Start.Column < 0 || s.End.Line < 0 || s.End.Column < 0 {
		return false
	}
	return s.Start.Compare(s.End) <= 0
}

// Contains reports whether p lies within the span.
//
// Lines strictly between the start and end lines are covered in full. On
// a multi-line span the start line is covered from the start column on
// and the end line up to the end column. A single-line span covers the
// columns from start to end inclusive.
func (s Span) Contains(p Point) bool {
	switch {
	case s.Start.Line < p.Line && p.Line < s.End.Line:
		return true
	case s.Start.Line != s.End.Line && p.Line == s.Start.Line:
		return s.Start.Column <= p.Column
	case s.Start.Line != s.End.Line && p.Line == s.End.Line:
		return p.Column <= s.End.Column
	case s.Start.Line == s.End.Line && p.Line == s.Start.Line:
		return s.Start.Column <= p.Column && p.Column <= s.End.Column
	}
	return false
}

// Locate returns zero when p lies within the span. Otherwise it returns
// the signed distance from p to the span start: the line difference when
// the lines differ, else the column difference. A negative result means
// the span starts before p.
func (s Span) Locate(p Point) int {
	if s.Contains(p) {
		return 0
	}
	if d := s.Start.Line - p.Line; d != 0 {
		return d
	}
	if d := s.Start.Column - p.Column; d != 0 {
		return d
	}
	// Start equals p but the span is inverted; keep searching later starts.
	return -1
}

// String returns the span as "start-end".
func (s Span) String() string {
	return s.Start.String() + "-" + s.End.String()
}
