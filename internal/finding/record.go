package finding

import "strings"

// Category tells grammar findings apart from spelling findings.
type Category uint8

const (
	// Grammar marks a finding raised by a grammar rule.
	Grammar Category = iota
	// Spelling marks an unknown word.
	Spelling
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case Grammar:
		return "grammar"
	case Spelling:
		return "spelling"
	default:
		return "unknown"
	}
}

// SpellingOption is the option name carried by spelling findings. It is
// also the configuration switch that turns spelling findings on or off.
const SpellingOption = "_orth_"

// Context is the text around and under a finding. Two findings with equal
// contexts are the same finding for the purpose of ignore lists.
type Context struct {
	Before  string
	Flagged string
	After   string
}

// Slice returns the context as the three-element list stored in
// configuration.
func (c Context) Slice() []string {
	return []string{c.Before, c.Flagged, c.After}
}

// ContextFromSlice builds a Context from a three-element list. It reports
// false when the list has another length.
func ContextFromSlice(s []string) (Context, bool) {
	if len(s) != 3 {
		return Context{}, false
	}
	return Context{Before: s[0], Flagged: s[1], After: s[2]}, true
}

// Record is one finding positioned in a document.
type Record struct {
	Span

	Category Category

	// Option is the analyzer option that produced the finding, such as a
	// grammar rule family or SpellingOption.
	Option string

	// Description is the human-readable message.
	Description string

	Context Context

	// RuleID identifies the grammar rule; empty when the analyzer gave none.
	RuleID string

	// Suggestions lists replacement candidates in analyzer order. It is
	// never nil.
	Suggestions []string

	// URL points at documentation for the rule; empty when absent.
	URL string

	// Paragraph is the analyzer's paragraph number for the finding.
	Paragraph int
}

// HasRule reports whether the record carries a rule identifier.
func (r *Record) HasRule() bool {
	return r.RuleID != ""
}

// HasURL reports whether the record carries a documentation link.
func (r *Record) HasURL() bool {
	return r.URL != ""
}

// Summary returns a single-line description suitable for a tooltip.
func (r *Record) Summary() string {
	var b strings.Builder
	b.WriteString(r.Description)
	if len(r.Suggestions) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(r.Suggestions, ", "))
		b.WriteString(")")
	}
	return b.String()
}
