package projector

import (
	"io"
	"log/slog"

	"github.com/dshills/gramcheck/internal/finding"
	"github.com/dshills/gramcheck/internal/report"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Policy is the per-document configuration applied during projection.
type Policy struct {
	// Spelling keeps spelling findings when true.
	Spelling bool

	// IgnoredErrors suppresses findings with a matching context.
	IgnoredErrors []finding.Context

	// IgnoredRules suppresses grammar findings by rule identifier.
	IgnoredRules []string

	// Filter, when set, is consulted for every remaining record.
	Filter Filter
}

// Result is the outcome of one projection.
type Result struct {
	// Index holds the kept records.
	Index *finding.Index

	// Skipped counts findings dropped for unusable positions.
	Skipped int

	// Suppressed counts findings hidden by policy.
	Suppressed int

	unused []finding.Context
}

// UnusedIgnores returns the ignore-list entries that matched no finding,
// in policy order. They are candidates for removal from configuration.
func (r *Result) UnusedIgnores() []finding.Context {
	return r.unused
}

// Projector converts reports to finding indexes.
type Projector struct {
	logger  *slog.Logger
	printer *message.Printer
}

// Option configures a Projector.
type Option func(*Projector)

// WithLogger sets the logger used for skipped-finding warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Projector) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithLanguage sets the language of generated descriptions.
func WithLanguage(tag language.Tag) Option {
	return func(p *Projector) {
		p.printer = message.NewPrinter(tag)
	}
}

// New creates a Projector.
func New(opts ...Option) *Projector {
	p := &Projector{
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		printer: message.NewPrinter(language.English),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Project builds a fresh index from rep under pol.
func (p *Projector) Project(rep report.Report, pol Policy) *Result {
	res := &Result{Index: finding.NewIndexWithCapacity(rep.Count())}

	ignored := make(map[finding.Context]bool, len(pol.IgnoredErrors))
	for _, c := range pol.IgnoredErrors {
		ignored[c] = false
	}
	rules := make(map[string]struct{}, len(pol.IgnoredRules))
	for _, id := range pol.IgnoredRules {
		rules[id] = struct{}{}
	}

	for _, para := range rep.Paragraphs {
		for i := range para.Grammar {
			p.add(res, pol, ignored, rules, &para.Grammar[i])
		}
		if !pol.Spelling {
			continue
		}
		for i := range para.Spelling {
			p.add(res, pol, ignored, rules, &para.Spelling[i])
		}
	}

	for _, c := range pol.IgnoredErrors {
		if !ignored[c] {
			res.unused = append(res.unused, c)
			// Report each duplicate entry once.
			ignored[c] = true
		}
	}
	return res
}

func (p *Projector) add(res *Result, pol Policy, ignored map[finding.Context]bool, rules map[string]struct{}, f *report.Finding) {
	rec, ok := p.record(f)
	if !ok {
		res.Skipped++
		return
	}

	if used, listed := ignored[rec.Context]; listed {
		if !used {
			ignored[rec.Context] = true
		}
		res.Suppressed++
		return
	}
	if _, listed := rules[rec.RuleID]; listed && rec.HasRule() {
		res.Suppressed++
		return
	}
	if pol.Filter != nil {
		keep, err := pol.Filter.Keep(rec)
		if err != nil {
			p.logger.Warn("finding filter failed", "finding", f.String(), "error", err)
		}
		if !keep {
			res.Suppressed++
			return
		}
	}

	res.Index.Insert(rec)
}

// record converts one raw finding. It reports false when the finding has
// missing or inconsistent positions.
func (p *Projector) record(f *report.Finding) (*finding.Record, bool) {
	if !f.Complete() {
		p.logger.Warn("skipping finding with missing position", "finding", f.String(), "missing", f.Missing)
		return nil, false
	}

	span := finding.Span{
		Start: finding.Point{Line: f.StartLine - 1, Column: f.StartColumn},
		End:   finding.Point{Line: f.EndLine - 1, Column: f.EndColumn},
	}
	if !span.Valid() {
		p.logger.Warn("skipping finding with invalid span", "finding", f.String())
		return nil, false
	}

	rec := &finding.Record{
		Span:        span,
		Suggestions: f.Suggestions,
		Paragraph:   f.Paragraph,
	}
	if rec.Suggestions == nil {
		rec.Suggestions = []string{}
	}

	switch f.Kind {
	case report.KindSpelling:
		rec.Category = finding.Spelling
		rec.Option = finding.SpellingOption
		rec.Description = p.printer.Sprintf(unknownWord)
		rec.Context = finding.Context{Flagged: f.Value}
		if rec.Context.Flagged == "" {
			rec.Context.Flagged = f.Underlined
		}
	default:
		rec.Category = finding.Grammar
		rec.Option = f.Type
		rec.Description = f.Message
		rec.Context = finding.Context{Before: f.Before, Flagged: f.Underlined, After: f.After}
		rec.RuleID = f.RuleID
		rec.URL = f.URL
	}
	return rec, true
}
