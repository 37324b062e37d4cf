package checker

import (
	"fmt"

	"github.com/dshills/gramcheck/internal/config"
	"github.com/dshills/gramcheck/internal/finding"
)

// SuggestionsPerPage is how many suggestions a menu page holds before
// the rest move to a "more" page.
const SuggestionsPerPage = 6

// ActionKind identifies a quick fix.
type ActionKind int

const (
	ActionReplace ActionKind = iota
	ActionIgnoreRule
	ActionIgnoreError
	ActionAddToDictionary
	ActionSeeRule
)

// String returns the action name.
func (k ActionKind) String() string {
	switch k {
	case ActionReplace:
		return "replace"
	case ActionIgnoreRule:
		return "ignore-rule"
	case ActionIgnoreError:
		return "ignore-error"
	case ActionAddToDictionary:
		return "add"
	case ActionSeeRule:
		return "see-rule"
	default:
		return "unknown"
	}
}

// Action is one entry of a quick-fix menu.
type Action struct {
	Kind    ActionKind
	Label   string
	Enabled bool

	// Suggestion is the replacement text of ActionReplace.
	Suggestion string
}

// Menu lists the quick fixes for one finding.
type Menu struct {
	Record *finding.Record

	// Suggestions holds replacements, SuggestionsPerPage per page. It is
	// empty when the analyzer offered none.
	Suggestions [][]Action

	// Actions holds the remaining entries in display order.
	Actions []Action
}

// NewMenu builds the quick-fix menu for r.
func NewMenu(r *finding.Record) *Menu {
	m := &Menu{Record: r}
	for i, s := range r.Suggestions {
		if i%SuggestionsPerPage == 0 {
			m.Suggestions = append(m.Suggestions, nil)
		}
		page := len(m.Suggestions) - 1
		m.Suggestions[page] = append(m.Suggestions[page], Action{
			Kind:       ActionReplace,
			Label:      s,
			Enabled:    true,
			Suggestion: s,
		})
	}
	m.Actions = []Action{
		{Kind: ActionIgnoreRule, Label: "Ignore rule", Enabled: r.HasRule()},
		{Kind: ActionIgnoreError, Label: "Ignore error", Enabled: true},
		{Kind: ActionAddToDictionary, Label: "Add to dictionary", Enabled: r.Category == finding.Spelling},
		{Kind: ActionSeeRule, Label: "See the rule", Enabled: r.HasURL()},
	}
	return m
}

// Tooltip returns the tooltip text for the finding covering p: the
// context with the flagged text in brackets, then the description.
func (c *Checker) Tooltip(p finding.Point) (string, bool) {
	r, ok := c.At(p)
	if !ok {
		return "", false
	}
	ctx := r.Context
	return fmt.Sprintf("%s[%s]%s\n%s", ctx.Before, ctx.Flagged, ctx.After, r.Description), true
}

// QuickFixes returns the menu for the finding covering p.
func (c *Checker) QuickFixes(p finding.Point) (*Menu, bool) {
	r, ok := c.At(p)
	if !ok {
		return nil, false
	}
	return NewMenu(r), true
}

// Apply runs a quick fix on the finding covering p.
//
// A replacement only happens when the buffer still holds the flagged text
// under the finding. Ignoring a rule or an error writes to the document's
// configuration; adding a word writes to the user's.
func (c *Checker) Apply(p finding.Point, a Action) error {
	r, ok := c.At(p)
	if !ok {
		return ErrNoFinding
	}
	return c.apply(r, a)
}

func (c *Checker) apply(r *finding.Record, a Action) error {
	switch a.Kind {
	case ActionReplace:
		return c.replace(r, a.Suggestion)
	case ActionIgnoreRule:
		if !r.HasRule() {
			return ErrActionDisabled
		}
		return c.doc.AddValue(config.KeyIgnoredRules, r.RuleID, config.LevelDocument)
	case ActionIgnoreError:
		return c.doc.AddValue(config.KeyIgnoredErrors, config.ContextValue(r.Context), config.LevelDocument)
	case ActionAddToDictionary:
		if r.Category != finding.Spelling {
			return ErrActionDisabled
		}
		return c.doc.AddValue(config.KeyIgnoredErrors, config.ContextValue(r.Context), config.LevelUser)
	case ActionSeeRule:
		if !r.HasURL() {
			return ErrActionDisabled
		}
		if c.opener == nil {
			return ErrNoOpener
		}
		return c.opener(r.URL)
	default:
		return fmt.Errorf("%w: %s", ErrActionDisabled, a.Kind)
	}
}

func (c *Checker) replace(r *finding.Record, text string) error {
	c.mu.Lock()
	buf := c.buffer
	c.mu.Unlock()

	eb, ok := buf.(EditableBuffer)
	if !ok {
		return ErrNotEditable
	}
	current, err := eb.Slice(r.Span)
	if err != nil {
		return err
	}
	if current != r.Context.Flagged {
		return fmt.Errorf("%w: found %q, expected %q", ErrStale, current, r.Context.Flagged)
	}
	if err := eb.Replace(r.Span, text); err != nil {
		return err
	}
	c.Touch()
	return nil
}
