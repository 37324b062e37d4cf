package checker

import "errors"

var (
	// ErrNoFinding is returned when no finding covers a position.
	ErrNoFinding = errors.New("no finding at position")

	// ErrStale is returned when the text under a finding no longer
	// matches the flagged text.
	ErrStale = errors.New("text under the finding has changed")

	// ErrNotEditable is returned for replacements in a read-only buffer.
	ErrNotEditable = errors.New("buffer is not editable")

	// ErrActionDisabled is returned for a quick fix the finding does not
	// offer.
	ErrActionDisabled = errors.New("action not available for this finding")

	// ErrNoOpener is returned by the see-rule action when no URL opener
	// is configured.
	ErrNoOpener = errors.New("no URL opener configured")

	// ErrClosed is returned by a closed Checker or Session.
	ErrClosed = errors.New("checker closed")

	// ErrOutOfRange is returned for a span outside the buffer.
	ErrOutOfRange = errors.New("span outside the buffer")
)
