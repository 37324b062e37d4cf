package checker

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dshills/gramcheck/internal/finding"
)

// Buffer supplies the text of a document.
type Buffer interface {
	Text() string
}

// EditableBuffer is a Buffer that quick fixes can modify. Columns count
// characters from the start of the line.
type EditableBuffer interface {
	Buffer
	Slice(s finding.Span) (string, error)
	Replace(s finding.Span, text string) error
}

// TextBuffer is an in-memory EditableBuffer.
type TextBuffer struct {
	mu   sync.RWMutex
	text string
}

// NewTextBuffer creates a buffer holding text.
func NewTextBuffer(text string) *TextBuffer {
	return &TextBuffer{text: text}
}

// Text returns the whole buffer.
func (b *TextBuffer) Text() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.text
}

// SetText replaces the whole buffer.
func (b *TextBuffer) SetText(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
}

// Slice returns the text between the span's start and end.
func (b *TextBuffer) Slice(s finding.Span) (string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start, end, err := b.offsets(s)
	if err != nil {
		return "", err
	}
	return b.text[start:end], nil
}

// Replace substitutes text for the span.
func (b *TextBuffer) Replace(s finding.Span, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	start, end, err := b.offsets(s)
	if err != nil {
		return err
	}
	b.text = b.text[:start] + text + b.text[end:]
	return nil
}

func (b *TextBuffer) offsets(s finding.Span) (int, int, error) {
	if !s.Valid() {
		return 0, 0, fmt.Errorf("%w: %s", ErrOutOfRange, s)
	}
	start, ok := byteOffset(b.text, s.Start)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrOutOfRange, s)
	}
	end, ok := byteOffset(b.text, s.End)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %s", ErrOutOfRange, s)
	}
	return start, end, nil
}

// byteOffset converts a point to a byte offset. A column may equal the
// line length.
func byteOffset(text string, p finding.Point) (int, bool) {
	if p.Line < 0 || p.Column < 0 {
		return 0, false
	}
	offset := 0
	for range p.Line {
		i := strings.IndexByte(text[offset:], '\n')
		if i < 0 {
			return 0, false
		}
		offset += i + 1
	}
	line := text[offset:]
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = line[:i]
	}
	col := 0
	for i := range line {
		if col == p.Column {
			return offset + i, true
		}
		col++
	}
	if col == p.Column {
		return offset + len(line), true
	}
	return 0, false
}
