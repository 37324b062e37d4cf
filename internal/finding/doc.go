// Package finding holds the records produced by one analysis of a
// document and the index used to look them up by cursor position.
//
// Positions are zero-based (line, column) pairs. A Span covers every
// position from its start to its end inclusive; see Span.Contains for the
// exact rule at the boundaries.
//
// An Index is built once per analysis result and handed to readers. It is
// never mutated after that, so it may be shared across goroutines.
package finding
