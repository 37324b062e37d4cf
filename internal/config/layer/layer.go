// Package layer stacks configuration sources by priority.
//
// Each layer holds a nested map. Lookups resolve from the highest priority
// layer down; Merge folds every layer into one map with higher layers
// winning. List values can also be read as the union of every layer,
// which is how ignore lists accumulate from document to system scope.
package layer

import (
	"time"
)

// Layer is one configuration source.
type Layer struct {
	// Name identifies the layer, such as "user" or "document".
	Name string

	// Priority orders layers; higher overrides lower.
	Priority int

	Source Source

	// Path is the file the layer was read from, if any.
	Path string

	// Data is the nested value map.
	Data map[string]any

	ModTime time.Time

	// ReadOnly layers reject writes.
	ReadOnly bool
}

// NewLayer creates an empty layer.
func NewLayer(name string, source Source, priority int) *Layer {
	return NewLayerWithData(name, source, priority, make(map[string]any))
}

// NewLayerWithData creates a layer holding data.
func NewLayerWithData(name string, source Source, priority int, data map[string]any) *Layer {
	if data == nil {
		data = make(map[string]any)
	}
	return &Layer{
		Name:     name,
		Source:   source,
		Priority: priority,
		Data:     data,
		ModTime:  time.Now(),
	}
}

// Clone returns a deep copy of the layer.
func (l *Layer) Clone() *Layer {
	c := *l
	c.Data = cloneMap(l.Data)
	return &c
}

// Source tells where a layer came from.
type Source uint8

const (
	// SourceBuiltin is the compiled-in defaults.
	SourceBuiltin Source = iota
	// SourceSystem is the machine-wide file.
	SourceSystem
	// SourceUser is the per-user file.
	SourceUser
	// SourceEnv is GRAMCHECK_* environment variables.
	SourceEnv
	// SourceDocument is configuration stored with one document.
	SourceDocument
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceBuiltin:
		return "builtin"
	case SourceSystem:
		return "system"
	case SourceUser:
		return "user"
	case SourceEnv:
		return "environment"
	case SourceDocument:
		return "document"
	default:
		return "unknown"
	}
}

func cloneMap(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, val := range src {
		dst[key] = cloneValue(val)
	}
	return dst
}

func cloneSlice(src []any) []any {
	if src == nil {
		return nil
	}
	dst := make([]any, len(src))
	for i, val := range src {
		dst[i] = cloneValue(val)
	}
	return dst
}

func cloneValue(val any) any {
	switch v := val.(type) {
	case map[string]any:
		return cloneMap(v)
	case []any:
		return cloneSlice(v)
	default:
		return val
	}
}
