package layer

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

// ErrLayerNotFound is returned for writes to an unknown layer.
var ErrLayerNotFound = errors.New("layer not found")

// ErrReadOnly is returned for writes to a read-only layer.
var ErrReadOnly = errors.New("layer is read-only")

// Manager holds layers ordered by priority and caches their merge.
type Manager struct {
	mu     sync.RWMutex
	layers []*Layer // ascending priority
	merged map[string]any
	dirty  bool
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{dirty: true}
}

// AddLayer adds a layer, replacing any layer with the same name.
func (m *Manager) AddLayer(l *Layer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.layers = slices.DeleteFunc(m.layers, func(x *Layer) bool { return x.Name == l.Name })
	m.layers = append(m.layers, l)
	slices.SortStableFunc(m.layers, func(a, b *Layer) int { return a.Priority - b.Priority })
	m.dirty = true
}

// RemoveLayer removes a layer by name.
func (m *Manager) RemoveLayer(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.layers)
	m.layers = slices.DeleteFunc(m.layers, func(x *Layer) bool { return x.Name == name })
	if len(m.layers) == n {
		return false
	}
	m.dirty = true
	return true
}

// Layer returns a copy of the named layer, or nil.
func (m *Manager) Layer(name string) *Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if l := m.find(name); l != nil {
		return l.Clone()
	}
	return nil
}

// Layers returns copies of all layers in ascending priority.
func (m *Manager) Layers() []*Layer {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Layer, len(m.layers))
	for i, l := range m.layers {
		out[i] = l.Clone()
	}
	return out
}

// Merge folds all layers into one map. The result is a copy.
func (m *Manager) Merge() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dirty {
		merged := make(map[string]any)
		for _, l := range m.layers {
			merged = DeepMerge(merged, l.Data)
		}
		m.merged = merged
		m.dirty = false
	}
	return cloneMap(m.merged)
}

// Get returns the value at path from the highest layer that has it, and
// that layer's name.
func (m *Manager) Get(path string) (any, string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, l := range slices.Backward(m.layers) {
		if v, ok := GetByPath(l.Data, path); ok {
			return cloneValue(v), l.Name, true
		}
	}
	return nil, "", false
}

// Values returns the union of the lists at path across every layer,
// highest priority first, without duplicates.
func (m *Manager) Values(path string) []any {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []any
	for _, l := range slices.Backward(m.layers) {
		v, ok := GetByPath(l.Data, path)
		if !ok {
			continue
		}
		for _, item := range asList(v) {
			if !slices.ContainsFunc(out, func(x any) bool { return ValuesEqual(x, item) }) {
				out = append(out, cloneValue(item))
			}
		}
	}
	return out
}

// Set stores value at path in the named layer and returns the value it
// replaced.
func (m *Manager) Set(name, path string, value any) (old any, err error) {
	err = m.write(name, func(l *Layer) bool {
		old, _ = GetByPath(l.Data, path)
		SetByPath(l.Data, path, cloneValue(value))
		return true
	})
	return old, err
}

// Delete removes path from the named layer.
func (m *Manager) Delete(name, path string) (bool, error) {
	var changed bool
	err := m.write(name, func(l *Layer) bool {
		changed = DeleteByPath(l.Data, path)
		return changed
	})
	return changed, err
}

// Append adds value to the list at path in the named layer.
func (m *Manager) Append(name, path string, value any) (bool, error) {
	var changed bool
	err := m.write(name, func(l *Layer) bool {
		changed = AppendByPath(l.Data, path, value)
		return changed
	})
	return changed, err
}

// Remove drops value from the list at path in the named layer.
func (m *Manager) Remove(name, path string, value any) (bool, error) {
	var changed bool
	err := m.write(name, func(l *Layer) bool {
		changed = RemoveByPath(l.Data, path, value)
		return changed
	})
	return changed, err
}

// Replace swaps the data of the named layer. Read-only layers may be
// replaced; this is how file layers are reloaded.
func (m *Manager) Replace(name string, data map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.find(name)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	if data == nil {
		data = make(map[string]any)
	}
	l.Data = cloneMap(data)
	m.dirty = true
	return nil
}

// ClearLayer empties the named layer.
func (m *Manager) ClearLayer(name string) error {
	return m.write(name, func(l *Layer) bool {
		if len(l.Data) == 0 {
			return false
		}
		l.Data = make(map[string]any)
		return true
	})
}

// WhichLayer returns the name of the layer providing path.
func (m *Manager) WhichLayer(path string) string {
	_, name, _ := m.Get(path)
	return name
}

func (m *Manager) write(name string, fn func(*Layer) bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.find(name)
	if l == nil {
		return fmt.Errorf("%w: %s", ErrLayerNotFound, name)
	}
	if l.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, name)
	}
	if l.Data == nil {
		l.Data = make(map[string]any)
	}
	if fn(l) {
		m.dirty = true
	}
	return nil
}

func (m *Manager) find(name string) *Layer {
	for _, l := range m.layers {
		if l.Name == name {
			return l
		}
	}
	return nil
}
