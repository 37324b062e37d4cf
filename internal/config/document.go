package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/dshills/gramcheck/internal/config/layer"
	"github.com/dshills/gramcheck/internal/metadata"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// sourceDocument names the document layer in change notifications.
const sourceDocument = "document"

// Document is the configuration of one document: its own JSON object in
// the metadata store, falling back to the System.
type Document struct {
	uri    string
	store  metadata.Store
	system *System

	mu sync.Mutex
}

// Document returns the configuration of the document at uri.
func (s *System) Document(uri string, store metadata.Store) *Document {
	return &Document{uri: uri, store: store, system: s}
}

// URI returns the document URI.
func (d *Document) URI() string {
	return d.uri
}

// System returns the global configuration the document falls back to.
func (d *Document) System() *System {
	return d.system
}

// raw returns the stored JSON object, or an empty one.
func (d *Document) raw() (string, error) {
	data, err := d.store.Get(d.uri)
	if errors.Is(err, metadata.ErrNotFound) {
		return "{}", nil
	}
	if err != nil {
		return "", fmt.Errorf("read document configuration: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return "", fmt.Errorf("document configuration for %s is not valid JSON", d.uri)
	}
	return string(data), nil
}

func (d *Document) put(raw string) error {
	if err := d.store.Put(d.uri, []byte(raw)); err != nil {
		return fmt.Errorf("write document configuration: %w", err)
	}
	return nil
}

// Local returns the document's own values.
func (d *Document) Local() (map[string]any, error) {
	raw, err := d.raw()
	if err != nil {
		return nil, err
	}
	m, _ := gjson.Parse(raw).Value().(map[string]any)
	if m == nil {
		m = make(map[string]any)
	}
	return m, nil
}

// Get returns the value at path, from the document when it has one and
// from the System otherwise. Tables present on both merge.
func (d *Document) Get(path string) (any, bool) {
	global, globalOK := d.system.Get(path)

	raw, err := d.raw()
	if err != nil {
		return global, globalOK
	}
	res := gjson.Get(raw, path)
	if !res.Exists() {
		return global, globalOK
	}
	local := res.Value()
	if lm, ok := local.(map[string]any); ok {
		if gm, ok := global.(map[string]any); ok {
			return layer.DeepMerge(gm, lm), true
		}
	}
	return local, true
}

// Values returns the union of the lists at path: document entries first,
// then the global ones.
func (d *Document) Values(path string) []any {
	var out []any
	if raw, err := d.raw(); err == nil {
		if res := gjson.Get(raw, path); res.IsArray() {
			for _, item := range res.Array() {
				out = appendUnique(out, item.Value())
			}
		}
	}
	for _, item := range d.system.Values(path) {
		out = appendUnique(out, item)
	}
	return out
}

// LocalValues returns the list at path stored on the document itself.
func (d *Document) LocalValues(path string) []any {
	raw, err := d.raw()
	if err != nil {
		return nil
	}
	list, _ := gjson.Get(raw, path).Value().([]any)
	return list
}

func appendUnique(list []any, v any) []any {
	if slices.ContainsFunc(list, func(x any) bool { return layer.ValuesEqual(x, v) }) {
		return list
	}
	return append(list, v)
}

// Settings returns the typed settings of the document.
func (d *Document) Settings() (Settings, error) {
	local, err := d.Local()
	if err != nil {
		return Settings{}, err
	}
	merged := layer.DeepMerge(d.system.Merged(), local)
	return decodeSettings(merged, d.Values(KeyIgnoredErrors), d.Values(KeyIgnoredRules))
}

// Set stores value at path on the given level.
func (d *Document) Set(path string, value any, level Level) error {
	if level != LevelDocument {
		return d.system.Set(path, value, level)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.raw()
	if err != nil {
		return err
	}
	prev := gjson.Get(raw, path)
	var old any
	if prev.Exists() {
		old = prev.Value()
		if layer.ValuesEqual(old, value) {
			return nil
		}
	}
	if raw, err = sjson.Set(raw, path, value); err != nil {
		return fmt.Errorf("set %s: %w", path, err)
	}
	if err := d.put(raw); err != nil {
		return err
	}
	d.system.notifier.NotifySet(d.uri, path, old, value, sourceDocument)
	return nil
}

// Unset removes path from the document.
func (d *Document) Unset(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.raw()
	if err != nil {
		return err
	}
	prev := gjson.Get(raw, path)
	if !prev.Exists() {
		return nil
	}
	if raw, err = sjson.Delete(raw, path); err != nil {
		return fmt.Errorf("unset %s: %w", path, err)
	}
	if err := d.put(raw); err != nil {
		return err
	}
	d.system.notifier.NotifyDelete(d.uri, path, prev.Value(), sourceDocument)
	return nil
}

// AddValue appends value to the list at path on the given level unless
// it is already there.
func (d *Document) AddValue(path string, value any, level Level) error {
	if level != LevelDocument {
		return d.system.AddValue(path, value, level)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.raw()
	if err != nil {
		return err
	}
	res := gjson.Get(raw, path)
	switch {
	case !res.Exists(), res.Type == gjson.Null:
		raw, err = sjson.Set(raw, path, []any{value})
	case !res.IsArray():
		return fmt.Errorf("%w: %s", ErrNotList, path)
	default:
		list, _ := res.Value().([]any)
		if slices.ContainsFunc(list, func(x any) bool { return layer.ValuesEqual(x, value) }) {
			return nil
		}
		raw, err = sjson.Set(raw, path+".-1", value)
	}
	if err != nil {
		return fmt.Errorf("add to %s: %w", path, err)
	}
	if err := d.put(raw); err != nil {
		return err
	}
	d.system.notifier.NotifySet(d.uri, path, nil, value, sourceDocument)
	return nil
}

// RemoveValue removes value from the list at path on the given level.
func (d *Document) RemoveValue(path string, value any, level Level) error {
	if level != LevelDocument {
		return d.system.RemoveValue(path, value, level)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	raw, err := d.raw()
	if err != nil {
		return err
	}
	res := gjson.Get(raw, path)
	if !res.IsArray() {
		return nil
	}
	list, _ := res.Value().([]any)
	kept := slices.DeleteFunc(slices.Clone(list), func(x any) bool { return layer.ValuesEqual(x, value) })
	if len(kept) == len(list) {
		return nil
	}
	if raw, err = sjson.Set(raw, path, kept); err != nil {
		return fmt.Errorf("remove from %s: %w", path, err)
	}
	if err := d.put(raw); err != nil {
		return err
	}
	d.system.notifier.NotifyDelete(d.uri, path, value, sourceDocument)
	return nil
}

// Clear empties the given level. Clearing the document level deletes its
// stored entry.
func (d *Document) Clear(level Level) error {
	if level != LevelDocument {
		return d.system.Clear(level)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.store.Delete(d.uri); err != nil {
		return fmt.Errorf("clear document configuration: %w", err)
	}
	d.system.notifier.NotifyReload(d.uri, sourceDocument)
	return nil
}
