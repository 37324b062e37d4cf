package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/dshills/gramcheck/internal/config/layer"
	"github.com/dshills/gramcheck/internal/config/loader"
	"github.com/dshills/gramcheck/internal/config/notify"
	"github.com/dshills/gramcheck/internal/config/watcher"
)

// Level selects the layer a write goes to, counted from the document.
type Level int

const (
	LevelDocument Level = iota
	LevelUser
	LevelSystem
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelDocument:
		return "document"
	case LevelUser:
		return "user"
	case LevelSystem:
		return "system"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Layer names.
const (
	layerDefaults = "defaults"
	layerSystem   = "system"
	layerUser     = "user"
	layerEnv      = "environment"
)

// DefaultSystemFile is the machine-wide configuration file.
const DefaultSystemFile = "/etc/gramcheck/config.toml"

// DefaultUserFile returns the per-user configuration file, under the XDG
// configuration directory.
func DefaultUserFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "gramcheck", "config.toml")
}

// System is the global configuration: defaults, the system and user
// files, and the environment.
type System struct {
	layers   *layer.Manager
	notifier *notify.Notifier
	logger   *slog.Logger

	systemFile string
	userFile   string
	env        []loader.EnvOption

	mu      sync.Mutex
	watcher *watcher.Watcher
}

// Option configures a System.
type Option func(*System)

// WithSystemFile sets the system file. Empty disables it.
func WithSystemFile(path string) Option {
	return func(s *System) { s.systemFile = path }
}

// WithUserFile sets the user file. Empty disables it.
func WithUserFile(path string) Option {
	return func(s *System) { s.userFile = path }
}

// WithEnv passes options to the environment loader.
func WithEnv(opts ...loader.EnvOption) Option {
	return func(s *System) { s.env = append(s.env, opts...) }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *System) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a System holding only the defaults. Call Load to read the
// files and the environment.
func New(opts ...Option) *System {
	s := &System{
		layers:     layer.NewManager(),
		notifier:   notify.New(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		systemFile: DefaultSystemFile,
		userFile:   DefaultUserFile(),
	}
	for _, opt := range opts {
		opt(s)
	}

	defaults := layer.NewLayerWithData(layerDefaults, layer.SourceBuiltin, layer.PriorityBuiltin, Defaults())
	defaults.ReadOnly = true
	s.layers.AddLayer(defaults)

	sys := layer.NewLayer(layerSystem, layer.SourceSystem, layer.PrioritySystem)
	sys.Path = s.systemFile
	s.layers.AddLayer(sys)

	user := layer.NewLayer(layerUser, layer.SourceUser, layer.PriorityUser)
	user.Path = s.userFile
	s.layers.AddLayer(user)

	env := layer.NewLayer(layerEnv, layer.SourceEnv, layer.PriorityEnv)
	env.ReadOnly = true
	s.layers.AddLayer(env)
	return s
}

// Load reads the system and user files and the environment.
func (s *System) Load() error {
	for _, name := range []string{layerSystem, layerUser} {
		if err := s.loadFile(name); err != nil {
			return err
		}
	}
	data, err := loader.NewEnvLoader(loader.EnvPrefix, s.env...).Load()
	if err != nil {
		return err
	}
	return s.layers.Replace(layerEnv, data)
}

func (s *System) loadFile(name string) error {
	path := s.fileOf(name)
	if path == "" {
		return nil
	}
	data, err := loader.NewFileLoader(path).Load()
	if err != nil {
		return err
	}
	return s.layers.Replace(name, data)
}

func (s *System) fileOf(name string) string {
	switch name {
	case layerSystem:
		return s.systemFile
	case layerUser:
		return s.userFile
	}
	return ""
}

// Reload rereads the file layer loaded from path and publishes a change
// for every key that differs.
func (s *System) Reload(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	for _, name := range []string{layerSystem, layerUser} {
		file := s.fileOf(name)
		if file == "" {
			continue
		}
		if fileAbs, _ := filepath.Abs(file); fileAbs != abs {
			continue
		}

		before := s.layers.Layer(name).Data
		if err := s.loadFile(name); err != nil {
			return err
		}
		after := s.layers.Layer(name).Data
		s.publishDiff(name, before, after)
		s.logger.Info("configuration reloaded", "layer", name, "path", file)
		return nil
	}
	return fmt.Errorf("no configuration layer is read from %s", path)
}

// publishDiff announces every key that differs between two versions of
// a reloaded layer.
func (s *System) publishDiff(source string, before, after map[string]any) {
	added, modified, removed := layer.DiffMaps(before, after)
	batch := s.notifier.NewBatch()
	for _, path := range slices.Concat(added, modified, removed) {
		old, _ := layer.GetByPath(before, path)
		val, _ := layer.GetByPath(after, path)
		batch.Add(notify.Change{Path: path, Type: notify.ChangeReload, OldValue: old, NewValue: val, Source: source})
	}
	batch.Commit()
}

// Watch reloads the configuration files when they change on disk. Files
// whose directory does not exist are skipped.
func (s *System) Watch() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.watcher != nil {
		return nil
	}
	w, err := watcher.New(watcher.WithLogger(s.logger))
	if err != nil {
		return fmt.Errorf("start configuration watcher: %w", err)
	}
	for _, file := range []string{s.systemFile, s.userFile} {
		if file == "" {
			continue
		}
		if err := w.Watch(file); err != nil {
			s.logger.Debug("configuration file not watched", "path", file, "error", err)
		}
	}
	w.OnChange(func(ev watcher.Event) {
		if err := s.Reload(ev.Path); err != nil {
			s.logger.Warn("configuration reload failed", "path", ev.Path, "error", err)
		}
	})
	s.watcher = w
	return nil
}

// Close stops watching and delivering changes.
func (s *System) Close() error {
	s.mu.Lock()
	w := s.watcher
	s.watcher = nil
	s.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
	}
	s.notifier.Close()
	return err
}

// Notifier returns the change notifier shared with every Document.
func (s *System) Notifier() *notify.Notifier {
	return s.notifier
}

// Get returns the effective value at path.
func (s *System) Get(path string) (any, bool) {
	return layer.GetByPath(s.layers.Merge(), path)
}

// Source returns the name of the layer that provides path.
func (s *System) Source(path string) string {
	return s.layers.WhichLayer(path)
}

// Values returns the union of the lists at path.
func (s *System) Values(path string) []any {
	return s.layers.Values(path)
}

// Merged returns the merged global configuration.
func (s *System) Merged() map[string]any {
	return s.layers.Merge()
}

// Settings returns the typed global settings.
func (s *System) Settings() (Settings, error) {
	return decodeSettings(s.layers.Merge(), s.Values(KeyIgnoredErrors), s.Values(KeyIgnoredRules))
}

// layerFor maps a write level to a global layer.
func layerFor(level Level) (string, error) {
	switch level {
	case LevelUser:
		return layerUser, nil
	case LevelSystem:
		return layerSystem, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownLevel, level)
	}
}

// Set stores value at path on the user or system level. A change is
// published when the effective value changes.
func (s *System) Set(path string, value any, level Level) error {
	name, err := layerFor(level)
	if err != nil {
		return err
	}
	before, _ := s.Get(path)
	if _, err := s.layers.Set(name, path, value); err != nil {
		return err
	}
	if after, _ := s.Get(path); !layer.ValuesEqual(before, after) {
		s.notifier.NotifySet("", path, before, after, name)
	}
	return nil
}

// LevelValue returns the value path holds on the user or system level
// itself, ignoring the other layers.
func (s *System) LevelValue(path string, level Level) (any, bool) {
	name, err := layerFor(level)
	if err != nil {
		return nil, false
	}
	return layer.GetByPath(s.layers.Layer(name).Data, path)
}

// Unset removes path from the user or system level.
func (s *System) Unset(path string, level Level) error {
	name, err := layerFor(level)
	if err != nil {
		return err
	}
	old, _ := layer.GetByPath(s.layers.Layer(name).Data, path)
	changed, err := s.layers.Delete(name, path)
	if err != nil {
		return err
	}
	if changed {
		s.notifier.NotifyDelete("", path, old, name)
	}
	return nil
}

// AddValue appends value to the list at path on the given level unless
// it is already there.
func (s *System) AddValue(path string, value any, level Level) error {
	name, err := layerFor(level)
	if err != nil {
		return err
	}
	if err := s.checkList(name, path); err != nil {
		return err
	}
	changed, err := s.layers.Append(name, path, value)
	if err != nil {
		return err
	}
	if changed {
		s.notifier.NotifySet("", path, nil, value, name)
	}
	return nil
}

// RemoveValue removes value from the list at path on the given level.
func (s *System) RemoveValue(path string, value any, level Level) error {
	name, err := layerFor(level)
	if err != nil {
		return err
	}
	changed, err := s.layers.Remove(name, path, value)
	if err != nil {
		return err
	}
	if changed {
		s.notifier.NotifyDelete("", path, value, name)
	}
	return nil
}

func (s *System) checkList(name, path string) error {
	v, ok := layer.GetByPath(s.layers.Layer(name).Data, path)
	if !ok || v == nil {
		return nil
	}
	if _, ok := v.([]any); !ok {
		return fmt.Errorf("%w: %s", ErrNotList, path)
	}
	return nil
}

// Clear empties the user or system level.
func (s *System) Clear(level Level) error {
	name, err := layerFor(level)
	if err != nil {
		return err
	}
	if err := s.layers.ClearLayer(name); err != nil {
		return err
	}
	s.notifier.NotifyReload("", name)
	return nil
}

// Save writes the user or system level back to its file.
func (s *System) Save(level Level) error {
	name, err := layerFor(level)
	if err != nil {
		return err
	}
	path := s.fileOf(name)
	if path == "" {
		return fmt.Errorf("no file for the %s level", level)
	}
	return loader.NewFileLoader(path).Save(s.layers.Layer(name).Data)
}
