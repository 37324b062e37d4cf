package config

import (
	"maps"
	"slices"
	"time"

	"github.com/dshills/gramcheck/internal/analysis"
	"github.com/dshills/gramcheck/internal/config/layer"
	"github.com/dshills/gramcheck/internal/finding"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Settings is the resolved, typed configuration of one scope.
type Settings struct {
	Analyzer    AnalyzerSettings
	Options     map[string]bool
	AutoAnalyze AutoAnalyzeSettings

	// IgnoredErrors and IgnoredRules are unions over every layer.
	IgnoredErrors []finding.Context
	IgnoredRules  []string

	Locale       string `validate:"required,bcp47_language_tag"`
	FilterScript string
	MetadataPath string
}

// AnalyzerSettings describe how to run the analyzer.
type AnalyzerSettings struct {
	Executable   string `validate:"required"`
	Script       string
	Args         []string `validate:"dive,required"`
	FileFlag     string   `validate:"required"`
	OnFlag       string
	OffFlag      string
	ListArgs     []string `validate:"dive,required"`
	OptionsRegex string   `validate:"required"`
}

// AutoAnalyzeSettings control background analysis.
type AutoAnalyzeSettings struct {
	Active bool

	// Timer is the dispatcher tick period.
	Timer time.Duration `validate:"min=10ms"`

	// WaitTicks is how many idle ticks pass before a changed document is
	// analyzed.
	WaitTicks int `validate:"min=1"`
}

// Validate checks the settings.
func (s Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

// Spelling reports whether spelling findings are wanted.
func (s Settings) Spelling() bool {
	return s.Options[SpellingOption]
}

// Snapshot returns the analyzer configuration for a dispatch cycle.
func (s Settings) Snapshot() analysis.Snapshot {
	return analysis.Snapshot{
		Executable: s.Analyzer.Executable,
		Script:     s.Analyzer.Script,
		Args:       slices.Clone(s.Analyzer.Args),
		FileFlag:   s.Analyzer.FileFlag,
		OnFlag:     s.Analyzer.OnFlag,
		OffFlag:    s.Analyzer.OffFlag,
		Options:    maps.Clone(s.Options),
	}
}

// decodeSettings reads Settings from a merged map and the ignore list
// unions, then validates them.
func decodeSettings(merged map[string]any, ignoredErrors, ignoredRules []any) (Settings, error) {
	d := decoder{data: merged}
	s := Settings{
		Analyzer: AnalyzerSettings{
			Executable:   d.str(KeyExecutable),
			Script:       d.str(KeyScript),
			Args:         d.strs(KeyArgs),
			FileFlag:     d.str(KeyFileFlag),
			OnFlag:       d.str(KeyOnFlag),
			OffFlag:      d.str(KeyOffFlag),
			ListArgs:     d.strs(KeyListArgs),
			OptionsRegex: d.str(KeyOptionsRegex),
		},
		Options: d.options(),
		AutoAnalyze: AutoAnalyzeSettings{
			Active:    d.boolean(KeyAutoActive),
			Timer:     d.millis(KeyAutoTimer),
			WaitTicks: d.integer(KeyWaitTicks),
		},
		Locale:       d.str(KeyLocale),
		FilterScript: d.str(KeyFilterScript),
		MetadataPath: d.str(KeyMetadataPath),
	}

	for _, entry := range ignoredErrors {
		parts, ok := stringList(entry)
		if !ok {
			continue
		}
		if ctx, ok := finding.ContextFromSlice(parts); ok {
			s.IgnoredErrors = append(s.IgnoredErrors, ctx)
		}
	}
	for _, entry := range ignoredRules {
		if rule, ok := entry.(string); ok && rule != "" {
			s.IgnoredRules = append(s.IgnoredRules, rule)
		}
	}

	if d.err != nil {
		return Settings{}, d.err
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// decoder reads typed values from a merged map and keeps the first type
// error.
type decoder struct {
	data map[string]any
	err  error
}

func (d *decoder) get(path string) (any, bool) {
	v, ok := layer.GetByPath(d.data, path)
	return v, ok && v != nil
}

func (d *decoder) fail(path, expected string, v any) {
	if d.err == nil {
		d.err = &TypeError{Path: path, Expected: expected, Actual: typeName(v)}
	}
}

func (d *decoder) str(path string) string {
	v, ok := d.get(path)
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		d.fail(path, "string", v)
	}
	return s
}

func (d *decoder) strs(path string) []string {
	v, ok := d.get(path)
	if !ok {
		return nil
	}
	out, ok := stringList(v)
	if !ok {
		d.fail(path, "list of strings", v)
	}
	return out
}

func (d *decoder) boolean(path string) bool {
	v, ok := d.get(path)
	if !ok {
		return false
	}
	b, ok := v.(bool)
	if !ok {
		d.fail(path, "boolean", v)
	}
	return b
}

func (d *decoder) integer(path string) int {
	v, ok := d.get(path)
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		if n == float64(int(n)) {
			return int(n)
		}
	}
	d.fail(path, "integer", v)
	return 0
}

// millis reads a duration given as milliseconds or as a duration string.
func (d *decoder) millis(path string) time.Duration {
	v, ok := d.get(path)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case time.Duration:
		return t
	case string:
		dur, err := time.ParseDuration(t)
		if err != nil {
			d.fail(path, "duration", v)
		}
		return dur
	}
	return time.Duration(d.integer(path)) * time.Millisecond
}

func (d *decoder) options() map[string]bool {
	out := make(map[string]bool)
	v, ok := d.get(KeyOptions)
	if !ok {
		return out
	}
	m, ok := v.(map[string]any)
	if !ok {
		d.fail(KeyOptions, "table", v)
		return out
	}
	for name, val := range m {
		b, ok := val.(bool)
		if !ok {
			d.fail(OptionKey(name), "boolean", val)
			continue
		}
		out[name] = b
	}
	return out
}

func stringList(v any) ([]string, bool) {
	switch l := v.(type) {
	case []string:
		return slices.Clone(l), true
	case []any:
		out := make([]string, len(l))
		for i, item := range l {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out[i] = s
		}
		return out, true
	}
	return nil, false
}

// ContextValue converts an ignored error to the list form it is stored
// in.
func ContextValue(c finding.Context) any {
	return []any{c.Before, c.Flagged, c.After}
}
