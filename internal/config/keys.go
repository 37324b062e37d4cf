package config

import (
	"strings"

	"github.com/dshills/gramcheck/internal/analysis"
)

// Configuration keys.
const (
	KeyExecutable    = "analyzer.executable"
	KeyScript        = "analyzer.script"
	KeyArgs          = "analyzer.args"
	KeyFileFlag      = "analyzer.file-flag"
	KeyOnFlag        = "analyzer.options-on-flag"
	KeyOffFlag       = "analyzer.options-off-flag"
	KeyListArgs      = "analyzer.list-options-args"
	KeyOptionsRegex  = "analyzer.options-regex"
	KeyOptions       = "options"
	KeyAutoActive    = "auto-analyze.active"
	KeyAutoTimer     = "auto-analyze.timer"
	KeyWaitTicks     = "auto-analyze.wait-ticks"
	KeyIgnoredErrors = "ignored.errors"
	KeyIgnoredRules  = "ignored.rules"
	KeyLocale        = "locale"
	KeyFilterScript  = "filter.script"
	KeyMetadataPath  = "metadata.path"
)

// SpellingOption is the local option switching spelling findings on.
const SpellingOption = "_orth_"

// OptionKey returns the key of an analyzer option.
func OptionKey(name string) string {
	return KeyOptions + "." + name
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"analyzer": map[string]any{
			"executable":        "python3",
			"script":            "/opt/grammalecte/cli.py",
			"args":              []any{"-j", "-cl", "-owe", "-ctx"},
			"file-flag":         "-f",
			"options-on-flag":   "-on",
			"options-off-flag":  "-off",
			"list-options-args": []any{"-lo"},
			"options-regex":     analysis.DefaultOptionPattern,
		},
		"options": map[string]any{},
		"auto-analyze": map[string]any{
			"active":     false,
			"timer":      int64(500),
			"wait-ticks": int64(12),
		},
		"ignored": map[string]any{
			"errors": []any{},
			"rules":  []any{},
		},
		"locale": "en",
	}
}

// TriggersAnalysis reports whether a change to path can alter analysis
// results. Scheduling keys and the option listing do not. An empty path,
// as sent for reloads, always does.
func TriggersAnalysis(path string) bool {
	switch {
	case path == "":
		return true
	case path == "auto-analyze", strings.HasPrefix(path, "auto-analyze."):
		return false
	case path == KeyListArgs, path == KeyOptionsRegex, path == KeyMetadataPath:
		return false
	}
	return true
}
