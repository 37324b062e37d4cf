package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// EnvPrefix is the prefix of gramcheck environment variables.
const EnvPrefix = "GRAMCHECK_"

// EnvLoader reads GRAMCHECK_* variables. Unmapped variables map their
// first segment to a section and the rest to a dashed key:
// GRAMCHECK_ANALYZER_FILE_FLAG sets analyzer.file-flag.
type EnvLoader struct {
	prefix  string
	mapping map[string]string
	dotenv  []string
	environ func() []string
}

// EnvOption configures an EnvLoader.
type EnvOption func(*EnvLoader)

// WithDotenv seeds the loader from dotenv files. Real environment
// variables win over dotenv entries. The process environment is not
// modified.
func WithDotenv(files ...string) EnvOption {
	return func(l *EnvLoader) {
		l.dotenv = append(l.dotenv, files...)
	}
}

// WithEnviron replaces os.Environ as the variable source.
func WithEnviron(environ func() []string) EnvOption {
	return func(l *EnvLoader) {
		l.environ = environ
	}
}

// NewEnvLoader creates a loader for prefix, which should include the
// trailing underscore.
func NewEnvLoader(prefix string, opts ...EnvOption) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		mapping: defaultEnvMapping(prefix),
		environ: os.Environ,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// defaultEnvMapping covers keys whose section name contains a dash.
func defaultEnvMapping(prefix string) map[string]string {
	return map[string]string{
		prefix + "AUTO_ANALYZE_ACTIVE":     "auto-analyze.active",
		prefix + "AUTO_ANALYZE_TIMER":      "auto-analyze.timer",
		prefix + "AUTO_ANALYZE_WAIT_TICKS": "auto-analyze.wait-ticks",
		prefix + "FILTER_SCRIPT":           "filter.script",
		prefix + "METADATA_PATH":           "metadata.path",
	}
}

// AddMapping maps a variable to a configuration path.
func (l *EnvLoader) AddMapping(envVar, path string) {
	l.mapping[envVar] = path
}

// Load returns the configuration held in the environment.
func (l *EnvLoader) Load() (map[string]any, error) {
	vars := make(map[string]string)
	for _, file := range l.dotenv {
		entries, err := godotenv.Read(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading dotenv file %s: %w", file, err)
		}
		for k, v := range entries {
			vars[k] = v
		}
	}
	for _, kv := range l.environ() {
		name, value, ok := strings.Cut(kv, "=")
		if ok {
			vars[name] = value
		}
	}

	config := make(map[string]any)
	for name, value := range vars {
		if !strings.HasPrefix(name, l.prefix) || len(name) == len(l.prefix) {
			continue
		}
		path, ok := l.mapping[name]
		if !ok {
			path = l.envToPath(name)
		}
		setByPath(config, path, parseValue(value))
	}
	return config, nil
}

// envToPath converts GRAMCHECK_ANALYZER_FILE_FLAG to analyzer.file-flag.
func (l *EnvLoader) envToPath(env string) string {
	name := strings.ToLower(strings.TrimPrefix(env, l.prefix))
	section, key, ok := strings.Cut(name, "_")
	if !ok {
		return section
	}
	if section == "options" {
		return section + "." + key
	}
	return section + "." + strings.ReplaceAll(key, "_", "-")
}

// parseValue types a variable value: booleans, integers, floats, JSON
// lists and objects, otherwise the string itself.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "":
		return s
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		var v any
		if err := json.Unmarshal([]byte(s), &v); err == nil {
			return v
		}
	}
	return s
}

func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
