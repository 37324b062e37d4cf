package loader

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

func decodeYAML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := yaml.Unmarshal(data, &config); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var te *yaml.TypeError
		if errors.As(err, &te) && len(te.Errors) > 0 {
			pe.Message = te.Errors[0]
		}
		return nil, pe
	}
	return normalizeYAML(config).(map[string]any), nil
}

// normalizeYAML converts integer widths the way the TOML decoder reports
// them so both formats decode to the same values.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		if t == nil {
			return map[string]any{}
		}
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	case int:
		return int64(t)
	default:
		return v
	}
}

func encodeYAML(data map[string]any) ([]byte, error) {
	out, err := yaml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding yaml: %w", err)
	}
	return out, nil
}
