package loader

import (
	"errors"
	"fmt"

	"github.com/pelletier/go-toml/v2"
)

func decodeTOML(source string, data []byte) (map[string]any, error) {
	var config map[string]any
	if err := toml.Unmarshal(data, &config); err != nil {
		pe := &ParseError{Path: source, Message: err.Error(), Err: err}
		var de *toml.DecodeError
		if errors.As(err, &de) {
			pe.Line, pe.Column = de.Position()
		}
		return nil, pe
	}
	return config, nil
}

func encodeTOML(data map[string]any) ([]byte, error) {
	out, err := toml.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding toml: %w", err)
	}
	return out, nil
}
