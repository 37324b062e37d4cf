package report

import (
	"errors"
	"fmt"
)

// ErrMalformed is returned when the analyzer output is not valid JSON.
var ErrMalformed = errors.New("malformed analyzer output")

// SchemaError reports analyzer output that is valid JSON but does not
// have the expected shape.
type SchemaError struct {
	// Path is the gjson path of the offending value.
	Path string

	// Reason describes what was expected.
	Reason string
}

func (e *SchemaError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("analyzer output: %s", e.Reason)
	}
	return fmt.Sprintf("analyzer output at %s: %s", e.Path, e.Reason)
}

// IsSchemaError reports whether err is or wraps a SchemaError.
func IsSchemaError(err error) bool {
	var se *SchemaError
	return errors.As(err, &se)
}
