package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrUnknownLevel is returned for a write level outside the chain.
	ErrUnknownLevel = errors.New("unknown configuration level")

	// ErrNotList is returned when a list operation targets a scalar.
	ErrNotList = errors.New("configuration value is not a list")
)

// TypeError reports a value of the wrong type.
type TypeError struct {
	Path     string
	Expected string
	Actual   string
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Path, e.Expected, e.Actual)
}

func typeName(v any) string {
	if v == nil {
		return "nil"
	}
	return fmt.Sprintf("%T", v)
}

// ValidationError reports settings that failed validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	var ve validator.ValidationErrors
	if !errors.As(e.Err, &ve) {
		return "invalid configuration: " + e.Err.Error()
	}
	parts := make([]string, len(ve))
	for i, fe := range ve {
		parts[i] = fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag())
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Fields returns the namespaced names of the failing fields.
func (e *ValidationError) Fields() []string {
	var ve validator.ValidationErrors
	if !errors.As(e.Err, &ve) {
		return nil
	}
	out := make([]string, len(ve))
	for i, fe := range ve {
		out[i] = fe.Namespace()
	}
	return out
}
