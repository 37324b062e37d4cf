// Package loader reads configuration layers from files and the
// environment.
//
// Files are TOML unless their extension is .yaml or .yml. A missing file
// is not an error: loaders return a nil map.
package loader

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Loader reads one configuration source into a nested map.
type Loader interface {
	Load() (map[string]any, error)
}

// FileSystem is the file access loaders need.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte, perm fs.FileMode) error
	MkdirAll(path string, perm fs.FileMode) error
}

// OSFS is the real file system.
type OSFS struct{}

func (OSFS) ReadFile(path string) ([]byte, error) { return os.ReadFile(path) }

func (OSFS) WriteFile(path string, data []byte, perm fs.FileMode) error {
	return os.WriteFile(path, data, perm)
}

func (OSFS) MkdirAll(path string, perm fs.FileMode) error { return os.MkdirAll(path, perm) }

// Format is a configuration file syntax.
type Format string

const (
	FormatTOML Format = "toml"
	FormatYAML Format = "yaml"
)

// FormatOf picks the format from a file extension.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatTOML
	}
}

// ParseFormat parses a format name.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "toml", "":
		return FormatTOML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown config format %q", name)
	}
}

// FileLoader reads and writes one configuration file.
type FileLoader struct {
	fs   FileSystem
	path string
}

// NewFileLoader creates a loader for path on the OS file system.
func NewFileLoader(path string) *FileLoader {
	return NewFileLoaderWithFS(OSFS{}, path)
}

// NewFileLoaderWithFS creates a loader on a custom file system.
func NewFileLoaderWithFS(fsys FileSystem, path string) *FileLoader {
	return &FileLoader{fs: fsys, path: path}
}

// Path returns the file path.
func (l *FileLoader) Path() string { return l.path }

// Load reads the file. It returns nil, nil when the file does not exist.
func (l *FileLoader) Load() (map[string]any, error) {
	data, err := l.fs.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file %s: %w", l.path, err)
	}
	return Decode(FormatOf(l.path), l.path, data)
}

// Save writes data to the file, creating its directory.
func (l *FileLoader) Save(data map[string]any) error {
	out, err := Encode(FormatOf(l.path), data)
	if err != nil {
		return err
	}
	if err := l.fs.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := l.fs.WriteFile(l.path, out, 0o644); err != nil {
		return fmt.Errorf("writing config file %s: %w", l.path, err)
	}
	return nil
}

// Decode parses data in the given format. source names the input in
// errors.
func Decode(format Format, source string, data []byte) (map[string]any, error) {
	switch format {
	case FormatYAML:
		return decodeYAML(source, data)
	default:
		return decodeTOML(source, data)
	}
}

// Encode renders data in the given format.
func Encode(format Format, data map[string]any) ([]byte, error) {
	switch format {
	case FormatYAML:
		return encodeYAML(data)
	default:
		return encodeTOML(data)
	}
}

// ParseError reports a configuration file that could not be parsed.
type ParseError struct {
	Path    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
