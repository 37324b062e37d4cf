package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/dshills/gramcheck/internal/checker"
	"github.com/dshills/gramcheck/internal/config"
	"github.com/dshills/gramcheck/internal/config/loader"
	"github.com/dshills/gramcheck/internal/logging"
	"github.com/dshills/gramcheck/internal/metadata"
)

// Exit codes.
const (
	exitOK       = 0
	exitFindings = 1
	exitFailure  = 2
)

// exitError ends the process with code. err, when set, is printed.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err != nil {
		return e.err.Error()
	}
	return fmt.Sprintf("exit status %d", e.code)
}

func (e *exitError) Unwrap() error {
	return e.err
}

// app holds the state shared by every command.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	environ func() []string

	// Flags.
	systemFile   string
	userFile     string
	dotenv       []string
	logLevel     string
	logFormat    string
	color        string
	metadataPath string

	logger *slog.Logger
	system *config.System
	store  metadata.Store
}

func newApp(stdout, stderr io.Writer, environ func() []string) *app {
	return &app{
		stdout:     stdout,
		stderr:     stderr,
		environ:    environ,
		systemFile: config.DefaultSystemFile,
		userFile:   config.DefaultUserFile(),
		logLevel:   "warn",
		logFormat:  string(logging.FormatText),
		color:      colorAuto,
		logger:     logging.Discard(),
	}
}

// setup builds the logger and loads the configuration.
func (a *app) setup() error {
	format, err := logging.ParseFormat(a.logFormat)
	if err != nil {
		return err
	}
	a.logger = logging.New(logging.Config{
		Level:  logging.ParseLevel(a.logLevel),
		Format: format,
		Output: a.stderr,
	})

	envOpts := []loader.EnvOption{loader.WithEnviron(a.environ)}
	if len(a.dotenv) > 0 {
		envOpts = append(envOpts, loader.WithDotenv(a.dotenv...))
	}
	a.system = config.New(
		config.WithSystemFile(a.systemFile),
		config.WithUserFile(a.userFile),
		config.WithEnv(envOpts...),
		config.WithLogger(logging.Component(a.logger, "config")),
	)
	if err := a.system.Load(); err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	return nil
}

// documents opens the per-document metadata store on first use.
func (a *app) documents() (metadata.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	path := a.metadataPath
	if path == "" {
		settings, err := a.system.Settings()
		if err != nil {
			return nil, err
		}
		path = settings.MetadataPath
	}
	if path == "" {
		dir, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("locate metadata directory: %w", err)
		}
		path = filepath.Join(dir, "gramcheck", "documents")
	}
	store, err := metadata.OpenBadger(metadata.BadgerConfig{
		Path:   path,
		Logger: logging.Component(a.logger, "metadata"),
	})
	if err != nil {
		return nil, err
	}
	a.store = store
	return store, nil
}

// document returns the configuration scope of the file at path.
func (a *app) document(path string) (*config.Document, error) {
	uri, err := documentURI(path)
	if err != nil {
		return nil, err
	}
	store, err := a.documents()
	if err != nil {
		return nil, err
	}
	return a.system.Document(uri, store), nil
}

func (a *app) session(opts ...checker.SessionOption) (*checker.Session, error) {
	store, err := a.documents()
	if err != nil {
		return nil, err
	}
	all := append([]checker.SessionOption{checker.WithLogger(a.logger)}, opts...)
	return checker.NewSession(a.system, store, all...)
}

func (a *app) getenv(key string) string {
	prefix := key + "="
	for _, kv := range a.environ() {
		if v, ok := strings.CutPrefix(kv, prefix); ok {
			return v
		}
	}
	return ""
}

func (a *app) close() error {
	var errs []error
	if a.store != nil {
		errs = append(errs, a.store.Close())
		a.store = nil
	}
	if a.system != nil {
		errs = append(errs, a.system.Close())
		a.system = nil
	}
	return errors.Join(errs...)
}

// documentURI returns the file URI under which path's document settings
// are stored.
func documentURI(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String(), nil
}

// parseLevel parses a configuration level name.
func parseLevel(name string) (config.Level, error) {
	for _, l := range []config.Level{config.LevelDocument, config.LevelUser, config.LevelSystem} {
		if strings.EqualFold(name, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("unknown level %q (want document, user or system)", name)
}
