package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/gramcheck/internal/report"
	"github.com/go-playground/validator/v10"
)

// Request is one unit of work submitted to a Dispatcher.
//
// Config and Text are read when the request reaches the head of the
// queue, not when it is submitted, so they reflect the latest document
// state. OnResult is called exactly once.
type Request interface {
	Config() Snapshot
	Text() string
	OnResult(rep report.Report)
}

// Starter is implemented by requests that want to know when their
// analyzer process has been started.
type Starter interface {
	OnStart()
}

// FailureObserver is implemented by requests that want the cause of a
// failed analysis. OnFailure is called before the empty OnResult.
type FailureObserver interface {
	OnFailure(err error)
}

var validate = validator.New()

// Snapshot is the analyzer configuration a request runs with.
type Snapshot struct {
	// Executable is the program to run, such as "python3".
	Executable string `validate:"required"`

	// Script is passed as the first argument when set.
	Script string

	// Args are fixed flags placed after the script.
	Args []string `validate:"dive,required"`

	// FileFlag precedes the path of the input file.
	FileFlag string `validate:"required"`

	// OnFlag and OffFlag introduce the enabled and disabled options.
	// Options are not passed when the matching flag is empty.
	OnFlag  string
	OffFlag string

	// Options maps analyzer option names to their state.
	Options map[string]bool
}

// Validate checks that the snapshot can form a command line.
func (s Snapshot) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}
	return nil
}

// IsLocalOption reports whether an option name is a local switch rather
// than an analyzer option. Local switches are wrapped in underscores,
// like the spelling switch "_orth_", and are never passed to the
// analyzer.
func IsLocalOption(name string) bool {
	return len(name) > 2 && strings.HasPrefix(name, "_") && strings.HasSuffix(name, "_")
}

// Toggles returns the analyzer options split by state, each sorted.
func (s Snapshot) Toggles() (on, off []string) {
	for name, enabled := range s.Options {
		if IsLocalOption(name) {
			continue
		}
		if enabled {
			on = append(on, name)
		} else {
			off = append(off, name)
		}
	}
	sort.Strings(on)
	sort.Strings(off)
	return on, off
}

// Command returns the analyzer argv for the given input file.
func (s Snapshot) Command(inputPath string) []string {
	argv := []string{s.Executable}
	if s.Script != "" {
		argv = append(argv, s.Script)
	}
	argv = append(argv, s.Args...)

	on, off := s.Toggles()
	if s.OnFlag != "" && len(on) > 0 {
		argv = append(argv, s.OnFlag)
		argv = append(argv, on...)
	}
	if s.OffFlag != "" && len(off) > 0 {
		argv = append(argv, s.OffFlag)
		argv = append(argv, off...)
	}
	return append(argv, s.FileFlag, inputPath)
}

// Equal reports whether two snapshots would produce the same analysis.
func (s Snapshot) Equal(o Snapshot) bool {
	return s.Key() == o.Key()
}

// Key returns a stable string identifying the snapshot.
func (s Snapshot) Key() string {
	var b strings.Builder
	b.WriteString(s.Executable)
	b.WriteByte(0)
	b.WriteString(s.Script)
	for _, a := range s.Args {
		b.WriteByte(0)
		b.WriteString(a)
	}
	b.WriteByte(0)
	b.WriteString(s.FileFlag)
	b.WriteByte(0)
	b.WriteString(s.OnFlag)
	b.WriteByte(0)
	b.WriteString(s.OffFlag)

	names := make([]string, 0, len(s.Options))
	for name := range s.Options {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, "\x00%s=%t", name, s.Options[name])
	}
	return b.String()
}
