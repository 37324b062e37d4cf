package analysis

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// scratch owns the three files used to talk to the analyzer: the input
// text, its standard output and its standard error. They are private to
// one dispatcher and are truncated at the start of every cycle.
type scratch struct {
	dir    string
	input  string
	output string
	errput string

	stdout *os.File
	stderr *os.File
}

func newScratch(parent string) (*scratch, error) {
	dir, err := os.MkdirTemp(parent, "gramcheck-")
	if err != nil {
		return nil, fmt.Errorf("create scratch directory: %w", err)
	}
	return &scratch{
		dir:    dir,
		input:  filepath.Join(dir, "input.txt"),
		output: filepath.Join(dir, "output.json"),
		errput: filepath.Join(dir, "errors.txt"),
	}, nil
}

// prepare writes text to the input file and opens empty output files for
// the analyzer.
func (s *scratch) prepare(text string) (stdout, stderr *os.File, err error) {
	s.closeHandles()

	if err := os.WriteFile(s.input, []byte(text), 0o600); err != nil {
		return nil, nil, fmt.Errorf("write analyzer input: %w", err)
	}
	if s.stdout, err = os.OpenFile(s.output, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600); err != nil {
		return nil, nil, fmt.Errorf("open analyzer output: %w", err)
	}
	if s.stderr, err = os.OpenFile(s.errput, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600); err != nil {
		s.closeHandles()
		return nil, nil, fmt.Errorf("open analyzer errors: %w", err)
	}
	return s.stdout, s.stderr, nil
}

// collect closes the output files and returns what the analyzer wrote.
func (s *scratch) collect() (stdout, stderr []byte, err error) {
	s.closeHandles()

	if stdout, err = os.ReadFile(s.output); err != nil {
		return nil, nil, fmt.Errorf("read analyzer output: %w", err)
	}
	if stderr, err = os.ReadFile(s.errput); err != nil {
		return nil, nil, fmt.Errorf("read analyzer errors: %w", err)
	}
	return stdout, stderr, nil
}

func (s *scratch) closeHandles() {
	if s.stdout != nil {
		_ = s.stdout.Close()
		s.stdout = nil
	}
	if s.stderr != nil {
		_ = s.stderr.Close()
		s.stderr = nil
	}
}

// release closes and removes every scratch file.
func (s *scratch) release() error {
	s.closeHandles()
	if err := os.RemoveAll(s.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove scratch directory: %w", err)
	}
	return nil
}
