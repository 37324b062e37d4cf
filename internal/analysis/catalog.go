package analysis

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

// DefaultOptionPattern matches one line of the analyzer's option listing:
// the option name, its default state and a description.
const DefaultOptionPattern = `^([a-zA-Z0-9]+):\s*(True|False)\s*(.*)$`

// ToolOption is an option the analyzer supports.
type ToolOption struct {
	Name        string
	Default     bool
	Description string
}

// Runner runs a command and returns its standard output.
type Runner func(ctx context.Context, argv []string) ([]byte, error)

// ExecRunner runs argv with os/exec.
func ExecRunner(ctx context.Context, argv []string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).Output()
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			return nil, &ExitError{Code: ee.ExitCode(), Stderr: strings.TrimSpace(string(ee.Stderr))}
		}
		return nil, &StartError{Argv: argv, Err: err}
	}
	return out, nil
}

// OptionCatalog lists the analyzer's options. Results are cached per
// command line and concurrent lookups for the same command share one
// analyzer run.
type OptionCatalog struct {
	run     Runner
	pattern *regexp.Regexp
	group   singleflight.Group

	mu    sync.Mutex
	cache map[string][]ToolOption
}

// NewOptionCatalog creates a catalog. An empty pattern selects
// DefaultOptionPattern and a nil runner selects ExecRunner.
func NewOptionCatalog(pattern string, run Runner) (*OptionCatalog, error) {
	if pattern == "" {
		pattern = DefaultOptionPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile option pattern: %w", err)
	}
	if re.NumSubexp() < 2 {
		return nil, fmt.Errorf("option pattern %q needs name and state groups", pattern)
	}
	if run == nil {
		run = ExecRunner
	}
	return &OptionCatalog{
		run:     run,
		pattern: re,
		cache:   make(map[string][]ToolOption),
	}, nil
}

// List returns the options reported by running the analyzer with
// listArgs.
func (c *OptionCatalog) List(ctx context.Context, snap Snapshot, listArgs []string) ([]ToolOption, error) {
	if snap.Executable == "" {
		return nil, fmt.Errorf("%w: empty executable", ErrInvalidSnapshot)
	}
	argv := []string{snap.Executable}
	if snap.Script != "" {
		argv = append(argv, snap.Script)
	}
	argv = append(argv, listArgs...)
	key := strings.Join(argv, "\x00")

	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		out, err := c.run(ctx, argv)
		if err != nil {
			return nil, err
		}
		opts := ParseOptions(out, c.pattern)
		c.mu.Lock()
		c.cache[key] = opts
		c.mu.Unlock()
		return opts, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]ToolOption), nil
}

// Invalidate forgets every cached listing.
func (c *OptionCatalog) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.cache)
}

// ParseOptions extracts options from listing output. Lines that do not
// match are ignored.
func ParseOptions(out []byte, pattern *regexp.Regexp) []ToolOption {
	var opts []ToolOption
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		m := pattern.FindStringSubmatch(strings.TrimSpace(sc.Text()))
		if m == nil {
			continue
		}
		opt := ToolOption{Name: m[1], Default: m[2] == "True"}
		if len(m) > 3 {
			opt.Description = strings.TrimSpace(m[3])
		}
		opts = append(opts, opt)
	}
	return opts
}
