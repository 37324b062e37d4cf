package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// analyzerScript flags the first word of the input, fails on empty input
// and lists two options for -lo.
const analyzerScript = `#!/bin/sh
for arg in "$@"; do
  if [ "$arg" = "-lo" ]; then
    printf 'apos:    True  Apostrophe typographique\nnbsp:    False  Espaces insecables\n'
    exit 0
  fi
done
while [ $# -gt 0 ]; do
  if [ "$1" = "-f" ]; then input="$2"; fi
  shift
done
test -s "$input" || { echo "empty input" >&2; exit 3; }
word=$(head -n 1 "$input" | cut -d ' ' -f 1)
printf '{"data": [{"iParagraph": 1, "lGrammarErrors": [{"nStartY": 1, "nStartX": 0, "nEndY": 1, "nEndX": %d, "sUnderlined": "%s", "sMessage": "Premier mot.", "sRuleId": "first", "aSuggestions": ["Salut"]}], "lSpellingErrors": []}]}' ${#word} "$word"
`

type cli struct {
	t        *testing.T
	dir      string
	userFile string
	metadata string
}

func newCLI(t *testing.T) *cli {
	t.Helper()
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("no /bin/sh")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "analyzer.sh")
	require.NoError(t, os.WriteFile(script, []byte(analyzerScript), 0o755))

	c := &cli{
		t:        t,
		dir:      dir,
		userFile: filepath.Join(dir, "user", "config.toml"),
		metadata: filepath.Join(dir, "documents"),
	}
	c.write(c.userFile, `
[analyzer]
executable = "/bin/sh"
script = "`+script+`"

[auto-analyze]
timer = 10
`)
	return c
}

func (c *cli) write(path, content string) string {
	c.t.Helper()
	require.NoError(c.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(c.t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// run executes one gramcheck invocation and releases its resources.
func (c *cli) run(args ...string) (string, string, error) {
	c.t.Helper()
	var stdout, stderr bytes.Buffer
	a := newApp(&stdout, &stderr, func() []string {
		return []string{"GRAMCHECK_ANALYZER_FILE_FLAG=-f"}
	})
	cmd := newRootCmd(a)
	cmd.SetArgs(append([]string{
		"--system-config", "",
		"--user-config", c.userFile,
		"--metadata", c.metadata,
		"--color", "never",
	}, args...))
	err := cmd.ExecuteContext(context.Background())
	require.NoError(c.t, a.close())
	return stdout.String(), stderr.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	if err == nil {
		return exitOK
	}
	var ex *exitError
	require.ErrorAs(t, err, &ex)
	return ex.code
}

func TestCheck_TextOutput(t *testing.T) {
	c := newCLI(t)
	doc := c.write(filepath.Join(c.dir, "a.txt"), "Bonjour le monde.\n")

	out, _, err := c.run("check", doc)
	assert.Equal(t, exitFindings, exitCode(t, err))
	assert.Contains(t, out, doc+":1:1 grammar Premier mot. [first]")
	assert.Contains(t, out, "    Bonjour le monde.\n    ^^^^^^^\n")
	assert.Contains(t, out, "suggestions: Salut")
	assert.Contains(t, out, "1 finding in 1 file(s)")
}

func TestCheck_JSONOutput(t *testing.T) {
	c := newCLI(t)
	a := c.write(filepath.Join(c.dir, "a.txt"), "Bonjour le monde.\n")
	b := c.write(filepath.Join(c.dir, "b.txt"), "Salut.\n")

	out, _, err := c.run("check", "-o", "json", a, b, a)
	assert.Equal(t, exitFindings, exitCode(t, err))

	var got []jsonFinding
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, a, got[0].File)
	assert.Equal(t, "Bonjour", got[0].Flagged)
	assert.Equal(t, "1:1", got[0].Start)
	assert.Equal(t, "first", got[0].Rule)
	assert.Equal(t, "Salut.", got[1].Flagged)
}

func TestCheck_AnalysisFailure(t *testing.T) {
	c := newCLI(t)
	empty := c.write(filepath.Join(c.dir, "empty.txt"), "")

	out, _, err := c.run("check", empty)
	assert.Equal(t, exitFailure, exitCode(t, err))
	assert.Contains(t, out, "analysis failed:")
	assert.ErrorContains(t, err, "empty.txt")
}

func TestCheck_BadFormat(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("check", "-o", "xml", "a.txt")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestIgnore_ErrorForDocument(t *testing.T) {
	c := newCLI(t)
	doc := c.write(filepath.Join(c.dir, "a.txt"), "Bonjour le monde.\n")
	other := c.write(filepath.Join(c.dir, "b.txt"), "Bonjour encore.\n")

	_, _, err := c.run("ignore", "error", "", "Bonjour", "", "--file", doc)
	require.NoError(t, err)

	out, _, err := c.run("check", doc)
	assert.Equal(t, exitOK, exitCode(t, err))
	assert.Contains(t, out, "0 findings in 1 file(s)")

	_, _, err = c.run("check", other)
	assert.Equal(t, exitFindings, exitCode(t, err), "document ignores stay with their document")

	out, _, err = c.run("ignore", "list", "--file", doc)
	require.NoError(t, err)
	assert.Contains(t, out, "[Bonjour]")

	_, _, err = c.run("ignore", "error", "", "Bonjour", "", "--file", doc, "--remove")
	require.NoError(t, err)
	_, _, err = c.run("check", doc)
	assert.Equal(t, exitFindings, exitCode(t, err))
}

func TestIgnore_RuleForUser(t *testing.T) {
	c := newCLI(t)
	doc := c.write(filepath.Join(c.dir, "a.txt"), "Bonjour le monde.\n")

	_, _, err := c.run("ignore", "rule", "first")
	require.NoError(t, err)

	saved, err := os.ReadFile(c.userFile)
	require.NoError(t, err)
	assert.Contains(t, string(saved), "first")

	_, _, err = c.run("check", doc)
	assert.Equal(t, exitOK, exitCode(t, err))
}

func TestIgnore_DocumentLevelNeedsFile(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("ignore", "rule", "first", "--level", "document")
	assert.ErrorContains(t, err, "needs --file")
}

func TestConfig_SetGetShow(t *testing.T) {
	c := newCLI(t)
	doc := filepath.Join(c.dir, "a.txt")

	_, _, err := c.run("config", "set", "locale", "fr")
	require.NoError(t, err)
	out, _, err := c.run("config", "get", "locale", "--source")
	require.NoError(t, err)
	assert.Equal(t, "fr\tuser\n", out)

	_, _, err = c.run("config", "set", "locale", "de", "--file", doc)
	require.NoError(t, err)
	out, _, err = c.run("config", "get", "locale", "--file", doc, "--source")
	require.NoError(t, err)
	assert.Equal(t, "de\tdocument\n", out)

	out, _, err = c.run("config", "get", "analyzer.args")
	require.NoError(t, err)
	assert.Equal(t, "[-j, -cl, -owe, -ctx]\n", out)

	out, _, err = c.run("config", "show", "-o", "yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "locale: fr")

	out, _, err = c.run("config", "show", "--file", doc)
	require.NoError(t, err)
	assert.Regexp(t, `locale = ['"]de['"]`, out)

	_, _, err = c.run("config", "unset", "locale")
	require.NoError(t, err)
	out, _, err = c.run("config", "get", "locale")
	require.NoError(t, err)
	assert.Equal(t, "en\n", out)
}

func TestConfig_SetRejectsInvalid(t *testing.T) {
	c := newCLI(t)

	_, _, err := c.run("config", "set", "auto-analyze.wait-ticks", "0")
	require.Error(t, err)

	out, _, err := c.run("config", "get", "auto-analyze.wait-ticks")
	require.NoError(t, err)
	assert.Equal(t, "12\n", out)
}

func TestConfig_UnknownLevel(t *testing.T) {
	c := newCLI(t)
	_, _, err := c.run("config", "set", "locale", "fr", "--level", "global")
	assert.ErrorContains(t, err, "unknown level")
}

func TestOptions(t *testing.T) {
	c := newCLI(t)

	out, _, err := c.run("options")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "apos")
	assert.Contains(t, lines[0], "on")
	assert.Contains(t, lines[0], "(default)")
	assert.Contains(t, lines[1], "off")

	_, _, err = c.run("config", "set", "options.apos", "false")
	require.NoError(t, err)
	out, _, err = c.run("options")
	require.NoError(t, err)
	assert.Contains(t, out, "(user)")
}
