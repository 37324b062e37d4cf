package checker

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dshills/gramcheck/internal/analysis"
	"github.com/dshills/gramcheck/internal/config"
	"github.com/dshills/gramcheck/internal/config/loader"
	"github.com/dshills/gramcheck/internal/finding"
	"github.com/dshills/gramcheck/internal/metadata"
	"github.com/dshills/gramcheck/internal/projector"
	"github.com/dshills/gramcheck/internal/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testURI   = "file:///tmp/lettre.txt"
	testText  = "Les chat mange.\nIl pleut.\n"
	waitTicks = 3
)

type fakeSubmitter struct {
	mu     sync.Mutex
	queue  []analysis.Request
	reject bool
}

func (f *fakeSubmitter) Submit(r analysis.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reject {
		return false
	}
	f.queue = append(f.queue, r)
	return true
}

func (f *fakeSubmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

func newTestSystem(t *testing.T) *config.System {
	t.Helper()
	sys := config.New(
		config.WithSystemFile(""),
		config.WithUserFile(filepath.Join(t.TempDir(), "config.toml")),
		config.WithEnv(loader.WithEnviron(func() []string { return nil })),
	)
	require.NoError(t, sys.Load())
	require.NoError(t, sys.Set(config.KeyWaitTicks, int64(waitTicks), config.LevelUser))
	require.NoError(t, sys.Set(config.KeyAutoActive, true, config.LevelUser))
	t.Cleanup(func() { sys.Close() })
	return sys
}

type fixture struct {
	checker *Checker
	sub     *fakeSubmitter
	system  *config.System
	store   *metadata.MemoryStore
	buffer  *TextBuffer
	updates []Update
}

func newFixture(t *testing.T, opts ...CheckerOption) *fixture {
	t.Helper()
	f := &fixture{
		sub:    &fakeSubmitter{},
		system: newTestSystem(t),
		store:  metadata.NewMemoryStore(),
		buffer: NewTextBuffer(testText),
	}
	opts = append(opts, OnUpdate(func(u Update) { f.updates = append(f.updates, u) }))
	c, err := NewChecker(f.system.Document(testURI, f.store), f.buffer, f.sub, projector.New(), opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	f.checker = c
	return f
}

// run plays one dispatch cycle the way the Dispatcher does.
func (f *fixture) run(rep report.Report) {
	f.checker.Config()
	f.checker.Text()
	f.checker.OnStart()
	f.checker.OnResult(rep)
}

func (f *fixture) ticks(n int) {
	for range n {
		f.checker.Tick()
	}
}

func grammarReport() report.Report {
	return report.Report{Paragraphs: []report.Paragraph{{
		Index: 1,
		Grammar: []report.Finding{{
			Kind:        report.KindGrammar,
			Paragraph:   1,
			StartLine:   1,
			StartColumn: 4,
			EndLine:     1,
			EndColumn:   8,
			Before:      "Les ",
			Underlined:  "chat",
			After:       " mange.",
			Message:     "Accord de nombre erroné.",
			Type:        "gn",
			RuleID:      "gn_les_nom",
			URL:         "https://grammalecte.net/rules#gn",
			Suggestions: []string{"chats"},
		}},
		Spelling: []report.Finding{{
			Kind:        report.KindSpelling,
			Paragraph:   1,
			StartLine:   2,
			StartColumn: 3,
			EndLine:     2,
			EndColumn:   8,
			Value:       "pleut",
		}},
	}}}
}

func TestChecker_IdleCountdown(t *testing.T) {
	f := newFixture(t)

	f.ticks(waitTicks - 1)
	assert.Equal(t, 0, f.sub.count())
	f.ticks(1)
	require.Equal(t, 1, f.sub.count())
	assert.True(t, f.checker.Requested())

	f.checker.Touch()
	f.ticks(2 * waitTicks)
	assert.Equal(t, 1, f.sub.count(), "a requested checker is not resubmitted")
}

func TestChecker_TouchRestartsCountdown(t *testing.T) {
	f := newFixture(t)

	f.ticks(waitTicks - 1)
	f.checker.Touch()
	f.ticks(waitTicks - 1)
	assert.Equal(t, 0, f.sub.count())
	f.ticks(1)
	assert.Equal(t, 1, f.sub.count())
}

func TestChecker_InactiveWaitsForAnalyze(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.system.Set(config.KeyAutoActive, false, config.LevelUser))

	f.ticks(4 * waitTicks)
	assert.Equal(t, 0, f.sub.count())

	assert.True(t, f.checker.Analyze())
	assert.False(t, f.checker.Analyze(), "second request while queued")
	assert.Equal(t, 1, f.sub.count())
}

func TestChecker_RejectedSubmission(t *testing.T) {
	f := newFixture(t)
	f.sub.reject = true

	assert.False(t, f.checker.Analyze())
	assert.False(t, f.checker.Requested())
}

func TestChecker_OnStartClearsRequested(t *testing.T) {
	f := newFixture(t)
	require.True(t, f.checker.Analyze())

	f.checker.Config()
	f.checker.Text()
	f.checker.OnStart()
	assert.False(t, f.checker.Requested())

	f.checker.Touch()
	f.ticks(waitTicks)
	assert.Equal(t, 2, f.sub.count(), "edits during analysis schedule another one")
}

func TestChecker_ResultBuildsIndex(t *testing.T) {
	f := newFixture(t)
	before := f.checker.Index()

	f.run(grammarReport())

	idx := f.checker.Index()
	assert.NotSame(t, before, idx)
	assert.Equal(t, 1, idx.Len(), "spelling is off by default")
	assert.Equal(t, uint64(1), f.checker.Generation())

	r, ok := f.checker.At(finding.Point{Line: 0, Column: 6})
	require.True(t, ok)
	assert.Equal(t, "gn_les_nom", r.RuleID)
	_, ok = f.checker.At(finding.Point{Line: 0, Column: 9})
	assert.False(t, ok)

	require.Len(t, f.updates, 1)
	assert.Same(t, idx, f.updates[0].Index)
	assert.Equal(t, testURI, f.updates[0].URI)
	assert.NoError(t, f.updates[0].Err)
}

func TestChecker_SpellingOption(t *testing.T) {
	f := newFixture(t)
	doc := f.checker.Document()
	require.NoError(t, doc.Set(config.OptionKey(config.SpellingOption), true, config.LevelDocument))

	f.run(grammarReport())
	assert.Equal(t, 2, f.checker.Index().Len())

	r, ok := f.checker.At(finding.Point{Line: 1, Column: 5})
	require.True(t, ok)
	assert.Equal(t, finding.Spelling, r.Category)
}

func TestChecker_ReplacedBufferDiscardsResult(t *testing.T) {
	f := newFixture(t)

	f.checker.Config()
	f.checker.Text()
	f.checker.OnStart()
	f.checker.SetBuffer(NewTextBuffer("Autre texte."))
	f.checker.OnResult(grammarReport())

	assert.Equal(t, 0, f.checker.Index().Len())
	assert.Equal(t, uint64(0), f.checker.Generation())
	assert.Empty(t, f.updates)
}

func TestChecker_FailureClearsIndex(t *testing.T) {
	f := newFixture(t)
	f.run(grammarReport())
	require.Equal(t, 1, f.checker.Index().Len())

	boom := &analysis.ExitError{Code: 1, Stderr: "Traceback"}
	f.checker.Config()
	f.checker.Text()
	f.checker.OnStart()
	f.checker.OnFailure(boom)
	f.checker.OnResult(report.Report{})

	assert.Equal(t, 0, f.checker.Index().Len())
	assert.ErrorIs(t, f.checker.LastFailure(), boom)
	require.Len(t, f.updates, 2)
	assert.ErrorIs(t, f.updates[1].Err, boom)

	f.run(grammarReport())
	assert.NoError(t, f.checker.LastFailure())
}

func TestChecker_ConfigChanges(t *testing.T) {
	f := newFixture(t)
	f.ticks(waitTicks)
	f.run(grammarReport())
	require.Equal(t, 1, f.sub.count())

	doc := f.checker.Document()
	require.NoError(t, doc.Set(config.KeyAutoTimer, int64(900), config.LevelDocument))
	require.NoError(t, f.system.Set(config.KeyListArgs, []any{"-lo", "-v"}, config.LevelUser))
	f.ticks(2 * waitTicks)
	assert.Equal(t, 1, f.sub.count(), "scheduling keys do not trigger analysis")

	other := f.system.Document("file:///tmp/other.txt", f.store)
	require.NoError(t, other.Set(config.OptionKey("apos"), true, config.LevelDocument))
	f.ticks(2 * waitTicks)
	assert.Equal(t, 1, f.sub.count(), "other documents do not trigger analysis")

	require.NoError(t, doc.Set(config.OptionKey("apos"), true, config.LevelDocument))
	f.ticks(waitTicks)
	assert.Equal(t, 2, f.sub.count())
	assert.True(t, f.checker.Settings().Options["apos"])
}

func TestChecker_IgnoredRulesApplied(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.checker.Document().AddValue(config.KeyIgnoredRules, "gn_les_nom", config.LevelDocument))

	f.run(grammarReport())
	assert.Equal(t, 0, f.checker.Index().Len())
}

func TestChecker_Pruning(t *testing.T) {
	f := newFixture(t, WithPruning(true))
	doc := f.checker.Document()

	used := finding.Context{Before: "Les ", Flagged: "chat", After: " mange."}
	stale := finding.Context{Flagged: "ancien"}
	global := finding.Context{Flagged: "Grammalecte"}
	require.NoError(t, doc.AddValue(config.KeyIgnoredErrors, config.ContextValue(used), config.LevelDocument))
	require.NoError(t, doc.AddValue(config.KeyIgnoredErrors, config.ContextValue(stale), config.LevelDocument))
	require.NoError(t, doc.AddValue(config.KeyIgnoredErrors, config.ContextValue(global), config.LevelUser))

	require.True(t, f.checker.Analyze())
	f.run(grammarReport())

	assert.Equal(t, 0, f.checker.Index().Len())
	require.Len(t, f.updates, 1)
	assert.Equal(t, []finding.Context{stale}, f.updates[0].Pruned)
	assert.Equal(t, []any{config.ContextValue(used)}, doc.LocalValues(config.KeyIgnoredErrors))
	assert.Len(t, f.system.Values(config.KeyIgnoredErrors), 1, "user entries are kept")

	f.ticks(2 * waitTicks)
	assert.Equal(t, 1, f.sub.count(), "pruning does not trigger analysis")
}

func TestChecker_NoPruningAfterFailure(t *testing.T) {
	f := newFixture(t, WithPruning(true))
	doc := f.checker.Document()
	stale := finding.Context{Flagged: "ancien"}
	require.NoError(t, doc.AddValue(config.KeyIgnoredErrors, config.ContextValue(stale), config.LevelDocument))

	f.checker.Config()
	f.checker.Text()
	f.checker.OnFailure(errors.New("start failed"))
	f.checker.OnResult(report.Report{})

	assert.Len(t, doc.LocalValues(config.KeyIgnoredErrors), 1)
}

func TestChecker_Close(t *testing.T) {
	f := newFixture(t)
	f.checker.Close()
	f.checker.Close()

	f.ticks(2 * waitTicks)
	assert.Equal(t, 0, f.sub.count())
	assert.False(t, f.checker.Analyze())

	f.run(grammarReport())
	assert.Equal(t, 0, f.checker.Index().Len())
	assert.Empty(t, f.updates)
}

func TestChecker_CorruptDocumentConfig(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Put(testURI, []byte("{oops")))

	snap := f.checker.Config()
	assert.ErrorIs(t, snap.Validate(), analysis.ErrInvalidSnapshot)
}

func TestChecker_SnapshotFromDocument(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.checker.Document().Set(config.OptionKey("apos"), false, config.LevelDocument))

	snap := f.checker.Config()
	require.NoError(t, snap.Validate())
	argv := snap.Command("/tmp/in.txt")
	assert.Equal(t, []string{
		"python3", "/opt/grammalecte/cli.py", "-j", "-cl", "-owe", "-ctx",
		"-off", "apos", "-f", "/tmp/in.txt",
	}, argv)
	assert.Equal(t, testText, f.checker.Text())
}
