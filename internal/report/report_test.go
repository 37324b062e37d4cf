package report

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `{
  "grammalecte": "1.12.0",
  "lang": "fr",
  "data": [
    {
      "iParagraph": 1,
      "lGrammarErrors": [
        {
          "nStartY": 1, "nStartX": 3, "nEndY": 1, "nEndX": 8,
          "sLineId": "#1", "sRuleId": "conf_a_à",
          "sType": "conf", "sMessage": "Confusion.",
          "aSuggestions": ["à"], "URL": "",
          "sBefore": "Il ", "sUnderlined": "a", "sAfter": " Paris"
        }
      ],
      "lSpellingErrors": [
        {"nStartY": 2, "nStartX": 0, "nEndY": 2, "nEndX": 4, "sValue": "tset", "sType": "WORD"}
      ]
    },
    {
      "iParagraph": 3,
      "lGrammarErrors": [],
      "lSpellingErrors": []
    }
  ]
}`

func TestParse_Envelope(t *testing.T) {
	rep, err := Parse([]byte(sample))
	require.NoError(t, err)

	require.Len(t, rep.Paragraphs, 2)
	assert.Equal(t, 2, rep.Count())
	assert.False(t, rep.Empty())

	p := rep.Paragraphs[0]
	assert.Equal(t, 1, p.Index)
	require.Len(t, p.Grammar, 1)
	g := p.Grammar[0]
	assert.True(t, g.Complete())
	assert.Equal(t, KindGrammar, g.Kind)
	assert.Equal(t, 1, g.StartLine)
	assert.Equal(t, 3, g.StartColumn)
	assert.Equal(t, 8, g.EndColumn)
	assert.Equal(t, "conf_a_à", g.RuleID)
	assert.Equal(t, "conf", g.Type)
	assert.Equal(t, []string{"à"}, g.Suggestions)
	assert.Empty(t, g.URL)
	assert.Equal(t, "a", g.Underlined)

	require.Len(t, p.Spelling, 1)
	s := p.Spelling[0]
	assert.Equal(t, KindSpelling, s.Kind)
	assert.Equal(t, "tset", s.Value)
	assert.NotNil(t, s.Suggestions)

	assert.Equal(t, 3, rep.Paragraphs[1].Index)
}

func TestParse_BareArray(t *testing.T) {
	rep, err := Parse([]byte(`[{"lGrammarErrors": [{"nStartY": 1, "nStartX": 0, "nEndY": 1, "nEndX": 2}]}]`))
	require.NoError(t, err)

	require.Len(t, rep.Paragraphs, 1)
	assert.Equal(t, 1, rep.Paragraphs[0].Index, "paragraph numbers default to array position")
	assert.Len(t, rep.Paragraphs[0].Grammar, 1)
	assert.Empty(t, rep.Paragraphs[0].Spelling)
}

func TestParse_EmptyDocument(t *testing.T) {
	rep, err := Parse([]byte(`{"data": []}`))
	require.NoError(t, err)
	assert.True(t, rep.Empty())
}

func TestParse_Malformed(t *testing.T) {
	for _, in := range []string{"", "   ", "not json", `{"data": [`} {
		_, err := Parse([]byte(in))
		assert.ErrorIs(t, err, ErrMalformed, "input %q", in)
	}
}

func TestParse_SchemaViolations(t *testing.T) {
	tests := []struct {
		name string
		in   string
		path string
	}{
		{"scalar root", `42`, "data"},
		{"object without data", `{"lang": "fr"}`, ""},
		{"data not array", `{"data": {"x": 1}}`, "data"},
		{"paragraph not object", `{"data": [1]}`, "data.0"},
		{"grammar not array", `[{"lGrammarErrors": "oops"}]`, "0.lGrammarErrors"},
		{"spelling not array", `[{}, {"lSpellingErrors": 3}]`, "1.lSpellingErrors"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.in))
			require.Error(t, err)
			assert.True(t, IsSchemaError(err))

			var se *SchemaError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.path, se.Path)
		})
	}
}

func TestParse_IncompleteFindingKept(t *testing.T) {
	in := `[{"lGrammarErrors": [
		{"nStartY": 1, "nStartX": 0, "nEndY": 1},
		"garbage",
		{"nStartY": "2", "nStartX": 1, "nEndY": 2, "nEndX": 5, "extra": {"nested": true}}
	]}]`

	rep, err := Parse([]byte(in))
	require.NoError(t, err)

	grammar := rep.Paragraphs[0].Grammar
	require.Len(t, grammar, 3)
	assert.False(t, grammar[0].Complete())
	assert.Equal(t, []string{"nEndX"}, grammar[0].Missing)
	assert.False(t, grammar[1].Complete())
	assert.True(t, grammar[2].Complete(), "numeric strings are accepted")
	assert.Equal(t, 2, grammar[2].StartLine)
}

func TestSchemaError_Error(t *testing.T) {
	assert.Equal(t, "analyzer output at data.0: expected a paragraph object",
		(&SchemaError{Path: "data.0", Reason: "expected a paragraph object"}).Error())
	assert.Equal(t, "analyzer output: bad", (&SchemaError{Reason: "bad"}).Error())
}

func TestFinding_String(t *testing.T) {
	f := Finding{Kind: KindSpelling, Paragraph: 2, StartLine: 3, StartColumn: 1, EndLine: 3, EndColumn: 4}
	assert.Equal(t, "spelling finding in paragraph 2 at 3:1-3:4", f.String())
}
