package report

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/tidwall/gjson"
)

// Field names of the analyzer JSON document.
const (
	keyData      = "data"
	keyParagraph = "iParagraph"
	keyGrammar   = "lGrammarErrors"
	keySpelling  = "lSpellingErrors"

	keyStartLine   = "nStartY"
	keyStartColumn = "nStartX"
	keyEndLine     = "nEndY"
	keyEndColumn   = "nEndX"

	keyBefore      = "sBefore"
	keyUnderlined  = "sUnderlined"
	keyAfter       = "sAfter"
	keyValue       = "sValue"
	keyMessage     = "sMessage"
	keyURL         = "URL"
	keySuggestions = "aSuggestions"
	keyType        = "sType"
	keyRuleID      = "sRuleId"
)

// Kind tells the two finding arrays apart.
type Kind uint8

const (
	// KindGrammar is a finding from the grammar array.
	KindGrammar Kind = iota
	// KindSpelling is a finding from the spelling array.
	KindSpelling
)

// String returns the kind name.
func (k Kind) String() string {
	if k == KindSpelling {
		return "spelling"
	}
	return "grammar"
}

// Finding is one raw finding as the analyzer printed it. Lines are
// one-based; columns are zero-based.
type Finding struct {
	Kind Kind

	// Paragraph is the paragraph number the finding was listed under.
	Paragraph int

	StartLine   int
	StartColumn int
	EndLine     int
	EndColumn   int

	Before     string
	Underlined string
	After      string

	// Value is the unknown word of a spelling finding.
	Value string

	Message     string
	URL         string
	Suggestions []string
	Type        string
	RuleID      string

	// Missing lists mandatory fields that were absent or not numeric.
	Missing []string
}

// Complete reports whether every position field was present.
func (f *Finding) Complete() bool {
	return len(f.Missing) == 0
}

// Paragraph groups the findings of one paragraph.
type Paragraph struct {
	Index    int
	Grammar  []Finding
	Spelling []Finding
}

// Report is a decoded analyzer document.
type Report struct {
	Paragraphs []Paragraph
}

// Empty reports whether the report holds no findings at all.
func (r Report) Empty() bool {
	return r.Count() == 0
}

// Count returns the number of findings of both kinds.
func (r Report) Count() int {
	n := 0
	for _, p := range r.Paragraphs {
		n += len(p.Grammar) + len(p.Spelling)
	}
	return n
}

// Parse decodes analyzer output. Unknown fields are ignored.
func Parse(data []byte) (Report, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || !gjson.ValidBytes(data) {
		return Report{}, ErrMalformed
	}

	root := gjson.ParseBytes(data)
	paragraphs := root
	prefix := ""
	if root.IsObject() {
		paragraphs = root.Get(keyData)
		prefix = keyData + "."
		if !paragraphs.Exists() {
			return Report{}, &SchemaError{Reason: `expected an array or an object with a "data" array`}
		}
	}
	if !paragraphs.IsArray() {
		return Report{}, &SchemaError{Path: keyData, Reason: "expected an array of paragraphs"}
	}

	var rep Report
	for i, value := range paragraphs.Array() {
		p, err := parseParagraph(prefix+strconv.Itoa(i), i, value)
		if err != nil {
			return Report{}, err
		}
		rep.Paragraphs = append(rep.Paragraphs, p)
	}
	return rep, nil
}

func parseParagraph(path string, position int, value gjson.Result) (Paragraph, error) {
	if !value.IsObject() {
		return Paragraph{}, &SchemaError{Path: path, Reason: "expected a paragraph object"}
	}

	p := Paragraph{Index: position + 1}
	if n := value.Get(keyParagraph); n.Type == gjson.Number {
		p.Index = int(n.Int())
	}

	var err error
	if p.Grammar, err = parseFindings(path+"."+keyGrammar, value.Get(keyGrammar), KindGrammar, p.Index); err != nil {
		return Paragraph{}, err
	}
	if p.Spelling, err = parseFindings(path+"."+keySpelling, value.Get(keySpelling), KindSpelling, p.Index); err != nil {
		return Paragraph{}, err
	}
	return p, nil
}

func parseFindings(path string, list gjson.Result, kind Kind, paragraph int) ([]Finding, error) {
	if !list.Exists() || list.Type == gjson.Null {
		return nil, nil
	}
	if !list.IsArray() {
		return nil, &SchemaError{Path: path, Reason: "expected an array of findings"}
	}

	items := list.Array()
	out := make([]Finding, 0, len(items))
	for _, item := range items {
		out = append(out, parseFinding(item, kind, paragraph))
	}
	return out, nil
}

func parseFinding(item gjson.Result, kind Kind, paragraph int) Finding {
	f := Finding{Kind: kind, Paragraph: paragraph}
	if !item.IsObject() {
		f.Missing = []string{keyStartLine, keyStartColumn, keyEndLine, keyEndColumn}
		return f
	}

	f.StartLine = f.number(item, keyStartLine)
	f.StartColumn = f.number(item, keyStartColumn)
	f.EndLine = f.number(item, keyEndLine)
	f.EndColumn = f.number(item, keyEndColumn)

	f.Before = item.Get(keyBefore).String()
	f.Underlined = item.Get(keyUnderlined).String()
	f.After = item.Get(keyAfter).String()
	f.Value = item.Get(keyValue).String()
	f.Message = item.Get(keyMessage).String()
	f.URL = item.Get(keyURL).String()
	f.Type = item.Get(keyType).String()
	f.RuleID = item.Get(keyRuleID).String()

	f.Suggestions = []string{}
	if s := item.Get(keySuggestions); s.IsArray() {
		for _, v := range s.Array() {
			f.Suggestions = append(f.Suggestions, v.String())
		}
	}
	return f
}

// number reads an integer field, recording it as missing when absent or
// not numeric. Numeric strings are accepted.
func (f *Finding) number(item gjson.Result, key string) int {
	v := item.Get(key)
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		if n, err := strconv.Atoi(v.Str); err == nil {
			return n
		}
	}
	f.Missing = append(f.Missing, key)
	return 0
}

// String describes the finding position for log messages.
func (f *Finding) String() string {
	return fmt.Sprintf("%s finding in paragraph %d at %d:%d-%d:%d",
		f.Kind, f.Paragraph, f.StartLine, f.StartColumn, f.EndLine, f.EndColumn)
}
