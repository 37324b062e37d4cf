package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dshills/gramcheck/internal/finding"
	"github.com/muesli/termenv"
	"github.com/rivo/uniseg"
	"golang.org/x/term"
)

// Colour modes accepted by --color.
const (
	colorAuto   = "auto"
	colorAlways = "always"
	colorNever  = "never"
)

// Palette.
var (
	colorPath       = lipgloss.Color("#20B9B4")
	colorGrammar    = lipgloss.Color("#F4D03F")
	colorSpelling   = lipgloss.Color("#E74C3C")
	colorSuggestion = lipgloss.Color("#2CD7C7")
	colorMuted      = lipgloss.Color("#6C8A94")
)

// styles are the lipgloss styles of one output stream.
type styles struct {
	Path       lipgloss.Style
	Position   lipgloss.Style
	Grammar    lipgloss.Style
	Spelling   lipgloss.Style
	Rule       lipgloss.Style
	Caret      lipgloss.Style
	Suggestion lipgloss.Style
	Muted      lipgloss.Style
	Warning    lipgloss.Style
	Bold       lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		Path:       r.NewStyle().Foreground(colorPath).Bold(true),
		Position:   r.NewStyle().Foreground(colorMuted),
		Grammar:    r.NewStyle().Foreground(colorGrammar).Bold(true),
		Spelling:   r.NewStyle().Foreground(colorSpelling).Bold(true),
		Rule:       r.NewStyle().Foreground(colorMuted).Italic(true),
		Caret:      r.NewStyle().Foreground(colorSpelling),
		Suggestion: r.NewStyle().Foreground(colorSuggestion),
		Muted:      r.NewStyle().Foreground(colorMuted),
		Warning:    r.NewStyle().Foreground(colorGrammar),
		Bold:       r.NewStyle().Bold(true),
	}
}

// useColor decides whether output to w is coloured.
func useColor(w io.Writer, mode string, getenv func(string) string) (bool, error) {
	switch mode {
	case colorAlways:
		return true, nil
	case colorNever:
		return false, nil
	case colorAuto, "":
	default:
		return false, fmt.Errorf("unknown colour mode %q", mode)
	}
	if getenv("NO_COLOR") != "" || getenv("TERM") == "dumb" {
		return false, nil
	}
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd())), nil
}

// printer renders findings.
type printer struct {
	w  io.Writer
	st styles
}

func (a *app) printer(w io.Writer) (*printer, error) {
	color, err := useColor(w, a.color, a.getenv)
	if err != nil {
		return nil, err
	}
	r := lipgloss.NewRenderer(w)
	if color {
		r.SetColorProfile(termenv.ANSI256)
	} else {
		r.SetColorProfile(termenv.Ascii)
	}
	return &printer{w: w, st: newStyles(r)}, nil
}

// Findings prints records found in text, read from path.
func (p *printer) Findings(path, text string, records []*finding.Record) {
	lines := strings.Split(text, "\n")
	for _, r := range records {
		p.record(path, lines, r)
	}
}

func (p *printer) record(path string, lines []string, r *finding.Record) {
	category := p.st.Grammar
	if r.Category == finding.Spelling {
		category = p.st.Spelling
	}
	header := fmt.Sprintf("%s:%s %s %s",
		p.st.Path.Render(path),
		p.st.Position.Render(r.Start.String()),
		category.Render(r.Category.String()),
		r.Description,
	)
	if r.HasRule() {
		header += " " + p.st.Rule.Render("["+r.RuleID+"]")
	}
	fmt.Fprintln(p.w, header)

	if r.Start.Line >= 0 && r.Start.Line < len(lines) {
		line := strings.TrimRight(lines[r.Start.Line], "\r")
		pad, width := caret(line, r.Span)
		fmt.Fprintf(p.w, "    %s\n", line)
		fmt.Fprintf(p.w, "    %s%s\n", strings.Repeat(" ", pad), p.st.Caret.Render(strings.Repeat("^", width)))
	}
	if len(r.Suggestions) > 0 {
		fmt.Fprintf(p.w, "    %s %s\n", p.st.Muted.Render("suggestions:"), p.st.Suggestion.Render(strings.Join(r.Suggestions, ", ")))
	}
	if r.HasURL() {
		fmt.Fprintf(p.w, "    %s %s\n", p.st.Muted.Render("see:"), r.URL)
	}
}

// caret returns the display column where the underline of s starts on
// line and its width. Columns count runes; widths count terminal cells.
// An underline that continues on later lines runs to the end of line.
func caret(line string, s finding.Span) (pad, width int) {
	runes := []rune(line)
	start := min(max(s.Start.Column, 0), len(runes))
	end := len(runes)
	if s.End.Line == s.Start.Line {
		end = min(max(s.End.Column, start), len(runes))
	}
	pad = uniseg.StringWidth(string(runes[:start]))
	width = max(uniseg.StringWidth(string(runes[start:end])), 1)
	return pad, width
}

// Failure prints an analysis failure for path.
func (p *printer) Failure(path string, err error) {
	fmt.Fprintf(p.w, "%s: %s %v\n", p.st.Path.Render(path), p.st.Warning.Render("analysis failed:"), err)
}

// Summary prints the finding count.
func (p *printer) Summary(files, findings int) {
	noun := "findings"
	if findings == 1 {
		noun = "finding"
	}
	fmt.Fprintln(p.w, p.st.Muted.Render(fmt.Sprintf("%d %s in %d file(s)", findings, noun, files)))
}
