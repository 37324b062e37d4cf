package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/dshills/gramcheck/internal/checker"
	"github.com/dshills/gramcheck/internal/finding"
	"github.com/spf13/cobra"
)

// jsonFinding is one finding in --format json output.
type jsonFinding struct {
	File        string   `json:"file"`
	Category    string   `json:"category"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Message     string   `json:"message"`
	Flagged     string   `json:"flagged"`
	Rule        string   `json:"rule,omitempty"`
	Option      string   `json:"option,omitempty"`
	Suggestions []string `json:"suggestions"`
	URL         string   `json:"url,omitempty"`
}

func newCheckCmd(a *app) *cobra.Command {
	var (
		format  string
		timeout time.Duration
		prune   bool
	)
	cmd := &cobra.Command{
		Use:   "check FILE...",
		Short: "Analyze files once and print their findings",
		Long: `check analyzes every file once and prints the findings. It exits with
status 1 when anything was found and 2 when an analysis failed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "text" && format != "json" {
				return fmt.Errorf("unknown output format %q", format)
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			return a.check(ctx, unique(args), format, prune)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "o", "text", "output format: text or json")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "give up after this long")
	cmd.Flags().BoolVar(&prune, "prune", false, "drop per-file ignore entries that no longer match")
	return cmd
}

type checked struct {
	path   string
	text   string
	update checker.Update
	done   bool
}

func (a *app) check(ctx context.Context, paths []string, format string, prune bool) error {
	updates := make(chan checker.Update, len(paths))
	sess, err := a.session(checker.WithCheckerOptions(
		checker.WithPruning(prune),
		checker.OnUpdate(func(u checker.Update) {
			select {
			case updates <- u:
			default:
			}
		}),
	))
	if err != nil {
		return err
	}
	runCtx, stop := context.WithCancel(ctx)
	running := make(chan struct{})
	go func() {
		defer close(running)
		sess.Run(runCtx)
	}()
	defer func() {
		stop()
		<-running
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sess.Close(closeCtx)
	}()

	results := make(map[string]*checked, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		uri, err := documentURI(path)
		if err != nil {
			return err
		}
		c, err := sess.Open(uri, checker.NewTextBuffer(string(data)))
		if err != nil {
			return err
		}
		results[uri] = &checked{path: path, text: string(data)}
		c.Analyze()
	}

	for pending := len(paths); pending > 0; {
		select {
		case u := <-updates:
			if r, ok := results[u.URI]; ok && !r.done {
				r.update, r.done = u, true
				pending--
			}
		case <-ctx.Done():
			return fmt.Errorf("waiting for analysis: %w", ctx.Err())
		}
	}

	ordered := make([]*checked, 0, len(paths))
	for _, path := range paths {
		uri, _ := documentURI(path)
		ordered = append(ordered, results[uri])
	}
	if format == "json" {
		return a.reportJSON(ordered)
	}
	return a.reportText(ordered)
}

func (a *app) reportText(results []*checked) error {
	p, err := a.printer(a.stdout)
	if err != nil {
		return err
	}
	var total int
	var failed []error
	for _, r := range results {
		if r.update.Err != nil {
			p.Failure(r.path, r.update.Err)
			failed = append(failed, fmt.Errorf("%s: %w", r.path, r.update.Err))
			continue
		}
		records := r.update.Index.Records()
		total += len(records)
		p.Findings(r.path, r.text, records)
		for _, ctx := range r.update.Pruned {
			fmt.Fprintf(a.stderr, "%s: pruned ignore entry %q\n", r.path, ctx.Slice())
		}
	}
	p.Summary(len(results), total)
	return outcome(total, failed)
}

func (a *app) reportJSON(results []*checked) error {
	out := []jsonFinding{}
	var failed []error
	for _, r := range results {
		if r.update.Err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", r.path, r.update.Err))
			continue
		}
		for _, rec := range r.update.Index.Records() {
			out = append(out, toJSON(r.path, rec))
		}
	}
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return err
	}
	return outcome(len(out), failed)
}

func toJSON(path string, r *finding.Record) jsonFinding {
	return jsonFinding{
		File:        path,
		Category:    r.Category.String(),
		Start:       r.Start.String(),
		End:         r.End.String(),
		Message:     r.Description,
		Flagged:     r.Context.Flagged,
		Rule:        r.RuleID,
		Option:      r.Option,
		Suggestions: r.Suggestions,
		URL:         r.URL,
	}
}

func outcome(findings int, failed []error) error {
	switch {
	case len(failed) > 0:
		return &exitError{code: exitFailure, err: errors.Join(failed...)}
	case findings > 0:
		return &exitError{code: exitFindings}
	}
	return nil
}

// unique drops repeated arguments, keeping the first occurrence.
func unique(args []string) []string {
	seen := make(map[string]bool, len(args))
	out := args[:0:0]
	for _, arg := range args {
		uri, err := documentURI(arg)
		if err != nil {
			uri = arg
		}
		if !seen[uri] {
			seen[uri] = true
			out = append(out, arg)
		}
	}
	return out
}
