package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/gramcheck/internal/analysis"
	"github.com/dshills/gramcheck/internal/checker"
	"github.com/dshills/gramcheck/internal/config/watcher"
	"github.com/dshills/gramcheck/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	var (
		metricsAddr string
		prune       bool
		debounce    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch FILE...",
		Short: "Re-analyze files whenever they or the configuration change",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd.Context(), unique(args), watchOptions{
				metricsAddr: metricsAddr,
				prune:       prune,
				debounce:    debounce,
			})
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&prune, "prune", false, "drop per-file ignore entries that no longer match")
	cmd.Flags().DurationVar(&debounce, "debounce", 100*time.Millisecond, "file event coalescing window")
	return cmd
}

type watchOptions struct {
	metricsAddr string
	prune       bool
	debounce    time.Duration
}

// watchedFile is a file followed by the watch command.
type watchedFile struct {
	path    string
	checker *checker.Checker
	buffer  *checker.TextBuffer
}

func (a *app) watch(ctx context.Context, paths []string, opts watchOptions) error {
	p, err := a.printer(a.stdout)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics := analysis.NewMetrics(reg)
	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	files := make(map[string]*watchedFile, len(paths))
	var out sync.Mutex
	show := func(u checker.Update) {
		f, ok := files[u.URI]
		if !ok {
			return
		}
		out.Lock()
		defer out.Unlock()
		fmt.Fprintf(a.stdout, "%s %s\n", p.st.Muted.Render(time.Now().Format(time.TimeOnly)), p.st.Bold.Render(f.path))
		if u.Err != nil {
			p.Failure(f.path, u.Err)
			return
		}
		records := u.Index.Records()
		p.Findings(f.path, f.buffer.Text(), records)
		p.Summary(1, len(records))
	}

	sess, err := a.session(
		checker.WithDispatcherOptions(analysis.WithMetrics(metrics)),
		checker.WithCheckerOptions(checker.WithPruning(opts.prune), checker.OnUpdate(show)),
	)
	if err != nil {
		return err
	}

	w, err := watcher.New(
		watcher.WithDebounce(opts.debounce),
		watcher.WithLogger(logging.Component(a.logger, "watch")),
	)
	if err != nil {
		return err
	}
	defer w.Close()

	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(abs)
		if err != nil {
			return err
		}
		uri, err := documentURI(abs)
		if err != nil {
			return err
		}
		buf := checker.NewTextBuffer(string(data))
		c, err := sess.Open(uri, buf)
		if err != nil {
			return err
		}
		files[uri] = &watchedFile{path: path, checker: c, buffer: buf}
		if err := w.Watch(abs); err != nil {
			return err
		}
	}
	byPath := make(map[string]*watchedFile, len(files))
	for _, f := range files {
		abs, _ := filepath.Abs(f.path)
		byPath[abs] = f
	}

	w.OnChange(func(ev watcher.Event) {
		f, ok := byPath[ev.Path]
		if !ok {
			return
		}
		if ev.Op == watcher.OpRemove {
			a.logger.Warn("watched file removed", "path", f.path)
			return
		}
		data, err := os.ReadFile(ev.Path)
		if err != nil {
			a.logger.Warn("reading changed file", "path", f.path, "error", err)
			return
		}
		f.buffer.SetText(string(data))
		f.checker.SetBuffer(f.buffer)
		if !f.checker.Settings().AutoAnalyze.Active {
			f.checker.Analyze()
		}
	})
	if err := a.system.Watch(); err != nil {
		a.logger.Warn("configuration files not watched", "error", err)
	}

	for _, f := range files {
		f.checker.Analyze()
	}
	a.logger.Info("watching", "files", len(files))

	sess.Run(ctx)
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
