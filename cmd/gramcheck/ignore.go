package main

import (
	"fmt"

	"github.com/dshills/gramcheck/internal/config"
	"github.com/spf13/cobra"
)

// scopeFlags select where a configuration write lands.
type scopeFlags struct {
	file  string
	level string
}

func (s *scopeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.file, "file", "f", "", "act on the settings of this document")
	cmd.Flags().StringVarP(&s.level, "level", "l", "", "level to write: document, user or system (default document with --file, else user)")
}

// writeLevel resolves the target level.
func (s *scopeFlags) writeLevel() (config.Level, error) {
	if s.level == "" {
		if s.file != "" {
			return config.LevelDocument, nil
		}
		return config.LevelUser, nil
	}
	level, err := parseLevel(s.level)
	if err != nil {
		return 0, err
	}
	if level == config.LevelDocument && s.file == "" {
		return 0, fmt.Errorf("the document level needs --file")
	}
	return level, nil
}

// scope is a configuration scope: one document, or the global layers.
type scope interface {
	Get(path string) (any, bool)
	Values(path string) []any
	Settings() (config.Settings, error)
	Set(path string, value any, level config.Level) error
	AddValue(path string, value any, level config.Level) error
	RemoveValue(path string, value any, level config.Level) error
}

func (a *app) scope(s *scopeFlags) (scope, error) {
	if s.file == "" {
		return a.system, nil
	}
	return a.document(s.file)
}

// persist saves a global level to its file. Document writes are stored
// as they happen.
func (a *app) persist(level config.Level) error {
	if level == config.LevelDocument {
		return nil
	}
	return a.system.Save(level)
}

func newIgnoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ignore",
		Short: "Manage ignored rules and ignored errors",
	}
	cmd.AddCommand(
		newIgnoreEditCmd(a, "rule RULE", "Ignore a grammar rule", config.KeyIgnoredRules, cobra.ExactArgs(1),
			func(args []string) any { return args[0] }),
		newIgnoreEditCmd(a, "error BEFORE FLAGGED AFTER", "Ignore one error by its context", config.KeyIgnoredErrors, cobra.ExactArgs(3),
			func(args []string) any { return []any{args[0], args[1], args[2]} }),
		newIgnoreListCmd(a),
	)
	return cmd
}

func newIgnoreEditCmd(a *app, use, short, key string, args cobra.PositionalArgs, value func([]string) any) *cobra.Command {
	var (
		flags  scopeFlags
		remove bool
	)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := flags.writeLevel()
			if err != nil {
				return err
			}
			sc, err := a.scope(&flags)
			if err != nil {
				return err
			}
			if remove {
				err = sc.RemoveValue(key, value(args), level)
			} else {
				err = sc.AddValue(key, value(args), level)
			}
			if err != nil {
				return err
			}
			return a.persist(level)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&remove, "remove", false, "stop ignoring instead")
	return cmd
}

func newIgnoreListCmd(a *app) *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the ignored rules and errors in effect",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := a.scope(&flags)
			if err != nil {
				return err
			}
			settings, err := sc.Settings()
			if err != nil {
				return err
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, p.st.Bold.Render("rules"))
			for _, rule := range settings.IgnoredRules {
				fmt.Fprintf(a.stdout, "  %s\n", rule)
			}
			fmt.Fprintln(a.stdout, p.st.Bold.Render("errors"))
			for _, ctx := range settings.IgnoredErrors {
				fmt.Fprintf(a.stdout, "  %s[%s]%s\n", ctx.Before, p.st.Caret.Render(ctx.Flagged), ctx.After)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "include the settings of this document")
	return cmd
}
