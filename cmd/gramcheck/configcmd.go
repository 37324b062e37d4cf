package main

import (
	"fmt"
	"strings"

	"github.com/dshills/gramcheck/internal/config"
	"github.com/dshills/gramcheck/internal/config/layer"
	"github.com/dshills/gramcheck/internal/config/loader"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect and edit configuration",
	}
	cmd.AddCommand(
		newConfigShowCmd(a),
		newConfigGetCmd(a),
		newConfigSetCmd(a),
		newConfigUnsetCmd(a),
	)
	return cmd
}

func newConfigShowCmd(a *app) *cobra.Command {
	var (
		file   string
		format string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the merged configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := loader.ParseFormat(format)
			if err != nil {
				return err
			}
			merged := a.system.Merged()
			if file != "" {
				doc, err := a.document(file)
				if err != nil {
					return err
				}
				local, err := doc.Local()
				if err != nil {
					return err
				}
				merged = layer.DeepMerge(merged, local)
			}
			out, err := loader.Encode(f, merged)
			if err != nil {
				return err
			}
			_, err = a.stdout.Write(out)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "include the settings of this document")
	cmd.Flags().StringVarP(&format, "format", "o", "toml", "output format: toml or yaml")
	return cmd
}

func newConfigGetCmd(a *app) *cobra.Command {
	var (
		file   string
		source bool
	)
	cmd := &cobra.Command{
		Use:   "get KEY",
		Short: "Print one configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := a.scope(&scopeFlags{file: file})
			if err != nil {
				return err
			}
			key := args[0]
			value, ok := sc.Get(key)
			if !ok {
				return fmt.Errorf("%s is not set", key)
			}
			text, err := formatValue(value)
			if err != nil {
				return err
			}
			if source {
				text += "\t" + a.sourceOf(sc, key)
			}
			fmt.Fprintln(a.stdout, text)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "resolve for this document")
	cmd.Flags().BoolVar(&source, "source", false, "also print the layer providing the value")
	return cmd
}

// sourceOf names the layer that provides key in sc.
func (a *app) sourceOf(sc scope, key string) string {
	if doc, ok := sc.(*config.Document); ok {
		local, err := doc.Local()
		if err == nil {
			if _, ok := layer.GetByPath(local, key); ok {
				return config.LevelDocument.String()
			}
		}
	}
	return a.system.Source(key)
}

func newConfigSetCmd(a *app) *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a configuration value",
		Long: `set stores VALUE at KEY. VALUE is read as YAML, so true, 500, 2s and
[-j, -cl] give a boolean, a number, a string and a list.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := flags.writeLevel()
			if err != nil {
				return err
			}
			value, err := parseValue(args[1])
			if err != nil {
				return err
			}
			sc, err := a.scope(&flags)
			if err != nil {
				return err
			}
			key := args[0]
			old, had := a.levelValue(sc, key, level)
			if err := sc.Set(key, value, level); err != nil {
				return err
			}
			if _, err := sc.Settings(); err != nil {
				a.restore(sc, key, old, had, level)
				return err
			}
			return a.persist(level)
		},
	}
	flags.register(cmd)
	return cmd
}

func newConfigUnsetCmd(a *app) *cobra.Command {
	var flags scopeFlags
	cmd := &cobra.Command{
		Use:   "unset KEY",
		Short: "Remove a configuration value from one level",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := flags.writeLevel()
			if err != nil {
				return err
			}
			if err := a.unset(&flags, args[0], level); err != nil {
				return err
			}
			return a.persist(level)
		},
	}
	flags.register(cmd)
	return cmd
}

func (a *app) unset(flags *scopeFlags, key string, level config.Level) error {
	if level != config.LevelDocument {
		return a.system.Unset(key, level)
	}
	doc, err := a.document(flags.file)
	if err != nil {
		return err
	}
	return doc.Unset(key)
}

// levelValue returns the value key has on level itself.
func (a *app) levelValue(sc scope, key string, level config.Level) (any, bool) {
	if doc, ok := sc.(*config.Document); ok && level == config.LevelDocument {
		local, err := doc.Local()
		if err != nil {
			return nil, false
		}
		return layer.GetByPath(local, key)
	}
	return a.system.LevelValue(key, level)
}

// restore puts back the value key had on level before a rejected write.
func (a *app) restore(sc scope, key string, old any, had bool, level config.Level) {
	var err error
	switch {
	case had:
		err = sc.Set(key, old, level)
	case level == config.LevelDocument:
		err = sc.(*config.Document).Unset(key)
	default:
		err = a.system.Unset(key, level)
	}
	if err != nil {
		a.logger.Warn("restoring rejected value", "key", key, "error", err)
	}
}

// parseValue reads a command line value as YAML.
func parseValue(s string) (any, error) {
	var v any
	if err := yaml.Unmarshal([]byte(s), &v); err != nil {
		return nil, fmt.Errorf("parse value %q: %w", s, err)
	}
	if v == nil && strings.TrimSpace(s) != "" {
		return s, nil
	}
	return v, nil
}

// formatValue renders a value for get: scalars plainly, lists and tables
// as flow YAML.
func formatValue(v any) (string, error) {
	switch v.(type) {
	case []any, map[string]any:
		node := &yaml.Node{}
		if err := node.Encode(v); err != nil {
			return "", err
		}
		node.Style = yaml.FlowStyle
		out, err := yaml.Marshal(node)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(out)), nil
	}
	return fmt.Sprint(v), nil
}
