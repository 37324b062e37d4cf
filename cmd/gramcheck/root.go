package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gramcheck",
		Short: "Grammar and spelling checks with Grammalecte",
		Long: `gramcheck runs the Grammalecte command line analyzer over text files,
prints the findings it reports, and manages the layered configuration
(defaults, system, user, environment, per document) that drives it.`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	f := root.PersistentFlags()
	f.StringVar(&a.systemFile, "system-config", a.systemFile, "system configuration file (empty to skip)")
	f.StringVar(&a.userFile, "user-config", a.userFile, "user configuration file (empty to skip)")
	f.StringSliceVar(&a.dotenv, "dotenv", nil, "dotenv files seeding GRAMCHECK_* variables")
	f.StringVar(&a.metadataPath, "metadata", "", "per-document settings database (overrides metadata.path)")
	f.StringVar(&a.logLevel, "log-level", a.logLevel, "log level: debug, info, warn, error")
	f.StringVar(&a.logFormat, "log-format", a.logFormat, "log format: text or json")
	f.StringVar(&a.color, "color", a.color, "colour output: auto, always or never")

	root.AddCommand(
		newCheckCmd(a),
		newWatchCmd(a),
		newOptionsCmd(a),
		newIgnoreCmd(a),
		newConfigCmd(a),
	)
	return root
}
