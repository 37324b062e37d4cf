package main

import (
	"fmt"

	"github.com/dshills/gramcheck/internal/config"
	"github.com/spf13/cobra"
)

func newOptionsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "options",
		Short: "List the options the analyzer understands",
		Long: `options runs the analyzer with analyzer.list-options-args and lists every
option it reports with its default and the value configuration gives it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := a.system.Settings()
			if err != nil {
				return err
			}
			sess, err := a.session()
			if err != nil {
				return err
			}
			defer sess.Close(cmd.Context())

			opts, err := sess.ToolOptions(cmd.Context())
			if err != nil {
				return fmt.Errorf("list analyzer options: %w", err)
			}
			p, err := a.printer(a.stdout)
			if err != nil {
				return err
			}

			width := 0
			for _, o := range opts {
				width = max(width, len(o.Name))
			}
			name := p.st.Bold.Width(width + 2)
			for _, o := range opts {
				value, set := settings.Options[o.Name]
				if !set {
					value = o.Default
				}
				state := p.st.Muted.Render("off")
				if value {
					state = p.st.Suggestion.Render("on ")
				}
				origin := "default"
				if set {
					origin = a.system.Source(config.OptionKey(o.Name))
				}
				fmt.Fprintf(a.stdout, "%s%s %s %s\n", name.Render(o.Name), state, o.Description, p.st.Muted.Render("("+origin+")"))
			}
			return nil
		},
	}
	return cmd
}
