package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vango-dev/cfsui/internal/ui"
	"github.com/vango-dev/cfsui/pkg/fetch"
	"github.com/vango-dev/cfsui/pkg/headless"
	"github.com/vango-dev/cfsui/pkg/routepath"
)

func routesCmd() *cobra.Command {
	var resolve string

	cmd := &cobra.Command{
		Use:   "routes",
		Short: "List the UI routes",
		Long: `List the UI routes in match order with the expressions they compile to.

With --resolve, print the route a path dispatches to and its parameters.

Examples:
  cfsui routes
  cfsui routes --resolve /ui/tags/app/files/src%2Fmain.go`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			app, err := ui.New(headless.New(cfg.Server.Root), fetch.New(cfg.Client.APIURL), ui.WithRoot(cfg.Server.Root))
			if err != nil {
				return err
			}
			defer app.Controller().Close()

			if resolve != "" {
				m, err := app.Router().Resolve(resolve)
				if err != nil {
					return err
				}
				success("%s matches %s", resolve, m.Route.Pattern)
				for _, name := range m.Route.ParamNames {
					info("%s = %q", name, m.Params.Get(name))
				}
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "#\tPATTERN\tEXPR\n")
			for _, r := range app.Router().Routes() {
				fmt.Fprintf(w, "%d\t%s\t%s\n", r.Index, routepath.JoinRoot(app.Root(), r.Pattern), r.Expr())
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&resolve, "resolve", "", "Resolve a path instead of listing routes")
	return cmd
}
