package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

func newScopesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "scopes",
		Short: "List scopes from lowest to highest precedence",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "SCOPE\tPATH\tEXISTS")
			for _, s := range a.cfg.Scopes() {
				exists, _ := afero.DirExists(a.fsys, s.Dir())
				fmt.Fprintf(w, "%s\t%s\t%t\n", s.Name(), s.Dir(), exists)
			}
			return w.Flush()
		},
	}
}
