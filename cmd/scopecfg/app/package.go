package app

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newPackageCmd(a *app) *cobra.Command {
	var buildable string

	cmd := &cobra.Command{
		Use:   "package <name>",
		Short: "Show or change how a package is obtained",
		Long: `Show whether a package may be built from source and which external
installations are declared for it. With --buildable, record the setting in
the highest scope instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg := args[0]

			if cmd.Flags().Changed("buildable") {
				var value bool
				switch buildable {
				case "true":
					value = true
				case "false":
				default:
					return fmt.Errorf("invalid --buildable value %q (use true or false)", buildable)
				}
				return a.cfg.SetBuildable(cmd.Context(), pkg, value, "")
			}

			ok, err := a.cfg.IsBuildable(pkg)
			if err != nil {
				return err
			}
			externals, err := a.cfg.Externals(pkg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s buildable: %t\n", pkg, ok)
			if len(externals) == 0 {
				return nil
			}

			w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "SPEC\tPREFIX\tMODULE")
			for _, e := range externals {
				fmt.Fprintf(w, "%s\t%s\t%s\n", e.Spec, e.Prefix, e.Module)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&buildable, "buildable", "", "Set whether the package may be built (true or false)")
	return cmd
}
