package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPathCmd(a *app) *cobra.Command {
	var scopeName string

	cmd := &cobra.Command{
		Use:   "path <section>",
		Short: "Print the file holding a section in a scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := a.cfg.SectionFilename(scopeName, args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), path)
			return err
		},
	}

	cmd.ValidArgsFunction = completeSection
	cmd.Flags().StringVar(&scopeName, "scope", "", "Scope to use (default: highest)")
	return cmd
}
