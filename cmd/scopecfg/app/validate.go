package app

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/scopecfg/internal/config"
)

func newValidateCmd(a *app) *cobra.Command {
	var scopeName string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check every section file against its schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			failed := 0

			for _, section := range a.cfg.Sections().Names() {
				_, err := a.cfg.Resolve(section, scopeName)
				if err == nil {
					fmt.Fprintf(out, "%s: ok\n", section)
					continue
				}

				failed++
				var invalid *config.SchemaValidationError
				if !errors.As(err, &invalid) {
					fmt.Fprintf(out, "%s: %v\n", section, err)
					continue
				}
				fmt.Fprintf(out, "%s: invalid (%s)\n", section, invalid.File)
				for _, e := range invalid.Errors.Errors {
					fmt.Fprintf(out, "  %v\n", e)
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d sections failed validation", failed, len(a.cfg.Sections().Names()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scopeName, "scope", "", "Check only this scope")
	return cmd
}
