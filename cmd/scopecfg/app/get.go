package app

import (
	"github.com/spf13/cobra"

	"github.com/dshills/scopecfg/internal/config/tree"
)

func newGetCmd(a *app) *cobra.Command {
	var (
		scopeName string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "get <section>",
		Short: "Print the merged value of a section",
		Long: `Print a section as merged from every scope, or as read from a single
scope with --scope.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateFormat(format); err != nil {
				return err
			}
			section := args[0]
			out := cmd.OutOrStdout()

			if scopeName == "" && format == FormatYAML {
				return a.cfg.Render(out, section)
			}

			value, err := a.cfg.Resolve(section, scopeName)
			if err != nil {
				return err
			}
			doc := tree.Mapping()
			doc.Set(section, value)
			return writeValue(out, doc, format)
		},
	}

	cmd.ValidArgsFunction = completeSection
	cmd.Flags().StringVar(&scopeName, "scope", "", "Read only this scope")
	cmd.Flags().StringVarP(&format, "format", "o", FormatYAML, "Output format (yaml or json)")
	return cmd
}
