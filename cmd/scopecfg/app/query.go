package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"

	"github.com/dshills/scopecfg/internal/config"
)

func newQueryCmd(a *app) *cobra.Command {
	var scopeName string

	cmd := &cobra.Command{
		Use:   "query <section> <path>",
		Short: "Print part of a section selected by a GJSON path",
		Long: `Print the part of a merged section selected by a GJSON path, for
example:

  scopecfg query packages 'mpich.version.0'
  scopecfg query compilers '#.compiler.spec'`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := a.cfg.Resolve(args[0], scopeName)
			if err != nil {
				return err
			}
			data, err := value.MarshalJSON()
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}

			result := gjson.GetBytes(data, args[1])
			if !result.Exists() {
				return fmt.Errorf("%w: %s %s", config.ErrSettingNotFound, args[0], args[1])
			}

			out := cmd.OutOrStdout()
			if result.IsObject() || result.IsArray() {
				_, err = out.Write(pretty.Pretty([]byte(result.Raw)))
				return err
			}
			_, err = fmt.Fprintln(out, result.String())
			return err
		},
	}

	cmd.ValidArgsFunction = completeSection
	cmd.Flags().StringVar(&scopeName, "scope", "", "Read only this scope")
	return cmd
}
