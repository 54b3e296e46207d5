package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/scopecfg/internal/config/loader"
)

func newUpdateCmd(a *app) *cobra.Command {
	var (
		scopeName string
		file      string
	)

	cmd := &cobra.Command{
		Use:   "update <section>",
		Short: "Write YAML data into a section",
		Long: `Read a YAML value and write it into a section at one scope. A list
replaces the section; a mapping replaces the section's top-level keys it
names. The data may be the bare value or a document rooted at the section
name.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			section := args[0]

			source, data, err := readInput(cmd, file)
			if err != nil {
				return err
			}
			doc, err := loader.ParseYAML(source, data)
			if err != nil {
				return err
			}

			value := doc.Root
			if value.IsMapping() && value.Len() == 1 {
				if inner, ok := value.Get(section); ok {
					value = inner
				}
			}

			if err := a.cfg.Update(cmd.Context(), section, value, scopeName); err != nil {
				return err
			}

			path, err := a.cfg.SectionFilename(scopeName, section)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", path)
			return err
		},
	}

	cmd.ValidArgsFunction = completeSection
	cmd.Flags().StringVar(&scopeName, "scope", "", "Scope to write (default: highest)")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "File to read, or - for stdin")
	return cmd
}

func readInput(cmd *cobra.Command, file string) (string, []byte, error) {
	if file == "-" || file == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		return "<stdin>", data, err
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read %s: %w", file, err)
	}
	return file, data, nil
}

