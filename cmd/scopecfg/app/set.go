package app

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/dshills/scopecfg/internal/config/tree"
)

func newSetCmd(a *app) *cobra.Command {
	var scopeName string

	cmd := &cobra.Command{
		Use:   "set <section> <path> <value>",
		Short: "Set one value of a section",
		Long: `Set the value at a GJSON path of a section and write the result to a
scope. Values that parse as JSON are stored as such; anything else is
stored as a string.

  scopecfg set packages mpich.buildable false
  scopecfg set config build_jobs 8 --scope site
  scopecfg set repos -1 /srv/repo`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			section, path, raw := args[0], args[1], args[2]

			current, err := a.cfg.Resolve(section, "")
			if err != nil {
				return err
			}
			data, err := current.MarshalJSON()
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}

			if gjson.Valid(raw) {
				data, err = sjson.SetRawBytes(data, path, []byte(raw))
			} else {
				data, err = sjson.SetBytes(data, path, raw)
			}
			if err != nil {
				return fmt.Errorf("cannot set %s in %s: %w", path, section, err)
			}

			updated, err := tree.ParseJSON(data)
			if err != nil {
				return err
			}

			return a.cfg.Update(cmd.Context(), section, changedKeys(current, updated), scopeName)
		},
	}

	cmd.ValidArgsFunction = completeSection
	cmd.Flags().StringVar(&scopeName, "scope", "", "Scope to write (default: highest)")
	return cmd
}

// changedKeys returns the top-level entries of updated that differ from
// current. Sequences are returned whole.
func changedKeys(current, updated *tree.Node) *tree.Node {
	if !updated.IsMapping() {
		return updated
	}
	data := tree.Mapping()
	for _, key := range updated.Keys() {
		v, _ := updated.Get(key)
		if old, ok := current.Get(key); ok && tree.Equal(old, v) {
			continue
		}
		data.Set(key, v)
	}
	return data
}
