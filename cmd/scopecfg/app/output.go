package app

import (
	"fmt"
	"io"

	"github.com/tidwall/pretty"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// Output formats.
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

func validateFormat(format string) error {
	switch format {
	case FormatYAML, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unknown format %q (use %s or %s)", format, FormatYAML, FormatJSON)
	}
}

// writeJSON writes n as indented JSON, colored when w is a terminal.
func writeJSON(w io.Writer, n *tree.Node) error {
	data, err := n.MarshalJSON()
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	data = pretty.Pretty(data)
	if isTerminal(w) {
		data = pretty.Color(data, nil)
	}
	_, err = w.Write(data)
	return err
}

// writeYAML writes n as a YAML document.
func writeYAML(w io.Writer, n *tree.Node) error {
	data, err := tree.EncodeYAML(n)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// writeValue writes n in the given format.
func writeValue(w io.Writer, n *tree.Node, format string) error {
	if format == FormatJSON {
		return writeJSON(w, n)
	}
	return writeYAML(w, n)
}
