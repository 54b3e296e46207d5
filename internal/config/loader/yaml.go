package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// Document is a parsed section file.
type Document struct {
	// Path is the file the document was read from.
	Path string

	// Root is the document content, or nil when the file holds no YAML value.
	Root *tree.Node

	// Locations records where each node of Root was written.
	Locations *tree.Locations
}

// IsEmpty reports whether the file held no YAML value.
func (d *Document) IsEmpty() bool {
	return d == nil || d.Root == nil
}

// YAMLLoader loads section files.
type YAMLLoader struct {
	fs afero.Fs
}

// NewYAMLLoader creates a YAML loader over the OS file system.
func NewYAMLLoader() *YAMLLoader {
	return &YAMLLoader{fs: DefaultFS()}
}

// NewYAMLLoaderWithFS creates a YAML loader with a custom file system.
func NewYAMLLoaderWithFS(fs afero.Fs) *YAMLLoader {
	return &YAMLLoader{fs: fs}
}

// LoadFrom reads and parses the file at path.
// Returns nil, nil if the file doesn't exist.
func (l *YAMLLoader) LoadFrom(path string) (*Document, error) {
	data, err := readFile(l.fs, path)
	if err != nil || data == nil {
		return nil, err
	}
	return ParseYAML(path, data)
}

// LoadFromReader parses a single YAML (or JSON) value from r.
func (l *YAMLLoader) LoadFromReader(r io.Reader) (*tree.Node, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	doc, err := ParseYAML("<reader>", data)
	if err != nil {
		return nil, err
	}
	return doc.Root, nil
}

// ParseYAML parses data holding at most one YAML document. Syntax faults and
// duplicate mapping keys are reported as *ParseError with the line and, when
// known, the column.
func ParseYAML(source string, data []byte) (*Document, error) {
	doc := &Document{Path: source, Locations: tree.NewLocations(source)}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	var raw yaml.Node
	if err := dec.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return doc, nil
		}
		return nil, newYAMLParseError(source, err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		if err != nil {
			return nil, newYAMLParseError(source, err)
		}
		return nil, &ParseError{
			Path:    source,
			Line:    extra.Line,
			Column:  extra.Column,
			Message: "file must contain a single YAML document",
		}
	}

	root, err := tree.FromYAML(&raw, doc.Locations)
	if err != nil {
		var derr *tree.DecodeError
		if errors.As(err, &derr) {
			return nil, &ParseError{
				Path:    source,
				Line:    derr.Line,
				Column:  derr.Column,
				Message: derr.Message,
				Err:     err,
			}
		}
		return nil, &ParseError{Path: source, Message: err.Error(), Err: err}
	}
	doc.Root = root
	return doc, nil
}

var (
	yamlLinePattern   = regexp.MustCompile(`line (\d+)`)
	yamlColumnPattern = regexp.MustCompile(`column (\d+)`)
	yamlPrefix        = regexp.MustCompile(`^yaml: (line \d+: )?`)
)

// newYAMLParseError converts a yaml.v3 error, whose position is only
// available in its message, into a ParseError.
func newYAMLParseError(source string, err error) *ParseError {
	msg := err.Error()
	pe := &ParseError{
		Path:    source,
		Message: yamlPrefix.ReplaceAllString(msg, ""),
		Err:     err,
	}
	if m := yamlLinePattern.FindStringSubmatch(msg); m != nil {
		pe.Line, _ = strconv.Atoi(m[1])
	}
	if m := yamlColumnPattern.FindStringSubmatch(msg); m != nil {
		pe.Column, _ = strconv.Atoi(m[1])
	}
	return pe
}
