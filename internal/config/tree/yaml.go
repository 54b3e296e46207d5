package tree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DecodeError reports a structural fault found while converting a YAML node
// graph into a tree.
type DecodeError struct {
	Line    int
	Column  int
	Message string
}

func (e *DecodeError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// maxAliasDepth bounds alias expansion.
const maxAliasDepth = 64

// FromYAML converts a parsed YAML node into a tree, recording the position of
// every node in locs (which may be nil). A document node is unwrapped; an
// empty document yields nil. Mapping entries are located at their key.
func FromYAML(n *yaml.Node, locs *Locations) (*Node, error) {
	if n == nil || n.Kind == 0 {
		return nil, nil
	}
	if n.Kind == yaml.DocumentNode {
		if len(n.Content) == 0 {
			return nil, nil
		}
		n = n.Content[0]
	}
	d := &yamlDecoder{locs: locs}
	return d.node(n, nil, n.Line, n.Column, 0)
}

type yamlDecoder struct {
	locs *Locations
}

func (d *yamlDecoder) node(n *yaml.Node, path Path, line, col, depth int) (*Node, error) {
	if depth > maxAliasDepth {
		return nil, &DecodeError{Line: n.Line, Column: n.Column, Message: "alias nesting too deep"}
	}
	d.locs.Record(path, line, col)

	switch n.Kind {
	case yaml.AliasNode:
		if n.Alias == nil {
			return nil, &DecodeError{Line: n.Line, Column: n.Column, Message: "unknown alias"}
		}
		return d.node(n.Alias, path, line, col, depth+1)
	case yaml.ScalarNode:
		return d.scalar(n)
	case yaml.SequenceNode:
		seq := Sequence()
		for i, item := range n.Content {
			child, err := d.node(item, path.Item(i), item.Line, item.Column, depth)
			if err != nil {
				return nil, err
			}
			seq.Append(child)
		}
		return seq, nil
	case yaml.MappingNode:
		return d.mapping(n, path, depth)
	default:
		return nil, &DecodeError{Line: n.Line, Column: n.Column, Message: "unexpected YAML node"}
	}
}

func (d *yamlDecoder) scalar(n *yaml.Node) (*Node, error) {
	if n.ShortTag() == "!!null" {
		return Null(), nil
	}
	var v any
	if err := n.Decode(&v); err != nil {
		return nil, &DecodeError{Line: n.Line, Column: n.Column, Message: err.Error()}
	}
	switch v.(type) {
	case nil:
		return Null(), nil
	case string, bool, int, int64, uint64, float64:
		return Scalar(v), nil
	default:
		return String(n.Value), nil
	}
}

func (d *yamlDecoder) mapping(n *yaml.Node, path Path, depth int) (*Node, error) {
	m := Mapping()
	seen := make(map[string]int, len(n.Content)/2)
	var merges []*yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		keyNode, valNode := n.Content[i], n.Content[i+1]
		if keyNode.Kind == yaml.ScalarNode && keyNode.ShortTag() == "!!merge" {
			merges = append(merges, valNode)
			continue
		}
		key, err := mappingKey(keyNode)
		if err != nil {
			return nil, err
		}
		if first, dup := seen[key]; dup {
			return nil, &DecodeError{
				Line:    keyNode.Line,
				Column:  keyNode.Column,
				Message: fmt.Sprintf("mapping key %q already defined at line %d", key, first),
			}
		}
		seen[key] = keyNode.Line
		child, err := d.node(valNode, path.Child(key), keyNode.Line, keyNode.Column, depth)
		if err != nil {
			return nil, err
		}
		m.Set(key, child)
	}

	for _, merge := range merges {
		if err := d.applyMerge(m, merge, path, depth); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// applyMerge copies keys from a "<<" source that the mapping does not already
// define.
func (d *yamlDecoder) applyMerge(m *Node, src *yaml.Node, path Path, depth int) error {
	var sources []*yaml.Node
	switch {
	case src.Kind == yaml.SequenceNode:
		sources = src.Content
	default:
		sources = []*yaml.Node{src}
	}
	for _, s := range sources {
		merged, err := d.node(s, nil, s.Line, s.Column, depth+1)
		if err != nil {
			return err
		}
		if !merged.IsMapping() {
			return &DecodeError{Line: s.Line, Column: s.Column, Message: "map merge requires a mapping or a list of mappings"}
		}
		for _, k := range merged.Keys() {
			if m.Has(k) {
				continue
			}
			v, _ := merged.Get(k)
			m.Set(k, v)
			d.locs.Record(path.Child(k), s.Line, s.Column)
		}
	}
	return nil
}

func mappingKey(n *yaml.Node) (string, error) {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	if n.Kind != yaml.ScalarNode {
		return "", &DecodeError{Line: n.Line, Column: n.Column, Message: "mapping keys must be scalars"}
	}
	if n.ShortTag() == "!!null" {
		return "", &DecodeError{Line: n.Line, Column: n.Column, Message: "mapping keys must not be null"}
	}
	return n.Value, nil
}

// ToYAML converts n into a YAML node graph that keeps mapping key order.
// A nil node is encoded as null.
func ToYAML(n *Node) *yaml.Node {
	switch n.Kind() {
	case KindScalar:
		return scalarYAML(n.scalar)
	case KindSequence:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range n.items {
			out.Content = append(out.Content, ToYAML(item))
		}
		return out
	case KindMapping:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, k := range n.keys {
			out.Content = append(out.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
				ToYAML(n.fields[k]),
			)
		}
		return out
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}
}

func scalarYAML(v any) *yaml.Node {
	switch val := v.(type) {
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: val}
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(val)}
	case int:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(val)}
	case float64:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: formatYAMLFloat(val)}
	default:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprint(val)}
	}
}

func formatYAMLFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// MarshalYAML implements yaml.Marshaler.
func (n *Node) MarshalYAML() (any, error) {
	return ToYAML(n), nil
}

// EncodeYAML serializes n as a YAML document with two-space indentation.
func EncodeYAML(n *Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(ToYAML(n)); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler, keeping mapping key order.
func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSON(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeJSON(buf *bytes.Buffer, n *Node) error {
	switch n.Kind() {
	case KindScalar:
		if f, ok := n.scalar.(float64); ok && (math.IsInf(f, 0) || math.IsNaN(f)) {
			return fmt.Errorf("cannot encode %v as JSON", f)
		}
		b, err := json.Marshal(n.scalar)
		if err != nil {
			return err
		}
		buf.Write(b)
	case KindSequence:
		buf.WriteByte('[')
		for i, item := range n.items {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSON(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case KindMapping:
		buf.WriteByte('{')
		for i, k := range n.keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return err
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeJSON(buf, n.fields[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		buf.WriteString("null")
	}
	return nil
}

// ParseJSON decodes a JSON document into a tree. Object key order is kept.
func ParseJSON(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	n, err := readJSON(dec)
	if err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return n, nil
}

func readJSON(dec *json.Decoder) (*Node, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			m := Mapping()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("invalid object key %v", kt)
				}
				if m.Has(key) {
					return nil, fmt.Errorf("duplicate object key %q", key)
				}
				v, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			seq := Sequence()
			for dec.More() {
				v, err := readJSON(dec)
				if err != nil {
					return nil, err
				}
				seq.Append(v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return FromInterface(t)
	}
}
