// Package tree provides the typed configuration tree shared by the loader,
// schema validator, scopes and merge engine.
//
// A tree is built from *Node values of four kinds: null, scalar, sequence and
// mapping. Mappings keep their keys in insertion order so that a section read
// from disk and written back keeps its layout. A nil *Node means "absent" and
// is distinct from an explicit null.
package tree

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Kind identifies the variant held by a Node.
type Kind uint8

const (
	// KindNull is an explicit null value.
	KindNull Kind = iota
	// KindScalar is a string, bool, int or float64.
	KindScalar
	// KindSequence is an ordered list of nodes.
	KindSequence
	// KindMapping is an ordered string-keyed map of nodes.
	KindMapping
)

// String returns the kind name used in error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindScalar:
		return "scalar"
	case KindSequence:
		return "sequence"
	case KindMapping:
		return "mapping"
	default:
		return "unknown"
	}
}

// Node is one value in a configuration tree.
type Node struct {
	kind   Kind
	scalar any
	items  []*Node
	keys   []string
	fields map[string]*Node
}

// Null returns an explicit null node.
func Null() *Node {
	return &Node{kind: KindNull}
}

// Scalar returns a scalar node. Integer types are normalized to int and
// float32 to float64. A nil value yields a null node.
func Scalar(v any) *Node {
	if v == nil {
		return Null()
	}
	return &Node{kind: KindScalar, scalar: normalizeScalar(v)}
}

// String returns a string scalar node.
func String(s string) *Node {
	return &Node{kind: KindScalar, scalar: s}
}

// Sequence returns a sequence node holding items.
func Sequence(items ...*Node) *Node {
	n := &Node{kind: KindSequence, items: make([]*Node, 0, len(items))}
	for _, item := range items {
		n.Append(item)
	}
	return n
}

// Mapping returns an empty mapping node.
func Mapping() *Node {
	return &Node{kind: KindMapping, fields: make(map[string]*Node)}
}

// Kind returns the node kind. A nil node reports KindNull.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindNull
	}
	return n.kind
}

// IsNull reports whether n is nil or an explicit null.
func (n *Node) IsNull() bool { return n == nil || n.kind == KindNull }

// IsScalar reports whether n is a scalar.
func (n *Node) IsScalar() bool { return n != nil && n.kind == KindScalar }

// IsSequence reports whether n is a sequence.
func (n *Node) IsSequence() bool { return n != nil && n.kind == KindSequence }

// IsMapping reports whether n is a mapping.
func (n *Node) IsMapping() bool { return n != nil && n.kind == KindMapping }

// Value returns the scalar value, or nil for any other kind.
func (n *Node) Value() any {
	if !n.IsScalar() {
		return nil
	}
	return n.scalar
}

// Str returns the string held by a string scalar.
func (n *Node) Str() (string, bool) {
	s, ok := n.Value().(string)
	return s, ok
}

// Bool returns the value held by a boolean scalar.
func (n *Node) Bool() (bool, bool) {
	b, ok := n.Value().(bool)
	return b, ok
}

// Int returns the value held by an integral scalar.
func (n *Node) Int() (int, bool) {
	switch v := n.Value().(type) {
	case int:
		return v, true
	case float64:
		if v == math.Trunc(v) {
			return int(v), true
		}
	}
	return 0, false
}

// Len returns the number of items in a sequence or keys in a mapping.
func (n *Node) Len() int {
	switch n.Kind() {
	case KindSequence:
		return len(n.items)
	case KindMapping:
		return len(n.keys)
	default:
		return 0
	}
}

// Items returns the items of a sequence. The slice must not be modified.
func (n *Node) Items() []*Node {
	if !n.IsSequence() {
		return nil
	}
	return n.items
}

// Append adds item to the end of a sequence. A nil item is stored as null.
func (n *Node) Append(item *Node) {
	if !n.IsSequence() {
		panic("tree: Append on " + n.Kind().String())
	}
	if item == nil {
		item = Null()
	}
	n.items = append(n.items, item)
}

// SetItem replaces the item at index i of a sequence.
func (n *Node) SetItem(i int, item *Node) {
	if !n.IsSequence() {
		panic("tree: SetItem on " + n.Kind().String())
	}
	if item == nil {
		item = Null()
	}
	n.items[i] = item
}

// Keys returns a copy of the mapping keys in insertion order.
func (n *Node) Keys() []string {
	if !n.IsMapping() {
		return nil
	}
	keys := make([]string, len(n.keys))
	copy(keys, n.keys)
	return keys
}

// Get returns the value stored under key in a mapping.
func (n *Node) Get(key string) (*Node, bool) {
	if !n.IsMapping() {
		return nil, false
	}
	v, ok := n.fields[key]
	return v, ok
}

// Has reports whether a mapping holds key.
func (n *Node) Has(key string) bool {
	_, ok := n.Get(key)
	return ok
}

// Set stores v under key. Existing keys keep their position; new keys are
// appended. A nil v is stored as null.
func (n *Node) Set(key string, v *Node) {
	if !n.IsMapping() {
		panic("tree: Set on " + n.Kind().String())
	}
	if v == nil {
		v = Null()
	}
	if _, exists := n.fields[key]; !exists {
		n.keys = append(n.keys, key)
	}
	n.fields[key] = v
}

// Delete removes key from a mapping and reports whether it was present.
func (n *Node) Delete(key string) bool {
	if !n.IsMapping() {
		return false
	}
	if _, ok := n.fields[key]; !ok {
		return false
	}
	delete(n.fields, key)
	for i, k := range n.keys {
		if k == key {
			n.keys = append(n.keys[:i], n.keys[i+1:]...)
			break
		}
	}
	return true
}

// Clone returns a deep copy of n. Cloning nil returns nil.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindSequence:
		c := &Node{kind: KindSequence, items: make([]*Node, len(n.items))}
		for i, item := range n.items {
			c.items[i] = item.Clone()
		}
		return c
	case KindMapping:
		c := &Node{
			kind:   KindMapping,
			keys:   make([]string, len(n.keys)),
			fields: make(map[string]*Node, len(n.fields)),
		}
		copy(c.keys, n.keys)
		for k, v := range n.fields {
			c.fields[k] = v.Clone()
		}
		return c
	default:
		return &Node{kind: n.kind, scalar: n.scalar}
	}
}

// Equal reports whether a and b are structurally equal. Mapping key order is
// not significant; numbers compare by value regardless of int/float form.
func Equal(a, b *Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindScalar:
		return scalarsEqual(a.scalar, b.scalar)
	case KindSequence:
		if len(a.items) != len(b.items) {
			return false
		}
		for i := range a.items {
			if !Equal(a.items[i], b.items[i]) {
				return false
			}
		}
		return true
	case KindMapping:
		if len(a.fields) != len(b.fields) {
			return false
		}
		for k, av := range a.fields {
			bv, ok := b.fields[k]
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}

// Contains reports whether a sequence holds an item equal to v.
func (n *Node) Contains(v *Node) bool {
	for _, item := range n.Items() {
		if Equal(item, v) {
			return true
		}
	}
	return false
}

// Interface converts n into plain Go values: map[string]any, []any, scalars
// and nil. Key order is lost.
func (n *Node) Interface() any {
	switch n.Kind() {
	case KindScalar:
		return n.scalar
	case KindSequence:
		out := make([]any, len(n.items))
		for i, item := range n.items {
			out[i] = item.Interface()
		}
		return out
	case KindMapping:
		out := make(map[string]any, len(n.fields))
		for k, v := range n.fields {
			out[k] = v.Interface()
		}
		return out
	default:
		return nil
	}
}

// FromInterface builds a tree from plain Go values. Go maps have no order, so
// their keys are inserted sorted.
func FromInterface(v any) (*Node, error) {
	switch val := v.(type) {
	case nil:
		return Null(), nil
	case *Node:
		return val.Clone(), nil
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return Scalar(val), nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return Scalar(i), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return Scalar(f), nil
	case []any:
		seq := Sequence()
		for i, item := range val {
			child, err := FromInterface(item)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			seq.Append(child)
		}
		return seq, nil
	case []string:
		seq := Sequence()
		for _, item := range val {
			seq.Append(String(item))
		}
		return seq, nil
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		m := Mapping()
		for _, k := range keys {
			child, err := FromInterface(val[k])
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			m.Set(k, child)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

// MustFromInterface is like FromInterface but panics on error.
func MustFromInterface(v any) *Node {
	n, err := FromInterface(v)
	if err != nil {
		panic(err)
	}
	return n
}

// Lookup follows path from n and returns the node it reaches.
func (n *Node) Lookup(path Path) (*Node, bool) {
	current := n
	for _, step := range path {
		if current == nil {
			return nil, false
		}
		if step.IsIndex() {
			items := current.Items()
			if step.Index() < 0 || step.Index() >= len(items) {
				return nil, false
			}
			current = items[step.Index()]
			continue
		}
		next, ok := current.Get(step.Key())
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, current != nil
}

// TypeName returns a short description of the node's type for messages.
func (n *Node) TypeName() string {
	switch n.Kind() {
	case KindScalar:
		switch n.scalar.(type) {
		case string:
			return "string"
		case bool:
			return "boolean"
		case int:
			return "integer"
		case float64:
			return "number"
		}
		return "scalar"
	case KindSequence:
		return "array"
	case KindMapping:
		return "object"
	default:
		return "null"
	}
}

func normalizeScalar(v any) any {
	switch val := v.(type) {
	case int:
		return val
	case int8:
		return int(val)
	case int16:
		return int(val)
	case int32:
		return int(val)
	case int64:
		return int(val)
	case uint:
		return int(val)
	case uint8:
		return int(val)
	case uint16:
		return int(val)
	case uint32:
		return int(val)
	case uint64:
		return int(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}

func scalarsEqual(a, b any) bool {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		return af == bf
	}
	return a == b
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case int:
		return float64(val), true
	case float64:
		return val, true
	default:
		return 0, false
	}
}
