package scope

import (
	"github.com/dshills/scopecfg/internal/config/registry"
	"github.com/dshills/scopecfg/internal/config/tree"
)

// Merge merges src into dest and returns the result. Rules, applied at every
// level:
//
//   - a null src yields null;
//   - two sequences yield src's items followed by dest's items that do not
//     appear in src;
//   - two mappings merge key by key, src-only keys are appended in src order;
//   - anything else yields a copy of src.
//
// dest may be modified and reused in the result. src is never aliased.
func Merge(dest, src *tree.Node) *tree.Node {
	switch {
	case src == nil:
		return dest
	case src.IsNull():
		return tree.Null()
	case dest.IsSequence() && src.IsSequence():
		out := tree.Sequence()
		for _, item := range src.Items() {
			out.Append(item.Clone())
		}
		for _, item := range dest.Items() {
			if !src.Contains(item) {
				out.Append(item)
			}
		}
		return out
	case dest.IsMapping() && src.IsMapping():
		for _, key := range src.Keys() {
			sv, _ := src.Get(key)
			dv, exists := dest.Get(key)
			if !exists {
				dest.Set(key, sv.Clone())
				continue
			}
			dest.Set(key, Merge(dv, sv))
		}
		return dest
	default:
		return src.Clone()
	}
}

// Contribution is one scope's document for a section.
type Contribution struct {
	Scope string
	Path  string
	// Doc is the whole file document, or nil when the file is absent.
	Doc *tree.Node
}

// Fold merges contributions in ascending precedence and returns the section
// value. The result starts as an empty mapping. For each contribution:
//
//   - an absent, empty or non-mapping document is skipped;
//   - an override key ("<section>:") replaces everything merged so far, and
//     takes priority over a plain key in the same file;
//   - a plain key is merged with Merge;
//   - a mapping with neither key is reported to warn and skipped.
//
// Nested override markers are not interpreted. The result shares no nodes
// with the contributions.
func Fold(section string, contributions []Contribution, warn func(MalformedScopeWarning)) *tree.Node {
	acc := tree.Mapping()
	overrideKey := section + registry.OverrideMarker

	for _, c := range contributions {
		if !c.Doc.IsMapping() || c.Doc.Len() == 0 {
			continue
		}
		if v, ok := c.Doc.Get(overrideKey); ok {
			acc = v.Clone()
			continue
		}
		if v, ok := c.Doc.Get(section); ok {
			acc = Merge(acc, v)
			continue
		}
		if warn != nil {
			warn(MalformedScopeWarning{Scope: c.Scope, Path: c.Path, Section: section})
		}
	}

	return acc
}
