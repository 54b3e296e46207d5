package tree

import (
	"fmt"
	"strconv"
	"strings"
)

// Step is one hop in a Path: either a mapping key or a sequence index.
type Step struct {
	key   string
	index int
	isIdx bool
}

// Key returns a mapping key step.
func Key(k string) Step { return Step{key: k} }

// Index returns a sequence index step.
func Index(i int) Step { return Step{index: i, isIdx: true} }

// IsIndex reports whether the step addresses a sequence item.
func (s Step) IsIndex() bool { return s.isIdx }

// Key returns the mapping key of a key step.
func (s Step) Key() string { return s.key }

// Index returns the position of an index step.
func (s Step) Index() int { return s.index }

// Path addresses a node inside a tree, starting at the document root.
type Path []Step

// Child returns a copy of p extended by a key step.
func (p Path) Child(key string) Path {
	return p.append(Key(key))
}

// Item returns a copy of p extended by an index step.
func (p Path) Item(i int) Path {
	return p.append(Index(i))
}

// Parent returns p without its last step. The root's parent is the root.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return p
	}
	return p[:len(p)-1:len(p)-1]
}

// IsRoot reports whether p addresses the document root.
func (p Path) IsRoot() bool { return len(p) == 0 }

func (p Path) append(s Step) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, s)
}

// String renders p in a dotted form for messages, e.g. "config.build_stage[1]".
// Keys containing dots or brackets are quoted.
func (p Path) String() string {
	var b strings.Builder
	for i, s := range p {
		if s.isIdx {
			b.WriteString("[")
			b.WriteString(strconv.Itoa(s.index))
			b.WriteString("]")
			continue
		}
		if i > 0 {
			b.WriteByte('.')
		}
		if strings.ContainsAny(s.key, ".[]\"") || s.key == "" {
			b.WriteString(strconv.Quote(s.key))
		} else {
			b.WriteString(s.key)
		}
	}
	return b.String()
}

// id is an unambiguous encoding used as the Locations key.
func (p Path) id() string {
	var b strings.Builder
	for _, s := range p {
		if s.isIdx {
			fmt.Fprintf(&b, "#%d\x00", s.index)
		} else {
			b.WriteString("$")
			b.WriteString(s.key)
			b.WriteByte(0)
		}
	}
	return b.String()
}

// Position is a source location. Line and Column are 1-based; zero means
// unknown.
type Position struct {
	File   string
	Line   int
	Column int
}

// IsValid reports whether the position carries a line number.
func (p Position) IsValid() bool { return p.Line > 0 }

// String renders the position as file:line:column, omitting unknown parts.
func (p Position) String() string {
	s := p.File
	if p.Line > 0 {
		if s != "" {
			s += ":"
		}
		s += strconv.Itoa(p.Line)
		if p.Column > 0 {
			s += ":" + strconv.Itoa(p.Column)
		}
	}
	return s
}

// Locations maps tree paths to their source positions. It is populated by the
// loader and consulted when reporting validation failures.
type Locations struct {
	file      string
	positions map[string]Position
}

// NewLocations returns an empty table for nodes read from file.
func NewLocations(file string) *Locations {
	return &Locations{file: file, positions: make(map[string]Position)}
}

// File returns the file the table describes.
func (l *Locations) File() string {
	if l == nil {
		return ""
	}
	return l.file
}

// Record stores the position of the node at path.
func (l *Locations) Record(path Path, line, column int) {
	if l == nil {
		return
	}
	l.positions[path.id()] = Position{File: l.file, Line: line, Column: column}
}

// Lookup returns the position recorded for path.
func (l *Locations) Lookup(path Path) (Position, bool) {
	if l == nil {
		return Position{}, false
	}
	pos, ok := l.positions[path.id()]
	return pos, ok
}

// Nearest returns the position of path or, failing that, of its closest
// located ancestor. When nothing is located only the file is returned.
func (l *Locations) Nearest(path Path) Position {
	if l == nil {
		return Position{}
	}
	for p := path; ; p = p.Parent() {
		if pos, ok := l.Lookup(p); ok {
			return pos
		}
		if p.IsRoot() {
			break
		}
	}
	return Position{File: l.file}
}

// Len returns the number of recorded positions.
func (l *Locations) Len() int {
	if l == nil {
		return 0
	}
	return len(l.positions)
}
