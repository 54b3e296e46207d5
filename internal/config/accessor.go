package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/dshills/scopecfg/internal/config/tree"
)

// Get returns the merged value at a dot-separated path whose first element
// is the section name, for example "config.build_jobs" or
// "packages.mpich.buildable".
func (c *Config) Get(path string) (*tree.Node, error) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrSettingNotFound, path)
	}

	value, err := c.Resolve(parts[0], "")
	if err != nil {
		return nil, err
	}

	steps := make(tree.Path, 0, len(parts)-1)
	for _, p := range parts[1:] {
		steps = append(steps, tree.Key(p))
	}
	node, ok := value.Lookup(steps)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	return node, nil
}

// GetString returns a string value at the given path.
func (c *Config) GetString(path string) (string, error) {
	n, err := c.Get(path)
	if err != nil {
		return "", err
	}
	s, ok := n.Str()
	if !ok {
		return "", &TypeError{Path: path, Expected: "string", Actual: n.TypeName()}
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (c *Config) GetInt(path string) (int, error) {
	n, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	i, ok := n.Int()
	if !ok {
		return 0, &TypeError{Path: path, Expected: "integer", Actual: n.TypeName()}
	}
	return i, nil
}

// GetBool returns a boolean value at the given path.
func (c *Config) GetBool(path string) (bool, error) {
	n, err := c.Get(path)
	if err != nil {
		return false, err
	}
	b, ok := n.Bool()
	if !ok {
		return false, &TypeError{Path: path, Expected: "boolean", Actual: n.TypeName()}
	}
	return b, nil
}

// GetFloat returns a float64 value at the given path.
func (c *Config) GetFloat(path string) (float64, error) {
	n, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	switch v := n.Value().(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	default:
		return 0, &TypeError{Path: path, Expected: "number", Actual: n.TypeName()}
	}
}

// GetStringSlice returns a string slice at the given path.
func (c *Config) GetStringSlice(path string) ([]string, error) {
	n, err := c.Get(path)
	if err != nil {
		return nil, err
	}
	if !n.IsSequence() {
		return nil, &TypeError{Path: path, Expected: "array", Actual: n.TypeName()}
	}

	result := make([]string, 0, n.Len())
	for _, item := range n.Items() {
		s, ok := item.Str()
		if !ok {
			return nil, &TypeError{Path: path, Expected: "array of strings", Actual: "array of " + item.TypeName()}
		}
		result = append(result, s)
	}
	return result, nil
}

// GetDuration returns a duration value at the given path. Strings are parsed
// with time.ParseDuration; integers are taken as seconds.
func (c *Config) GetDuration(path string) (time.Duration, error) {
	n, err := c.Get(path)
	if err != nil {
		return 0, err
	}
	if s, ok := n.Str(); ok {
		d, err := time.ParseDuration(s)
		if err != nil {
			return 0, &TypeError{Path: path, Expected: "duration", Actual: fmt.Sprintf("%q", s)}
		}
		return d, nil
	}
	if i, ok := n.Int(); ok {
		return time.Duration(i) * time.Second, nil
	}
	return 0, &TypeError{Path: path, Expected: "duration", Actual: n.TypeName()}
}

// GetMap returns a mapping at the given path as plain Go values.
func (c *Config) GetMap(path string) (map[string]any, error) {
	n, err := c.Get(path)
	if err != nil {
		return nil, err
	}
	if !n.IsMapping() {
		return nil, &TypeError{Path: path, Expected: "object", Actual: n.TypeName()}
	}
	return n.Interface().(map[string]any), nil
}

// splitPath splits a dot-separated path into parts, dropping empty parts.
func splitPath(path string) []string {
	var parts []string
	for _, p := range strings.Split(path, ".") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}
