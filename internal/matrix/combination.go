package matrix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
)

// Combination is one concrete binding of matrix axes to values. The zero
// set (no matrix) is represented by an empty combination. Combinations are
// immutable after construction.
type Combination struct {
	values map[string]cty.Value
}

// NewCombination builds a combination from an axis-value mapping. The map
// is copied.
func NewCombination(values map[string]cty.Value) *Combination {
	c := &Combination{values: make(map[string]cty.Value, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Empty reports whether the combination binds no axes.
func (c *Combination) Empty() bool {
	return len(c.values) == 0
}

// Value returns the bound value for an axis.
func (c *Combination) Value(axis string) (cty.Value, bool) {
	v, ok := c.values[axis]
	return v, ok
}

// Key renders the canonical combination key: axis=value pairs sorted by
// axis name, comma-joined. Two combinations are the same instance identity
// exactly when their keys are equal.
func (c *Combination) Key() string {
	names := make([]string, 0, len(c.values))
	for name := range c.values {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"="+RenderValue(c.values[name]))
	}
	return strings.Join(parts, ",")
}

// Strings returns the combination rendered as plain strings, keyed by axis
// name. Used for predicate evaluation and leaf environment construction.
func (c *Combination) Strings() map[string]string {
	out := make(map[string]string, len(c.values))
	for name, v := range c.values {
		out[name] = RenderValue(v)
	}
	return out
}

// Object returns the combination as a cty object value for expression
// evaluation. An empty combination yields an empty object.
func (c *Combination) Object() cty.Value {
	if len(c.values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(c.values)
}

// RenderValue converts a primitive cty value to its string rendering, as
// used in combination keys, logs, and leaf environments.
// Non-primitive values fall back to GoString, which only shows up in
// diagnostics for malformed axis values.
func RenderValue(v cty.Value) string {
	if v.IsNull() || !v.IsKnown() {
		return ""
	}
	switch v.Type() {
	case cty.String:
		return v.AsString()
	case cty.Number:
		bf := v.AsBigFloat()
		return bf.Text('f', -1)
	case cty.Bool:
		if v.True() {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprintf("%#v", v)
	}
}
