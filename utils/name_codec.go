package utils

import (
	"fmt"
	"sort"
	"strings"
)

// NameCodec maps a closed set of enum values to the names they carry on the
// wire and back. It is built once and never modified, so it is safe for
// concurrent use.
//
// Decoding is case-insensitive: coordinators are not consistent about the
// spelling of enum names across versions.
type NameCodec[K comparable] struct {
	names  map[K]string
	values map[string]K // keyed by upper-cased name
}

// NewNameCodec builds a codec from the given value/name pairs. The input map is
// copied. It panics if two values share a name, since decoding would be
// ambiguous; codecs are declared as package variables, so this surfaces at init.
func NewNameCodec[K comparable](input map[K]string) *NameCodec[K] {
	c := &NameCodec[K]{
		names:  make(map[K]string, len(input)),
		values: make(map[string]K, len(input)),
	}
	for value, name := range input {
		key := strings.ToUpper(name)
		if _, dup := c.values[key]; dup {
			panic(fmt.Sprintf("utils: duplicate name %q in NameCodec", name))
		}
		c.names[value] = name
		c.values[key] = value
	}
	return c
}

// Name returns the wire name of value.
func (c *NameCodec[K]) Name(value K) (string, bool) {
	name, ok := c.names[value]
	return name, ok
}

// Value returns the value whose wire name matches name, ignoring case.
func (c *NameCodec[K]) Value(name string) (K, bool) {
	value, ok := c.values[strings.ToUpper(name)]
	return value, ok
}

// Names returns every registered name in sorted order.
func (c *NameCodec[K]) Names() []string {
	out := make([]string, 0, len(c.names))
	for _, name := range c.names {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of registered values.
func (c *NameCodec[K]) Len() int {
	return len(c.names)
}
