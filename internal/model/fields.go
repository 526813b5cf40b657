package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// maxValueDepth bounds alias/merge resolution on hostile documents.
const maxValueDepth = 64

var errTooDeep = errors.New("yaml value nested too deeply")

// Fields is an insertion-ordered string-keyed map.
//
// Proxy and group records are open-ended (every client understands a different
// set of keys), so they are carried as ordered fields instead of structs. Output
// keeps the key order of the input document.
type Fields struct {
	keys   []string
	values map[string]any
}

func NewFields() *Fields {
	return &Fields{values: make(map[string]any)}
}

func (f *Fields) Len() int {
	if f == nil {
		return 0
	}
	return len(f.keys)
}

// Keys returns a copy of the keys in insertion order.
func (f *Fields) Keys() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

func (f *Fields) Get(key string) (any, bool) {
	if f == nil || f.values == nil {
		return nil, false
	}
	v, ok := f.values[key]
	return v, ok
}

func (f *Fields) Has(key string) bool {
	_, ok := f.Get(key)
	return ok
}

// Set stores v under key. An existing key keeps its position.
func (f *Fields) Set(key string, v any) {
	if f.values == nil {
		f.values = make(map[string]any)
	}
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

func (f *Fields) Delete(key string) bool {
	if f == nil || f.values == nil {
		return false
	}
	if _, ok := f.values[key]; !ok {
		return false
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
	return true
}

// Str returns the value under key rendered as a string. Missing and null values
// yield "".
func (f *Fields) Str(key string) string {
	v, ok := f.Get(key)
	if !ok {
		return ""
	}
	return Stringify(v)
}

// Bool reports whether key holds a truthy value (true, "true", "1").
func (f *Fields) Bool(key string) bool {
	v, ok := f.Get(key)
	if !ok {
		return false
	}
	switch t := v.(type) {
	case bool:
		return t
	case string:
		return t == "true" || t == "1"
	case int:
		return t != 0
	}
	return false
}

// Sub returns the nested mapping under key, if any.
func (f *Fields) Sub(key string) (*Fields, bool) {
	v, ok := f.Get(key)
	if !ok {
		return nil, false
	}
	sub, ok := v.(*Fields)
	return sub, ok
}

// Clone returns a deep copy.
func (f *Fields) Clone() *Fields {
	if f == nil {
		return nil
	}
	out := &Fields{
		keys:   make([]string, len(f.keys)),
		values: make(map[string]any, len(f.values)),
	}
	copy(out.keys, f.keys)
	for k, v := range f.values {
		out.values[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case *Fields:
		return t.Clone()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		out := make([]string, len(t))
		copy(out, t)
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, v := range t {
			out[k] = cloneValue(v)
		}
		return out
	default:
		return v
	}
}

// Plain converts f into nested map[string]any / []any values.
func (f *Fields) Plain() map[string]any {
	out := make(map[string]any, f.Len())
	if f == nil {
		return out
	}
	for _, k := range f.keys {
		out[k] = plainValue(f.values[k])
	}
	return out
}

func plainValue(v any) any {
	switch t := v.(type) {
	case *Fields:
		return t.Plain()
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = plainValue(t[i])
		}
		return out
	default:
		return v
	}
}

// Canonical returns an order-independent encoding of f without the given keys.
// Two records with the same canonical form are structurally equal.
func (f *Fields) Canonical(exclude ...string) string {
	m := f.Plain()
	for _, k := range exclude {
		delete(m, k)
	}
	b, err := json.Marshal(m)
	if err != nil {
		// NaN/Inf floats are the only realistic cause; fall back to fmt, which
		// also prints maps in sorted key order.
		return fmt.Sprint(m)
	}
	return string(b)
}

func (f *Fields) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if f == nil {
		return n, nil
	}
	for _, k := range f.keys {
		var vn yaml.Node
		if err := vn.Encode(f.values[k]); err != nil {
			return nil, fmt.Errorf("encode %q: %w", k, err)
		}
		n.Content = append(n.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: k},
			&vn,
		)
	}
	return n, nil
}

func (f *Fields) UnmarshalYAML(value *yaml.Node) error {
	return f.fromNode(value, 0)
}

func (f *Fields) fromNode(value *yaml.Node, depth int) error {
	if depth > maxValueDepth {
		return errTooDeep
	}
	value = resolveAlias(value)
	if value.Kind == yaml.DocumentNode {
		if len(value.Content) == 0 {
			return fmt.Errorf("empty document")
		}
		value = resolveAlias(value.Content[0])
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", value.Line)
	}

	f.keys = nil
	f.values = make(map[string]any, len(value.Content)/2)

	var merges []*yaml.Node
	for i := 0; i+1 < len(value.Content); i += 2 {
		k, v := value.Content[i], value.Content[i+1]
		if k.Tag == "!!merge" || (k.Kind == yaml.ScalarNode && k.Value == "<<") {
			merges = append(merges, v)
			continue
		}
		val, err := decodeValue(v, depth+1)
		if err != nil {
			return err
		}
		f.Set(k.Value, val)
	}

	// Explicit keys win over merged ones.
	for _, m := range merges {
		m = resolveAlias(m)
		var sources []*yaml.Node
		switch m.Kind {
		case yaml.MappingNode:
			sources = []*yaml.Node{m}
		case yaml.SequenceNode:
			sources = m.Content
		default:
			return fmt.Errorf("line %d: merge value must be a mapping", m.Line)
		}
		for _, src := range sources {
			sub := NewFields()
			if err := sub.fromNode(src, depth+1); err != nil {
				return err
			}
			for _, k := range sub.keys {
				if !f.Has(k) {
					f.Set(k, sub.values[k])
				}
			}
		}
	}
	return nil
}

func decodeValue(n *yaml.Node, depth int) (any, error) {
	if depth > maxValueDepth {
		return nil, errTooDeep
	}
	n = resolveAlias(n)
	switch n.Kind {
	case yaml.MappingNode:
		sub := NewFields()
		if err := sub.fromNode(n, depth); err != nil {
			return nil, err
		}
		return sub, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeValue(c, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, err
		}
		return v, nil
	}
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for i := 0; n != nil && n.Kind == yaml.AliasNode && n.Alias != nil && i < maxValueDepth; i++ {
		n = n.Alias
	}
	return n
}

// Stringify renders a scalar field value the way it would read in a document.
func Stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case uint64:
		return strconv.FormatUint(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
