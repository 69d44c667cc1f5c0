package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Doc is an insertion-ordered string-keyed mapping. Every entity in this
// package renders to a Doc so that JSON and YAML output keep a stable key
// order.
type Doc struct {
	keys []string
	vals map[string]any
}

// NewDoc returns an empty Doc.
func NewDoc() *Doc {
	return &Doc{vals: make(map[string]any)}
}

// Set stores v under k. Overwriting an existing key keeps its position.
func (d *Doc) Set(k string, v any) *Doc {
	if d.vals == nil {
		d.vals = make(map[string]any)
	}
	if _, ok := d.vals[k]; !ok {
		d.keys = append(d.keys, k)
	}
	d.vals[k] = v
	return d
}

// Get returns the value stored under k.
func (d *Doc) Get(k string) (any, bool) {
	if d == nil {
		return nil, false
	}
	v, ok := d.vals[k]
	return v, ok
}

// Delete removes k if present.
func (d *Doc) Delete(k string) {
	if _, ok := d.vals[k]; !ok {
		return
	}
	delete(d.vals, k)
	for i, key := range d.keys {
		if key == k {
			d.keys = append(d.keys[:i:i], d.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order.
func (d *Doc) Keys() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.keys))
	copy(out, d.keys)
	return out
}

// Len returns the number of keys.
func (d *Doc) Len() int {
	if d == nil {
		return 0
	}
	return len(d.keys)
}

// Clone returns a shallow copy.
func (d *Doc) Clone() *Doc {
	c := NewDoc()
	if d == nil {
		return c
	}
	for _, k := range d.keys {
		c.Set(k, d.vals[k])
	}
	return c
}

// MarshalJSON implements json.Marshaler.
func (d *Doc) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range d.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := json.Marshal(d.vals[k])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalYAML implements yaml.Marshaler.
func (d *Doc) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
	if d == nil {
		return n, nil
	}
	for _, k := range d.keys {
		kn := &yaml.Node{}
		kn.SetString(k)
		vn := &yaml.Node{}
		if err := vn.Encode(d.vals[k]); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		n.Content = append(n.Content, kn, vn)
	}
	return n, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Nested mappings decode to
// *Doc, sequences to []any and scalars to their natural Go types.
func (d *Doc) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	d.keys = nil
	d.vals = make(map[string]any, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		kn, vn := node.Content[i], node.Content[i+1]
		if kn.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: mapping key must be a scalar", kn.Line)
		}
		v, err := decodeNode(vn)
		if err != nil {
			return err
		}
		d.Set(kn.Value, v)
	}
	return nil
}

func decodeNode(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.MappingNode:
		sub := NewDoc()
		if err := sub.UnmarshalYAML(n); err != nil {
			return nil, err
		}
		return sub, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			v, err := decodeNode(c)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	case yaml.AliasNode:
		return decodeNode(n.Alias)
	default:
		var v any
		if err := n.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return v, nil
	}
}
