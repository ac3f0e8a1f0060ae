package workflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Node is one step of a backend workflow graph in API format.
type Node struct {
	ClassType string         `json:"class_type"`
	Inputs    map[string]any `json:"inputs"`
	Meta      map[string]any `json:"_meta,omitempty"`
}

// Graph maps node keys to nodes.
type Graph map[string]Node

// ParseGraph decodes an API-format workflow. Numbers are kept as json.Number
// so large integers survive a round trip untouched.
func ParseGraph(data []byte) (Graph, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var g Graph
	if err := dec.Decode(&g); err != nil {
		return nil, fmt.Errorf("workflow: decode template: %w", err)
	}
	if len(g) == 0 {
		return nil, fmt.Errorf("workflow: template has no nodes")
	}
	for key, node := range g {
		if node.ClassType == "" {
			return nil, fmt.Errorf("workflow: node %q has no class_type", key)
		}
	}
	return g, nil
}

// Clone returns a structurally independent copy of g.
func (g Graph) Clone() Graph {
	if g == nil {
		return nil
	}
	out := make(Graph, len(g))
	for key, node := range g {
		out[key] = node.Clone()
	}
	return out
}

// Clone copies the node including every nested input value.
func (n Node) Clone() Node {
	return Node{
		ClassType: n.ClassType,
		Inputs:    cloneMap(n.Inputs),
		Meta:      cloneMap(n.Meta),
	}
}

// Keys returns the node keys in sorted order.
func (g Graph) Keys() []string {
	keys := make([]string, 0, len(g))
	for k := range g {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = cloneValue(item)
		}
		return out
	case []byte:
		return append([]byte(nil), t...)
	default:
		// strings, bools, json.Number, numeric kinds and nil are immutable
		return t
	}
}
