package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ParseYAML resolves a RuleSet from YAML text. The document is converted to
// JSON with mapping order preserved and then resolved like any JSON document,
// so placeholders are written as the quoted scalar "{{name}}".
func ParseYAML(data []byte) (*RuleSet, error) {
	raw, err := YAMLToJSON(data)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// YAMLToJSON converts a single YAML document to JSON text, keeping the order
// of mapping keys.
func YAMLToJSON(data []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}

	var buf bytes.Buffer
	if err := writeNode(&buf, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidYAML, err)
	}
	return buf.Bytes(), nil
}

func writeNode(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			buf.WriteString("null")
			return nil
		}
		return writeNode(buf, n.Content[0])

	case yaml.MappingNode:
		pairs, err := mappingPairs(n)
		if err != nil {
			return err
		}
		buf.WriteByte('{')
		for i, p := range pairs {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(p.key.Value)
			if err != nil {
				return err
			}
			buf.Write(key)
			buf.WriteByte(':')
			if err := writeNode(buf, p.value); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeNode(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil

	case yaml.AliasNode:
		return writeNode(buf, n.Alias)

	case yaml.ScalarNode:
		var v any
		if err := n.Decode(&v); err != nil {
			return err
		}
		out, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		buf.Write(out)
		return nil
	}

	return fmt.Errorf("line %d: unsupported YAML node", n.Line)
}

type nodePair struct {
	key, value *yaml.Node
}

// mappingPairs returns the key/value pairs of a mapping with merge keys
// (<<: *anchor) expanded in place. Keys written in the mapping itself win over
// merged ones, and earlier merge sources win over later ones.
func mappingPairs(n *yaml.Node) ([]nodePair, error) {
	explicit := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		if !isMergeKey(n.Content[i]) {
			explicit[n.Content[i].Value] = true
		}
	}

	var pairs []nodePair
	merged := make(map[string]bool)
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		if !isMergeKey(k) {
			pairs = append(pairs, nodePair{k, v})
			continue
		}

		sources, err := mergeSources(v)
		if err != nil {
			return nil, err
		}
		for _, src := range sources {
			inherited, err := mappingPairs(src)
			if err != nil {
				return nil, err
			}
			for _, p := range inherited {
				if explicit[p.key.Value] || merged[p.key.Value] {
					continue
				}
				merged[p.key.Value] = true
				pairs = append(pairs, p)
			}
		}
	}
	return pairs, nil
}

func isMergeKey(k *yaml.Node) bool {
	return k.Kind == yaml.ScalarNode && k.ShortTag() == "!!merge"
}

// mergeSources resolves the value of a merge key to the mappings it names.
func mergeSources(v *yaml.Node) ([]*yaml.Node, error) {
	v = resolveAlias(v)
	switch v.Kind {
	case yaml.MappingNode:
		return []*yaml.Node{v}, nil
	case yaml.SequenceNode:
		sources := make([]*yaml.Node, 0, len(v.Content))
		for _, item := range v.Content {
			item = resolveAlias(item)
			if item.Kind != yaml.MappingNode {
				return nil, fmt.Errorf("line %d: merge sequence may only contain mappings", item.Line)
			}
			sources = append(sources, item)
		}
		return sources, nil
	}
	return nil, fmt.Errorf("line %d: merge value must be a mapping or a sequence of mappings", v.Line)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = n.Alias
	}
	return n
}
