package grantfile

import (
	"context"
	"fmt"
	"os"

	"go.mongodb.org/mongo-driver/bson"
	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/who-can-in-go/pkg/grant"
)

// Entry is one tagged statement of a grant file
type Entry struct {
	Kind       Kind
	Identifier any
	Action     any
	Target     any

	// Line is the source line of the entry, zero when built in code
	Line int
}

// Triple returns the key the entry applies to
func (e Entry) Triple() grant.Triple {
	return grant.Triple{Identifier: e.Identifier, Action: e.Action, Target: e.Target}
}

// Entries is the content of a grant file
type Entries []Entry

// Applier receives entries in order
type Applier interface {
	Allow(ctx context.Context, identifier, action, target any) error
	Disallow(ctx context.Context, identifier, action, target any) error
}

// Parse decodes a grant file
func Parse(data []byte) (Entries, error) {
	var entries Entries
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Load reads and decodes the grant file at path
func Load(path string) (Entries, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read grant file: %w", err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse grant file %s: %w", path, err)
	}
	return entries, nil
}

// Apply applies entries in order and stops at the first error. It returns
// how many entries were applied.
func Apply(ctx context.Context, a Applier, entries Entries) (int, error) {
	for i, e := range entries {
		var err error
		switch e.Kind {
		case KindAllow:
			err = a.Allow(ctx, e.Identifier, e.Action, e.Target)
		case KindDisallow:
			err = a.Disallow(ctx, e.Identifier, e.Action, e.Target)
		default:
			err = fmt.Errorf("unknown entry kind %s", e.Kind)
		}
		if err != nil {
			return i, fmt.Errorf("entry %d (%s %s): %w", i+1, e.Kind.Tag(), e.Triple(), err)
		}
	}
	return len(entries), nil
}

// UnmarshalYAML decodes a sequence of !allow and !disallow mappings
func (s *Entries) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: grant file must be a sequence", value.Line)
	}

	entries := make(Entries, 0, len(value.Content))
	for _, node := range value.Content {
		entry, err := decodeEntry(node)
		if err != nil {
			return err
		}
		entries = append(entries, entry)
	}
	*s = entries
	return nil
}

func decodeEntry(node *yaml.Node) (Entry, error) {
	entry := Entry{Line: node.Line}
	switch node.Tag {
	case KindAllow.Tag():
		entry.Kind = KindAllow
	case KindDisallow.Tag():
		entry.Kind = KindDisallow
	default:
		return Entry{}, fmt.Errorf("line %d: unknown tag %q, expected %s or %s",
			node.Line, node.Tag, KindAllow.Tag(), KindDisallow.Tag())
	}

	if node.Kind != yaml.MappingNode {
		return Entry{}, fmt.Errorf("line %d: %s must be a mapping", node.Line, node.Tag)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i].Value
		value, err := decodeValue(node.Content[i+1])
		if err != nil {
			return Entry{}, err
		}
		switch key {
		case "identifier":
			entry.Identifier = value
		case "action":
			entry.Action = value
		case "target":
			entry.Target = value
		default:
			return Entry{}, fmt.Errorf("line %d: unknown field %q", node.Content[i].Line, key)
		}
	}

	if err := entry.Triple().Validate(); err != nil {
		return Entry{}, fmt.Errorf("line %d: %w", node.Line, err)
	}
	return entry, nil
}

// decodeValue keeps mapping keys in source order
func decodeValue(node *yaml.Node) (any, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return decodeValue(node.Alias)
	case yaml.MappingNode:
		doc := make(bson.D, 0, len(node.Content)/2)
		for i := 0; i+1 < len(node.Content); i += 2 {
			value, err := decodeValue(node.Content[i+1])
			if err != nil {
				return nil, err
			}
			doc = append(doc, bson.E{Key: node.Content[i].Value, Value: value})
		}
		return doc, nil
	case yaml.SequenceNode:
		arr := make(bson.A, 0, len(node.Content))
		for _, n := range node.Content {
			value, err := decodeValue(n)
			if err != nil {
				return nil, err
			}
			arr = append(arr, value)
		}
		return arr, nil
	case yaml.ScalarNode:
		var v any
		if err := node.Decode(&v); err != nil {
			return nil, fmt.Errorf("line %d: %w", node.Line, err)
		}
		return v, nil
	}
	return nil, fmt.Errorf("line %d: unsupported value", node.Line)
}

// MarshalYAML emits the entry as a tagged mapping
func (e Entry) MarshalYAML() (interface{}, error) {
	node := &yaml.Node{
		Kind:  yaml.MappingNode,
		Tag:   e.Kind.Tag(),
		Style: yaml.TaggedStyle,
	}

	fields := []struct {
		name  string
		value any
	}{
		{"identifier", e.Identifier},
		{"action", e.Action},
		{"target", e.Target},
	}
	for _, f := range fields {
		value, err := encodeValue(f.value)
		if err != nil {
			return nil, err
		}
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: f.name},
			value,
		)
	}
	return node, nil
}

func encodeValue(v any) (*yaml.Node, error) {
	switch val := grant.Normalize(v).(type) {
	case bson.D:
		node := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, elem := range val {
			value, err := encodeValue(elem.Value)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: elem.Key},
				value,
			)
		}
		return node, nil
	case bson.A:
		node := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, elem := range val {
			value, err := encodeValue(elem)
			if err != nil {
				return nil, err
			}
			node.Content = append(node.Content, value)
		}
		return node, nil
	default:
		node := &yaml.Node{}
		if err := node.Encode(val); err != nil {
			return nil, err
		}
		return node, nil
	}
}
