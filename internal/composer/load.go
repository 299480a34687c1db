package composer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrEmptyDocument indicates a document with no content.
var ErrEmptyDocument = errors.New("empty document")

// ErrConflictingKeys indicates a mapping that sets the same key under its
// canonical and its docker-compose spelling.
var ErrConflictingKeys = errors.New("key set under two spellings")

// Load reads a native composition document from a file.
func Load(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}

	doc, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Parse decodes a native composition document:
//
//	fragments: {<name>: <mapping>, ...}
//	services:  {<name>: {fragments: [<name>...], <key>: <value>...}, ...}
//
// Declaration order of fragments and services is preserved.
func Parse(data []byte) (*Document, error) {
	root, err := parseRoot(data)
	if err != nil {
		return nil, err
	}

	doc := &Document{Fragments: make(map[string]Fragment)}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]

		switch key.Value {
		case "fragments":
			if err := eachMapping(value, "fragments", func(name string, node *yaml.Node) error {
				var fragment map[string]any
				if err := node.Decode(&fragment); err != nil {
					return fmt.Errorf("fragment %s: %w", name, err)
				}
				if _, dup := doc.Fragments[name]; dup {
					return fmt.Errorf("duplicate fragment %q", name)
				}
				normalized, err := normalizeKeys(fragment)
				if err != nil {
					return fmt.Errorf("fragment %s: %w", name, err)
				}
				doc.Fragments[name] = Fragment(normalized)
				doc.FragmentOrder = append(doc.FragmentOrder, name)
				return nil
			}); err != nil {
				return nil, err
			}

		case "services":
			if err := eachMapping(value, "services", func(name string, node *yaml.Node) error {
				var values map[string]any
				if err := node.Decode(&values); err != nil {
					return fmt.Errorf("service %s: %w", name, err)
				}
				svc, err := newOverride(name, values)
				if err != nil {
					return err
				}
				doc.Services = append(doc.Services, svc)
				return nil
			}); err != nil {
				return nil, err
			}
		}
	}

	return doc, nil
}

// newOverride splits the fragment list out of a service's values.
func newOverride(name string, values map[string]any) (ServiceOverride, error) {
	values, err := normalizeKeys(values)
	if err != nil {
		return ServiceOverride{}, fmt.Errorf("service %s: %w", name, err)
	}
	svc := ServiceOverride{Name: name, Values: values}

	raw, ok := values[KeyFragments]
	if !ok {
		return svc, nil
	}
	delete(values, KeyFragments)

	switch refs := raw.(type) {
	case nil:
	case string:
		svc.Fragments = []string{refs}
	case []any:
		for _, ref := range refs {
			s, ok := ref.(string)
			if !ok {
				return ServiceOverride{}, fmt.Errorf("service %s: fragment reference %v is not a string", name, ref)
			}
			svc.Fragments = append(svc.Fragments, s)
		}
	default:
		return ServiceOverride{}, fmt.Errorf("service %s: %s must be a list of names", name, KeyFragments)
	}

	return svc, nil
}

// normalizeKeys rewrites docker-compose spellings to canonical keys and
// coerces a scalar env file into a list. A mapping that sets a key under
// both spellings is rejected with ErrConflictingKeys.
func normalizeKeys(values map[string]any) (map[string]any, error) {
	if values == nil {
		return make(map[string]any), nil
	}

	result := make(map[string]any, len(values))
	for _, k := range sortedKeys(values) {
		key := k
		if canonical, ok := keyAliases[k]; ok {
			if _, both := values[canonical]; both {
				return nil, fmt.Errorf("%w: %q and %q", ErrConflictingKeys, k, canonical)
			}
			key = canonical
		}
		result[key] = values[k]
	}

	if envFiles, ok := result[KeyEnvFiles]; ok {
		switch v := envFiles.(type) {
		case string:
			result[KeyEnvFiles] = []any{v}
		case []any:
			// Long syntax: {path: ..., required: ...}
			files := make([]any, 0, len(v))
			for _, item := range v {
				if m, ok := item.(map[string]any); ok {
					files = append(files, toString(m["path"]))
					continue
				}
				files = append(files, item)
			}
			result[KeyEnvFiles] = files
		}
	}

	return result, nil
}

// parseRoot decodes data and returns its top-level mapping node.
func parseRoot(data []byte) (*yaml.Node, error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, ErrEmptyDocument
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if node.Kind != yaml.DocumentNode || len(node.Content) == 0 {
		return nil, ErrEmptyDocument
	}

	root := node.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("parse document: top level must be a mapping")
	}
	return root, nil
}

// eachMapping calls fn for every key of a mapping node, in order.
func eachMapping(node *yaml.Node, section string, fn func(name string, value *yaml.Node) error) error {
	node = resolveAlias(node)
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("%s: expected a mapping (line %d)", section, node.Line)
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		if err := fn(node.Content[i].Value, node.Content[i+1]); err != nil {
			return err
		}
	}
	return nil
}

func resolveAlias(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}
