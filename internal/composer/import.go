package composer

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// mergeKey is the YAML merge key that pulls anchored mappings into a service.
const mergeKey = "<<"

// LoadCompose reads a docker-compose file and converts it with ImportCompose.
func LoadCompose(path string) (*Document, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read compose file: %w", err)
	}

	doc, err := ImportCompose(content)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// ImportCompose converts a docker-compose document into a Document.
//
// Anchored top-level x-* extensions are declared as fragments named after
// their anchor. Inside a service, each entry under the merge key becomes a
// fragment reference in listed order; an alias to an anchor defined
// elsewhere (for example in another service) is registered as a fragment on
// first use. An inline mapping under the merge key is registered as a
// fragment named after the service with a "-merge" suffix. Fragments are
// tracked by node, so an anchor redefined later in the file yields a second
// fragment with a numeric suffix ("base-2") and each alias keeps the value
// it points at. All other service keys form the override.
func ImportCompose(data []byte) (*Document, error) {
	root, err := parseRoot(data)
	if err != nil {
		return nil, err
	}

	imp := &importer{
		doc:   &Document{Fragments: make(map[string]Fragment)},
		names: make(map[*yaml.Node]string),
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if strings.HasPrefix(key.Value, "x-") && value.Anchor != "" && value.Kind == yaml.MappingNode {
			if _, err := imp.declare(value, value.Anchor); err != nil {
				return nil, err
			}
		}
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Value != "services" {
			continue
		}
		if err := eachMapping(value, "services", imp.service); err != nil {
			return nil, err
		}
	}

	return imp.doc, nil
}

type importer struct {
	doc   *Document
	names map[*yaml.Node]string
}

// declare registers a mapping node as a fragment and returns its name. A
// node already declared keeps its first name.
func (imp *importer) declare(node *yaml.Node, name string) (string, error) {
	if existing, ok := imp.names[node]; ok {
		return existing, nil
	}
	name = imp.uniqueName(name)

	var fragment map[string]any
	if err := node.Decode(&fragment); err != nil {
		return "", fmt.Errorf("fragment %s: %w", name, err)
	}
	normalized, err := normalizeKeys(fragment)
	if err != nil {
		return "", fmt.Errorf("fragment %s: %w", name, err)
	}

	imp.names[node] = name
	imp.doc.Fragments[name] = Fragment(normalized)
	imp.doc.FragmentOrder = append(imp.doc.FragmentOrder, name)
	return name, nil
}

// uniqueName returns name, or name with the first free numeric suffix.
func (imp *importer) uniqueName(name string) string {
	if _, taken := imp.doc.Fragments[name]; !taken {
		return name
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", name, n)
		if _, taken := imp.doc.Fragments[candidate]; !taken {
			return candidate
		}
	}
}

// service converts one compose service into an override.
func (imp *importer) service(name string, node *yaml.Node) error {
	node = resolveAlias(node)
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		imp.doc.Services = append(imp.doc.Services, ServiceOverride{Name: name, Values: make(map[string]any)})
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("service %s: expected a mapping (line %d)", name, node.Line)
	}

	var refs []string
	rest := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		quoted := key.Style&(yaml.DoubleQuotedStyle|yaml.SingleQuotedStyle) != 0
		if key.Value != mergeKey || quoted {
			rest.Content = append(rest.Content, key, value)
			continue
		}

		entries := []*yaml.Node{value}
		if value.Kind == yaml.SequenceNode {
			entries = value.Content
		}
		for _, entry := range entries {
			ref, err := imp.mergeEntry(name, entry)
			if err != nil {
				return err
			}
			refs = append(refs, ref)
		}
	}

	var values map[string]any
	if err := rest.Decode(&values); err != nil {
		return fmt.Errorf("service %s: %w", name, err)
	}

	svc, err := newOverride(name, values)
	if err != nil {
		return err
	}
	svc.Fragments = append(refs, svc.Fragments...)
	imp.doc.Services = append(imp.doc.Services, svc)
	return nil
}

// mergeEntry declares one merge key entry and returns its fragment name.
func (imp *importer) mergeEntry(service string, entry *yaml.Node) (string, error) {
	switch entry.Kind {
	case yaml.MappingNode:
		name := entry.Anchor
		if name == "" {
			name = service + "-merge"
		}
		return imp.declare(entry, name)
	case yaml.AliasNode:
		target := resolveAlias(entry)
		if target == nil || target.Kind != yaml.MappingNode {
			return "", fmt.Errorf("service %s: anchor %q is not a mapping", service, entry.Value)
		}
		return imp.declare(target, target.Anchor)
	default:
		return "", fmt.Errorf("service %s: merge key must be a mapping or alias (line %d)", service, entry.Line)
	}
}
