package composer

import (
	"bytes"
	"errors"
	"fmt"
	"iter"

	"gopkg.in/yaml.v3"
)

// Composer renders ResolvedServices from a Document. It is immutable after
// New returns and safe for concurrent use.
type Composer struct {
	fragments     map[string]Fragment
	fragmentOrder []string
	services      map[string]ServiceOverride
	order         []string
	resolver      Resolver
}

// New builds a Composer over a private copy of doc. A nil resolver resolves
// from the process environment.
func New(doc *Document, resolver Resolver) (*Composer, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	if resolver == nil {
		resolver = EnvResolver()
	}

	c := &Composer{
		fragments: make(map[string]Fragment, len(doc.Fragments)),
		services:  make(map[string]ServiceOverride, len(doc.Services)),
		resolver:  resolver,
	}

	for name, fragment := range doc.Fragments {
		c.fragments[name] = Fragment(copyMap(fragment))
	}
	c.fragmentOrder = append(c.fragmentOrder, doc.FragmentOrder...)

	for _, svc := range doc.Services {
		if svc.Name == "" {
			return nil, errors.New("service with empty name")
		}
		if _, dup := c.services[svc.Name]; dup {
			return nil, fmt.Errorf("duplicate service %q", svc.Name)
		}
		c.services[svc.Name] = ServiceOverride{
			Name:      svc.Name,
			Fragments: append([]string(nil), svc.Fragments...),
			Values:    copyMap(svc.Values),
		}
		c.order = append(c.order, svc.Name)
	}

	return c, nil
}

// Services returns service names in declaration order.
func (c *Composer) Services() []string {
	return append([]string(nil), c.order...)
}

// Fragments returns fragment names in declaration order.
func (c *Composer) Fragments() []string {
	return append([]string(nil), c.fragmentOrder...)
}

// Override returns a copy of the named service override.
func (c *Composer) Override(name string) (ServiceOverride, bool) {
	svc, ok := c.services[name]
	if !ok {
		return ServiceOverride{}, false
	}
	return ServiceOverride{
		Name:      svc.Name,
		Fragments: append([]string(nil), svc.Fragments...),
		Values:    copyMap(svc.Values),
	}, true
}

// Compose merges and resolves a single service. On failure it returns an
// *Error and no partial result.
func (c *Composer) Compose(name string) (*ResolvedService, error) {
	merged, err := c.merge(name)
	if err != nil {
		return nil, err
	}

	resolved, err := InterpolateMap(merged, c.resolver)
	if err != nil {
		var cerr *Error
		if errors.As(err, &cerr) {
			cerr.Service = name
		}
		return nil, err
	}

	return decodeService(name, resolved)
}

// ComposeAll yields every service in declaration order. Each element is
// composed on demand; a failed service yields its error and iteration
// continues unless the consumer stops it.
func (c *Composer) ComposeAll() iter.Seq2[*ResolvedService, error] {
	return func(yield func(*ResolvedService, error) bool) {
		for _, name := range c.order {
			if !yield(c.Compose(name)) {
				return
			}
		}
	}
}

// Variables returns every variable the named service references after
// merging, in sorted-key walk order.
func (c *Composer) Variables(name string) ([]string, error) {
	merged, err := c.merge(name)
	if err != nil {
		return nil, err
	}
	return References(merged), nil
}

// merge builds the unresolved mapping for a service.
func (c *Composer) merge(name string) (map[string]any, error) {
	override, ok := c.services[name]
	if !ok {
		return nil, &Error{Kind: ErrUnknownService, Name: name, Service: name}
	}

	merged := make(map[string]any)
	for _, ref := range override.Fragments {
		fragment, ok := c.fragments[ref]
		if !ok {
			return nil, &Error{Kind: ErrUnknownFragment, Name: ref, Service: name}
		}
		merged = DeepMerge(merged, fragment)
	}

	return DeepMerge(merged, override.Values), nil
}

// decodeService turns a merged mapping into a ResolvedService, rejecting
// keys the descriptor does not know.
func decodeService(name string, values map[string]any) (*ResolvedService, error) {
	data, err := yaml.Marshal(values)
	if err != nil {
		return nil, &Error{Kind: ErrInvalidService, Name: name, Service: name, Err: err}
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var svc ResolvedService
	if err := dec.Decode(&svc); err != nil {
		return nil, &Error{Kind: ErrInvalidService, Name: name, Service: name, Err: err}
	}
	svc.Name = name

	return &svc, nil
}
