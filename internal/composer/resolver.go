package composer

import "os"

// Resolver looks up variable bindings. The boolean reports whether the
// variable is bound; an empty string is a valid binding.
type Resolver interface {
	Lookup(name string) (string, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (string, bool)

// Lookup implements Resolver.
func (f ResolverFunc) Lookup(name string) (string, bool) {
	return f(name)
}

// MapResolver resolves variables from a fixed map.
type MapResolver map[string]string

// Lookup implements Resolver.
func (m MapResolver) Lookup(name string) (string, bool) {
	v, ok := m[name]
	return v, ok
}

// EnvResolver resolves variables from the process environment.
func EnvResolver() Resolver {
	return ResolverFunc(os.LookupEnv)
}

// ChainResolver tries each resolver in order; the first binding wins.
type ChainResolver []Resolver

// Lookup implements Resolver.
func (c ChainResolver) Lookup(name string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if v, ok := r.Lookup(name); ok {
			return v, true
		}
	}
	return "", false
}
