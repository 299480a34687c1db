package composer

import (
	"errors"
	"fmt"
)

// Composition error kinds.
var (
	// ErrUnknownService indicates a service name that is not declared.
	ErrUnknownService = errors.New("unknown service")

	// ErrUnknownFragment indicates a fragment reference that is not declared.
	ErrUnknownFragment = errors.New("unknown fragment")

	// ErrUnresolvedVariable indicates a ${NAME} token the resolver has no binding for.
	ErrUnresolvedVariable = errors.New("unresolved variable")

	// ErrInvalidService indicates a merged service that does not decode into a
	// ResolvedService (unknown key or wrong value type).
	ErrInvalidService = errors.New("invalid service")
)

// Error reports a failed composition together with the offending name.
// Use errors.Is against the Err* kinds and errors.As to recover the name.
type Error struct {
	// Kind is one of the Err* sentinels.
	Kind error

	// Name is the offending service, fragment or variable name.
	Name string

	// Service is the service being composed, if known.
	Service string

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	var what string
	switch e.Kind {
	case ErrUnresolvedVariable:
		what = fmt.Sprintf("%v ${%s}", e.Kind, e.Name)
	default:
		what = fmt.Sprintf("%v %q", e.Kind, e.Name)
	}
	if e.Err != nil {
		what += ": " + e.Err.Error()
	}
	if e.Service != "" && e.Service != e.Name {
		return fmt.Sprintf("compose %s: %s", e.Service, what)
	}
	return what
}

// Unwrap exposes both the kind and the cause to errors.Is.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}
