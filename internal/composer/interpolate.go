package composer

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// varPattern matches ${NAME} placeholders.
var varPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Interpolate replaces every ${NAME} placeholder in s with its binding.
// It stops at the first unbound name and returns an *Error of kind
// ErrUnresolvedVariable.
func Interpolate(s string, resolver Resolver) (string, error) {
	matches := varPattern.FindAllStringSubmatchIndex(s, -1)
	if len(matches) == 0 {
		return s, nil
	}

	var b strings.Builder
	last := 0
	for _, m := range matches {
		name := s[m[2]:m[3]]
		value, ok := resolver.Lookup(name)
		if !ok {
			return "", &Error{Kind: ErrUnresolvedVariable, Name: name}
		}
		b.WriteString(s[last:m[0]])
		b.WriteString(value)
		last = m[1]
	}
	b.WriteString(s[last:])

	return b.String(), nil
}

// InterpolateMap applies interpolation to all string values in a map
// recursively. Keys are visited in sorted order so the first reported
// unresolved variable is stable.
func InterpolateMap(data map[string]any, resolver Resolver) (map[string]any, error) {
	result := make(map[string]any, len(data))

	for _, k := range sortedKeys(data) {
		interpolated, err := interpolateValue(data[k], resolver)
		if err != nil {
			return nil, err
		}
		result[k] = interpolated
	}

	return result, nil
}

// interpolateValue recursively interpolates string values.
func interpolateValue(value any, resolver Resolver) (any, error) {
	switch v := value.(type) {
	case string:
		return Interpolate(v, resolver)
	case map[string]any:
		return InterpolateMap(v, resolver)
	case []any:
		result := make([]any, len(v))
		for i, item := range v {
			interpolated, err := interpolateValue(item, resolver)
			if err != nil {
				return nil, err
			}
			result[i] = interpolated
		}
		return result, nil
	case []string:
		result := make([]string, len(v))
		for i, item := range v {
			interpolated, err := Interpolate(item, resolver)
			if err != nil {
				return nil, err
			}
			result[i] = interpolated
		}
		return result, nil
	default:
		return value, nil
	}
}

// References returns the distinct variable names referenced anywhere in
// value, in first-seen order.
func References(value any) []string {
	seen := make(map[string]bool)
	var names []string
	collectReferences(value, seen, &names)
	return names
}

func collectReferences(value any, seen map[string]bool, names *[]string) {
	switch v := value.(type) {
	case string:
		for _, m := range varPattern.FindAllStringSubmatch(v, -1) {
			if !seen[m[1]] {
				seen[m[1]] = true
				*names = append(*names, m[1])
			}
		}
	case map[string]any:
		for _, k := range sortedKeys(v) {
			collectReferences(v[k], seen, names)
		}
	case []any:
		for _, item := range v {
			collectReferences(item, seen, names)
		}
	case []string:
		for _, item := range v {
			collectReferences(item, seen, names)
		}
	}
}

// toString converts a scalar to its string representation.
func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", val)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
