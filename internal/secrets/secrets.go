// Package secrets resolves composition variables from SOPS-encrypted files.
package secrets

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compose-spec/compose-go/v2/dotenv"
	"github.com/getsops/sops/v3/decrypt"
	"gopkg.in/yaml.v3"

	"github.com/flare-foundation/fspcompose/internal/composer"
)

// DecryptFunc decrypts a file in the given sops format and returns cleartext.
type DecryptFunc func(path, format string) ([]byte, error)

// Source loads variables from encrypted files.
type Source struct {
	decrypt DecryptFunc
}

// NewSource creates a Source backed by the sops library.
func NewSource() *Source {
	return &Source{decrypt: decrypt.File}
}

// NewSourceWithDecrypter creates a Source with a custom decrypter.
// This is primarily used for testing.
func NewSourceWithDecrypter(fn DecryptFunc) *Source {
	return &Source{decrypt: fn}
}

// Load decrypts each file and merges their variables. Later files override
// earlier ones for duplicate names.
func (s *Source) Load(paths ...string) (composer.MapResolver, error) {
	merged := make(composer.MapResolver)

	for _, path := range paths {
		if path == "" {
			continue
		}

		format := Format(path)
		cleartext, err := s.decrypt(path, format)
		if err != nil {
			return nil, fmt.Errorf("sops decrypt failed for %s: %w", path, err)
		}

		vars, err := parse(cleartext, format)
		if err != nil {
			return nil, fmt.Errorf("failed to parse decrypted %s: %w", path, err)
		}
		for k, v := range vars {
			merged[k] = v
		}
	}

	return merged, nil
}

// Format returns the sops input format for a file, from its extension.
// Names such as secrets.sops.yaml use their final extension.
func Format(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return "json"
	case ".env":
		return "dotenv"
	default:
		return "yaml"
	}
}

func parse(cleartext []byte, format string) (map[string]string, error) {
	if format == "dotenv" {
		return dotenv.Parse(bytes.NewReader(cleartext))
	}

	var values map[string]any
	// JSON is a subset of YAML.
	if err := yaml.Unmarshal(cleartext, &values); err != nil {
		return nil, err
	}
	return Flatten(values), nil
}

// Flatten turns nested values into variable names: path segments are
// joined with "_" and upper-cased, with "-" and "." mapped to "_".
// Lists are indexed from zero.
//
//	db: {password: x}   -> DB_PASSWORD=x
//	rpc: [a, b]         -> RPC_0=a, RPC_1=b
func Flatten(values map[string]any) map[string]string {
	result := make(map[string]string)
	flatten("", values, result)
	return result
}

func flatten(prefix string, value any, out map[string]string) {
	switch v := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flatten(join(prefix, k), v[k], out)
		}
	case []any:
		for i, item := range v {
			flatten(join(prefix, fmt.Sprintf("%d", i)), item, out)
		}
	case nil:
		out[prefix] = ""
	default:
		out[prefix] = fmt.Sprintf("%v", v)
	}
}

var nameReplacer = strings.NewReplacer("-", "_", ".", "_")

func join(prefix, key string) string {
	key = strings.ToUpper(nameReplacer.Replace(key))
	if prefix == "" {
		return key
	}
	return prefix + "_" + key
}
