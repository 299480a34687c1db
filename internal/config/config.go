// Package config handles project discovery and configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/compose-spec/compose-go/v2/dotenv"
	"github.com/go-git/go-git/v5"

	"github.com/flare-foundation/fspcompose/internal/composer"
)

// Environment variables that override discovery.
const (
	EnvDocument = "FSPCOMPOSE_FILE"
	EnvDotenv   = "FSPCOMPOSE_ENV_FILE"
	EnvSecrets  = "FSPCOMPOSE_SECRETS_FILE"
	EnvProject  = "FSPCOMPOSE_PROJECT"
)

// Document formats.
const (
	// FormatNative is the fragments/services document.
	FormatNative = "native"

	// FormatCompose is a docker-compose file using anchors and merge keys.
	FormatCompose = "compose"
)

// NativeNames are native document file names, in lookup order.
var NativeNames = []string{"fspcompose.yaml", "fspcompose.yml"}

// ComposeNames are compose file names, in lookup order.
var ComposeNames = []string{"docker-compose.yaml", "docker-compose.yml", "compose.yaml", "compose.yml"}

// ErrRootNotFound indicates no document was found during discovery.
var ErrRootNotFound = errors.New("project root not found")

// Config holds the fspcompose project configuration.
type Config struct {
	// Root is the project root directory (contains the document).
	Root string

	// Document is the path to the composition document.
	Document string

	// Format is FormatNative or FormatCompose.
	Format string

	// Dotenv is the path to the .env defaults file. It may not exist.
	Dotenv string

	// SecretsFile is an optional SOPS-encrypted variables file.
	SecretsFile string

	// Project is the compose project name used for export.
	Project string
}

// Options are explicit settings, typically from CLI flags. Empty fields fall
// back to the environment and then to discovery.
type Options struct {
	File        string
	Dotenv      string
	SecretsFile string
	Project     string

	// WorkDir is where discovery starts. Defaults to the working directory.
	WorkDir string
}

// FindRoot searches upward from start for a directory holding a document.
// The search does not leave the enclosing git worktree, if there is one.
func FindRoot(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", start, err)
	}
	stop := gitRoot(dir)

	for {
		if _, ok := findDocument(dir); ok {
			return dir, nil
		}
		if dir == stop {
			break
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("%w (no %s or %s)", ErrRootNotFound, NativeNames[0], ComposeNames[0])
}

// Load resolves the configuration from opts, the environment and discovery.
func Load(opts Options) (*Config, error) {
	file := firstNonEmpty(opts.File, os.Getenv(EnvDocument))

	cfg := &Config{}
	if file != "" {
		abs, err := filepath.Abs(file)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", file, err)
		}
		if _, err := os.Stat(abs); err != nil {
			return nil, fmt.Errorf("document: %w", err)
		}
		cfg.Document = abs
		cfg.Root = filepath.Dir(abs)
	} else {
		start := opts.WorkDir
		if start == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("get working directory: %w", err)
			}
			start = wd
		}

		root, err := FindRoot(start)
		if err != nil {
			return nil, err
		}
		cfg.Root = root
		cfg.Document, _ = findDocument(root)
	}

	cfg.Format = DetectFormat(cfg.Document)
	cfg.Dotenv = firstNonEmpty(opts.Dotenv, os.Getenv(EnvDotenv), filepath.Join(cfg.Root, ".env"))
	cfg.SecretsFile = firstNonEmpty(opts.SecretsFile, os.Getenv(EnvSecrets))
	cfg.Project = firstNonEmpty(opts.Project, os.Getenv(EnvProject), ProjectName(cfg.Root))

	return cfg, nil
}

// LoadDocument reads the configured document in its format.
func (c *Config) LoadDocument() (*composer.Document, error) {
	if c.Format == FormatNative {
		return composer.Load(c.Document)
	}
	return composer.LoadCompose(c.Document)
}

// LoadDotenv reads the .env defaults file. A missing file yields no
// variables.
func (c *Config) LoadDotenv() (composer.MapResolver, error) {
	if c.Dotenv == "" {
		return composer.MapResolver{}, nil
	}
	if _, err := os.Stat(c.Dotenv); errors.Is(err, os.ErrNotExist) {
		return composer.MapResolver{}, nil
	}

	values, err := dotenv.Read(c.Dotenv)
	if err != nil {
		return nil, fmt.Errorf("read env file %s: %w", c.Dotenv, err)
	}
	return composer.MapResolver(values), nil
}

// DetectFormat chooses the document format from its file name: files named
// fspcompose.* are native, everything else is read as a compose file.
func DetectFormat(path string) string {
	if strings.HasPrefix(filepath.Base(path), "fspcompose.") {
		return FormatNative
	}
	return FormatCompose
}

// ProjectName derives a compose project name from a directory: lower case,
// restricted to [a-z0-9_-].
func ProjectName(dir string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(filepath.Base(dir)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		}
	}
	name := strings.TrimLeft(b.String(), "-_")
	if name == "" {
		return "fspcompose"
	}
	return name
}

// findDocument returns the first known document in dir. Native documents
// take precedence over compose files.
func findDocument(dir string) (string, bool) {
	for _, name := range append(append([]string(nil), NativeNames...), ComposeNames...) {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// gitRoot returns the worktree root containing dir, or "" outside a repository.
func gitRoot(dir string) string {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return ""
	}
	wt, err := repo.Worktree()
	if err != nil {
		return ""
	}
	return wt.Filesystem.Root()
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
