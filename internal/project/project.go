// Package project converts resolved services into a compose-spec project
// and validates it with the compose-go loader.
package project

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"github.com/flare-foundation/fspcompose/internal/composer"
)

// ErrMissingEnvFile indicates an env file referenced by a service does not exist.
var ErrMissingEnvFile = errors.New("env file not found")

// Build assembles a compose project from resolved services. Relative env
// file paths stay relative to workingDir.
func Build(name, workingDir string, services []*composer.ResolvedService) *types.Project {
	p := &types.Project{
		Name:       name,
		WorkingDir: workingDir,
		Services:   types.Services{},
	}

	for _, svc := range services {
		p.Services[svc.Name] = ServiceConfig(svc)
	}

	return p
}

// ServiceConfig maps a resolved service onto its compose-spec form.
func ServiceConfig(svc *composer.ResolvedService) types.ServiceConfig {
	cfg := types.ServiceConfig{
		Name:          svc.Name,
		Image:         svc.Image,
		Hostname:      svc.Hostname,
		ContainerName: svc.ContainerName,
		Restart:       svc.Restart,
		StdinOpen:     svc.StdinOpen,
		Tty:           svc.Tty,
	}

	for _, path := range svc.EnvFiles {
		cfg.EnvFiles = append(cfg.EnvFiles, types.EnvFile{Path: path, Required: true})
	}

	if svc.Logging != nil {
		cfg.Logging = &types.LoggingConfig{
			Driver:  svc.Logging.Driver,
			Options: svc.Logging.Options,
		}
	}

	return cfg
}

// Marshal renders the project as compose YAML.
func Marshal(p *types.Project) ([]byte, error) {
	data, err := p.MarshalYAML()
	if err != nil {
		return nil, fmt.Errorf("marshal project: %w", err)
	}
	return data, nil
}

// CheckEnvFiles reports every referenced env file missing under the
// project's working directory.
func CheckEnvFiles(p *types.Project) error {
	var errs []error
	for _, name := range p.ServiceNames() {
		for _, envFile := range p.Services[name].EnvFiles {
			path := envFile.Path
			if !filepath.IsAbs(path) {
				path = filepath.Join(p.WorkingDir, path)
			}
			if _, err := os.Stat(path); err != nil {
				errs = append(errs, fmt.Errorf("service %s: %w: %s", name, ErrMissingEnvFile, envFile.Path))
			}
		}
	}
	return errors.Join(errs...)
}

// Validate checks env files and then loads the rendered project through
// compose-go, which applies the compose-spec schema and consistency rules.
func Validate(ctx context.Context, p *types.Project) error {
	if err := CheckEnvFiles(p); err != nil {
		return err
	}

	content, err := Marshal(p)
	if err != nil {
		return err
	}

	var dict map[string]any
	if err := yaml.Unmarshal(content, &dict); err != nil {
		return fmt.Errorf("parse rendered project: %w", err)
	}

	_, err = loader.LoadWithContext(ctx, types.ConfigDetails{
		WorkingDir: p.WorkingDir,
		ConfigFiles: []types.ConfigFile{
			{
				Filename: filepath.Join(p.WorkingDir, "docker-compose.yaml"),
				Content:  content,
				Config:   dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName(p.Name, true)
		// Variables are already substituted.
		opts.SkipInterpolation = true
		opts.SkipExtends = true
	})
	if err != nil {
		return fmt.Errorf("compose validation: %w", err)
	}

	return nil
}
