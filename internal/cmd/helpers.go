package cmd

import (
	"context"
	"fmt"

	"github.com/flare-foundation/fspcompose/internal/composer"
	"github.com/flare-foundation/fspcompose/internal/config"
	"github.com/flare-foundation/fspcompose/internal/docker"
	"github.com/flare-foundation/fspcompose/internal/secrets"
)

// Swapped in tests.
var (
	newDockerClient = docker.NewClient
	newSecretSource = secrets.NewSource
)

// session is a loaded project: configuration, variable sources and composer.
type session struct {
	cfg      *config.Config
	resolver composer.Resolver
	composer *composer.Composer
}

// loadSession discovers the project and builds its composer.
func loadSession() (*session, error) {
	cfg, err := config.Load(config.Options{
		File:        flagFile,
		Dotenv:      flagEnvFile,
		SecretsFile: flagSecrets,
		Project:     flagProject,
	})
	if err != nil {
		return nil, err
	}

	log := logger.WithField("document", cfg.Document)
	log.WithField("format", cfg.Format).Debug("loading document")

	doc, err := cfg.LoadDocument()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Document, err)
	}

	resolver, err := buildResolver(cfg)
	if err != nil {
		return nil, err
	}

	c, err := composer.New(doc, resolver)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", cfg.Document, err)
	}
	log.WithField("services", len(c.Services())).Debug("document loaded")

	return &session{cfg: cfg, resolver: resolver, composer: c}, nil
}

// buildResolver chains the variable sources: environment, then .env, then
// decrypted secrets.
func buildResolver(cfg *config.Config) (composer.Resolver, error) {
	chain := composer.ChainResolver{composer.EnvResolver()}

	defaults, err := cfg.LoadDotenv()
	if err != nil {
		return nil, err
	}
	logger.WithField("file", cfg.Dotenv).WithField("variables", len(defaults)).Debug("loaded defaults")
	chain = append(chain, defaults)

	if cfg.SecretsFile != "" {
		values, err := newSecretSource().Load(cfg.SecretsFile)
		if err != nil {
			return nil, err
		}
		logger.WithField("file", cfg.SecretsFile).WithField("variables", len(values)).Debug("decrypted secrets")
		chain = append(chain, values)
	}

	return chain, nil
}

// composeServices composes the named services, stopping at the first error.
func (s *session) composeServices(names []string) ([]*composer.ResolvedService, error) {
	services := make([]*composer.ResolvedService, 0, len(names))
	for _, name := range names {
		svc, err := s.composer.Compose(name)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, nil
}

// missingVariables returns the variables referenced by service name that no
// source binds.
func (s *session) missingVariables(name string) ([]string, error) {
	names, err := s.composer.Variables(name)
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, v := range names {
		if _, ok := s.resolver.Lookup(v); !ok {
			missing = append(missing, v)
		}
	}
	return missing, nil
}

// withDockerClient executes fn with a connected Docker client, handling cleanup.
func withDockerClient(ctx context.Context, fn func(ctx context.Context, client *docker.Client) error) error {
	client, err := newDockerClient()
	if err != nil {
		return fmt.Errorf("connect to docker: %w", err)
	}
	defer client.Close()

	if err := client.Ping(ctx); err != nil {
		return err
	}

	return fn(ctx, client)
}
