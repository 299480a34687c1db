package docker

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/dotenv"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/errdefs"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/flare-foundation/fspcompose/internal/composer"
)

// Labels applied to launched containers.
const (
	LabelService = "io.fspcompose.service"
	LabelLaunch  = "io.fspcompose.launch-id"
)

// LaunchOptions control a single hand-off.
type LaunchOptions struct {
	// Pull pulls the image before creating the container.
	Pull bool

	// Replace force-removes an existing container with the same name.
	Replace bool

	// BaseDir resolves relative env file paths.
	BaseDir string
}

// Launcher creates and starts containers for resolved services.
type Launcher struct {
	client  *Client
	log     *logrus.Entry
	readEnv func(filenames ...string) (map[string]string, error)
	newID   func() string
}

// NewLauncher creates a Launcher. A nil log discards diagnostics.
func NewLauncher(client *Client, log *logrus.Entry) *Launcher {
	if log == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		log = logrus.NewEntry(discard)
	}
	return &Launcher{
		client:  client,
		log:     log,
		readEnv: dotenv.Read,
		newID:   uuid.NewString,
	}
}

// Launch hands svc to the daemon and returns the started container's ID.
func (l *Launcher) Launch(ctx context.Context, svc *composer.ResolvedService, opts LaunchOptions) (string, error) {
	log := l.log.WithField("service", svc.Name)

	cfg, hostCfg, err := l.ContainerConfig(svc, opts.BaseDir)
	if err != nil {
		return "", err
	}

	api := l.client.API()

	if opts.Pull {
		log.WithField("image", svc.Image).Debug("pulling image")
		if err := pullImage(ctx, api, svc.Image); err != nil {
			return "", err
		}
	}

	if opts.Replace && svc.ContainerName != "" {
		if err := removeExisting(ctx, api, svc.ContainerName); err != nil {
			return "", err
		}
		log.WithField("container", svc.ContainerName).Debug("replaced existing container")
	}

	resp, err := api.ContainerCreate(ctx, cfg, hostCfg, nil, nil, svc.ContainerName)
	if err != nil {
		return "", fmt.Errorf("create container for %s: %w", svc.Name, err)
	}
	for _, warning := range resp.Warnings {
		log.Warn(warning)
	}

	if err := api.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("start container for %s: %w", svc.Name, err)
	}

	log.WithField("container_id", shortID(resp.ID)).Info("container started")
	return resp.ID, nil
}

// ContainerConfig builds the daemon configuration for svc. Env files are
// read relative to baseDir.
func (l *Launcher) ContainerConfig(svc *composer.ResolvedService, baseDir string) (*container.Config, *container.HostConfig, error) {
	if svc.Image == "" {
		return nil, nil, fmt.Errorf("service %s: no image", svc.Name)
	}

	env, err := l.environment(svc.EnvFiles, baseDir)
	if err != nil {
		return nil, nil, fmt.Errorf("service %s: %w", svc.Name, err)
	}

	restart, err := ParseRestartPolicy(svc.Restart)
	if err != nil {
		return nil, nil, fmt.Errorf("service %s: %w", svc.Name, err)
	}

	cfg := &container.Config{
		Image:     svc.Image,
		Hostname:  svc.Hostname,
		Tty:       svc.Tty,
		OpenStdin: svc.StdinOpen,
		Env:       env,
		Labels: map[string]string{
			LabelService: svc.Name,
			LabelLaunch:  l.newID(),
		},
	}

	hostCfg := &container.HostConfig{RestartPolicy: restart}
	if svc.Logging != nil {
		options := make(map[string]string, len(svc.Logging.Options))
		for k, v := range svc.Logging.Options {
			options[k] = v
		}
		hostCfg.LogConfig = container.LogConfig{Type: svc.Logging.Driver, Config: options}
	}

	return cfg, hostCfg, nil
}

// ParseRestartPolicy parses a compose restart value: no, always,
// unless-stopped or on-failure[:max-retries].
func ParseRestartPolicy(value string) (container.RestartPolicy, error) {
	name, retries, hasRetries := strings.Cut(value, ":")

	switch container.RestartPolicyMode(name) {
	case "", container.RestartPolicyDisabled:
		if hasRetries {
			break
		}
		return container.RestartPolicy{Name: container.RestartPolicyDisabled}, nil
	case container.RestartPolicyAlways, container.RestartPolicyUnlessStopped:
		if hasRetries {
			break
		}
		return container.RestartPolicy{Name: container.RestartPolicyMode(name)}, nil
	case container.RestartPolicyOnFailure:
		policy := container.RestartPolicy{Name: container.RestartPolicyOnFailure}
		if hasRetries {
			n, err := strconv.Atoi(retries)
			if err != nil || n < 0 {
				return container.RestartPolicy{}, fmt.Errorf("invalid restart policy %q: bad retry count", value)
			}
			policy.MaximumRetryCount = n
		}
		return policy, nil
	}

	return container.RestartPolicy{}, fmt.Errorf("invalid restart policy %q", value)
}

// environment reads env files into sorted KEY=VALUE pairs. Later files win.
func (l *Launcher) environment(envFiles []string, baseDir string) ([]string, error) {
	if len(envFiles) == 0 {
		return nil, nil
	}

	paths := make([]string, len(envFiles))
	for i, path := range envFiles {
		if !filepath.IsAbs(path) && baseDir != "" {
			path = filepath.Join(baseDir, path)
		}
		paths[i] = path
	}

	merged := make(map[string]string)
	for _, path := range paths {
		values, err := l.readEnv(path)
		if err != nil {
			return nil, fmt.Errorf("read env file %s: %w", path, err)
		}
		for k, v := range values {
			merged[k] = v
		}
	}

	env := make([]string, 0, len(merged))
	for k, v := range merged {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env, nil
}

// pullImage pulls ref and drains the progress stream.
func pullImage(ctx context.Context, api RuntimeAPI, ref string) error {
	reader, err := api.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("pull %s: %w", ref, err)
	}
	return nil
}

// removeExisting force-removes the named container if it exists.
func removeExisting(ctx context.Context, api RuntimeAPI, name string) error {
	if _, err := api.ContainerInspect(ctx, name); err != nil {
		if errdefs.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("inspect %s: %w", name, err)
	}

	if err := api.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("remove %s: %w", name, err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
