package docker

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flare-foundation/fspcompose/internal/composer"
)

func flareService() *composer.ResolvedService {
	return &composer.ResolvedService{
		Name:          "flare-fsp-observer",
		Image:         "img:1",
		Hostname:      "demo-flare",
		ContainerName: "demo-flare",
		EnvFiles:      []string{"./configuration/app/flare.env"},
		Restart:       "unless-stopped",
		Logging: &composer.Logging{
			Driver:  "local",
			Options: map[string]string{"max-size": "10m", "max-file": "3"},
		},
		StdinOpen: true,
		Tty:       true,
	}
}

// setupProject writes the flare env file under a temporary base directory.
func setupProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	appDir := filepath.Join(dir, "configuration", "app")
	require.NoError(t, os.MkdirAll(appDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(appDir, "flare.env"), []byte("CHAIN=flare\nRPC_URL=https://rpc.example\n"), 0644))
	return dir
}

func newTestLauncher(mock *MockRuntimeAPI) *Launcher {
	l := NewLauncher(NewClientWithAPI(mock), nil)
	l.newID = func() string { return "launch-1" }
	return l
}

func TestContainerConfig(t *testing.T) {
	dir := setupProject(t)
	l := newTestLauncher(NewMockRuntimeAPI())

	cfg, hostCfg, err := l.ContainerConfig(flareService(), dir)
	require.NoError(t, err)

	assert.Equal(t, "img:1", cfg.Image)
	assert.Equal(t, "demo-flare", cfg.Hostname)
	assert.True(t, cfg.Tty)
	assert.True(t, cfg.OpenStdin)
	assert.Equal(t, []string{"CHAIN=flare", "RPC_URL=https://rpc.example"}, cfg.Env)
	assert.Equal(t, map[string]string{
		LabelService: "flare-fsp-observer",
		LabelLaunch:  "launch-1",
	}, cfg.Labels)

	assert.Equal(t, container.RestartPolicyUnlessStopped, hostCfg.RestartPolicy.Name)
	assert.Equal(t, "local", hostCfg.LogConfig.Type)
	assert.Equal(t, map[string]string{"max-size": "10m", "max-file": "3"}, hostCfg.LogConfig.Config)
}

func TestContainerConfigErrors(t *testing.T) {
	l := newTestLauncher(NewMockRuntimeAPI())

	t.Run("missing env file", func(t *testing.T) {
		_, _, err := l.ContainerConfig(flareService(), t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "read env file")
	})

	t.Run("no image", func(t *testing.T) {
		svc := flareService()
		svc.Image = ""
		_, _, err := l.ContainerConfig(svc, setupProject(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no image")
	})

	t.Run("bad restart policy", func(t *testing.T) {
		svc := flareService()
		svc.Restart = "sometimes"
		_, _, err := l.ContainerConfig(svc, setupProject(t))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid restart policy")
	})
}

func TestParseRestartPolicy(t *testing.T) {
	tests := []struct {
		value   string
		want    container.RestartPolicy
		wantErr bool
	}{
		{value: "", want: container.RestartPolicy{Name: container.RestartPolicyDisabled}},
		{value: "no", want: container.RestartPolicy{Name: container.RestartPolicyDisabled}},
		{value: "always", want: container.RestartPolicy{Name: container.RestartPolicyAlways}},
		{value: "unless-stopped", want: container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}},
		{value: "on-failure", want: container.RestartPolicy{Name: container.RestartPolicyOnFailure}},
		{value: "on-failure:5", want: container.RestartPolicy{Name: container.RestartPolicyOnFailure, MaximumRetryCount: 5}},
		{value: "on-failure:x", wantErr: true},
		{value: "on-failure:-1", wantErr: true},
		{value: "always:3", wantErr: true},
		{value: "sometimes", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseRestartPolicy(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLaunch(t *testing.T) {
	ctx := context.Background()

	t.Run("create and start", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		l := newTestLauncher(mock)

		id, err := l.Launch(ctx, flareService(), LaunchOptions{BaseDir: setupProject(t)})
		require.NoError(t, err)

		assert.Equal(t, "0123456789abcdef0123456789abcdef", id)
		assert.Empty(t, mock.ImagePullCalls)
		assert.Empty(t, mock.RemoveCalls)
		require.Len(t, mock.CreateCalls, 1)
		assert.Equal(t, "demo-flare", mock.CreateCalls[0].Name)
		assert.Equal(t, []string{id}, mock.StartCalls)
	})

	t.Run("pull first", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{Pull: true, BaseDir: setupProject(t)})
		require.NoError(t, err)
		assert.Equal(t, []string{"img:1"}, mock.ImagePullCalls)
	})

	t.Run("pull failure stops launch", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		mock.ImagePullFunc = func(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error) {
			return nil, errMockPull
		}
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{Pull: true, BaseDir: setupProject(t)})
		require.ErrorIs(t, err, errMockPull)
		assert.Empty(t, mock.CreateCalls)
	})

	t.Run("replace existing container", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		mock.ContainerInspectFunc = func(ctx context.Context, containerID string) (container.InspectResponse, error) {
			return container.InspectResponse{}, nil
		}
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{Replace: true, BaseDir: setupProject(t)})
		require.NoError(t, err)
		assert.Equal(t, []string{"demo-flare"}, mock.RemoveCalls)
	})

	t.Run("replace without existing container", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{Replace: true, BaseDir: setupProject(t)})
		require.NoError(t, err)
		assert.Equal(t, 1, mock.ContainerInspectCalls)
		assert.Empty(t, mock.RemoveCalls)
	})

	t.Run("inspect failure", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		mock.ContainerInspectFunc = func(ctx context.Context, containerID string) (container.InspectResponse, error) {
			return container.InspectResponse{}, errMockInspect
		}
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{Replace: true, BaseDir: setupProject(t)})
		require.ErrorIs(t, err, errMockInspect)
	})

	t.Run("remove failure", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		mock.ContainerInspectFunc = func(ctx context.Context, containerID string) (container.InspectResponse, error) {
			return container.InspectResponse{}, nil
		}
		mock.ContainerRemoveFunc = func(ctx context.Context, containerID string, options container.RemoveOptions) error {
			return errMockRemove
		}
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{Replace: true, BaseDir: setupProject(t)})
		require.ErrorIs(t, err, errMockRemove)
		assert.Empty(t, mock.CreateCalls)
	})

	t.Run("create failure", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		mock.ContainerCreateFunc = func(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, name string) (container.CreateResponse, error) {
			return container.CreateResponse{}, errMockCreate
		}
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{BaseDir: setupProject(t)})
		require.ErrorIs(t, err, errMockCreate)
		assert.Empty(t, mock.StartCalls)
	})

	t.Run("start failure", func(t *testing.T) {
		mock := NewMockRuntimeAPI()
		mock.ContainerStartFunc = func(ctx context.Context, containerID string, options container.StartOptions) error {
			return errMockStart
		}
		l := newTestLauncher(mock)

		_, err := l.Launch(ctx, flareService(), LaunchOptions{BaseDir: setupProject(t)})
		require.ErrorIs(t, err, errMockStart)
	})
}

func TestClient(t *testing.T) {
	ctx := context.Background()

	mock := NewMockRuntimeAPI()
	client := NewClientWithAPI(mock)
	require.NoError(t, client.Ping(ctx))
	assert.Equal(t, 1, mock.PingCalls)

	mock.PingFunc = func(ctx context.Context) (types.Ping, error) {
		return types.Ping{}, errMockPing
	}
	require.ErrorIs(t, client.Ping(ctx), errMockPing)

	require.NoError(t, client.Close())
	assert.Equal(t, 1, mock.CloseCalls)
}
