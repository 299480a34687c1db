package docker

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/errdefs"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
)

// Common test errors.
var (
	errMockPing    = errors.New("mock: ping failed")
	errMockPull    = errors.New("mock: image pull failed")
	errMockCreate  = errors.New("mock: container create failed")
	errMockStart   = errors.New("mock: container start failed")
	errMockInspect = errors.New("mock: container inspect failed")
	errMockRemove  = errors.New("mock: container remove failed")
	errNotFound    = errdefs.NotFound(errors.New("mock: no such container"))
)

// createCall records the arguments of a ContainerCreate call.
type createCall struct {
	Config     *container.Config
	HostConfig *container.HostConfig
	Name       string
}

// MockRuntimeAPI is a mock implementation of RuntimeAPI for testing.
type MockRuntimeAPI struct {
	// Function overrides for each method
	PingFunc             func(ctx context.Context) (types.Ping, error)
	ImagePullFunc        func(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
	ContainerCreateFunc  func(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, name string) (container.CreateResponse, error)
	ContainerStartFunc   func(ctx context.Context, containerID string, options container.StartOptions) error
	ContainerInspectFunc func(ctx context.Context, containerID string) (container.InspectResponse, error)
	ContainerRemoveFunc  func(ctx context.Context, containerID string, options container.RemoveOptions) error
	CloseFunc            func() error

	// Call tracking
	PingCalls             int
	ImagePullCalls        []string
	CreateCalls           []createCall
	StartCalls            []string
	ContainerInspectCalls int
	RemoveCalls           []string
	CloseCalls            int
}

// NewMockRuntimeAPI creates a new mock with default no-op implementations.
func NewMockRuntimeAPI() *MockRuntimeAPI {
	return &MockRuntimeAPI{}
}

// Ping implements RuntimeAPI.
func (m *MockRuntimeAPI) Ping(ctx context.Context) (types.Ping, error) {
	m.PingCalls++
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return types.Ping{APIVersion: "1.47"}, nil
}

// ImagePull implements RuntimeAPI.
func (m *MockRuntimeAPI) ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error) {
	m.ImagePullCalls = append(m.ImagePullCalls, ref)
	if m.ImagePullFunc != nil {
		return m.ImagePullFunc(ctx, ref, options)
	}
	return io.NopCloser(strings.NewReader(`{"status":"Pull complete"}`)), nil
}

// ContainerCreate implements RuntimeAPI.
func (m *MockRuntimeAPI) ContainerCreate(ctx context.Context, config *container.Config, hostConfig *container.HostConfig, _ *network.NetworkingConfig, _ *ocispec.Platform, name string) (container.CreateResponse, error) {
	m.CreateCalls = append(m.CreateCalls, createCall{Config: config, HostConfig: hostConfig, Name: name})
	if m.ContainerCreateFunc != nil {
		return m.ContainerCreateFunc(ctx, config, hostConfig, name)
	}
	return container.CreateResponse{ID: "0123456789abcdef0123456789abcdef"}, nil
}

// ContainerStart implements RuntimeAPI.
func (m *MockRuntimeAPI) ContainerStart(ctx context.Context, containerID string, options container.StartOptions) error {
	m.StartCalls = append(m.StartCalls, containerID)
	if m.ContainerStartFunc != nil {
		return m.ContainerStartFunc(ctx, containerID, options)
	}
	return nil
}

// ContainerInspect implements RuntimeAPI.
func (m *MockRuntimeAPI) ContainerInspect(ctx context.Context, containerID string) (container.InspectResponse, error) {
	m.ContainerInspectCalls++
	if m.ContainerInspectFunc != nil {
		return m.ContainerInspectFunc(ctx, containerID)
	}
	return container.InspectResponse{}, errNotFound
}

// ContainerRemove implements RuntimeAPI.
func (m *MockRuntimeAPI) ContainerRemove(ctx context.Context, containerID string, options container.RemoveOptions) error {
	m.RemoveCalls = append(m.RemoveCalls, containerID)
	if m.ContainerRemoveFunc != nil {
		return m.ContainerRemoveFunc(ctx, containerID, options)
	}
	return nil
}

// Close implements RuntimeAPI.
func (m *MockRuntimeAPI) Close() error {
	m.CloseCalls++
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Verify MockRuntimeAPI implements RuntimeAPI.
var _ RuntimeAPI = (*MockRuntimeAPI)(nil)
