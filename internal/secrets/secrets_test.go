package secrets

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDecrypter returns canned cleartext keyed by file name.
func fakeDecrypter(files map[string]string, formats map[string]string) DecryptFunc {
	return func(path, format string) ([]byte, error) {
		formats[path] = format
		content, ok := files[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return []byte(content), nil
	}
}

func TestSource_Load(t *testing.T) {
	formats := make(map[string]string)
	files := map[string]string{
		"secrets.sops.yaml": "docker_compose_image: ghcr.io/flare/fsp-observer:1.2\nnotification:\n  discord-webhook: https://discord.example/hook\n",
		"override.sops.json": `{"DOCKER_COMPOSE_IMAGE": "img:override"}`,
		"observer.sops.env":  "RPC_URL=https://rpc.example\n",
	}
	src := NewSourceWithDecrypter(fakeDecrypter(files, formats))

	vars, err := src.Load("secrets.sops.yaml", "", "override.sops.json", "observer.sops.env")
	require.NoError(t, err)

	assert.Equal(t, "img:override", vars["DOCKER_COMPOSE_IMAGE"], "later files win")
	assert.Equal(t, "https://discord.example/hook", vars["NOTIFICATION_DISCORD_WEBHOOK"])
	assert.Equal(t, "https://rpc.example", vars["RPC_URL"])

	assert.Equal(t, "yaml", formats["secrets.sops.yaml"])
	assert.Equal(t, "json", formats["override.sops.json"])
	assert.Equal(t, "dotenv", formats["observer.sops.env"])
}

func TestSource_LoadErrors(t *testing.T) {
	src := NewSourceWithDecrypter(fakeDecrypter(map[string]string{
		"broken.yaml": "key: [unclosed",
	}, map[string]string{}))

	_, err := src.Load("missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sops decrypt failed for missing.yaml")

	_, err = src.Load("broken.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse decrypted")
}

func TestSource_LoadRealFileFailsWithoutKeys(t *testing.T) {
	src := NewSource()
	_, err := src.Load(filepath.Join(t.TempDir(), "absent.sops.yaml"))
	assert.Error(t, err)
}

func TestFlatten(t *testing.T) {
	got := Flatten(map[string]any{
		"name": "demo",
		"db": map[string]any{
			"password": "secret",
			"port":     5432,
		},
		"rpc.urls": []any{"a", "b"},
		"empty":    nil,
		"enabled":  true,
	})

	assert.Equal(t, map[string]string{
		"NAME":        "demo",
		"DB_PASSWORD": "secret",
		"DB_PORT":     "5432",
		"RPC_URLS_0":  "a",
		"RPC_URLS_1":  "b",
		"EMPTY":       "",
		"ENABLED":     "true",
	}, got)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "yaml", Format("secrets.sops.yaml"))
	assert.Equal(t, "yaml", Format("secrets.yml"))
	assert.Equal(t, "json", Format("secrets.JSON"))
	assert.Equal(t, "dotenv", Format(".env"))
}
