package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

// observerDocument is a native document for the flare and songbird
// observers.
const observerDocument = `fragments:
  logging:
    logging:
      driver: local
      options:
        max-size: 10m
        max-file: "3"
  general:
    restart: unless-stopped
    stdin_open: true
    tty: true

services:
  flare-fsp-observer:
    fragments: [logging, general]
    image: ${DOCKER_COMPOSE_IMAGE}
    hostname: ${DOCKER_COMPOSE_NAME}-flare
    container_name: ${DOCKER_COMPOSE_NAME}-flare
    env_file: ./configuration/app/flare.env
  songbird-fsp-observer:
    fragments: [logging, general]
    image: ${DOCKER_COMPOSE_IMAGE}
    hostname: ${DOCKER_COMPOSE_NAME}-songbird
    container_name: ${DOCKER_COMPOSE_NAME}-songbird
    env_file: ./configuration/app/songbird.env
`

// observerDefaults is the .env file next to the document.
const observerDefaults = "DOCKER_COMPOSE_NAME=demo\nDOCKER_COMPOSE_IMAGE=img:1\n"

// setupProject writes a project directory holding document, .env (if
// defaults is not empty) and the observers' env files. It returns the
// document path.
func setupProject(t *testing.T, document, defaults string) string {
	t.Helper()
	dir := t.TempDir()

	docPath := filepath.Join(dir, "fspcompose.yaml")
	require.NoError(t, os.WriteFile(docPath, []byte(document), 0644))

	if defaults != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(defaults), 0644))
	}

	appDir := filepath.Join(dir, "configuration", "app")
	require.NoError(t, os.MkdirAll(appDir, 0755))
	for _, chain := range []string{"flare", "songbird"} {
		content := "CHAIN=" + chain + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(appDir, chain+".env"), []byte(content), 0644))
	}

	// Keep the caller's environment out of discovery and resolution.
	for _, name := range []string{"FSPCOMPOSE_FILE", "FSPCOMPOSE_ENV_FILE", "FSPCOMPOSE_SECRETS_FILE", "FSPCOMPOSE_PROJECT"} {
		t.Setenv(name, "")
	}
	unsetEnv(t, "DOCKER_COMPOSE_NAME")
	unsetEnv(t, "DOCKER_COMPOSE_IMAGE")

	return docPath
}

// unsetEnv removes name for the duration of the test.
func unsetEnv(t *testing.T, name string) {
	t.Helper()
	t.Setenv(name, "")
	require.NoError(t, os.Unsetenv(name))
}

// resetFlags restores every flag on c and its subcommands to its default.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCmd executes the root command with the given args and returns the
// combined stdout and stderr of the command.
func executeCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	err := rootCmd.Execute()
	return buf.String(), err
}

// writeFile writes content to name in a fresh temp directory.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	return writeFileIn(t, t.TempDir(), name, content)
}

// writeFileIn writes content to name in dir.
func writeFileIn(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}
