package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("valid config", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
version: 1
cluster:
  alias: gpu01
  hostname: gpu01.campus.edu
  user: jdoe
probe_timeout: 3s
remote_timeout: 20m
notebook:
  port: 9999
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "gpu01", cfg.Cluster.Alias)
		assert.Equal(t, "gpu01.campus.edu", cfg.Cluster.HostName)
		assert.Equal(t, "jdoe", cfg.Cluster.User)
		assert.Equal(t, 3*time.Second, cfg.ProbeTimeout)
		assert.Equal(t, 20*time.Minute, cfg.RemoteTimeout)
		assert.Equal(t, 9999, cfg.Notebook.Port)
	})

	t.Run("defaults fill gaps", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
cluster:
  alias: ml007
  hostname: ml007.example.org
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, cfg.ProbeTimeout)
		assert.Equal(t, 10*time.Minute, cfg.RemoteTimeout)
		assert.Equal(t, 8888, cfg.Notebook.Port)
		assert.NotEmpty(t, cfg.Editor.InterpreterPath)
		assert.NotEmpty(t, cfg.Editor.Extensions)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), ConfigFileName))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "cluster: [unclosed")
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("empty alias rejected", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), `
cluster:
  alias: ""
  hostname: ml007.example.org
`)
		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestFind(t *testing.T) {
	t.Run("explicit path", func(t *testing.T) {
		path := writeConfig(t, t.TempDir(), "version: 1")
		found, err := Find(path)
		require.NoError(t, err)
		assert.Equal(t, path, found)
	})

	t.Run("explicit path missing", func(t *testing.T) {
		_, err := Find(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("current directory", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "version: 1")
		t.Chdir(dir)

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, ConfigFileName, filepath.Base(found))
		assert.Equal(t, path, found)
	})

	t.Run("parent directory", func(t *testing.T) {
		dir := t.TempDir()
		path := writeConfig(t, dir, "version: 1")
		sub := filepath.Join(dir, "a", "b")
		require.NoError(t, os.MkdirAll(sub, 0755))
		t.Chdir(sub)

		found, err := Find("")
		require.NoError(t, err)
		assert.Equal(t, path, found)
	})

	t.Run("nothing found", func(t *testing.T) {
		dir := t.TempDir()
		t.Chdir(dir)
		t.Setenv("HOME", dir)

		found, err := Find("")
		require.NoError(t, err)
		assert.Empty(t, found)
	})
}

func TestLoadOrDefault(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)

	cfg, err := LoadOrDefault()
	require.NoError(t, err)
	assert.Equal(t, "ml007", cfg.Cluster.Alias)
	assert.Equal(t, "ml007.example.org", cfg.Cluster.HostName)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, CurrentConfigVersion, cfg.Version)
	assert.Equal(t, "ml007", cfg.Cluster.Alias)
	assert.Equal(t, "auto", cfg.Output.Color)
	assert.Equal(t, "visual-studio-code", cfg.Tools.Editor)
}
