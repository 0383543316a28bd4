package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hpc/onboard/internal/config"
	"github.com/campus-hpc/onboard/internal/configstore"
	"github.com/campus-hpc/onboard/internal/plan"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	m.Run()
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dev", "dev"},
		{"", ""},
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatVersion(tt.in))
	}
}

func TestSetVersionInfo(t *testing.T) {
	SetVersionInfo("9.9.9", "abc", "today")
	defer SetVersionInfo("dev", "none", "unknown")

	assert.Equal(t, "9.9.9", GetVersion())
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"run", "hosts", "keys", "doctor", "init", "version", "completion"}

	names := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		names[cmd.Name()] = true
	}

	for _, name := range want {
		assert.True(t, names[name], "command %q not registered", name)
	}
}

func TestHostEntryFor(t *testing.T) {
	cfg := &config.Config{
		Cluster: config.Cluster{
			Alias:        "ml007",
			HostName:     "ml007.example.org",
			User:         "jdoe",
			IdentityFile: "~/.ssh/id_ed25519",
		},
	}

	entry := hostEntryFor(cfg)
	assert.Equal(t, "ml007", entry.Alias)
	assert.Equal(t, "ml007.example.org", entry.HostName)
	assert.Equal(t, "jdoe", entry.User)
	assert.Equal(t, "~/.ssh/id_ed25519", entry.IdentityFile)
}

func TestEnsureHostEntry_Idempotent(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg := config.DefaultConfig()

	out, err := os.CreateTemp(t.TempDir(), "out")
	require.NoError(t, err)
	defer out.Close()

	require.NoError(t, ensureHostEntry(cfg, out))
	require.NoError(t, ensureHostEntry(cfg, out))

	data, err := os.ReadFile(filepath.Join(home, ".ssh", "config"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "Host ml007"))
}

func TestPlanOutcome(t *testing.T) {
	assert.Equal(t, plan.AlreadySatisfied, planOutcome(configstore.AlreadyPresent))
	assert.Equal(t, plan.Applied, planOutcome(configstore.Added))
}

func TestSSHConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	assert.Equal(t, filepath.Join(home, ".ssh", "config"), sshConfigPath())
}

func TestEditorSettingsPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	path := editorSettingsPath()
	assert.True(t, strings.HasSuffix(path, filepath.Join("Code", "User", "settings.json")))
}

func TestConnectivityError_AuthIncludesKey(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	sshDir := filepath.Join(home, ".ssh")
	require.NoError(t, os.MkdirAll(sshDir, 0700))
	keyPath := filepath.Join(sshDir, "id_ed25519")
	require.NoError(t, os.WriteFile(keyPath+".pub", []byte("ssh-ed25519 AAAA jdoe@laptop\n"), 0644))

	cfg := config.DefaultConfig()
	err := connectivityError(cfg, keyPath, assertAuthErr{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ssh-ed25519 AAAA jdoe@laptop")
	assert.Contains(t, err.Error(), "authorized_keys")
}

// assertAuthErr mimics an SSH authentication failure.
type assertAuthErr struct{}

func (assertAuthErr) Error() string {
	return "ssh: handshake failed: ssh: unable to authenticate, attempted methods [none publickey]"
}

func TestWriteConfigFile_ArchivesPrevious(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte("version: 0\n"), 0644))

	cfg := config.DefaultConfig()
	cfg.Cluster.Alias = "ml008"
	require.NoError(t, writeConfigFile(path, cfg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ml008")

	backups, err := filepath.Glob(path + ".bak-*")
	require.NoError(t, err)
	require.Len(t, backups, 1, "overwriting must archive the previous config")

	archived, err := os.ReadFile(backups[0])
	require.NoError(t, err)
	assert.Equal(t, "version: 0\n", string(archived))
}

func TestWriteConfigFile_FreshFileHasNoArchive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, config.ConfigFileName)

	require.NoError(t, writeConfigFile(path, config.DefaultConfig()))

	backups, err := filepath.Glob(path + ".bak-*")
	require.NoError(t, err)
	assert.Empty(t, backups)
}
