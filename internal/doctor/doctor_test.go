package doctor

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sshtest "github.com/campus-hpc/onboard/pkg/sshutil/testing"
)

func TestCheckStatusString(t *testing.T) {
	assert.Equal(t, "pass", StatusPass.String())
	assert.Equal(t, "warn", StatusWarn.String())
	assert.Equal(t, "fail", StatusFail.String())
}

type stubCheck struct {
	name   string
	result CheckResult
}

func (s *stubCheck) Name() string     { return s.name }
func (s *stubCheck) Category() string { return "TEST" }
func (s *stubCheck) Run() CheckResult { return s.result }

func TestRunAll_PreservesOrder(t *testing.T) {
	checks := []Check{
		&stubCheck{name: "a", result: CheckResult{Name: "a", Status: StatusPass}},
		&stubCheck{name: "b", result: CheckResult{Name: "b", Status: StatusFail}},
		&stubCheck{name: "c", result: CheckResult{Name: "c", Status: StatusWarn}},
	}

	results := RunAll(checks)
	require.Len(t, results, 3)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, "b", results[1].Name)
	assert.Equal(t, "c", results[2].Name)
}

func TestRunAllParallel(t *testing.T) {
	checks := []Check{
		&stubCheck{name: "a", result: CheckResult{Name: "a", Status: StatusPass}},
		&stubCheck{name: "b", result: CheckResult{Name: "b", Status: StatusPass}},
	}

	results := RunAllParallel(checks)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, "b", results[1].Name)
}

func TestCountByStatus(t *testing.T) {
	results := []CheckResult{
		{Status: StatusPass},
		{Status: StatusPass},
		{Status: StatusWarn},
		{Status: StatusFail},
	}
	pass, warn, fail := CountByStatus(results)
	assert.Equal(t, 2, pass)
	assert.Equal(t, 1, warn)
	assert.Equal(t, 1, fail)
}

func TestKeyCheck(t *testing.T) {
	t.Run("no keys", func(t *testing.T) {
		t.Setenv("HOME", t.TempDir())

		result := (&KeyCheck{}).Run()
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Suggestion, "onboard keys")
	})

	t.Run("key pair present", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		sshDir := filepath.Join(home, ".ssh")
		require.NoError(t, os.MkdirAll(sshDir, 0700))
		require.NoError(t, os.WriteFile(filepath.Join(sshDir, "id_ed25519"), []byte("k"), 0600))
		require.NoError(t, os.WriteFile(filepath.Join(sshDir, "id_ed25519.pub"), []byte("p"), 0644))

		result := (&KeyCheck{}).Run()
		assert.Equal(t, StatusPass, result.Status)
		assert.Contains(t, result.Message, "ed25519")
	})

	t.Run("missing public half", func(t *testing.T) {
		home := t.TempDir()
		t.Setenv("HOME", home)
		sshDir := filepath.Join(home, ".ssh")
		require.NoError(t, os.MkdirAll(sshDir, 0700))
		require.NoError(t, os.WriteFile(filepath.Join(sshDir, "id_ed25519"), []byte("k"), 0600))

		result := (&KeyCheck{}).Run()
		assert.Equal(t, StatusWarn, result.Status)
	})
}

func TestSSHConfigCheck(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config")

	t.Run("missing entry", func(t *testing.T) {
		result := (&SSHConfigCheck{ConfigPath: configPath, Alias: "ml007"}).Run()
		assert.Equal(t, StatusFail, result.Status)
		assert.Contains(t, result.Suggestion, "onboard hosts")
	})

	t.Run("entry present", func(t *testing.T) {
		content := "Host ml007\n    HostName ml007.example.org\n"
		require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

		result := (&SSHConfigCheck{ConfigPath: configPath, Alias: "ml007"}).Run()
		assert.Equal(t, StatusPass, result.Status)
	})
}

func TestEditorSettingsCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	t.Run("missing file", func(t *testing.T) {
		result := (&EditorSettingsCheck{SettingsPath: path}).Run()
		assert.Equal(t, StatusWarn, result.Status)
	})

	t.Run("interpreter not set", func(t *testing.T) {
		require.NoError(t, os.WriteFile(path, []byte(`{"editor.fontSize": 14}`), 0644))
		result := (&EditorSettingsCheck{SettingsPath: path}).Run()
		assert.Equal(t, StatusWarn, result.Status)
	})

	t.Run("configured", func(t *testing.T) {
		content := `{"python.defaultInterpreterPath": "/opt/conda/bin/python"}`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
		result := (&EditorSettingsCheck{SettingsPath: path}).Run()
		assert.Equal(t, StatusPass, result.Status)
	})
}

func TestRemoteEnvCheck(t *testing.T) {
	t.Run("fully configured", func(t *testing.T) {
		runner := sshtest.NewFakeRunner("ml007")
		runner.Respond(`cat \$HOME/\.bashrc`, sshtest.Response{
			Stdout: []byte("export PATH=\"/opt/conda/bin:$PATH\"\n# >>> conda initialize >>>\n"),
		})

		result := (&RemoteEnvCheck{Runner: runner, Timeout: time.Second}).Run()
		assert.Equal(t, StatusPass, result.Status)
	})

	t.Run("missing pieces", func(t *testing.T) {
		runner := sshtest.NewFakeRunner("ml007")
		runner.Respond(`cat \$HOME/\.bashrc`, sshtest.Response{Stdout: []byte("# empty\n")})

		result := (&RemoteEnvCheck{Runner: runner, Timeout: time.Second}).Run()
		assert.Equal(t, StatusWarn, result.Status)
		assert.Contains(t, result.Message, "conda PATH entry")
		assert.Contains(t, result.Message, "conda init block")
	})

	t.Run("unreadable profile", func(t *testing.T) {
		runner := sshtest.NewFakeRunner("ml007")
		runner.Respond(`cat`, sshtest.Response{ExitCode: 1})

		result := (&RemoteEnvCheck{Runner: runner, Timeout: time.Second}).Run()
		assert.Equal(t, StatusFail, result.Status)
	})
}

func TestNotebookCheck(t *testing.T) {
	t.Run("password set", func(t *testing.T) {
		runner := sshtest.NewFakeRunner("ml007")
		runner.Respond(`IdentityProvider`, sshtest.Response{ExitCode: 0})

		result := (&NotebookCheck{Runner: runner, Timeout: time.Second}).Run()
		assert.Equal(t, StatusPass, result.Status)
	})

	t.Run("password missing", func(t *testing.T) {
		runner := sshtest.NewFakeRunner("ml007")
		runner.Respond(`IdentityProvider`, sshtest.Response{ExitCode: 1})

		result := (&NotebookCheck{Runner: runner, Timeout: time.Second}).Run()
		assert.Equal(t, StatusWarn, result.Status)
	})
}
