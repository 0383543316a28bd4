package dispatch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hpc/onboard/internal/errors"
	sshtest "github.com/campus-hpc/onboard/pkg/sshutil/testing"
)

func newDispatcher(t *testing.T, runner *sshtest.FakeRunner, console *strings.Builder) *Dispatcher {
	t.Helper()
	d := New(runner, time.Minute, console)
	d.SetLogDir(t.TempDir())
	return d
}

func TestRun_StreamsScriptWithEnvPrefix(t *testing.T) {
	runner := sshtest.NewFakeRunner("ml007")
	runner.Respond(`bash -s`, sshtest.Response{Stdout: []byte(">> environment setup complete\n")})

	var console strings.Builder
	d := newDispatcher(t, runner, &console)

	report, err := d.Run(context.Background(), Params{
		Username:         "jdoe",
		WantsNotebook:    true,
		NotebookPassword: "hunter2",
		NotebookPort:     8888,
		WantsEditor:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, report.ExitCode)

	require.Len(t, runner.Commands, 1)
	cmd := runner.Commands[0]
	assert.Contains(t, cmd, "ONBOARD_USER='jdoe'")
	assert.Contains(t, cmd, "ONBOARD_NOTEBOOK=1")
	assert.Contains(t, cmd, "ONBOARD_NOTEBOOK_PASSWORD='hunter2'")
	assert.Contains(t, cmd, "ONBOARD_NOTEBOOK_PORT=8888")
	assert.Contains(t, cmd, "ONBOARD_EDITOR=1")
	assert.True(t, strings.HasSuffix(cmd, "bash -s"), "script must arrive on stdin, not argv")

	require.Len(t, runner.Scripts, 1)
	script := runner.Scripts[0]
	assert.Contains(t, script, "grep -qxF")
	assert.Contains(t, script, "conda initialize")
	assert.Contains(t, script, "IdentityProvider")
	assert.Contains(t, script, "export PYTHONNOUSERSITE=1")
	assert.Contains(t, script, "export CONDA_AUTO_ACTIVATE_BASE=false")
	assert.Contains(t, script, `"python.defaultInterpreterPath"`)
	assert.Contains(t, script, `"python.condaPath"`)
	assert.Contains(t, script, "data/Machine/settings.json")
}

func TestRun_MirrorsOutputToConsoleAndTranscript(t *testing.T) {
	runner := sshtest.NewFakeRunner("ml007")
	runner.Respond(`bash -s`, sshtest.Response{
		Stdout: []byte(">> added /opt/conda/bin to PATH\n"),
		Stderr: []byte("warning: slow filesystem\n"),
	})

	var console strings.Builder
	d := newDispatcher(t, runner, &console)

	report, err := d.Run(context.Background(), Params{Username: "jdoe"})
	require.NoError(t, err)

	assert.Contains(t, console.String(), "added /opt/conda/bin to PATH")
	assert.Contains(t, console.String(), "slow filesystem")

	transcript, readErr := os.ReadFile(report.LogPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(transcript), "added /opt/conda/bin to PATH")
	assert.Contains(t, string(transcript), "slow filesystem")
	assert.Contains(t, string(transcript), "exit status: 0")
}

func TestRun_TranscriptRedactsPassword(t *testing.T) {
	runner := sshtest.NewFakeRunner("ml007")

	var console strings.Builder
	d := newDispatcher(t, runner, &console)

	report, err := d.Run(context.Background(), Params{
		Username:         "jdoe",
		WantsNotebook:    true,
		NotebookPassword: "sekrit-pw",
	})
	require.NoError(t, err)

	transcript, readErr := os.ReadFile(report.LogPath)
	require.NoError(t, readErr)
	assert.NotContains(t, string(transcript), "sekrit-pw")
	assert.Contains(t, string(transcript), "[redacted]")
}

func TestRun_PropagatesExitStatus(t *testing.T) {
	runner := sshtest.NewFakeRunner("ml007")
	runner.Respond(`bash -s`, sshtest.Response{
		Stderr:   []byte("!! conda init failed\n"),
		ExitCode: 3,
	})

	var console strings.Builder
	d := newDispatcher(t, runner, &console)

	report, err := d.Run(context.Background(), Params{Username: "jdoe"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDispatch))
	assert.Contains(t, err.Error(), "status 3")

	require.NotNil(t, report)
	assert.Equal(t, 3, report.ExitCode)

	transcript, readErr := os.ReadFile(report.LogPath)
	require.NoError(t, readErr)
	assert.Contains(t, string(transcript), "exit status: 3")
}

func TestRun_ValidatesParams(t *testing.T) {
	tests := []struct {
		name   string
		params Params
	}{
		{"empty username", Params{}},
		{"blank username", Params{Username: "   "}},
		{"notebook without password", Params{Username: "jdoe", WantsNotebook: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := sshtest.NewFakeRunner("ml007")
			var console strings.Builder
			d := newDispatcher(t, runner, &console)

			_, err := d.Run(context.Background(), tt.params)
			require.Error(t, err)
			assert.Empty(t, runner.Commands, "invalid params must never reach the remote")
		})
	}
}

func TestRun_ContextCancellation(t *testing.T) {
	runner := sshtest.NewFakeRunner("ml007")

	var console strings.Builder
	d := newDispatcher(t, runner, &console)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Run(ctx, Params{Username: "jdoe"})
	require.Error(t, err)
}

func TestParamsCommand(t *testing.T) {
	t.Run("minimal", func(t *testing.T) {
		cmd := Params{Username: "jdoe"}.Command()
		assert.Equal(t, "ONBOARD_USER='jdoe' ONBOARD_NOTEBOOK=0 ONBOARD_EDITOR=0 bash -s", cmd)
	})

	t.Run("password quoting", func(t *testing.T) {
		cmd := Params{
			Username:         "jdoe",
			WantsNotebook:    true,
			NotebookPassword: "it's secret",
		}.Command()
		assert.Contains(t, cmd, `ONBOARD_NOTEBOOK_PASSWORD='it'\''s secret'`)
	})
}

func TestNewRunLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")

	rl, err := NewRunLog(dir)
	require.NoError(t, err)
	defer rl.Close()

	_, err = rl.Write([]byte("hello\n"))
	require.NoError(t, err)
	require.NoError(t, rl.Close())

	info, err := os.Stat(rl.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.True(t, strings.HasPrefix(filepath.Base(rl.Path()), "run-"))
}

func TestRedactCommand(t *testing.T) {
	cmd := "ONBOARD_USER='j' ONBOARD_NOTEBOOK_PASSWORD='pw' bash -s"
	redacted := redactCommand(cmd)
	assert.NotContains(t, redacted, "'pw'")
	assert.Contains(t, redacted, "[redacted]")

	plain := "ONBOARD_USER='j' bash -s"
	assert.Equal(t, plain, redactCommand(plain))
}
