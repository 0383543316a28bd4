// Package dispatch runs the remote environment setup script over an
// established SSH connection, mirroring its output to the console and
// a local transcript.
package dispatch

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/campus-hpc/onboard/internal/errors"
	"github.com/campus-hpc/onboard/internal/logger"
	"github.com/campus-hpc/onboard/pkg/sshutil"
)

//go:embed scripts/setup.sh
var setupScript string

// Report summarizes one remote run.
type Report struct {
	ExitCode int
	Duration time.Duration
	LogPath  string
}

// Dispatcher sends the setup script to a cluster and relays its
// output.
type Dispatcher struct {
	runner  sshutil.Runner
	timeout time.Duration
	console io.Writer
	logDir  string
	log     logger.Logger
}

// New creates a dispatcher. timeout bounds the whole remote run;
// console receives the mirrored script output.
func New(runner sshutil.Runner, timeout time.Duration, console io.Writer) *Dispatcher {
	return &Dispatcher{
		runner:  runner,
		timeout: timeout,
		console: console,
		log:     logger.Default(),
	}
}

// SetLogDir overrides where run transcripts are written.
func (d *Dispatcher) SetLogDir(dir string) { d.logDir = dir }

// Run validates params, streams the setup script to the remote shell,
// and mirrors every line to the console and the run transcript. The
// returned error is non-nil when the script could not run or exited
// non-zero; the report is valid either way once the run started.
func (d *Dispatcher) Run(ctx context.Context, params Params) (*Report, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	runLog, err := NewRunLog(d.logDir)
	if err != nil {
		return nil, err
	}
	defer runLog.Close()

	cmd := params.Command()
	d.log.Debug("dispatching setup to %s: %s", d.runner.GetHost(), redactCommand(cmd))
	fmt.Fprintf(runLog, "# onboard run %s\n# host: %s\n# command: %s\n\n",
		time.Now().Format(time.RFC3339), d.runner.GetAddress(), redactCommand(cmd))

	stdout := io.MultiWriter(d.console, runLog)
	stderr := io.MultiWriter(d.console, runLog)

	runCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	exitCode, err := d.runner.ExecScript(runCtx, cmd, strings.NewReader(setupScript), stdout, stderr)
	report := &Report{
		ExitCode: exitCode,
		Duration: time.Since(start),
		LogPath:  runLog.Path(),
	}

	fmt.Fprintf(runLog, "\n# exit status: %d\n", exitCode)

	if err != nil {
		return report, errors.WrapWithCode(err, errors.ErrDispatch,
			fmt.Sprintf("Remote setup did not complete on %s", d.runner.GetHost()),
			"Full transcript: "+runLog.Path())
	}
	if exitCode != 0 {
		return report, errors.New(errors.ErrDispatch,
			fmt.Sprintf("Remote setup exited with status %d", exitCode),
			"Full transcript: "+runLog.Path())
	}

	d.log.Debug("setup finished on %s in %s", d.runner.GetHost(), report.Duration)
	return report, nil
}

// redactCommand masks the notebook password in log output.
func redactCommand(cmd string) string {
	const key = "ONBOARD_NOTEBOOK_PASSWORD="
	idx := strings.Index(cmd, key)
	if idx < 0 {
		return cmd
	}
	rest := cmd[idx+len(key):]
	end := len(rest)
	if strings.HasPrefix(rest, "'") {
		// Single-quoted value; embedded quotes appear as '\''.
		i := 1
		for i < len(rest) {
			if rest[i] == '\'' {
				if strings.HasPrefix(rest[i:], `'\''`) {
					i += 4
					continue
				}
				end = i + 1
				break
			}
			i++
		}
	} else if sp := strings.Index(rest, " "); sp >= 0 {
		end = sp
	}
	return cmd[:idx+len(key)] + "[redacted]" + rest[end:]
}
