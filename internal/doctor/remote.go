package doctor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/campus-hpc/onboard/internal/probe"
	"github.com/campus-hpc/onboard/pkg/sshutil"
)

// ConnectivityCheck probes SSH reachability of the cluster.
type ConnectivityCheck struct {
	Host    string
	Timeout time.Duration
}

func (c *ConnectivityCheck) Name() string     { return "connectivity" }
func (c *ConnectivityCheck) Category() string { return "SSH" }

func (c *ConnectivityCheck) Run() CheckResult {
	latency, err := probe.Check(c.Host, c.Timeout)
	if err != nil {
		perr := probe.Classify(c.Host, err)
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot reach '%s': %s", c.Host, perr.Reason),
			Suggestion: perr.Reason.Remediation(),
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Connected to '%s' in %dms", c.Host, latency.Milliseconds()),
	}
}

// RemoteEnvCheck inspects the remote shell profile for the conda PATH
// entry and init block the setup script writes.
type RemoteEnvCheck struct {
	Runner  sshutil.Runner
	Timeout time.Duration
}

func (c *RemoteEnvCheck) Name() string     { return "remote-env" }
func (c *RemoteEnvCheck) Category() string { return "REMOTE" }

func (c *RemoteEnvCheck) Run() CheckResult {
	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	stdout, _, code, err := c.Runner.Exec(ctx, "cat $HOME/.bashrc 2>/dev/null")
	if err != nil || code != 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot read remote shell profile",
			Suggestion: "Check SSH access and rerun 'onboard'",
		}
	}

	profile := string(stdout)
	var missing []string
	if !strings.Contains(profile, "/opt/conda/bin") {
		missing = append(missing, "conda PATH entry")
	}
	if !strings.Contains(profile, ">>> conda initialize >>>") {
		missing = append(missing, "conda init block")
	}

	if len(missing) > 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Remote profile missing: " + strings.Join(missing, ", "),
			Suggestion: "Run 'onboard' to complete the environment setup",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Remote environment configured",
	}
}

// NotebookCheck verifies the Jupyter server password has been set.
type NotebookCheck struct {
	Runner  sshutil.Runner
	Timeout time.Duration
}

func (c *NotebookCheck) Name() string     { return "notebook" }
func (c *NotebookCheck) Category() string { return "REMOTE" }

func (c *NotebookCheck) Run() CheckResult {
	ctx := context.Background()
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	cmd := `grep -qF '"IdentityProvider"' $HOME/.jupyter/jupyter_server_config.json`
	_, _, code, err := c.Runner.Exec(ctx, cmd)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "Cannot inspect notebook configuration",
			Suggestion: "Check SSH access and rerun 'onboard'",
		}
	}
	if code != 0 {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Notebook password not set",
			Suggestion: "Run 'onboard' and choose notebook setup",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Notebook password configured",
	}
}
