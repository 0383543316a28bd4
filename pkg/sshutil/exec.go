package sshutil

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"golang.org/x/crypto/ssh"

	"github.com/campus-hpc/onboard/internal/errors"
)

// Exec runs a command on the remote host and returns the output.
// Returns stdout, stderr, exit code, and any error.
// Exit code is -1 if the command couldn't be executed at all.
func (c *Client) Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode, err = c.run(ctx, cmd, nil, &stdoutBuf, &stderrBuf)
	return stdoutBuf.Bytes(), stderrBuf.Bytes(), exitCode, err
}

// ExecStream runs a command and streams output to the provided writers.
// Returns the exit code and any error.
func (c *Client) ExecStream(ctx context.Context, cmd string, stdout, stderr io.Writer) (exitCode int, err error) {
	return c.run(ctx, cmd, nil, stdout, stderr)
}

// ExecScript runs a command with the given reader streamed to its stdin.
// This is how a script body is dispatched for remote execution: the
// command is typically a shell invocation reading the script from stdin.
func (c *Client) ExecScript(ctx context.Context, cmd string, script io.Reader, stdout, stderr io.Writer) (exitCode int, err error) {
	return c.run(ctx, cmd, script, stdout, stderr)
}

// run executes cmd in a fresh session, bounded by ctx. When the context
// expires the session is torn down, which terminates the remote command.
func (c *Client) run(ctx context.Context, cmd string, stdin io.Reader, stdout, stderr io.Writer) (int, error) {
	session, err := c.Client.NewSession()
	if err != nil {
		return -1, errors.WrapWithCode(err, errors.ErrSSH,
			"Failed to create SSH session",
			"Connection may have been closed. Try reconnecting.")
	}
	defer session.Close()

	session.Stdin = stdin
	session.Stdout = stdout
	session.Stderr = stderr

	if err := session.Start(cmd); err != nil {
		return -1, errors.WrapWithCode(err, errors.ErrDispatch,
			fmt.Sprintf("Failed to start command: %s", cmd),
			"Check if the command exists on the remote host.")
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	select {
	case <-ctx.Done():
		session.Close()
		<-done
		return -1, errors.WrapWithCode(ctx.Err(), errors.ErrSSH,
			fmt.Sprintf("Remote command timed out: %s", cmd),
			"Increase the remote timeout, or check the host for hangs.")
	case err := <-done:
		if err != nil {
			if exitErr, ok := err.(*ssh.ExitError); ok {
				// Command ran, just had non-zero exit
				return exitErr.ExitStatus(), nil
			}
			return -1, errors.WrapWithCode(err, errors.ErrDispatch,
				fmt.Sprintf("Failed to execute command: %s", cmd),
				"Check if the command exists on the remote host.")
		}
		return 0, nil
	}
}
