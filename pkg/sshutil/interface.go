package sshutil

import (
	"context"
	"io"
)

// Runner defines the interface for remote command execution. Both the
// real Client and test fakes satisfy it.
//
// Every method takes a context: all remote round trips are bounded by
// the caller's deadline, not only the initial connection. A non-zero
// exit code with nil error means the command ran but failed; exit code
// -1 means the command could not be executed at all.
type Runner interface {
	// Exec runs a command and returns stdout, stderr, and exit code.
	Exec(ctx context.Context, cmd string) (stdout, stderr []byte, exitCode int, err error)

	// ExecStream runs a command and streams output to the provided writers.
	ExecStream(ctx context.Context, cmd string, stdout, stderr io.Writer) (exitCode int, err error)

	// ExecScript runs a command with the given reader streamed to its
	// stdin. Used to dispatch a script body for remote execution.
	ExecScript(ctx context.Context, cmd string, script io.Reader, stdout, stderr io.Writer) (exitCode int, err error)

	// Close closes the SSH connection.
	Close() error

	// GetHost returns the original host/alias used to connect.
	GetHost() string

	// GetAddress returns the resolved host:port address.
	GetAddress() string
}
