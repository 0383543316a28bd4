// Package testing provides test doubles for the sshutil package.
package testing

import (
	"context"
	"errors"
	"io"
	"regexp"
	"sync"
)

// Response is a canned result for a command pattern.
type Response struct {
	Stdout   []byte
	Stderr   []byte
	ExitCode int
	Err      error
}

// rule pairs a command regexp with its response.
type rule struct {
	re   *regexp.Regexp
	resp func() Response
}

// FakeRunner implements sshutil.Runner with scripted responses. Commands
// are matched against registered patterns in registration order; the
// first match wins. Unmatched commands succeed with empty output, so
// tests only script the commands they care about.
type FakeRunner struct {
	mu       sync.Mutex
	host     string
	rules    []rule
	Commands []string // every command executed, in order
	Scripts  []string // body of every script dispatched via ExecScript
	closed   bool
}

// NewFakeRunner creates a fake runner for the given host alias.
func NewFakeRunner(host string) *FakeRunner {
	return &FakeRunner{host: host}
}

// Respond registers a response for commands matching the pattern.
func (f *FakeRunner) Respond(pattern string, resp Response) {
	f.RespondFunc(pattern, func() Response { return resp })
}

// RespondFunc registers a response callback, evaluated on every match.
// Useful for responses that change between calls.
func (f *FakeRunner) RespondFunc(pattern string, fn func() Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rules = append(f.rules, rule{re: regexp.MustCompile(pattern), resp: fn})
}

// lookup records the command and finds its response.
func (f *FakeRunner) lookup(cmd string) (Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return Response{}, errors.New("connection closed")
	}

	f.Commands = append(f.Commands, cmd)
	for _, r := range f.rules {
		if r.re.MatchString(cmd) {
			return r.resp(), nil
		}
	}
	return Response{}, nil
}

// Exec implements sshutil.Runner.
func (f *FakeRunner) Exec(ctx context.Context, cmd string) ([]byte, []byte, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, -1, err
	}
	resp, err := f.lookup(cmd)
	if err != nil {
		return nil, nil, -1, err
	}
	return resp.Stdout, resp.Stderr, resp.ExitCode, resp.Err
}

// ExecStream implements sshutil.Runner.
func (f *FakeRunner) ExecStream(ctx context.Context, cmd string, stdout, stderr io.Writer) (int, error) {
	if err := ctx.Err(); err != nil {
		return -1, err
	}
	resp, err := f.lookup(cmd)
	if err != nil {
		return -1, err
	}
	if len(resp.Stdout) > 0 {
		stdout.Write(resp.Stdout)
	}
	if len(resp.Stderr) > 0 {
		stderr.Write(resp.Stderr)
	}
	return resp.ExitCode, resp.Err
}

// ExecScript implements sshutil.Runner. The script body is drained and
// recorded so tests can assert on what was dispatched.
func (f *FakeRunner) ExecScript(ctx context.Context, cmd string, script io.Reader, stdout, stderr io.Writer) (int, error) {
	body, readErr := io.ReadAll(script)
	if readErr != nil {
		return -1, readErr
	}

	f.mu.Lock()
	f.Scripts = append(f.Scripts, string(body))
	f.mu.Unlock()

	return f.ExecStream(ctx, cmd, stdout, stderr)
}

// Close implements sshutil.Runner.
func (f *FakeRunner) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// GetHost implements sshutil.Runner.
func (f *FakeRunner) GetHost() string { return f.host }

// GetAddress implements sshutil.Runner.
func (f *FakeRunner) GetAddress() string { return f.host + ":22" }

// Ran reports whether any executed command matches the pattern.
func (f *FakeRunner) Ran(pattern string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	re := regexp.MustCompile(pattern)
	for _, cmd := range f.Commands {
		if re.MatchString(cmd) {
			return true
		}
	}
	return false
}

// CountRan returns how many executed commands match the pattern.
func (f *FakeRunner) CountRan(pattern string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	re := regexp.MustCompile(pattern)
	n := 0
	for _, cmd := range f.Commands {
		if re.MatchString(cmd) {
			n++
		}
	}
	return n
}
