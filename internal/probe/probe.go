// Package probe tests SSH connectivity to the cluster and classifies
// failures so each category can carry its own recovery instructions.
package probe

import (
	"fmt"
	"strings"
	"time"

	"github.com/campus-hpc/onboard/pkg/sshutil"
)

// FailReason categorizes why a probe failed. Every failure maps to
// exactly one category.
type FailReason int

const (
	FailUnknown FailReason = iota
	FailDNS                // name resolution failed
	FailConnect            // refused, timed out, or unreachable
	FailAuth               // connected but authentication failed
)

// String returns a human-readable description of the failure reason.
func (r FailReason) String() string {
	switch r {
	case FailDNS:
		return "name resolution failed"
	case FailConnect:
		return "connection failed"
	case FailAuth:
		return "authentication failed"
	default:
		return "unknown error"
	}
}

// Remediation returns manual-recovery instructions for the category.
func (r FailReason) Remediation() string {
	switch r {
	case FailDNS:
		return "The hostname didn't resolve. Check the spelling and that you\n" +
			"are on the right network or VPN. Try: nslookup <host>"
	case FailConnect:
		return "The host didn't accept the connection. It may be down, firewalled,\n" +
			"or SSH may not be running. Try: ssh -v <host>"
	case FailAuth:
		return "The host is reachable but rejected your credentials. Check that\n" +
			"your key is installed (onboard keys) and loaded: ssh-add -l"
	default:
		return "Connection failed for an unrecognized reason. Try connecting\n" +
			"manually with: ssh -v <host>"
	}
}

// Error represents a failed probe with its categorized reason.
type Error struct {
	Host   string
	Reason FailReason
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("probe %s failed: %s (%v)", e.Host, e.Reason, e.Cause)
	}
	return fmt.Sprintf("probe %s failed: %s", e.Host, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Probe dials the host with a bounded timeout, performs the SSH
// handshake, and returns the connected client and the latency. On
// failure it returns an *Error with exactly one categorized reason; the
// caller treats any failure as fatal for the run, since every later
// step needs this channel.
func Probe(host string, timeout time.Duration) (*sshutil.Client, time.Duration, error) {
	start := time.Now()

	client, err := sshutil.Dial(host, timeout)
	if err != nil {
		return nil, 0, Classify(host, err)
	}

	return client, time.Since(start), nil
}

// Check is Probe without keeping the connection: it dials, measures
// latency, and closes.
func Check(host string, timeout time.Duration) (time.Duration, error) {
	client, latency, err := Probe(host, timeout)
	if err != nil {
		return 0, err
	}
	client.Close()
	return latency, nil
}

// Classify converts a connection error into an *Error with a
// categorized failure reason.
func Classify(host string, err error) *Error {
	if err == nil {
		return nil
	}

	probeErr := &Error{
		Host:   host,
		Reason: FailUnknown,
		Cause:  err,
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "name resolution") ||
		strings.Contains(errStr, "could not resolve"):
		probeErr.Reason = FailDNS

	case strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "i/o timeout") ||
		strings.Contains(errStr, "no route to host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "host is down"):
		probeErr.Reason = FailConnect

	case strings.Contains(errStr, "unable to authenticate") ||
		strings.Contains(errStr, "no supported methods") ||
		strings.Contains(errStr, "permission denied") ||
		strings.Contains(errStr, "authentication failed") ||
		strings.Contains(errStr, "no ssh auth methods"):
		probeErr.Reason = FailAuth
	}

	return probeErr
}
