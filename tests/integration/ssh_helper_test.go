package integration

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campus-hpc/onboard/pkg/sshutil"
)

// GetSSHConnection returns a client for the host in ONBOARD_TEST_SSH_HOST,
// skipping the test when no host is configured or SSH tests are disabled.
func GetSSHConnection(t *testing.T) *sshutil.Client {
	t.Helper()

	if os.Getenv("ONBOARD_TEST_SKIP_SSH") != "" {
		t.Skip("ONBOARD_TEST_SKIP_SSH set")
	}
	host := os.Getenv("ONBOARD_TEST_SSH_HOST")
	if host == "" {
		t.Skip("ONBOARD_TEST_SSH_HOST not set")
	}

	client, err := sshutil.Dial(host, 0)
	require.NoError(t, err, "should connect to %s", host)
	t.Cleanup(func() { client.Close() })
	return client
}
