package keys

import (
	"context"
	"fmt"
	"strings"

	"github.com/campus-hpc/onboard/internal/configstore"
	"github.com/campus-hpc/onboard/internal/errors"
	"github.com/campus-hpc/onboard/internal/logger"
	"github.com/campus-hpc/onboard/pkg/sshutil"
)

const authorizedKeys = "$HOME/.ssh/authorized_keys"

// InstallKey installs a public key into the remote authorized_keys
// file. The key is appended only when an exact-line check says it is
// absent; when the check itself cannot run, the append happens anyway
// since a duplicate line is harmless and a missing one locks the user
// out.
func InstallKey(ctx context.Context, runner sshutil.Runner, publicKey string) (configstore.Outcome, error) {
	log := logger.Default()
	publicKey = strings.TrimSpace(publicKey)
	if publicKey == "" {
		return configstore.AlreadyPresent, errors.New(errors.ErrSSH,
			"No public key material to install",
			"Generate a key first with 'onboard keys'")
	}

	prep := fmt.Sprintf("mkdir -p $HOME/.ssh && chmod 700 $HOME/.ssh && touch %s && chmod 600 %s",
		authorizedKeys, authorizedKeys)
	if _, stderr, code, err := runner.Exec(ctx, prep); err != nil || code != 0 {
		detail := strings.TrimSpace(string(stderr))
		if err == nil {
			err = fmt.Errorf("exit status %d: %s", code, detail)
		}
		return configstore.AlreadyPresent, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to prepare ~/.ssh on %s", runner.GetHost()),
			ManualInstallSteps(runner.GetHost(), publicKey))
	}

	check := fmt.Sprintf("grep -qxF %s %s", shellQuote(publicKey), authorizedKeys)
	_, _, code, err := runner.Exec(ctx, check)
	if err == nil && code == 0 {
		log.Debug("key already authorized on %s", runner.GetHost())
		return configstore.AlreadyPresent, nil
	}
	if err != nil {
		log.Debug("authorized_keys check failed on %s, appending anyway: %v", runner.GetHost(), err)
	}

	appendCmd := fmt.Sprintf("printf '%%s\\n' %s >> %s", shellQuote(publicKey), authorizedKeys)
	if _, stderr, code, err := runner.Exec(ctx, appendCmd); err != nil || code != 0 {
		detail := strings.TrimSpace(string(stderr))
		if err == nil {
			err = fmt.Errorf("exit status %d: %s", code, detail)
		}
		return configstore.AlreadyPresent, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to install public key on %s", runner.GetHost()),
			ManualInstallSteps(runner.GetHost(), publicKey))
	}

	log.Debug("installed public key on %s", runner.GetHost())
	return configstore.Added, nil
}

// ManualInstallSteps spells out the recovery path, including the
// literal key material, so a user can finish the install by hand.
func ManualInstallSteps(host, publicKey string) string {
	return fmt.Sprintf(`Install the key manually:
  1. ssh %s
  2. mkdir -p ~/.ssh && chmod 700 ~/.ssh
  3. Append this line to ~/.ssh/authorized_keys:
     %s
  4. chmod 600 ~/.ssh/authorized_keys`, host, publicKey)
}

// shellQuote wraps s in single quotes, escaping any embedded single
// quotes. Key comments are user-controlled text.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
