package doctor

import (
	"fmt"
	"os"

	"github.com/campus-hpc/onboard/internal/configstore"
	"github.com/campus-hpc/onboard/internal/keys"
)

// KeyCheck verifies a usable SSH key pair exists locally.
type KeyCheck struct{}

func (c *KeyCheck) Name() string     { return "ssh-key" }
func (c *KeyCheck) Category() string { return "LOCAL" }

func (c *KeyCheck) Run() CheckResult {
	key := keys.PreferredKey()
	if key == nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    "No SSH key pair found",
			Suggestion: "Run 'onboard keys' to generate one",
		}
	}
	if !key.HasPublic {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    fmt.Sprintf("Key %s has no public half", key.Path),
			Suggestion: "Regenerate the public key: ssh-keygen -y -f " + key.Path + " > " + key.Path + ".pub",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("Found %s key at %s", key.Type, key.Path),
	}
}

// SSHConfigCheck verifies the cluster alias is present in the SSH
// client config.
type SSHConfigCheck struct {
	ConfigPath string
	Alias      string
}

func (c *SSHConfigCheck) Name() string     { return "ssh-config" }
func (c *SSHConfigCheck) Category() string { return "LOCAL" }

func (c *SSHConfigCheck) Run() CheckResult {
	store := configstore.New(c.ConfigPath)
	found, err := store.HasHostAlias(c.Alias)
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot read %s: %v", c.ConfigPath, err),
			Suggestion: "Check file permissions",
		}
	}
	if !found {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("No entry for '%s' in %s", c.Alias, c.ConfigPath),
			Suggestion: "Run 'onboard hosts' to add it",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: fmt.Sprintf("'%s' configured in %s", c.Alias, c.ConfigPath),
	}
}

// EditorSettingsCheck verifies the editor settings point at the remote
// interpreter.
type EditorSettingsCheck struct {
	SettingsPath string
}

func (c *EditorSettingsCheck) Name() string     { return "editor-settings" }
func (c *EditorSettingsCheck) Category() string { return "LOCAL" }

func (c *EditorSettingsCheck) Run() CheckResult {
	if _, err := os.Stat(c.SettingsPath); err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Editor settings not found",
			Suggestion: "Run 'onboard' and choose editor setup",
		}
	}

	found, err := configstore.HasJSONKey(c.SettingsPath, "python.defaultInterpreterPath")
	if err != nil {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusFail,
			Message:    fmt.Sprintf("Cannot read %s: %v", c.SettingsPath, err),
			Suggestion: "Check file permissions",
		}
	}
	if !found {
		return CheckResult{
			Name:       c.Name(),
			Status:     StatusWarn,
			Message:    "Editor settings do not set the remote interpreter",
			Suggestion: "Run 'onboard' and choose editor setup",
		}
	}
	return CheckResult{
		Name:    c.Name(),
		Status:  StatusPass,
		Message: "Editor configured for the remote interpreter",
	}
}
