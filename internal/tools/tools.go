// Package tools installs local desktop applications the onboarding
// flow depends on: the code editor, its remote-development
// extensions, and the team chat app.
package tools

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/campus-hpc/onboard/internal/errors"
	"github.com/campus-hpc/onboard/internal/logger"
	"github.com/campus-hpc/onboard/internal/plan"
)

// Installer defines how to detect and install one tool per platform.
type Installer struct {
	Name string

	// Check exits zero when the tool is already installed.
	Check string

	// Installers maps OS name (darwin, linux) to install command.
	// Commands should be idempotent or handle already-installed case.
	Installers map[string]string
}

// builtinInstallers covers the tools the standard onboarding flow
// offers.
var builtinInstallers = map[string]Installer{
	"visual-studio-code": {
		Name:  "Visual Studio Code",
		Check: `command -v code`,
		Installers: map[string]string{
			"darwin": `if command -v brew &>/dev/null; then brew install --cask visual-studio-code; else echo "Homebrew not found. Install from https://code.visualstudio.com/" && exit 1; fi`,
			"linux":  `if command -v snap &>/dev/null; then sudo snap install code --classic; elif command -v apt-get &>/dev/null; then sudo apt-get install -y code; else echo "No supported package manager found" && exit 1; fi`,
		},
	},
	"slack": {
		Name:  "Slack",
		Check: `test -d "/Applications/Slack.app" || command -v slack`,
		Installers: map[string]string{
			"darwin": `if command -v brew &>/dev/null; then brew install --cask slack; else echo "Homebrew not found. Install from https://slack.com/downloads" && exit 1; fi`,
			"linux":  `if command -v snap &>/dev/null; then sudo snap install slack; elif command -v apt-get &>/dev/null; then sudo apt-get install -y slack-desktop; else echo "No supported package manager found" && exit 1; fi`,
		},
	},
}

// GetInstaller returns the installer for a tool, if one exists.
func GetInstaller(name string) (Installer, bool) {
	inst, ok := builtinInstallers[name]
	return inst, ok
}

// runFunc executes a shell command and returns its combined output.
type runFunc func(ctx context.Context, command string) ([]byte, error)

// Manager installs tools on the local machine.
type Manager struct {
	goos string
	run  runFunc
	log  logger.Logger
}

// NewManager creates a manager for the current platform.
func NewManager() *Manager {
	return &Manager{
		goos: runtime.GOOS,
		run: func(ctx context.Context, command string) ([]byte, error) {
			return exec.CommandContext(ctx, "bash", "-c", command).CombinedOutput()
		},
		log: logger.Default(),
	}
}

// Install ensures the named tool is present, installing it when the
// check says it is missing.
func (m *Manager) Install(ctx context.Context, name string) (plan.Outcome, error) {
	inst, ok := GetInstaller(name)
	if !ok {
		return plan.Failed, errors.New(errors.ErrApply,
			fmt.Sprintf("Unknown tool: %s", name),
			"Install it manually, or remove it from the tools config")
	}

	if inst.Check != "" {
		if _, err := m.run(ctx, inst.Check); err == nil {
			m.log.Debug("%s already installed", inst.Name)
			return plan.AlreadySatisfied, nil
		}
	}

	command, ok := inst.Installers[m.goos]
	if !ok {
		return plan.Failed, errors.New(errors.ErrApply,
			fmt.Sprintf("No installer for %s on %s", inst.Name, m.goos),
			"Install it manually")
	}

	m.log.Debug("installing %s", inst.Name)
	output, err := m.run(ctx, command)
	if err != nil {
		return plan.Failed, errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Failed to install %s: %s", inst.Name, strings.TrimSpace(string(output))),
			"Install it manually and re-run onboarding")
	}

	return plan.Applied, nil
}
