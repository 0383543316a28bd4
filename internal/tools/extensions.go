package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/campus-hpc/onboard/internal/errors"
	"github.com/campus-hpc/onboard/internal/plan"
)

// EnsureExtensions installs the given editor extensions, skipping ones
// already present. Extension IDs compare case-insensitively, matching
// the editor's own behavior.
func (m *Manager) EnsureExtensions(ctx context.Context, ids []string) (plan.Outcome, error) {
	if len(ids) == 0 {
		return plan.AlreadySatisfied, nil
	}

	installed, err := m.listExtensions(ctx)
	if err != nil {
		return plan.Failed, err
	}

	outcome := plan.AlreadySatisfied
	for _, id := range ids {
		if installed[strings.ToLower(id)] {
			m.log.Debug("extension %s already installed", id)
			continue
		}
		output, err := m.run(ctx, "code --install-extension "+id)
		if err != nil {
			return plan.Failed, errors.WrapWithCode(err, errors.ErrApply,
				fmt.Sprintf("Failed to install extension %s: %s", id, strings.TrimSpace(string(output))),
				"Install it from the editor's extensions panel")
		}
		outcome = plan.Applied
	}

	return outcome, nil
}

func (m *Manager) listExtensions(ctx context.Context) (map[string]bool, error) {
	output, err := m.run(ctx, "code --list-extensions")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrApply,
			"Failed to list editor extensions",
			"Check that the 'code' command line tool is installed")
	}

	installed := make(map[string]bool)
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			installed[strings.ToLower(line)] = true
		}
	}
	return installed, nil
}
