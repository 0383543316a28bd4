package dispatch

import (
	"fmt"
	"strings"

	"github.com/campus-hpc/onboard/internal/errors"
)

// Params carries everything the remote setup script needs. Values
// travel as environment variable assignments prefixed onto the remote
// invocation, never baked into the script body.
type Params struct {
	// Username is the cluster account being set up.
	Username string

	// WantsNotebook enables Jupyter provisioning.
	WantsNotebook bool

	// NotebookPassword is the password for the notebook server.
	// Required when WantsNotebook is set.
	NotebookPassword string

	// NotebookPort is the port the notebook server listens on.
	NotebookPort int

	// WantsEditor enables remote editor environment setup.
	WantsEditor bool
}

// Validate checks the preconditions a remote run cannot recover from.
func (p Params) Validate() error {
	if strings.TrimSpace(p.Username) == "" {
		return errors.New(errors.ErrDispatch,
			"Username must not be empty",
			"Provide the cluster account name")
	}
	if p.WantsNotebook && p.NotebookPassword == "" {
		return errors.New(errors.ErrDispatch,
			"Notebook password must not be empty",
			"Choose a password for the Jupyter server, or skip notebook setup")
	}
	return nil
}

// envAssignments renders the parameters as shell-safe VAR='value'
// assignments, in a fixed order.
func (p Params) envAssignments() []string {
	assigns := []string{
		"ONBOARD_USER=" + shellQuote(p.Username),
		"ONBOARD_NOTEBOOK=" + boolFlag(p.WantsNotebook),
		"ONBOARD_EDITOR=" + boolFlag(p.WantsEditor),
	}
	if p.WantsNotebook {
		assigns = append(assigns,
			"ONBOARD_NOTEBOOK_PASSWORD="+shellQuote(p.NotebookPassword))
		if p.NotebookPort > 0 {
			assigns = append(assigns,
				fmt.Sprintf("ONBOARD_NOTEBOOK_PORT=%d", p.NotebookPort))
		}
	}
	return assigns
}

// Command builds the full remote invocation: env assignments followed
// by a shell reading the script from stdin.
func (p Params) Command() string {
	return strings.Join(append(p.envAssignments(), "bash -s"), " ")
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// shellQuote wraps s in single quotes, escaping embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
