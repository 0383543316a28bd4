package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/campus-hpc/onboard/internal/doctor"
	"github.com/campus-hpc/onboard/internal/errors"
	"github.com/campus-hpc/onboard/internal/probe"
	"github.com/campus-hpc/onboard/internal/ui"
)

var doctorRemote bool

// doctorCmd diagnoses onboarding state
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose onboarding and connectivity issues",
	Long: `Run diagnostic checks over the onboarding state.

Checks:
  - local SSH key pair
  - cluster entry in ~/.ssh/config
  - editor settings
  - SSH connectivity to the cluster
  - remote environment and notebook state (with --remote)

Examples:
  onboard doctor
  onboard doctor --remote`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return doctorCommand(doctorRemote)
	},
}

func init() {
	rootCmd.AddCommand(doctorCmd)
	doctorCmd.Flags().BoolVar(&doctorRemote, "remote", false, "also inspect the remote environment")
}

func doctorCommand(remote bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Local checks touch disjoint files and can run concurrently; the
	// connectivity check dials and runs on its own afterwards.
	localChecks := []doctor.Check{
		&doctor.KeyCheck{},
		&doctor.SSHConfigCheck{ConfigPath: sshConfigPath(), Alias: cfg.Cluster.Alias},
		&doctor.EditorSettingsCheck{SettingsPath: editorSettingsPath()},
	}

	results := doctor.RunAllParallel(localChecks)
	results = append(results, doctor.RunAll([]doctor.Check{
		&doctor.ConnectivityCheck{Host: cfg.Cluster.Alias, Timeout: cfg.ProbeTimeout},
	})...)

	if remote {
		client, _, err := probe.Probe(cfg.Cluster.Alias, cfg.ProbeTimeout)
		if err == nil {
			defer client.Close()
			remoteChecks := []doctor.Check{
				&doctor.RemoteEnvCheck{Runner: client, Timeout: cfg.RemoteTimeout},
				&doctor.NotebookCheck{Runner: client, Timeout: cfg.RemoteTimeout},
			}
			results = append(results, doctor.RunAll(remoteChecks)...)
		}
	}

	printCheckResults(results)

	_, _, fail := doctor.CountByStatus(results)
	if fail > 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%d check(s) failed", fail),
			"Follow the suggestions above, then run 'onboard doctor' again")
	}
	return nil
}

func printCheckResults(results []doctor.CheckResult) {
	for _, r := range results {
		var symbol string
		switch r.Status {
		case doctor.StatusPass:
			symbol = ui.Success(ui.SymbolSuccess)
		case doctor.StatusWarn:
			symbol = ui.Warning(ui.SymbolPending)
		case doctor.StatusFail:
			symbol = ui.Error(ui.SymbolFail)
		}
		fmt.Fprintf(os.Stdout, "%s %s\n", symbol, r.Message)
		if r.Suggestion != "" && r.Status != doctor.StatusPass {
			fmt.Fprintf(os.Stdout, "  %s\n", ui.Muted(r.Suggestion))
		}
	}

	pass, warn, fail := doctor.CountByStatus(results)
	fmt.Fprintf(os.Stdout, "\n%d passed, %d warnings, %d failed\n", pass, warn, fail)
}
