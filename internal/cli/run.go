package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/user"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/campus-hpc/onboard/internal/config"
	"github.com/campus-hpc/onboard/internal/configstore"
	"github.com/campus-hpc/onboard/internal/dispatch"
	"github.com/campus-hpc/onboard/internal/errors"
	"github.com/campus-hpc/onboard/internal/keys"
	"github.com/campus-hpc/onboard/internal/logger"
	"github.com/campus-hpc/onboard/internal/plan"
	"github.com/campus-hpc/onboard/internal/probe"
	"github.com/campus-hpc/onboard/internal/tools"
	"github.com/campus-hpc/onboard/internal/ui"
	"github.com/campus-hpc/onboard/pkg/sshutil"
)

// runCmd is the guided onboarding flow; it is also what the bare
// `onboard` invocation runs.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full onboarding flow",
	Long: `Walk through the complete cluster onboarding:

  - add the cluster to ~/.ssh/config
  - generate an SSH key pair and install it on the cluster
  - run the remote environment setup (conda, Jupyter)
  - write local editor settings for remote development
  - install the team's desktop tools

Every step reports whether it changed anything or found the machine
already set up, so rerunning is always safe.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnboarding()
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

// answers holds what the wizard collects before the plan runs.
type answers struct {
	Username     string
	Notebook     bool
	NotebookPass string
	Editor       bool
	Tools        bool
}

func runOnboarding() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !quietFlag {
		fmt.Print(ui.RenderHeader(ui.HeaderInfo{
			Version: GetVersion(),
			Tagline: "HPC cluster onboarding",
			Cluster: cfg.Cluster.Alias,
		}))
	}

	ans, err := collectAnswers(cfg)
	if err != nil {
		return err
	}

	var client *sshutil.Client
	defer func() {
		if client != nil {
			client.Close()
		}
	}()

	p := buildPlan(cfg, ans, &client)
	results, fatal := p.Execute(context.Background())

	if !quietFlag {
		printSummary(results)
	}

	if fatal != nil {
		return fatal
	}
	if failure := plan.FirstFailure(results); failure != nil {
		return errors.New(errors.ErrApply,
			fmt.Sprintf("Step %q failed: %v", failure.Name, failure.Err),
			"Fix the issue and run 'onboard' again; completed steps are skipped automatically")
	}
	return nil
}

// collectAnswers prompts for the run parameters. A non-interactive
// stdin with a configured username skips the prompts entirely.
func collectAnswers(cfg *config.Config) (*answers, error) {
	ans := &answers{
		Username: cfg.Cluster.User,
		Notebook: true,
		Editor:   true,
		Tools:    true,
	}
	if ans.Username == "" {
		if u, err := user.Current(); err == nil {
			ans.Username = u.Username
		}
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		if strings.TrimSpace(ans.Username) == "" {
			return nil, errors.New(errors.ErrConfig,
				"No cluster username configured and no terminal to ask on",
				"Set cluster.user in .onboard.yaml")
		}
		// Notebook setup needs a password we cannot prompt for.
		ans.Notebook = false
		ans.Tools = false
		return ans, nil
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster username").
				Description("Your account on "+cfg.Cluster.HostName).
				Value(&ans.Username).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("username is required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Set up a Jupyter notebook server?").
				Value(&ans.Notebook),
			huh.NewConfirm().
				Title("Configure your editor for remote development?").
				Value(&ans.Editor),
			huh.NewConfirm().
				Title("Install desktop tools (editor, Slack)?").
				Value(&ans.Tools),
		),
	)
	if err := form.Run(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input", "")
	}

	if ans.Notebook {
		passForm := huh.NewForm(
			huh.NewGroup(
				huh.NewInput().
					Title("Notebook password").
					Description("Used to log in to the Jupyter server").
					EchoMode(huh.EchoModePassword).
					Value(&ans.NotebookPass).
					Validate(func(s string) error {
						if s == "" {
							return fmt.Errorf("password is required for notebook setup")
						}
						return nil
					}),
			),
		)
		if err := passForm.Run(); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input", "")
		}
	}

	return ans, nil
}

// buildPlan assembles the onboarding steps. The SSH client established
// by the connectivity step is shared by the later remote steps.
func buildPlan(cfg *config.Config, ans *answers, client **sshutil.Client) *plan.Plan {
	log := logger.Default()
	keyPath := keys.DefaultKeyPath()
	if cfg.Cluster.IdentityFile != "" {
		keyPath = cfg.Cluster.IdentityFile
	}

	p := plan.New(os.Stdout)

	p.AddFunc("Add cluster to SSH config", func(ctx context.Context) (plan.Outcome, error) {
		store := configstore.New(sshConfigPath())
		outcome, err := store.EnsureHost(hostEntryFor(cfg))
		return planOutcome(outcome), err
	})

	p.AddFatal("Ensure SSH key pair", func(ctx context.Context) (plan.Outcome, error) {
		created, err := keys.EnsureKeyPair(keyPath)
		if err != nil {
			return plan.Failed, err
		}
		if created {
			return plan.Applied, nil
		}
		return plan.AlreadySatisfied, nil
	})

	p.AddFatal("Check cluster connectivity", func(ctx context.Context) (plan.Outcome, error) {
		c, latency, err := probe.Probe(cfg.Cluster.Alias, cfg.ProbeTimeout)
		if err != nil {
			return plan.Failed, connectivityError(cfg, keyPath, err)
		}
		*client = c
		log.Debug("connected to %s in %s", cfg.Cluster.Alias, latency)
		return plan.Applied, nil
	})

	p.AddFatal("Install public key on cluster", func(ctx context.Context) (plan.Outcome, error) {
		publicKey, err := keys.ReadPublicKey(keyPath + ".pub")
		if err != nil {
			return plan.Failed, err
		}
		runCtx, cancel := context.WithTimeout(ctx, cfg.RemoteTimeout)
		defer cancel()
		outcome, err := keys.InstallKey(runCtx, *client, publicKey)
		return planOutcome(outcome), err
	})

	p.AddFatal("Run environment setup on cluster", func(ctx context.Context) (plan.Outcome, error) {
		console := io.Writer(os.Stdout)
		if quietFlag {
			console = io.Discard
		}
		d := dispatch.New(*client, cfg.RemoteTimeout, console)
		report, err := d.Run(ctx, dispatch.Params{
			Username:         ans.Username,
			WantsNotebook:    ans.Notebook,
			NotebookPassword: ans.NotebookPass,
			NotebookPort:     cfg.Notebook.Port,
			WantsEditor:      ans.Editor,
		})
		if err != nil {
			return plan.Failed, err
		}
		log.Debug("setup transcript: %s", report.LogPath)
		return plan.Applied, nil
	})

	if ans.Editor {
		p.AddFunc("Write editor settings", func(ctx context.Context) (plan.Outcome, error) {
			err := configstore.WriteEditorSettings(editorSettingsPath(), configstore.EditorSettings{
				InterpreterPath:    cfg.Editor.InterpreterPath,
				PackageManagerPath: cfg.Editor.PackageManagerPath,
			})
			if err != nil {
				return plan.Failed, err
			}
			return plan.Applied, nil
		})
	}

	if ans.Tools {
		mgr := tools.NewManager()
		p.AddFunc("Install code editor", func(ctx context.Context) (plan.Outcome, error) {
			return mgr.Install(ctx, cfg.Tools.Editor)
		})
		if ans.Editor {
			p.AddFunc("Install editor extensions", func(ctx context.Context) (plan.Outcome, error) {
				return mgr.EnsureExtensions(ctx, cfg.Editor.Extensions)
			})
		}
		p.AddFunc("Install chat app", func(ctx context.Context) (plan.Outcome, error) {
			return mgr.Install(ctx, cfg.Tools.Chat)
		})
	}

	return p
}

// connectivityError turns a probe failure into an actionable error.
// Auth failures additionally carry the manual key install steps, since
// that is the usual fix on a fresh account.
func connectivityError(cfg *config.Config, keyPath string, err error) error {
	perr := probe.Classify(cfg.Cluster.Alias, err)
	suggestion := perr.Reason.Remediation()

	if perr.Reason == probe.FailAuth {
		if publicKey, readErr := keys.ReadPublicKey(keyPath + ".pub"); readErr == nil {
			suggestion += "\n\n" + keys.ManualInstallSteps(cfg.Cluster.Alias, publicKey)
		}
	}

	return errors.WrapWithCode(perr, errors.ErrSSH,
		fmt.Sprintf("Cannot connect to '%s'", cfg.Cluster.Alias),
		suggestion)
}

// editorSettingsPath returns the editor's user settings.json location.
func editorSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "settings.json"
	}
	switch {
	case fileExists(filepath.Join(home, "Library", "Application Support")):
		return filepath.Join(home, "Library", "Application Support", "Code", "User", "settings.json")
	default:
		return filepath.Join(home, ".config", "Code", "User", "settings.json")
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// planOutcome maps a config-store outcome onto the plan's vocabulary.
func planOutcome(o configstore.Outcome) plan.Outcome {
	if o == configstore.AlreadyPresent {
		return plan.AlreadySatisfied
	}
	return plan.Applied
}

func printSummary(results []plan.Result) {
	applied, satisfied, failed, skipped := plan.Summarize(results)

	fmt.Println()
	parts := []string{
		fmt.Sprintf("%d applied", applied),
		fmt.Sprintf("%d already set up", satisfied),
	}
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}

	line := strings.Join(parts, ", ")
	if failed > 0 {
		fmt.Println(ui.Error(line))
	} else {
		fmt.Println(ui.Success(line))
	}
}
