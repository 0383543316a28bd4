// Package cli wires the onboard command tree.
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/campus-hpc/onboard/internal/config"
	"github.com/campus-hpc/onboard/internal/logger"
)

// Global flags
var (
	configFlag  string
	verboseFlag bool
	quietFlag   bool
	noColorFlag bool
)

// rootCmd is the base command; running it with no subcommand starts
// the guided onboarding flow.
var rootCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Set up a new machine for the HPC cluster",
	Long: `onboard prepares a new laptop for working with the campus HPC cluster.

It configures SSH access, provisions credentials, runs the remote
environment setup, and installs the local tools the team uses. Every
step checks before it changes anything, so running it again on a
machine that is already set up is safe.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOnboarding()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if noColorFlag {
			lipgloss.SetColorProfile(termenv.Ascii)
		}
		if verboseFlag {
			os.Setenv("ONBOARD_DEBUG", "1")
			logger.SetDefault(logger.NewEnvLogger("onboard"))
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "config file (default: .onboard.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "disable colored output")
}

// loadConfig resolves and loads the effective configuration.
func loadConfig() (*config.Config, error) {
	if configFlag != "" {
		return config.Load(configFlag)
	}
	return config.LoadOrDefault()
}

// Execute runs the root command. It returns the process exit code.
func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
