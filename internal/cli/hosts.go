package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/campus-hpc/onboard/internal/config"
	"github.com/campus-hpc/onboard/internal/configstore"
	"github.com/campus-hpc/onboard/internal/ui"
)

// hostsCmd manages the cluster entry in ~/.ssh/config
var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Ensure the cluster entry in ~/.ssh/config",
	Long: `Add the cluster host block to ~/.ssh/config if it is not there yet.

The entry is keyed by alias: an existing block for the alias is left
alone even if its settings differ, so manual edits survive reruns.

Examples:
  onboard hosts`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return ensureHostEntry(cfg, os.Stdout)
	},
}

func init() {
	rootCmd.AddCommand(hostsCmd)
}

// sshConfigPath returns the user's SSH client config location.
func sshConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".ssh", "config")
	}
	return filepath.Join(home, ".ssh", "config")
}

// hostEntryFor builds the SSH config block for the configured cluster.
func hostEntryFor(cfg *config.Config) configstore.HostEntry {
	return configstore.HostEntry{
		Alias:        cfg.Cluster.Alias,
		HostName:     cfg.Cluster.HostName,
		User:         cfg.Cluster.User,
		IdentityFile: cfg.Cluster.IdentityFile,
	}
}

func ensureHostEntry(cfg *config.Config, out *os.File) error {
	store := configstore.New(sshConfigPath())
	outcome, err := store.EnsureHost(hostEntryFor(cfg))
	if err != nil {
		return err
	}

	switch outcome {
	case configstore.Added:
		fmt.Fprintf(out, "%s Added '%s' to %s\n", ui.Success(ui.SymbolSuccess), cfg.Cluster.Alias, sshConfigPath())
	case configstore.AlreadyPresent:
		fmt.Fprintf(out, "%s '%s' already in %s\n", ui.Success(ui.SymbolComplete), cfg.Cluster.Alias, sshConfigPath())
	}
	return nil
}
