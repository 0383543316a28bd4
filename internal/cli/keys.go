package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/campus-hpc/onboard/internal/configstore"
	"github.com/campus-hpc/onboard/internal/keys"
	"github.com/campus-hpc/onboard/internal/probe"
	"github.com/campus-hpc/onboard/internal/ui"
)

var keysInstall bool

// keysCmd manages the local SSH key pair
var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Generate the SSH key pair and optionally install it",
	Long: `Ensure an ed25519 SSH key pair exists at ~/.ssh/id_ed25519.

An existing key is never overwritten. With --install, the public key is
also appended to the cluster's authorized_keys (at most once).

Examples:
  onboard keys
  onboard keys --install`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return keysCommand(keysInstall)
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
	keysCmd.Flags().BoolVar(&keysInstall, "install", false, "install the public key on the cluster")
}

func keysCommand(install bool) error {
	keyPath := keys.DefaultKeyPath()

	created, err := keys.EnsureKeyPair(keyPath)
	if err != nil {
		return err
	}
	if created {
		fmt.Printf("%s Generated key pair at %s\n", ui.Success(ui.SymbolSuccess), keyPath)
	} else {
		fmt.Printf("%s Key already exists at %s\n", ui.Success(ui.SymbolComplete), keyPath)
	}

	publicKey, err := keys.ReadPublicKey(keyPath + ".pub")
	if err != nil {
		return err
	}
	fmt.Printf("\nPublic key:\n  %s\n", publicKey)

	if !install {
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	spinner := ui.NewSpinner("Connecting to " + cfg.Cluster.Alias)
	spinner.Start()
	client, _, err := probe.Probe(cfg.Cluster.Alias, cfg.ProbeTimeout)
	if err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RemoteTimeout)
	defer cancel()

	outcome, err := keys.InstallKey(ctx, client, publicKey)
	if err != nil {
		return err
	}

	switch outcome {
	case configstore.Added:
		fmt.Printf("%s Installed public key on %s\n", ui.Success(ui.SymbolSuccess), cfg.Cluster.Alias)
	case configstore.AlreadyPresent:
		fmt.Printf("%s Public key already authorized on %s\n", ui.Success(ui.SymbolComplete), cfg.Cluster.Alias)
	}
	return nil
}
