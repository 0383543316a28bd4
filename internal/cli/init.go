package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/campus-hpc/onboard/internal/config"
	"github.com/campus-hpc/onboard/internal/configstore"
	"github.com/campus-hpc/onboard/internal/errors"
)

var initForce bool

// initCmd creates a new .onboard.yaml configuration
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create .onboard.yaml configuration",
	Long: `Initialize a new onboard configuration file.

Creates a .onboard.yaml file in the current directory with the standard
cluster profile. Only needed when the defaults don't fit, e.g. a
different login node or notebook port.

Examples:
  onboard init
  onboard init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initCommand(initForce)
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite existing config")
}

func initCommand(force bool) error {
	configPath := filepath.Join(".", config.ConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !force {
		var overwrite bool
		form := huh.NewForm(
			huh.NewGroup(
				huh.NewConfirm().
					Title(fmt.Sprintf("Config file '%s' already exists. Overwrite?", config.ConfigFileName)).
					Value(&overwrite),
			),
		)

		if err := form.Run(); err != nil {
			return errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to get user input",
				"Try running with --force to overwrite")
		}

		if !overwrite {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	cfg := config.DefaultConfig()

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster alias").
				Description("The short name used with ssh").
				Value(&cfg.Cluster.Alias).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("cluster alias is required")
					}
					if strings.ContainsAny(s, " \t\n") {
						return fmt.Errorf("alias cannot contain whitespace")
					}
					return nil
				}),
			huh.NewInput().
				Title("Cluster hostname").
				Description("Fully qualified domain name of the login node").
				Value(&cfg.Cluster.HostName).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("cluster hostname is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Cluster username (optional)").
				Description("Leave empty to be asked on each run").
				Value(&cfg.Cluster.User),
		),
	)

	if err := form.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"")
	}

	return writeConfigFile(configPath, cfg)
}

func writeConfigFile(path string, cfg *config.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to serialize config",
			"")
	}

	header := "# onboard configuration\n# Generated by 'onboard init'\n\n"
	backup, err := configstore.New(path).Rewrite(append([]byte(header), data...))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+path,
			"Check directory permissions")
	}

	if backup != "" {
		fmt.Printf("Archived previous config to %s\n", backup)
	}
	fmt.Printf("Created %s\n", path)
	return nil
}
