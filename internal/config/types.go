package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .onboard.yaml configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Cluster is the target login node.
	Cluster Cluster `yaml:"cluster" mapstructure:"cluster"`

	// ProbeTimeout bounds the initial connectivity check.
	ProbeTimeout time.Duration `yaml:"probe_timeout" mapstructure:"probe_timeout"`

	// RemoteTimeout bounds every other remote round trip, including
	// the long-running environment setup script.
	RemoteTimeout time.Duration `yaml:"remote_timeout" mapstructure:"remote_timeout"`

	Notebook Notebook     `yaml:"notebook" mapstructure:"notebook"`
	Editor   Editor       `yaml:"editor" mapstructure:"editor"`
	Tools    ToolsConfig  `yaml:"tools" mapstructure:"tools"`
	Output   OutputConfig `yaml:"output" mapstructure:"output"`
}

// Cluster identifies the login node and how to reach it.
type Cluster struct {
	// Alias is the short SSH config name users type.
	Alias string `yaml:"alias" mapstructure:"alias"`

	// HostName is the fully qualified domain name behind the alias.
	HostName string `yaml:"hostname" mapstructure:"hostname"`

	// User overrides the login name. Empty means prompt.
	User string `yaml:"user" mapstructure:"user"`

	// IdentityFile pins a specific private key. Empty means the
	// default key search order.
	IdentityFile string `yaml:"identity_file" mapstructure:"identity_file"`
}

// Notebook controls Jupyter provisioning on the cluster.
type Notebook struct {
	// Port the notebook server listens on.
	Port int `yaml:"port" mapstructure:"port"`
}

// Editor controls the local editor settings written for remote
// development.
type Editor struct {
	// InterpreterPath is the remote Python interpreter the editor
	// should use.
	InterpreterPath string `yaml:"interpreter_path" mapstructure:"interpreter_path"`

	// PackageManagerPath is the remote conda binary.
	PackageManagerPath string `yaml:"package_manager_path" mapstructure:"package_manager_path"`

	// Extensions installed into the editor for remote work.
	Extensions []string `yaml:"extensions" mapstructure:"extensions"`
}

// ToolsConfig names the local applications the onboarding flow offers
// to install.
type ToolsConfig struct {
	// Editor is the code editor package name.
	Editor string `yaml:"editor" mapstructure:"editor"`

	// Chat is the team communication app package name.
	Chat string `yaml:"chat" mapstructure:"chat"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	// "auto" disables color when output is piped.
	Color string `yaml:"color" mapstructure:"color"`

	// Verbosity level: "quiet", "normal", or "verbose".
	Verbosity string `yaml:"verbosity" mapstructure:"verbosity"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Cluster: Cluster{
			Alias:    "ml007",
			HostName: "ml007.example.org",
		},
		ProbeTimeout:  5 * time.Second,
		RemoteTimeout: 10 * time.Minute,
		Notebook: Notebook{
			Port: 8888,
		},
		Editor: Editor{
			InterpreterPath:    "/opt/conda/bin/python",
			PackageManagerPath: "/opt/conda/bin/conda",
			Extensions: []string{
				"ms-python.python",
				"ms-vscode-remote.remote-ssh",
				"ms-toolsai.jupyter",
			},
		},
		Tools: ToolsConfig{
			Editor: "visual-studio-code",
			Chat:   "slack",
		},
		Output: OutputConfig{
			Color:     "auto",
			Verbosity: "normal",
		},
	}
}
