// Package keys provisions SSH credentials: a local key pair generated
// once and a public key installed exactly once into the cluster's
// authorized-keys store.
package keys

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/campus-hpc/onboard/internal/errors"
)

// KeyInfo contains information about an SSH key.
type KeyInfo struct {
	Path       string // Full path to private key
	Type       string // Key type (ed25519, rsa, ecdsa)
	PublicPath string // Path to public key
	HasPublic  bool   // Whether public key file exists
}

// DefaultKeyPath returns the fixed path where onboarding keeps its key.
func DefaultKeyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.ssh/id_ed25519"
	}
	return filepath.Join(home, ".ssh", "id_ed25519")
}

// searchPaths returns the standard private key locations, in
// preference order.
func searchPaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{
		filepath.Join(home, ".ssh", "id_ed25519"),
		filepath.Join(home, ".ssh", "id_rsa"),
		filepath.Join(home, ".ssh", "id_ecdsa"),
	}
}

// FindLocalKeys searches the standard locations and returns info about
// each existing key.
func FindLocalKeys() []KeyInfo {
	var found []KeyInfo

	for _, path := range searchPaths() {
		if _, err := os.Stat(path); err == nil {
			pubPath := path + ".pub"
			_, pubErr := os.Stat(pubPath)

			found = append(found, KeyInfo{
				Path:       path,
				Type:       inferKeyType(path),
				PublicPath: pubPath,
				HasPublic:  pubErr == nil,
			})
		}
	}

	return found
}

// HasAnyKey returns true if at least one SSH key exists locally.
func HasAnyKey() bool {
	return len(FindLocalKeys()) > 0
}

// PreferredKey returns the best available key (prefers ed25519, then
// ecdsa, then anything with a public half).
func PreferredKey() *KeyInfo {
	found := FindLocalKeys()
	if len(found) == 0 {
		return nil
	}

	for _, key := range found {
		if key.Type == "ed25519" && key.HasPublic {
			return &key
		}
	}
	for _, key := range found {
		if key.Type == "ecdsa" && key.HasPublic {
			return &key
		}
	}
	for _, key := range found {
		if key.HasPublic {
			return &key
		}
	}

	return &found[0]
}

// EnsureKeyPair generates an ed25519 key pair at path unless key
// material already exists there. An existing key is never touched,
// regardless of its content. Returns true when a new pair was created.
func EnsureKeyPair(path string) (bool, error) {
	if path == "" {
		path = DefaultKeyPath()
	}

	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := generate(path); err != nil {
		return false, err
	}
	return true, nil
}

// generate creates a new ed25519 key pair using ssh-keygen. The
// algorithm and empty-passphrase policy are fixed; users wanting
// something else manage their own keys.
func generate(path string) error {
	sshDir := filepath.Dir(path)
	if err := os.MkdirAll(sshDir, 0700); err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to create SSH directory: %s", sshDir),
			"Check permissions on home directory")
	}

	cmd := exec.Command("ssh-keygen",
		"-t", "ed25519",
		"-f", path,
		"-N", "",
		"-C", "onboard-generated",
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to generate SSH key: %s", strings.TrimSpace(string(output))),
			"Ensure ssh-keygen is installed and accessible")
	}

	if _, err := os.Stat(path); err != nil {
		return errors.New(errors.ErrSSH,
			"Key generation completed but key file not found",
			"Check disk space and permissions")
	}

	return nil
}

// ReadPublicKey reads and trims the contents of a public key file.
func ReadPublicKey(pubPath string) (string, error) {
	data, err := os.ReadFile(pubPath)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Failed to read public key: %s", pubPath),
			"Check that the file exists and is readable")
	}
	return strings.TrimSpace(string(data)), nil
}

// inferKeyType determines key type from filename.
func inferKeyType(path string) string {
	base := filepath.Base(path)
	switch {
	case strings.Contains(base, "ed25519"):
		return "ed25519"
	case strings.Contains(base, "ecdsa"):
		return "ecdsa"
	case strings.Contains(base, "rsa"):
		return "rsa"
	default:
		return "unknown"
	}
}
