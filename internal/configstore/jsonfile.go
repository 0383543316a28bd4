package configstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/campus-hpc/onboard/internal/errors"
)

// EditorSettings is the fixed two-key settings object written for the
// editor server on the remote side: where the interpreter lives and
// where the package manager lives.
type EditorSettings struct {
	InterpreterPath    string `json:"python.defaultInterpreterPath"`
	PackageManagerPath string `json:"python.condaPath"`
}

// WriteEditorSettings writes the settings file, replacing whatever was
// there. The file is overwritten, not merged: the editor server treats
// it as wholly owned by onboarding.
func WriteEditorSettings(path string, settings EditorSettings) error {
	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrApply,
			"Cannot encode editor settings",
			"")
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot create directory for %s", path),
			"Check permissions on the parent directory")
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot write %s", path),
			"Check permissions and disk space")
	}
	return nil
}

// HasJSONKey reports whether a JSON file contains the given key, by
// string containment of the quoted key. This deliberately avoids parsing:
// the notebook server rewrites its own config and only the presence of
// the key matters, not its value. A missing file means absent.
func HasJSONKey(path, key string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot read %s", path),
			"Check file permissions")
	}
	return strings.Contains(string(data), fmt.Sprintf("%q:", key)), nil
}
