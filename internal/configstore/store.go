// Package configstore implements idempotent, append-only edits to
// line-oriented configuration files. Every mutation is gated by a presence
// check so that re-running the same operation converges instead of
// duplicating entries. Files are only ever appended to; the single
// exception is Rewrite, which archives the previous version first.
package configstore

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/campus-hpc/onboard/internal/errors"
)

// Outcome reports what an idempotent edit did.
type Outcome int

const (
	// AlreadyPresent means the entry existed and the file was not touched.
	AlreadyPresent Outcome = iota
	// Added means the entry was appended.
	Added
)

// String returns a human-readable description of the outcome.
func (o Outcome) String() string {
	switch o {
	case Added:
		return "added"
	default:
		return "already present"
	}
}

// Store wraps a single configuration file and exposes idempotent edits
// against it. The zero value is not usable; construct with New or
// NewCredentialStore.
type Store struct {
	path     string
	fileMode os.FileMode
	dirMode  os.FileMode
}

// New returns a store for an ordinary configuration file.
func New(path string) *Store {
	return &Store{path: path, fileMode: 0644, dirMode: 0755}
}

// NewCredentialStore returns a store for a file holding credentials
// (SSH config, authorized_keys). Newly created files are owner
// read/write only and parent directories are owner-only.
func NewCredentialStore(path string) *Store {
	return &Store{path: path, fileMode: 0600, dirMode: 0700}
}

// Path returns the file path this store is bound to.
func (s *Store) Path() string {
	return s.path
}

// normalize collapses interior runs of spaces and tabs to single spaces
// and trims leading/trailing whitespace. All presence checks compare
// normalized forms, so "Host  ml007" and "Host ml007" are equivalent.
func normalize(line string) string {
	return strings.Join(strings.Fields(line), " ")
}

// Contains reports whether any line of the file contains pattern as a
// fixed substring. No regex metacharacters are interpreted. Both the
// line and the pattern are whitespace-normalized before comparison.
// A missing file means absent, never an error. The file is not mutated.
func (s *Store) Contains(pattern string) (bool, error) {
	return s.scan(func(line string) bool {
		return strings.Contains(normalize(line), normalize(pattern))
	})
}

// ContainsLine reports whether the file holds a line equal to the given
// one after whitespace normalization. This is the presence check used by
// EnsureLine: it will not be fooled by the line appearing as a fragment
// of a longer one.
func (s *Store) ContainsLine(line string) (bool, error) {
	want := normalize(line)
	return s.scan(func(l string) bool {
		return normalize(l) == want
	})
}

// scan runs match over each line of the file, returning true on the
// first hit. A missing file yields (false, nil).
func (s *Store) scan(match func(string) bool) (bool, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot read %s", s.path),
			"Check file permissions")
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if match(scanner.Text()) {
			return true, nil
		}
	}
	if err := scanner.Err(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Failed while scanning %s", s.path),
			"The file may be corrupt or too large")
	}
	return false, nil
}

// EnsureLine appends line (with a trailing newline) unless an equivalent
// line is already present. The file and its parent directories are
// created if missing. Calling this any number of times with the same
// input leaves exactly one occurrence in the file.
func (s *Store) EnsureLine(line string) (Outcome, error) {
	present, err := s.ContainsLine(line)
	if err != nil {
		return AlreadyPresent, err
	}
	if present {
		return AlreadyPresent, nil
	}

	if err := s.Append(line); err != nil {
		return AlreadyPresent, err
	}
	return Added, nil
}

// Append writes the given lines to the end of the file unconditionally,
// creating it (and parent directories) when missing. Callers wanting
// idempotence use EnsureLine or EnsureHost instead.
func (s *Store) Append(lines ...string) error {
	if err := os.MkdirAll(filepath.Dir(s.path), s.dirMode); err != nil {
		return errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot create directory for %s", s.path),
			"Check permissions on the parent directory")
	}

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, s.fileMode)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot open %s for appending", s.path),
			"Check file permissions")
	}
	defer f.Close()

	for _, line := range lines {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return errors.WrapWithCode(err, errors.ErrApply,
				fmt.Sprintf("Write to %s failed", s.path),
				"Check disk space")
		}
	}
	return nil
}

// endsWithBlankLine reports whether the file is empty, missing, or
// already terminated by an empty line. Used to decide whether a block
// append needs a leading separator.
func (s *Store) endsWithBlankLine() (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, err
	}
	if len(data) == 0 {
		return true, nil
	}
	trimmed := strings.TrimRight(string(data), " \t")
	return strings.HasSuffix(trimmed, "\n\n"), nil
}

// Rewrite replaces the entire file content after archiving the previous
// version next to it. This is the only code path that does not append:
// it exists for the documented migration case. Returns the archive path,
// or empty string when there was nothing to archive.
func (s *Store) Rewrite(content []byte) (string, error) {
	var backup string

	if data, err := os.ReadFile(s.path); err == nil {
		backup = fmt.Sprintf("%s.bak-%s", s.path, time.Now().Format("20060102-150405"))
		if err := os.WriteFile(backup, data, s.fileMode); err != nil {
			return "", errors.WrapWithCode(err, errors.ErrApply,
				fmt.Sprintf("Cannot archive %s before rewriting", s.path),
				"Check permissions and disk space")
		}
	} else if !os.IsNotExist(err) {
		return "", errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot read %s", s.path),
			"Check file permissions")
	}

	if err := os.MkdirAll(filepath.Dir(s.path), s.dirMode); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot create directory for %s", s.path),
			"Check permissions on the parent directory")
	}

	if err := os.WriteFile(s.path, content, s.fileMode); err != nil {
		return "", errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot rewrite %s", s.path),
			"Check permissions and disk space")
	}
	return backup, nil
}
