package configstore

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/kevinburke/ssh_config"

	"github.com/campus-hpc/onboard/internal/errors"
)

// HostEntry is one SSH client config stanza. The alias is the identity
// key: two entries with the same alias are the same entry, while two
// aliases pointing at the same hostname are distinct entries (one domain
// may be reachable under multiple aliases with different identity files).
type HostEntry struct {
	Alias        string
	HostName     string
	User         string
	IdentityFile string
}

// Block renders the entry as an SSH config stanza without the trailing
// separator. IdentityFile and IdentitiesOnly are emitted only when an
// identity file is set.
func (e HostEntry) Block() []string {
	lines := []string{
		"Host " + e.Alias,
		"    HostName " + e.HostName,
		"    User " + e.User,
	}
	if e.IdentityFile != "" {
		lines = append(lines,
			"    IdentityFile "+e.IdentityFile,
			"    IdentitiesOnly yes",
		)
	}
	return lines
}

// EnsureHost appends the entry's stanza to the file unless a stanza for
// the same alias already exists. Existing content is never reordered or
// edited; the block always goes at the end, preceded by a blank line when
// the file does not already end with one, and followed by a blank
// separator line. Calling twice with the same alias never produces two
// blocks, even if the hostname differs between calls.
func (s *Store) EnsureHost(e HostEntry) (Outcome, error) {
	if e.Alias == "" {
		return AlreadyPresent, errors.New(errors.ErrApply,
			"Host entry has no alias",
			"An alias is required to identify the stanza")
	}

	present, err := s.HasHostAlias(e.Alias)
	if err != nil {
		return AlreadyPresent, err
	}
	if present {
		return AlreadyPresent, nil
	}

	blankTail, err := s.endsWithBlankLine()
	if err != nil {
		return AlreadyPresent, errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot read %s", s.path),
			"Check file permissions")
	}

	var lines []string
	if !blankTail {
		lines = append(lines, "")
	}
	lines = append(lines, e.Block()...)
	lines = append(lines, "")

	if err := s.Append(lines...); err != nil {
		return AlreadyPresent, err
	}
	return Added, nil
}

// HasHostAlias reports whether the file already contains a Host stanza
// for the given alias. The file is parsed as SSH config; if it cannot be
// parsed (hand-edited or malformed), the check falls back to a
// normalized line scan for the header so a malformed file never causes a
// duplicate block.
func (s *Store) HasHostAlias(alias string) (bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.WrapWithCode(err, errors.ErrApply,
			fmt.Sprintf("Cannot read %s", s.path),
			"Check file permissions")
	}

	cfg, err := ssh_config.Decode(bytes.NewReader(data))
	if err != nil {
		return s.scan(func(line string) bool {
			return isHostHeaderFor(line, alias)
		})
	}

	for _, host := range cfg.Hosts {
		for _, pattern := range host.Patterns {
			if pattern.String() == alias {
				return true, nil
			}
		}
	}
	return false, nil
}

// isHostHeaderFor matches a "Host <alias>" header line, tolerating extra
// whitespace and multiple patterns on the header.
func isHostHeaderFor(line, alias string) bool {
	fields := strings.Fields(line)
	if len(fields) < 2 || !strings.EqualFold(fields[0], "Host") {
		return false
	}
	for _, pattern := range fields[1:] {
		if pattern == alias {
			return true
		}
	}
	return false
}
