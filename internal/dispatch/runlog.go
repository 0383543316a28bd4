package dispatch

import (
	"os"
	"path/filepath"
	"time"

	"github.com/campus-hpc/onboard/internal/errors"
)

// RunLog captures a full transcript of one remote run.
type RunLog struct {
	path string
	file *os.File
}

// DefaultLogDir returns the directory where run transcripts live.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "onboard")
	}
	return filepath.Join(home, ".local", "state", "onboard")
}

// NewRunLog creates a timestamped transcript file under dir.
func NewRunLog(dir string) (*RunLog, error) {
	if dir == "" {
		dir = DefaultLogDir()
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrDispatch,
			"Failed to create run log directory: "+dir,
			"Check permissions, or set a different log directory")
	}

	path := filepath.Join(dir, "run-"+time.Now().Format("20060102-150405")+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
	if err != nil {
		// Two runs in the same second collide on the name.
		if os.IsExist(err) {
			path = filepath.Join(dir, "run-"+time.Now().Format("20060102-150405.000")+".log")
			f, err = os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0600)
		}
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrDispatch,
				"Failed to create run log file",
				"Check permissions on "+dir)
		}
	}

	return &RunLog{path: path, file: f}, nil
}

// Path returns the transcript file location.
func (r *RunLog) Path() string { return r.path }

// Write implements io.Writer.
func (r *RunLog) Write(p []byte) (int, error) { return r.file.Write(p) }

// Close flushes and closes the transcript.
func (r *RunLog) Close() error { return r.file.Close() }
