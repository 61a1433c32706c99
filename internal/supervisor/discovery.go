package supervisor

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wagiedev/procbridge-go/internal/errors"
)

// ResolveWorker returns the absolute path of the worker executable.
//
// A path containing a separator is used as given and must name an executable
// regular file. A bare name is searched in PATH.
func ResolveWorker(log *slog.Logger, path string) (string, error) {
	if path == "" {
		return "", &errors.WorkerNotFoundError{Path: path}
	}

	if !strings.ContainsRune(path, filepath.Separator) {
		log.Debug("Searching for worker in PATH", "name", path)

		found, err := exec.LookPath(path)
		if err != nil {
			return "", &errors.WorkerNotFoundError{Path: path, SearchedPaths: []string{"$PATH"}, Err: err}
		}

		path = found
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &errors.WorkerNotFoundError{Path: path, Err: err}
	}

	info, err := os.Stat(abs)
	if err != nil {
		return "", &errors.WorkerNotFoundError{Path: path, SearchedPaths: []string{abs}, Err: err}
	}

	if !info.Mode().IsRegular() || info.Mode().Perm()&0o111 == 0 {
		return "", &errors.WorkerNotFoundError{
			Path:          path,
			SearchedPaths: []string{abs},
			Err:           fmt.Errorf("not an executable file (mode %s)", info.Mode()),
		}
	}

	log.Debug("Resolved worker executable", "path", abs)

	return abs, nil
}
