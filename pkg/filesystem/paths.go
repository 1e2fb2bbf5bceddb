package filesystem

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

const (
	// DataDirectoryName is the name of dirmirror's data directory inside the
	// user's home directory.
	DataDirectoryName = ".dirmirror"

	// SnapshotsDirectoryName is the subdirectory of the data directory in
	// which per-run snapshot files are stored.
	SnapshotsDirectoryName = "snapshots"
)

// HomeDirectory is the cached path to the current user's home directory.
var HomeDirectory string

// DataDirectoryPath is the path to dirmirror's data directory. It is used as
// the base path for snapshot storage.
var DataDirectoryPath string

func init() {
	h, err := os.UserHomeDir()
	if err != nil {
		panic(errors.Wrap(err, "unable to query user's home directory"))
	} else if h == "" {
		panic(errors.New("home directory path empty"))
	}
	HomeDirectory = h
	DataDirectoryPath = filepath.Join(HomeDirectory, DataDirectoryName)
}

// DataSubpath computes (and optionally creates) a subdirectory inside the
// data directory.
func DataSubpath(create bool, pathComponents ...string) (string, error) {
	result := filepath.Join(DataDirectoryPath, filepath.Join(pathComponents...))

	if create {
		if err := os.MkdirAll(result, 0700); err != nil {
			return "", errors.Wrap(err, "unable to create subpath")
		} else if err := MarkHidden(DataDirectoryPath); err != nil {
			return "", errors.Wrap(err, "unable to hide data directory")
		}
	}

	return result, nil
}
