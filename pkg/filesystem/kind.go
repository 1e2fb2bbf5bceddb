package filesystem

import (
	"os"

	"github.com/dirmirror/dirmirror/pkg/entry"
)

// KindForMode classifies an os.FileMode the way the engine reports entries:
// directories and regular files are distinguished explicitly; everything
// else (symlinks, devices, sockets) collapses to entry.KindOther, matching
// the simplified three-way Kind the core works with.
func KindForMode(mode os.FileMode) entry.Kind {
	switch {
	case mode.IsDir():
		return entry.KindDirectory
	case mode.IsRegular():
		return entry.KindRegular
	default:
		return entry.KindOther
	}
}
