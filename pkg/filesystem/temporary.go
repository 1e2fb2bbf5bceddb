package filesystem

const (
	// TemporaryNamePrefix is the file name prefix used for all temporary
	// files and directories created during a synchronisation run. Because
	// it is dot-prefixed, any such files are reported as hidden by IsHidden
	// on POSIX and are matched by the hidden-file filter.
	TemporaryNamePrefix = ".dirmirror-temporary-"
)
