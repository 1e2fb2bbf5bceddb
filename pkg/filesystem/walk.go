package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
)

// VisitFunc is invoked for each path encountered by Walk, receiving the
// path relative to the walk's root and its os.FileInfo. Returning an error
// aborts the walk.
type VisitFunc func(relative string, info os.FileInfo) error

// Walk recursively visits root and everything beneath it, invoking visit
// for each entry (including root itself, with an empty relative path).
// Directories are visited before their contents. Unlike path/filepath.Walk,
// directory contents are not sorted: each directory's listing is read in
// full and its children are visited in the order the listing returns them.
func Walk(root string, visit VisitFunc) error {
	info, err := os.Lstat(root)
	if err != nil {
		return fmt.Errorf("unable to stat root: %w", err)
	}
	return walk(root, "", info, visit)
}

func walk(absolute, relative string, info os.FileInfo, visit VisitFunc) error {
	if err := visit(relative, info); err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	contents, err := DirectoryContentsByPath(absolute)
	if err != nil {
		return fmt.Errorf("unable to read directory %q: %w", absolute, err)
	}

	for _, child := range contents {
		childRelative := child.Name()
		if relative != "" {
			childRelative = relative + "/" + child.Name()
		}
		childAbsolute := filepath.Join(absolute, child.Name())
		if err := walk(childAbsolute, childRelative, child, visit); err != nil {
			return err
		}
	}
	return nil
}
