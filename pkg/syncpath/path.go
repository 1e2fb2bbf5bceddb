package syncpath

import (
	"strings"

	"github.com/pkg/errors"
)

// Path is a normalised path rooted at a filesystem root, with an explicit
// relative tail. The zero value is not valid; use New or Root.
//
// Invariants: the absolute form always begins with the root; "." and ".."
// components are eliminated by normalisation; normalisation is idempotent;
// Split/Join round-trips preserve the absolute form.
type Path struct {
	family   Family
	root     string
	relative string // slash-separated, normalised, no leading/trailing slash
}

// Root returns the Path denoting the root itself (empty relative tail).
func Root(family Family, root string) (Path, error) {
	normalizedRoot, err := normalizeRoot(family, root)
	if err != nil {
		return Path{}, err
	}
	return Path{family: family, root: normalizedRoot}, nil
}

// New constructs a Path from a root and a relative tail. The tail is
// normalised: "." and ".." components are resolved, and the result is
// guaranteed not to escape the root (an escaping "../" sequence is an
// error, never silently clamped).
func New(family Family, root, relative string) (Path, error) {
	p, err := Root(family, root)
	if err != nil {
		return Path{}, err
	}
	if relative == "" {
		return p, nil
	}
	return p.Visit(relative)
}

func normalizeRoot(family Family, root string) (string, error) {
	if root == "" {
		return "", errors.New("empty root")
	}
	sep := family.separator()
	cleaned := strings.TrimRight(strings.ReplaceAll(root, string(sep), "/"), "/")
	if cleaned == "" {
		// Root was exactly "/" (or "\\"): preserve a single separator.
		cleaned = "/"
	}
	return cleaned, nil
}

// splitComponents normalises a slash-delimited relative path into its
// cleaned components, resolving "." and disallowing ".." from escaping the
// root.
func splitComponents(relative string) ([]string, error) {
	raw := strings.Split(strings.ReplaceAll(relative, "\\", "/"), "/")
	components := make([]string, 0, len(raw))
	for _, c := range raw {
		switch c {
		case "", ".":
			continue
		case "..":
			if len(components) == 0 {
				return nil, errors.New("relative path escapes root")
			}
			components = components[:len(components)-1]
		default:
			components = append(components, c)
		}
	}
	return components, nil
}

// Family returns the path's family.
func (p Path) Family() Family {
	return p.family
}

// RootString returns the root portion of the path (without the relative tail).
func (p Path) RootString() string {
	return p.root
}

// Relative returns the normalised, slash-separated relative tail. It is
// empty for the root itself.
func (p Path) Relative() string {
	return p.relative
}

// IsRoot reports whether the path denotes the root itself.
func (p Path) IsRoot() bool {
	return p.relative == ""
}

// Absolute returns the full, OS-family-appropriate absolute path string.
func (p Path) Absolute() string {
	if p.relative == "" {
		return p.root
	}
	tail := p.relative
	if p.family == FamilyNT {
		tail = strings.ReplaceAll(tail, "/", "\\")
	}
	sep := string(p.family.separator())
	root := p.root
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return root + tail
}

// Visit returns a new Path for a sub-path of the receiver, resolving "."
// and ".." components. It never escapes the root: a ".." that would climb
// above the root returns an error rather than clamping silently.
func (p Path) Visit(relative string) (Path, error) {
	base, err := splitComponents(p.relative)
	if err != nil {
		return Path{}, err
	}
	extra, err := splitComponents(relative)
	if err != nil {
		return Path{}, err
	}
	for _, c := range extra {
		if c == ".." {
			if len(base) == 0 {
				return Path{}, errors.New("relative path escapes root")
			}
			base = base[:len(base)-1]
			continue
		}
		base = append(base, c)
	}
	return Path{family: p.family, root: p.root, relative: strings.Join(base, "/")}, nil
}

// Join appends a single child name to the path, without resolving "." or
// ".." (the name is taken literally as a single path component).
func (p Path) Join(name string) Path {
	if p.relative == "" {
		return Path{family: p.family, root: p.root, relative: name}
	}
	return Path{family: p.family, root: p.root, relative: p.relative + "/" + name}
}

// Dir returns the parent of the path. It returns the root unchanged if the
// path is already the root.
func (p Path) Dir() Path {
	if p.relative == "" {
		return p
	}
	idx := strings.LastIndexByte(p.relative, '/')
	if idx < 0 {
		return Path{family: p.family, root: p.root}
	}
	return Path{family: p.family, root: p.root, relative: p.relative[:idx]}
}

// Base returns the final component of the relative tail, or "" for the
// root.
func (p Path) Base() string {
	if p.relative == "" {
		return ""
	}
	idx := strings.LastIndexByte(p.relative, '/')
	if idx < 0 {
		return p.relative
	}
	return p.relative[idx+1:]
}

// Depth returns the number of components in the relative tail (0 for the
// root).
func (p Path) Depth() int {
	if p.relative == "" {
		return 0
	}
	return strings.Count(p.relative, "/") + 1
}

// Reroot returns a new Path with the same relative tail but a different
// root.
func (p Path) Reroot(family Family, root string) (Path, error) {
	normalizedRoot, err := normalizeRoot(family, root)
	if err != nil {
		return Path{}, err
	}
	return Path{family: family, root: normalizedRoot, relative: p.relative}, nil
}

// Equal reports whether two paths are equal. The relative tail is always
// compared case-sensitively; the root is compared case-insensitively on NT
// volumes and case-sensitively on POSIX.
func (p Path) Equal(other Path) bool {
	if p.family != other.family || p.relative != other.relative {
		return false
	}
	if p.family == FamilyNT {
		return strings.EqualFold(p.root, other.root)
	}
	return p.root == other.root
}

// Less orders two paths of the same family by depth first, then
// lexicographically within a depth, matching the comparer's required
// (depth, path) emission order.
func Less(a, b Path) bool {
	da, db := a.Depth(), b.Depth()
	if da != db {
		return da < db
	}
	return a.relative < b.relative
}
