// Package filter implements the filter set applied to entry pairs before
// execution: the hidden-file predicate and shell-glob pattern exclusion.
package filter

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pkg/errors"

	"github.com/dirmirror/dirmirror/pkg/entry"
)

// Predicate reports whether a single entry should be excluded. A nil entry
// (an absent side of a pair) never matches.
type Predicate func(e *entry.Entry) bool

// Hidden is the built-in filter matching entries whose name begins with a
// dot, or whose Hidden attribute (reported by the filesystem) is set.
func Hidden(e *entry.Entry) bool {
	if e == nil {
		return false
	}
	if e.Hidden {
		return true
	}
	name := e.Path
	if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
		name = name[idx+1:]
	}
	return strings.HasPrefix(name, ".")
}

// Pattern returns a filter matching entries whose absolute path (root plus
// relative path) matches a shell glob pattern. Patterns are validated
// eagerly: an invalid pattern is rejected at construction rather than
// silently never matching at comparison time.
func Pattern(root, pattern string) (Predicate, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.Errorf("invalid glob pattern: %q", pattern)
	}
	return func(e *entry.Entry) bool {
		if e == nil {
			return false
		}
		absolute := root
		if e.Path != "" {
			if !strings.HasSuffix(absolute, "/") {
				absolute += "/"
			}
			absolute += e.Path
		}
		matched, err := doublestar.Match(pattern, absolute)
		return err == nil && matched
	}, nil
}

// Set is the disjunction of a collection of predicates: an action is
// excluded if any predicate in the set matches either side of the pair.
type Set struct {
	predicates []Predicate
}

// NewSet constructs a filter set from zero or more predicates.
func NewSet(predicates ...Predicate) *Set {
	return &Set{predicates: append([]Predicate(nil), predicates...)}
}

// Add appends a predicate to the set.
func (s *Set) Add(p Predicate) {
	s.predicates = append(s.predicates, p)
}

// AddPattern validates and appends a glob pattern filter rooted at root.
func (s *Set) AddPattern(root, pattern string) error {
	p, err := Pattern(root, pattern)
	if err != nil {
		return err
	}
	s.Add(p)
	return nil
}

// Matches reports whether any predicate in the set matches the given
// entry.
func (s *Set) Matches(e *entry.Entry) bool {
	if s == nil {
		return false
	}
	for _, p := range s.predicates {
		if p(e) {
			return true
		}
	}
	return false
}

// Excludes reports whether the pair (a, b) should be excluded: true iff
// the set matches either side.
func (s *Set) Excludes(a, b *entry.Entry) bool {
	return s.Matches(a) || s.Matches(b)
}
