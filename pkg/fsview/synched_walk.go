package fsview

import (
	"github.com/dirmirror/dirmirror/pkg/entry"
)

// Pair is one emission of SynchedWalk: the relative path, plus whichever
// side(s) have an entry at it.
type Pair struct {
	Path string
	A    *entry.Entry
	B    *entry.Entry
}

// SynchedWalk merges src and dst's listings into a single stream of
// pairs ordered by (depth, lexicographic path), exactly as the entries
// are themselves ordered. A Go 1.23 push iterator is avoided for
// go1.17 compatibility; a channel-returning generator is used instead,
// matching the existing preference for channel-based delivery over
// callback registries used elsewhere in this package set.
func SynchedWalk(src, dst *View) <-chan Pair {
	out := make(chan Pair)
	go func() {
		defer close(out)

		i, j := 0, 0
		for i < len(src.listing) || j < len(dst.listing) {
			switch {
			case i >= len(src.listing):
				p := dst.listing[j]
				out <- Pair{Path: p, B: dst.entries[p]}
				j++
			case j >= len(dst.listing):
				p := src.listing[i]
				out <- Pair{Path: p, A: src.entries[p]}
				i++
			default:
				pa, pb := src.listing[i], dst.listing[j]
				switch {
				case pa == pb:
					out <- Pair{Path: pa, A: src.entries[pa], B: dst.entries[pb]}
					i++
					j++
				case pathLess(pa, pb):
					out <- Pair{Path: pa, A: src.entries[pa]}
					i++
				default:
					out <- Pair{Path: pb, B: dst.entries[pb]}
					j++
				}
			}
		}
	}()
	return out
}
