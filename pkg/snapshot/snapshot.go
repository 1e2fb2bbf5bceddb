// Package snapshot implements persistence of the prior-run filesystem
// snapshot used to distinguish "deleted since last run" from "never
// existed" when comparing two roots. A snapshot is an opaque artifact:
// callers never inspect anything beyond Root and Entries.
package snapshot

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/dirmirror/dirmirror/pkg/encoding"
	"github.com/dirmirror/dirmirror/pkg/entry"
	"github.com/dirmirror/dirmirror/pkg/filesystem"
	"github.com/dirmirror/dirmirror/pkg/logging"
)

// Record is the serialisable form of an entry.Entry. entry.Entry is not
// marshaled directly because its pointer fields need an explicit
// presence/absence encoding that survives msgpack's map-key sorting.
type Record struct {
	Path     string     `msgpack:"path"`
	Kind     uint8      `msgpack:"kind"`
	Exists   bool       `msgpack:"exists"`
	Size     *uint64    `msgpack:"size,omitempty"`
	MTime    *time.Time `msgpack:"mtime,omitempty"`
	Checksum *string    `msgpack:"checksum,omitempty"`
	Hidden   bool       `msgpack:"hidden"`
}

// Snapshot is the persisted state of one filesystem root as observed at
// the end of a prior run, ordered by (depth, path) to match the order the
// comparer walks a view in.
type Snapshot struct {
	Root    string    `msgpack:"root"`
	Written time.Time `msgpack:"written"`
	Entries []Record  `msgpack:"entries"`
}

// FromEntries constructs a Snapshot for root from an unordered slice of
// entries, sorting them by (depth, path) before storage.
func FromEntries(root string, entries []*entry.Entry, now time.Time) *Snapshot {
	records := make([]Record, len(entries))
	for i, e := range entries {
		records[i] = toRecord(e)
	}
	sort.Slice(records, func(i, j int) bool {
		return less(records[i].Path, records[j].Path)
	})
	return &Snapshot{Root: root, Written: now, Entries: records}
}

// ToEntries converts the snapshot's records back into entry.Entry values.
func (s *Snapshot) ToEntries() []*entry.Entry {
	result := make([]*entry.Entry, len(s.Entries))
	for i, r := range s.Entries {
		result[i] = fromRecord(r)
	}
	return result
}

// Lookup returns the record for path, if any, and whether it was found.
func (s *Snapshot) Lookup(path string) (Record, bool) {
	for _, r := range s.Entries {
		if r.Path == path {
			return r, true
		}
	}
	return Record{}, false
}

func toRecord(e *entry.Entry) Record {
	return Record{
		Path:     e.Path,
		Kind:     uint8(e.Kind),
		Exists:   e.Exists,
		Size:     e.Size,
		MTime:    e.MTime,
		Checksum: e.Checksum,
		Hidden:   e.Hidden,
	}
}

func fromRecord(r Record) *entry.Entry {
	return &entry.Entry{
		Path:     r.Path,
		Kind:     entry.Kind(r.Kind),
		Exists:   r.Exists,
		Size:     r.Size,
		MTime:    r.MTime,
		Checksum: r.Checksum,
		Hidden:   r.Hidden,
	}
}

func less(a, b string) bool {
	da, db := depth(a), depth(b)
	if da != db {
		return da < db
	}
	return a < b
}

func depth(path string) int {
	if path == "" {
		return 0
	}
	d := 1
	for _, r := range path {
		if r == '/' {
			d++
		}
	}
	return d
}

// PathForRoot computes the path of the snapshot file for a given
// filesystem root, keyed by a digest of the root string so that two
// different roots never collide inside the shared data directory.
func PathForRoot(root string) (string, error) {
	sum := sha256.Sum256([]byte(root))
	name := hex.EncodeToString(sum[:])
	directory, err := filesystem.DataSubpath(true, filesystem.SnapshotsDirectoryName)
	if err != nil {
		return "", err
	}
	return filepath.Join(directory, name), nil
}

// Load reads and decodes the prior-run snapshot for root. A missing
// snapshot file is not an error: it returns (nil, nil), since the very
// first run for a root has no prior snapshot to compare against.
func Load(root string) (*Snapshot, error) {
	path, err := PathForRoot(root)
	if err != nil {
		return nil, err
	}

	var result Snapshot
	err = encoding.LoadAndUnmarshal(path, func(data []byte) error {
		return msgpack.Unmarshal(data, &result)
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return &result, nil
}

// Save persists snap as the prior-run snapshot for its root, overwriting
// any existing snapshot file, atomically.
func Save(snap *Snapshot, logger *logging.Logger) error {
	path, err := PathForRoot(snap.Root)
	if err != nil {
		return err
	}
	return encoding.MarshalAndSave(path, func() ([]byte, error) {
		return msgpack.Marshal(snap)
	}, logger)
}
