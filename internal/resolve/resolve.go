// Package resolve is the name resolver (spec §4.3): it turns the
// name-hash region into a record_id → path table, and maps a path to
// its mount point and filesystem type by longest-prefix match against
// the log's mount table.
package resolve

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nersc/darshan-go/internal/common"
)

const unknown = "UNKNOWN"

// virtualNames gives a module a synthetic placeholder when a record id
// has no entry in the name-hash table. BG/Q's counters are job-wide,
// not file-keyed, so its records never resolve to a real path.
var virtualNames = map[common.ModuleID]string{
	common.ModuleBGQ: "<BG/Q virtual record>",
}

// MountEntry is one row of the mount table (spec §3).
type MountEntry struct {
	Path   string
	FSType string
}

// Table is the resolver's materialized state: the id→path map and the
// sorted mount table it matches paths against.
type Table struct {
	names  map[common.RecordID]string
	mounts []MountEntry
}

// ParseNameHash reads the name-hash region's lines, each of form
// "<record_id>\t<path>", into a Table with no mount entries yet.
func ParseNameHash(r io.Reader) (*Table, error) {
	t := &Table{names: make(map[common.RecordID]string)}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		idStr, path, found := strings.Cut(line, "\t")
		if !found {
			continue
		}
		var id uint64
		if _, err := fmt.Sscanf(idStr, "%d", &id); err != nil {
			continue
		}
		t.names[common.RecordID(id)] = path
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

// SetMounts installs the mount table, sorted longest-path-first so
// longest-prefix match is a linear scan for the first matching entry.
func (t *Table) SetMounts(mounts []MountEntry) {
	sorted := append([]MountEntry(nil), mounts...)
	sort.Slice(sorted, func(i, j int) bool { return len(sorted[i].Path) > len(sorted[j].Path) })
	t.mounts = sorted
}

// Path returns the path for id, or mod's virtual placeholder (or the
// generic UNKNOWN path) if the name-hash table has no entry.
func (t *Table) Path(id common.RecordID, mod common.ModuleID) string {
	if p, ok := t.names[id]; ok {
		return p
	}
	if v, ok := virtualNames[mod]; ok {
		return v
	}
	return unknown
}

// Mount returns (mount_path, fs_type) for path by longest-prefix match,
// or ("UNKNOWN","UNKNOWN") if no mount entry's path prefixes it.
func (t *Table) Mount(path string) (mount, fsType string) {
	for _, m := range t.mounts {
		if strings.HasPrefix(path, m.Path) {
			return m.Path, m.FSType
		}
	}
	return unknown, unknown
}
