// Package snapshot persists scan results so purges can replay them without
// rescanning. The on-disk schema is stable JSON; map keys use the textual
// pair encoding "(dev, ino)" and are parsed back with a strict two-integer
// grammar. Keys are data, never expressions: anything that does not match
// the grammar is rejected.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/lumipallolabs/linkpurge/internal/index"
	"github.com/lumipallolabs/linkpurge/internal/inode"
)

// Snapshot is the in-memory form of a saved scan: everything the global
// and selection purge paths need to run without rescanning. Loaded data
// reflects the filesystem at scan time and may be stale by deletion time.
type Snapshot struct {
	TargetDir string
	FSRoot    string
	Inodes    map[inode.Identity]struct{}
	Records   map[inode.Identity]inode.Record
	Hits      index.PathSet
}

// statRecord mirrors the on-disk metadata entry for one inode.
type statRecord struct {
	SizeBytes   int64  `json:"size_bytes"`
	BlockCount  int64  `json:"block_count"`
	DeviceID    uint64 `json:"device_id"`
	InodeNumber uint64 `json:"inode_number"`
	LinkCount   uint64 `json:"link_count"`
}

// fileFormat is the stable on-disk schema.
type fileFormat struct {
	TargetDir string                `json:"target_dir"`
	FSRoot    string                `json:"fs_root"`
	Inodes    [][2]uint64           `json:"inodes"`
	InodeStat map[string]statRecord `json:"inode_stat"`
	Hits      map[string][]string   `json:"hits"`
}

// EncodeKey renders an identity as the textual pair used for map keys.
func EncodeKey(id inode.Identity) string {
	return fmt.Sprintf("(%d, %d)", id.Dev, id.Ino)
}

// DecodeKey parses the strict "(dev, ino)" pair grammar.
func DecodeKey(key string) (inode.Identity, error) {
	inner, ok := strings.CutPrefix(key, "(")
	if !ok {
		return inode.Identity{}, fmt.Errorf("malformed inode key %q", key)
	}
	inner, ok = strings.CutSuffix(inner, ")")
	if !ok {
		return inode.Identity{}, fmt.Errorf("malformed inode key %q", key)
	}
	devStr, inoStr, ok := strings.Cut(inner, ", ")
	if !ok {
		return inode.Identity{}, fmt.Errorf("malformed inode key %q", key)
	}
	dev, err := strconv.ParseUint(devStr, 10, 64)
	if err != nil {
		return inode.Identity{}, fmt.Errorf("malformed inode key %q: %w", key, err)
	}
	ino, err := strconv.ParseUint(inoStr, 10, 64)
	if err != nil {
		return inode.Identity{}, fmt.Errorf("malformed inode key %q: %w", key, err)
	}
	return inode.Identity{Dev: dev, Ino: ino}, nil
}

// Save writes the snapshot to path as indented JSON.
func Save(path string, snap *Snapshot) error {
	ff := fileFormat{
		TargetDir: snap.TargetDir,
		FSRoot:    snap.FSRoot,
		Inodes:    make([][2]uint64, 0, len(snap.Inodes)),
		InodeStat: make(map[string]statRecord, len(snap.Records)),
		Hits:      make(map[string][]string, len(snap.Hits)),
	}
	for id := range snap.Inodes {
		ff.Inodes = append(ff.Inodes, [2]uint64{id.Dev, id.Ino})
	}
	sort.Slice(ff.Inodes, func(i, j int) bool {
		if ff.Inodes[i][0] != ff.Inodes[j][0] {
			return ff.Inodes[i][0] < ff.Inodes[j][0]
		}
		return ff.Inodes[i][1] < ff.Inodes[j][1]
	})
	for id, rec := range snap.Records {
		ff.InodeStat[EncodeKey(id)] = statRecord{
			SizeBytes:   rec.Size,
			BlockCount:  rec.Blocks,
			DeviceID:    rec.Identity.Dev,
			InodeNumber: rec.Identity.Ino,
			LinkCount:   rec.Nlink,
		}
	}
	for id, paths := range snap.Hits {
		ff.Hits[EncodeKey(id)] = paths
	}

	data, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads and validates a snapshot file. Malformed records are an
// error, never silently repaired.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var ff fileFormat
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	snap := &Snapshot{
		TargetDir: ff.TargetDir,
		FSRoot:    ff.FSRoot,
		Inodes:    make(map[inode.Identity]struct{}, len(ff.Inodes)),
		Records:   make(map[inode.Identity]inode.Record, len(ff.InodeStat)),
		Hits:      make(index.PathSet, len(ff.Hits)),
	}
	for _, pair := range ff.Inodes {
		snap.Inodes[inode.Identity{Dev: pair[0], Ino: pair[1]}] = struct{}{}
	}
	for key, st := range ff.InodeStat {
		id, err := DecodeKey(key)
		if err != nil {
			return nil, err
		}
		snap.Records[id] = inode.Record{
			Identity: inode.Identity{Dev: st.DeviceID, Ino: st.InodeNumber},
			Size:     st.SizeBytes,
			Blocks:   st.BlockCount,
			Nlink:    st.LinkCount,
		}
	}
	for key, paths := range ff.Hits {
		id, err := DecodeKey(key)
		if err != nil {
			return nil, err
		}
		snap.Hits[id] = paths
	}
	return snap, nil
}
