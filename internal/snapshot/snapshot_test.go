package snapshot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/linkpurge/internal/index"
	"github.com/lumipallolabs/linkpurge/internal/inode"
)

func TestEncodeKeyFormat(t *testing.T) {
	assert.Equal(t, "(1, 2)", EncodeKey(inode.Identity{Dev: 1, Ino: 2}))
	assert.Equal(t, "(0, 0)", EncodeKey(inode.Identity{}))
	assert.Equal(t, "(18446744073709551615, 7)", EncodeKey(inode.Identity{Dev: ^uint64(0), Ino: 7}))
}

func TestDecodeKeyRoundTrip(t *testing.T) {
	id := inode.Identity{Dev: 64769, Ino: 1048601}
	got, err := DecodeKey(EncodeKey(id))
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestDecodeKeyRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"1, 2",
		"(1, 2",
		"1, 2)",
		"(1,2)",
		"(1 , 2)",
		"(1, 2, 3)",
		"(a, b)",
		"(-1, 2)",
		"(0x1f, 2)",
		"(1, 2) or something",
		"__import__('os').system('true')",
	}
	for _, key := range bad {
		_, err := DecodeKey(key)
		assert.Error(t, err, "key %q should be rejected", key)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	id1 := inode.Identity{Dev: 10, Ino: 100}
	id2 := inode.Identity{Dev: 10, Ino: 200}
	snap := &Snapshot{
		TargetDir: "/data/target",
		FSRoot:    "/data",
		Inodes:    map[inode.Identity]struct{}{id1: {}, id2: {}},
		Records: map[inode.Identity]inode.Record{
			id1: {Identity: id1, Size: 7, Blocks: 8, Nlink: 2},
			id2: {Identity: id2, Size: 3, Blocks: 8, Nlink: 1},
		},
		Hits: index.PathSet{
			id1: {"/data/target/a", "/data/twin"},
			id2: {"/data/target/c"},
		},
	}

	path := filepath.Join(t.TempDir(), "scan.json")
	require.NoError(t, Save(path, snap))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap.TargetDir, loaded.TargetDir)
	assert.Equal(t, snap.FSRoot, loaded.FSRoot)
	assert.Equal(t, snap.Inodes, loaded.Inodes)
	assert.Equal(t, snap.Records, loaded.Records)
	assert.Equal(t, snap.Hits, loaded.Hits)
}

func TestLoadRejectsMalformedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	data := `{
  "target_dir": "/data/target",
  "fs_root": "/data",
  "inodes": [[1, 2]],
  "inode_stat": {"(1, 2) + (3, 4)": {"size_bytes": 1}},
  "hits": {}
}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "malformed inode key")
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scan.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}
