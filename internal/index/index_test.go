//go:build !windows

package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumipallolabs/linkpurge/internal/fsys"
	"github.com/lumipallolabs/linkpurge/internal/inode"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func identityOf(t *testing.T, path string) inode.Identity {
	t.Helper()
	info, err := os.Lstat(path)
	require.NoError(t, err)
	return inode.FromFileInfo(info).Identity
}

func TestBuildGroupsHardlinks(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "sub", "b")
	c := filepath.Join(dir, "c")
	writeFile(t, a, "shared content")
	require.NoError(t, os.MkdirAll(filepath.Dir(b), 0o755))
	require.NoError(t, os.Link(a, b))
	writeFile(t, c, "alone")

	ix, err := Build(dir, fsys.Guard{}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, dir, ix.Root)
	require.Len(t, ix.Paths, 2)
	assert.Equal(t, 3, ix.Paths.Paths())

	group := append([]string(nil), ix.Paths[identityOf(t, a)]...)
	require.Len(t, group, 2)
	assert.ElementsMatch(t, []string{a, b}, group)
	assert.Equal(t, uint64(2), ix.Records[identityOf(t, a)].Nlink)

	assert.Equal(t, []string{c}, ix.Paths[identityOf(t, c)])
	assert.Equal(t, uint64(1), ix.Records[identityOf(t, c)].Nlink)
}

func TestBuildIgnoresSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	writeFile(t, target, "data")
	require.NoError(t, os.Symlink(target, filepath.Join(dir, "alias")))

	ix, err := Build(dir, fsys.Guard{}, zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, ix.Paths, 1)
	assert.Equal(t, []string{target}, ix.Paths[identityOf(t, target)])
}

func TestBuildEmptyTree(t *testing.T) {
	ix, err := Build(t.TempDir(), fsys.Guard{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, ix.Paths)
	assert.Empty(t, ix.InodeSet())
}

func TestFindAllPathsAcrossSiblings(t *testing.T) {
	root := t.TempDir()
	a := filepath.Join(root, "target", "a")
	elsewhere := filepath.Join(root, "copies", "deep", "a-again")
	writeFile(t, a, "shared")
	require.NoError(t, os.MkdirAll(filepath.Dir(elsewhere), 0o755))
	require.NoError(t, os.Link(a, elsewhere))
	writeFile(t, filepath.Join(root, "copies", "unrelated"), "noise")

	want := map[inode.Identity]struct{}{identityOf(t, a): {}}
	hits, err := FindAllPaths(root, want, fsys.Guard{}, zerolog.Nop())
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, []string{elsewhere, a}, hits[identityOf(t, a)])
}

func TestFindAllPathsNothingWanted(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a"), "data")

	hits, err := FindAllPaths(root, map[inode.Identity]struct{}{}, fsys.Guard{}, zerolog.Nop())
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSymlinksUnder(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "target")
	writeFile(t, target, "data")
	l1 := filepath.Join(dir, "link-one")
	l2 := filepath.Join(dir, "sub", "link-two")
	require.NoError(t, os.Symlink(target, l1))
	require.NoError(t, os.MkdirAll(filepath.Dir(l2), 0o755))
	require.NoError(t, os.Symlink(target, l2))

	set, err := SymlinksUnder(dir, fsys.Guard{}, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, []string{l1, l2}, set.Paths)
	assert.Greater(t, set.TotalBytes, int64(0))
}

func TestFilesUnderSkipsNonRegular(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "sub", "b")
	writeFile(t, a, "one")
	writeFile(t, b, "two")
	require.NoError(t, os.Symlink(a, filepath.Join(dir, "alias")))

	files, err := FilesUnder(dir, fsys.Guard{})
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, identityOf(t, a), files[a])
	assert.Equal(t, identityOf(t, b), files[b])
}
