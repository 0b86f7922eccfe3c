// Package index builds inode-to-path mappings from directory walks.
package index

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/charlievieth/fastwalk"
	"github.com/rs/zerolog"

	"github.com/lumipallolabs/linkpurge/internal/fsys"
	"github.com/lumipallolabs/linkpurge/internal/inode"
)

// PathSet maps each inode identity to the paths known to reference it.
// Path order carries no meaning.
type PathSet map[inode.Identity][]string

// Paths returns the total number of paths across all identities.
func (ps PathSet) Paths() int {
	n := 0
	for _, paths := range ps {
		n += len(paths)
	}
	return n
}

// Index is the result of scanning one directory tree: every regular file's
// identity, its paths inside the tree, and its metadata at scan time.
type Index struct {
	Root    string
	Paths   PathSet
	Records map[inode.Identity]inode.Record
}

// InodeSet returns the identities present in the index.
func (ix *Index) InodeSet() map[inode.Identity]struct{} {
	set := make(map[inode.Identity]struct{}, len(ix.Paths))
	for id := range ix.Paths {
		set[id] = struct{}{}
	}
	return set
}

// Build walks the tree rooted at root and records every regular file.
// Symlinks are never followed, subtrees on foreign devices are pruned whole
// when the guard is restricted, and vanished entries or unreadable subtrees
// are logged and skipped.
func Build(root string, guard fsys.Guard, log zerolog.Logger) (*Index, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	ix := &Index{
		Root:    abs,
		Paths:   make(PathSet),
		Records: make(map[inode.Identity]inode.Record),
	}

	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(conf, abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				log.Debug().Str("path", path).Msg("entry vanished during scan")
				return nil
			}
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Debug().Str("path", path).Msg("entry vanished during stat")
			return nil
		}
		rec := inode.FromFileInfo(info)
		if d.IsDir() {
			if path != abs && !guard.Allows(rec.Identity.Dev) {
				log.Debug().Str("path", path).Msg("pruning foreign filesystem")
				return fs.SkipDir
			}
			return nil
		}
		if !guard.Allows(rec.Identity.Dev) || !info.Mode().IsRegular() {
			return nil
		}
		mu.Lock()
		ix.Paths[rec.Identity] = append(ix.Paths[rec.Identity], path)
		ix.Records[rec.Identity] = rec
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return ix, nil
}

// FindAllPaths walks the filesystem from fsRoot and returns every path
// referencing one of the wanted identities, no matter where it lives under
// that root. Consumers estimating freed space count each identity once
// regardless of how many paths come back.
func FindAllPaths(fsRoot string, want map[inode.Identity]struct{}, guard fsys.Guard, log zerolog.Logger) (PathSet, error) {
	abs, err := filepath.Abs(fsRoot)
	if err != nil {
		return nil, err
	}
	hits := make(PathSet)
	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(conf, abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !os.IsNotExist(err) {
				log.Debug().Err(err).Str("path", path).Msg("unreadable during discovery")
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rec := inode.FromFileInfo(info)
		if d.IsDir() {
			if path != abs && !guard.Allows(rec.Identity.Dev) {
				return fs.SkipDir
			}
			return nil
		}
		if !guard.Allows(rec.Identity.Dev) || !info.Mode().IsRegular() {
			return nil
		}
		if _, wanted := want[rec.Identity]; !wanted {
			return nil
		}
		mu.Lock()
		hits[rec.Identity] = append(hits[rec.Identity], path)
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	for id := range hits {
		sort.Strings(hits[id])
	}
	return hits, nil
}

// SymlinkSet lists the symlinks found under a directory along with the sum
// of their own sizes. Symlinks are never deduplicated against each other,
// even when several point at the same target.
type SymlinkSet struct {
	Paths      []string
	TotalBytes int64
}

// SymlinksUnder collects every symlink under dir, subject to the boundary
// guard.
func SymlinksUnder(dir string, guard fsys.Guard, log zerolog.Logger) (*SymlinkSet, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	set := &SymlinkSet{}
	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(conf, abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if !os.IsNotExist(err) {
				log.Warn().Err(err).Str("path", path).Msg("skipping unreadable entry")
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rec := inode.FromFileInfo(info)
		if d.IsDir() {
			if path != abs && !guard.Allows(rec.Identity.Dev) {
				return fs.SkipDir
			}
			return nil
		}
		if info.Mode()&fs.ModeSymlink == 0 {
			return nil
		}
		mu.Lock()
		set.Paths = append(set.Paths, path)
		set.TotalBytes += rec.Usage()
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	sort.Strings(set.Paths)
	return set, nil
}

// FilesUnder returns path to identity for every regular file currently
// reachable under dir. The interactive browser uses it when a whole
// directory is marked: the file set is computed fresh at mark time, not
// maintained live.
func FilesUnder(dir string, guard fsys.Guard) (map[string]inode.Identity, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	files := make(map[string]inode.Identity)
	var mu sync.Mutex
	conf := &fastwalk.Config{Follow: false}
	walkErr := fastwalk.Walk(conf, abs, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		rec := inode.FromFileInfo(info)
		if d.IsDir() {
			if path != abs && !guard.Allows(rec.Identity.Dev) {
				return fs.SkipDir
			}
			return nil
		}
		if !guard.Allows(rec.Identity.Dev) || !info.Mode().IsRegular() {
			return nil
		}
		mu.Lock()
		files[path] = rec.Identity
		mu.Unlock()
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}
	return files, nil
}
