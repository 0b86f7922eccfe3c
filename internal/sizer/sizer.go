// Package sizer aggregates disk usage per directory without double-counting
// hardlinked files.
package sizer

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lumipallolabs/linkpurge/internal/fsys"
	"github.com/lumipallolabs/linkpurge/internal/inode"
)

// Entry is one reported directory and its aggregate usage.
type Entry struct {
	Path  string
	Bytes int64
}

// DirSizes reports aggregate usage for root and every directory down to
// maxDepth levels below it (depth 0 = root). Each entry is attributed to
// its containing directory, or to the nearest reported ancestor when the
// containing directory is deeper than maxDepth. Hardlink deduplication is
// scoped to the whole traversal: the first directory the walk reaches an
// inode through gets its bytes, siblings reached later get nothing.
// Visitation order between siblings is not guaranteed stable.
// Results are sorted by size descending.
func DirSizes(root string, maxDepth int, apparent bool, guard fsys.Guard, log zerolog.Logger) ([]Entry, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if _, err := os.Lstat(abs); err != nil {
		return nil, err
	}

	totals := map[string]int64{abs: 0}
	seen := make(map[inode.Identity]struct{})

	type frame struct {
		dir      string
		reportTo string
		depth    int
	}
	queue := []frame{{dir: abs, reportTo: abs, depth: 0}}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(f.dir)
		if err != nil {
			if os.IsNotExist(err) {
				log.Debug().Str("path", f.dir).Msg("directory vanished")
			} else {
				log.Warn().Err(err).Str("path", f.dir).Msg("skipping unreadable directory")
			}
			continue
		}

		for _, ent := range entries {
			info, err := ent.Info()
			if err != nil {
				if os.IsNotExist(err) {
					log.Debug().Str("path", filepath.Join(f.dir, ent.Name())).Msg("entry vanished")
				} else {
					log.Warn().Err(err).Str("path", filepath.Join(f.dir, ent.Name())).Msg("cannot stat entry")
				}
				continue
			}
			rec := inode.FromFileInfo(info)
			if !guard.Allows(rec.Identity.Dev) {
				log.Debug().Str("path", filepath.Join(f.dir, ent.Name())).Msg("skipping foreign filesystem")
				continue
			}

			mode := info.Mode()
			switch {
			case mode&os.ModeSymlink != 0:
				totals[f.reportTo] += rec.Bytes(apparent)
			case mode.IsDir():
				totals[f.reportTo] += rec.Bytes(apparent)
				child := filepath.Join(f.dir, ent.Name())
				next := frame{dir: child, reportTo: f.reportTo, depth: f.depth + 1}
				if next.depth <= maxDepth {
					next.reportTo = child
					if _, ok := totals[child]; !ok {
						totals[child] = 0
					}
				}
				queue = append(queue, next)
			case mode.IsRegular():
				if _, dup := seen[rec.Identity]; dup {
					continue
				}
				seen[rec.Identity] = struct{}{}
				totals[f.reportTo] += rec.Bytes(apparent)
			default:
				totals[f.reportTo] += rec.Bytes(apparent)
			}
		}
	}

	out := make([]Entry, 0, len(totals))
	for path, bytes := range totals {
		out = append(out, Entry{Path: path, Bytes: bytes})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// SubtreeUsage computes the deep aggregate for one subtree, counting each
// hardlinked inode inside it once. The dedup scope is this call only:
// sibling subtrees sized by separate calls are not deduplicated against
// each other, so the number reads as "size if deleted alone". The
// directory's own entry is included. Unreadable or vanished entries are
// silently skipped.
func SubtreeUsage(path string, apparent bool, guard fsys.Guard) int64 {
	var total int64
	seen := make(map[inode.Identity]struct{})

	if info, err := os.Lstat(path); err == nil {
		total += inode.FromFileInfo(info).Bytes(apparent)
	}

	stack := []string{path}
	for len(stack) > 0 {
		dir := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, ent := range entries {
			info, err := ent.Info()
			if err != nil {
				continue
			}
			rec := inode.FromFileInfo(info)
			if !guard.Allows(rec.Identity.Dev) {
				continue
			}
			mode := info.Mode()
			switch {
			case mode&os.ModeSymlink != 0:
				total += rec.Bytes(apparent)
			case mode.IsDir():
				total += rec.Bytes(apparent)
				stack = append(stack, filepath.Join(dir, ent.Name()))
			case mode.IsRegular():
				if _, dup := seen[rec.Identity]; !dup {
					seen[rec.Identity] = struct{}{}
					total += rec.Bytes(apparent)
				}
			default:
				total += rec.Bytes(apparent)
			}
		}
	}
	return total
}
