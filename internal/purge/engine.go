// Package purge implements the deletion policies: complete-object deletion,
// symlink removal, and global or selection-driven hardlink purges. Every
// policy is two-phase: a Plan computes candidates and a freed-byte estimate,
// Execute reports them, asks for confirmation and unlinks path by path.
package purge

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/lumipallolabs/linkpurge/internal/fsys"
	"github.com/lumipallolabs/linkpurge/internal/index"
	"github.com/lumipallolabs/linkpurge/internal/inode"
	"github.com/lumipallolabs/linkpurge/internal/stats"
)

// Plan is the computed candidate set for a purge-style operation: inode
// groups, their paths, and metadata captured before deletion.
type Plan struct {
	TargetDir string
	FSRoot    string
	Groups    index.PathSet
	Records   map[inode.Identity]inode.Record
}

// InodeCount returns the number of candidate inode groups.
func (p *Plan) InodeCount() int {
	return len(p.Groups)
}

// PathCount returns the number of candidate paths across all groups.
func (p *Plan) PathCount() int {
	return p.Groups.Paths()
}

// FreedEstimate sums usage once per inode regardless of how many paths it
// has, from metadata captured at scan time.
func (p *Plan) FreedEstimate() int64 {
	var total int64
	for id := range p.Groups {
		if rec, ok := p.Records[id]; ok {
			total += rec.Usage()
		}
	}
	return total
}

// sortedIDs returns group identities in a stable order for reporting.
func (p *Plan) sortedIDs() []inode.Identity {
	ids := make([]inode.Identity, 0, len(p.Groups))
	for id := range p.Groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].Dev != ids[j].Dev {
			return ids[i].Dev < ids[j].Dev
		}
		return ids[i].Ino < ids[j].Ino
	})
	return ids
}

// Result reports what an execution actually did. FreedBytes is the
// pre-deletion estimate, not a post-deletion measurement.
type Result struct {
	Inodes       int
	RemovedPaths int
	FreedBytes   int64
}

// Engine executes deletion plans with per-path failure isolation.
type Engine struct {
	Log       zerolog.Logger
	DryRun    bool
	AssumeYes bool
	Stats     *stats.Manager // optional freed-bytes bookkeeping
	Confirm   io.Reader      // defaults to stdin
	Prompt    io.Writer      // defaults to stdout
}

// PlanCompleteObjects finds every inode whose entire hardlink set lies
// inside dir: the qualification test is link count == paths found in dir.
// Objects with additional links outside the directory are left untouched.
func PlanCompleteObjects(dir string, guard fsys.Guard, log zerolog.Logger) (*Plan, error) {
	ix, err := index.Build(dir, guard, log)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		TargetDir: ix.Root,
		Groups:    make(index.PathSet),
		Records:   make(map[inode.Identity]inode.Record),
	}
	for id, paths := range ix.Paths {
		rec := ix.Records[id]
		if rec.Nlink != uint64(len(paths)) {
			continue
		}
		sorted := append([]string(nil), paths...)
		sort.Strings(sorted)
		plan.Groups[id] = sorted
		plan.Records[id] = rec
	}
	return plan, nil
}

// PlanGlobalPurge collects every regular file's inode under dir, then
// discovers all their paths anywhere under the filesystem root. An empty
// fsRoot is auto-detected from dir.
func PlanGlobalPurge(dir, fsRoot string, guard fsys.Guard, log zerolog.Logger) (*Plan, error) {
	ix, err := index.Build(dir, guard, log)
	if err != nil {
		return nil, err
	}
	plan := &Plan{
		TargetDir: ix.Root,
		FSRoot:    fsRoot,
		Groups:    make(index.PathSet),
		Records:   ix.Records,
	}
	if len(ix.Paths) == 0 {
		return plan, nil
	}
	if plan.FSRoot == "" {
		plan.FSRoot, err = fsys.DetectRoot(ix.Root)
		if err != nil {
			return nil, err
		}
	}
	log.Info().Str("fs_root", plan.FSRoot).Msg("filesystem root")

	hits, err := index.FindAllPaths(plan.FSRoot, ix.InodeSet(), guard, log)
	if err != nil {
		return nil, err
	}
	plan.Groups = hits
	return plan, nil
}

// PlanSelectionPurge expands an interactive selection (path to identity)
// into every path on the filesystem referencing the selected inodes.
// Metadata is captured by re-statting the selected paths; files that
// vanished since selection are logged and dropped from the estimate.
func PlanSelectionPurge(selection map[string]inode.Identity, targetDir, fsRoot string, guard fsys.Guard, log zerolog.Logger) (*Plan, error) {
	plan := &Plan{
		TargetDir: targetDir,
		FSRoot:    fsRoot,
		Groups:    make(index.PathSet),
		Records:   make(map[inode.Identity]inode.Record),
	}
	want := make(map[inode.Identity]struct{}, len(selection))
	for path, id := range selection {
		want[id] = struct{}{}
		if _, ok := plan.Records[id]; ok {
			continue
		}
		info, err := os.Lstat(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("selected file unreadable")
			continue
		}
		if info.Mode().IsRegular() {
			plan.Records[id] = inode.FromFileInfo(info)
		}
	}
	if len(want) == 0 {
		return plan, nil
	}
	var err error
	if plan.FSRoot == "" {
		plan.FSRoot, err = fsys.DetectRoot(targetDir)
		if err != nil {
			return nil, err
		}
	}
	log.Info().Str("fs_root", plan.FSRoot).Msg("scanning filesystem for all hardlinks")

	hits, err := index.FindAllPaths(plan.FSRoot, want, guard, log)
	if err != nil {
		return nil, err
	}
	plan.Groups = hits
	return plan, nil
}

// SymlinkPlan lists symlinks to remove. There is no inode grouping: every
// link is its own candidate even when several point at the same target.
type SymlinkPlan struct {
	TargetDir  string
	Paths      []string
	TotalBytes int64
}

// PlanSymlinks collects every symlink under dir as a deletion candidate.
func PlanSymlinks(dir string, guard fsys.Guard, log zerolog.Logger) (*SymlinkPlan, error) {
	abs, err := index.SymlinksUnder(dir, guard, log)
	if err != nil {
		return nil, err
	}
	return &SymlinkPlan{TargetDir: dir, Paths: abs.Paths, TotalBytes: abs.TotalBytes}, nil
}

// ExecutePurge reports the plan, honors dry-run, asks for confirmation and
// unlinks every candidate path. Individual failures never abort the batch.
func (e *Engine) ExecutePurge(plan *Plan, action string) (Result, error) {
	if plan.InodeCount() == 0 {
		e.Log.Info().Str("dir", plan.TargetDir).Msg("nothing to delete")
		return Result{}, nil
	}
	freed := plan.FreedEstimate()
	e.Log.Info().
		Int("inodes", plan.InodeCount()).
		Int("paths", plan.PathCount()).
		Str("est_freed", humanize.IBytes(uint64(freed))).
		Msg("deletion candidates")
	for _, id := range plan.sortedIDs() {
		for _, p := range plan.Groups[id] {
			e.Log.Info().Str("path", p).Msg("[PURGE]")
		}
	}

	if e.DryRun {
		e.Log.Info().Msg("dry-run enabled, nothing was deleted")
		return Result{Inodes: plan.InodeCount(), FreedBytes: freed}, nil
	}
	if !e.AssumeYes && !e.confirm(action) {
		e.Log.Info().Msg("cancelled by user")
		return Result{}, nil
	}

	res := Result{Inodes: plan.InodeCount(), FreedBytes: freed}
	for _, id := range plan.sortedIDs() {
		res.RemovedPaths += e.removePaths(plan.Groups[id])
	}
	if e.Stats != nil && res.RemovedPaths > 0 {
		e.Stats.AddFreed(freed)
	}
	e.Log.Info().
		Int("removed", res.RemovedPaths).
		Str("est_freed", humanize.IBytes(uint64(freed))).
		Msg("purge finished")
	return res, nil
}

// ExecuteSymlinks reports and deletes the planned symlinks under the same
// dry-run and confirmation contract.
func (e *Engine) ExecuteSymlinks(plan *SymlinkPlan) (Result, error) {
	if len(plan.Paths) == 0 {
		e.Log.Info().Str("dir", plan.TargetDir).Msg("no symlinks to delete")
		return Result{}, nil
	}
	for _, p := range plan.Paths {
		e.Log.Info().Str("path", p).Msg("[SYMLINK]")
	}
	e.Log.Info().
		Int("symlinks", len(plan.Paths)).
		Str("total_size", humanize.IBytes(uint64(plan.TotalBytes))).
		Msg("symlink candidates")

	if e.DryRun {
		e.Log.Info().Msg("dry-run enabled, nothing was deleted")
		return Result{FreedBytes: plan.TotalBytes}, nil
	}
	if !e.AssumeYes && !e.confirm("Delete above symlinks?") {
		e.Log.Info().Msg("cancelled by user")
		return Result{}, nil
	}

	res := Result{FreedBytes: plan.TotalBytes}
	res.RemovedPaths = e.removePaths(plan.Paths)
	e.Log.Info().Int("removed", res.RemovedPaths).Msg("symlink removal finished")
	return res, nil
}

// removePaths unlinks each path, isolating failures: gone, permission
// denied, unexpectedly a directory, or any other OS error is logged and the
// batch continues. Returns the number of paths actually removed.
func (e *Engine) removePaths(paths []string) int {
	removed := 0
	for _, p := range paths {
		err := unlink(p)
		switch {
		case err == nil:
			removed++
		case os.IsNotExist(err):
			e.Log.Warn().Str("path", p).Msg("already gone")
		case os.IsPermission(err):
			e.Log.Error().Str("path", p).Msg("no permission to delete")
		default:
			if info, statErr := os.Lstat(p); statErr == nil && info.IsDir() {
				e.Log.Error().Str("path", p).Msg("path is a directory, expected a file")
			} else {
				e.Log.Error().Err(err).Str("path", p).Msg("delete failed")
			}
		}
	}
	return removed
}

// unlink removes exactly the directory entry; unlike os.Remove it never
// falls back to rmdir, so a path that raced into being a directory fails
// instead of deleting the directory.
func unlink(path string) error {
	if err := syscall.Unlink(path); err != nil {
		return &os.PathError{Op: "unlink", Path: path, Err: err}
	}
	return nil
}

// confirm prints "<action> [y/N]: " and accepts y or yes, case-insensitive.
// Anything else, including EOF, declines.
func (e *Engine) confirm(action string) bool {
	in := e.Confirm
	if in == nil {
		in = os.Stdin
	}
	out := e.Prompt
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintf(out, "%s [y/N]: ", action)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	ans := strings.ToLower(strings.TrimSpace(line))
	return ans == "y" || ans == "yes"
}
