// Package cli wires the scanning, purge and browsing pieces into commands.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/lumipallolabs/linkpurge/internal/browser"
	"github.com/lumipallolabs/linkpurge/internal/fsys"
	"github.com/lumipallolabs/linkpurge/internal/inode"
	"github.com/lumipallolabs/linkpurge/internal/logging"
	"github.com/lumipallolabs/linkpurge/internal/purge"
	"github.com/lumipallolabs/linkpurge/internal/sizer"
	"github.com/lumipallolabs/linkpurge/internal/snapshot"
	"github.com/lumipallolabs/linkpurge/internal/stats"
)

// exitError carries the process exit code for startup failures: a bad root
// argument or an unreadable snapshot file exits with code 2.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

// Execute runs the CLI and returns the process exit code. Cancellation and
// "nothing selected" are success.
func Execute() int {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		return 1
	}
	return 0
}

type rootOptions struct {
	xdev          bool
	interactive   bool
	noInteractive bool
	yes           bool
	dryRun        bool
	saveScan      string
	loadScan      string
	fsRoot        string
	verbose       bool
	logFile       string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "linkpurge <root>",
		Short: "Hardlink-aware disk analysis and cleanup",
		Long: `linkpurge analyzes a directory tree without double-counting hardlinks and
deletes every path (hardlink) of the files below it, across the whole
enclosing filesystem. By default an interactive browser is opened to pick
what to purge.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(opts, args[0])
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.xdev, "xdev", false, "do not cross filesystem boundaries (check device ids)")
	f.BoolVarP(&opts.interactive, "interactive", "i", true, "interactive selection of files to purge")
	f.BoolVar(&opts.noInteractive, "no-interactive", false, "disable interactive mode")
	f.BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	f.BoolVar(&opts.dryRun, "dry-run", false, "only report what would be done, delete nothing")
	f.StringVar(&opts.saveScan, "save-scan", "", "save scan results to a JSON snapshot file")
	f.StringVar(&opts.loadScan, "load-scan", "", "load scan results from a snapshot instead of scanning")
	f.StringVar(&opts.fsRoot, "fs-root", "", "filesystem root for global discovery (default: auto-detect)")
	f.BoolVarP(&opts.verbose, "verbose", "v", false, "debug-level logs")
	f.StringVar(&opts.logFile, "log", "", "mirror logs to this file")

	cmd.AddCommand(newDuCmd(), newCompleteCmd(), newSymlinksCmd())
	return cmd
}

func runPurge(opts *rootOptions, rootArg string) error {
	log, closeLog, err := logging.Setup(opts.verbose, opts.logFile)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer closeLog()

	mgr := stats.NewManager()
	if err := mgr.Load(); err != nil {
		log.Debug().Err(err).Msg("could not load stats")
	}
	engine := &purge.Engine{Log: log, DryRun: opts.dryRun, AssumeYes: opts.yes, Stats: mgr}
	defer func() {
		if err := mgr.Save(); err != nil {
			log.Debug().Err(err).Msg("could not save stats")
		}
	}()

	dir, err := validateRoot(rootArg, log)
	if err != nil {
		return err
	}
	if opts.loadScan != "" {
		return runLoadedPurge(opts, engine, mgr, log)
	}

	guard, err := fsys.NewGuard(dir, opts.xdev)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	var plan *purge.Plan
	if opts.interactive && !opts.noInteractive {
		log.Info().Str("dir", dir).Msg("interactive hardlink purge")
		sel, err := browser.Run(dir, guard)
		if err != nil {
			return err
		}
		if len(sel) == 0 {
			log.Info().Msg("no files selected")
			return nil
		}
		plan, err = purge.PlanSelectionPurge(sel, dir, opts.fsRoot, guard, log)
		if err != nil {
			return err
		}
	} else {
		log.Info().Str("dir", dir).Msg("global hardlink purge")
		plan, err = purge.PlanGlobalPurge(dir, opts.fsRoot, guard, log)
		if err != nil {
			return err
		}
	}

	if opts.saveScan != "" && plan.InodeCount() > 0 {
		if err := snapshot.Save(opts.saveScan, snapshotFromPlan(plan)); err != nil {
			return err
		}
		log.Info().Str("file", opts.saveScan).Msg("saved scan results")
	}

	res, err := engine.ExecutePurge(plan, "Delete ALL above paths (purge)?")
	if err != nil {
		return err
	}
	logSummary(log, mgr, res)
	return nil
}

func runLoadedPurge(opts *rootOptions, engine *purge.Engine, mgr *stats.Manager, log zerolog.Logger) error {
	snap, err := snapshot.Load(opts.loadScan)
	if err != nil {
		log.Error().Err(err).Str("file", opts.loadScan).Msg("cannot load scan file")
		return &exitError{code: 2, err: err}
	}
	log.Info().
		Str("dir", snap.TargetDir).
		Int("inodes", len(snap.Inodes)).
		Int("groups", len(snap.Hits)).
		Msg("loaded scan results")

	plan := &purge.Plan{
		TargetDir: snap.TargetDir,
		FSRoot:    snap.FSRoot,
		Groups:    snap.Hits,
		Records:   snap.Records,
	}
	res, err := engine.ExecutePurge(plan, "Delete ALL above paths (purge)?")
	if err != nil {
		return err
	}
	logSummary(log, mgr, res)
	return nil
}

func newDuCmd() *cobra.Command {
	var (
		depth    int
		apparent bool
		xdev     bool
		verbose  bool
		logFile  string
	)
	cmd := &cobra.Command{
		Use:           "du <root>",
		Short:         "Report per-directory usage without double-counting hardlinks",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := logging.Setup(verbose, logFile)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer closeLog()

			dir, err := validateRoot(args[0], log)
			if err != nil {
				return err
			}
			guard, err := fsys.NewGuard(dir, xdev)
			if err != nil {
				return &exitError{code: 2, err: err}
			}
			entries, err := sizer.DirSizes(dir, depth, apparent, guard, log)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%12s  %s\n", humanize.IBytes(uint64(e.Bytes)), e.Path)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&depth, "depth", 1, "report directories down to this depth (0 = root only)")
	cmd.Flags().BoolVar(&apparent, "apparent", false, "use apparent sizes instead of allocated blocks")
	cmd.Flags().BoolVar(&xdev, "xdev", false, "do not cross filesystem boundaries")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logs")
	cmd.Flags().StringVar(&logFile, "log", "", "mirror logs to this file")
	return cmd
}

func newCompleteCmd() *cobra.Command {
	var (
		yes     bool
		dryRun  bool
		xdev    bool
		verbose bool
		logFile string
	)
	cmd := &cobra.Command{
		Use:   "complete <root>",
		Short: "Delete files whose every hardlink lies inside the directory",
		Long: `Finds files whose total link count equals the number of paths discovered
inside the directory. Deleting all those paths deletes the object itself;
files with additional links elsewhere are left untouched.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := logging.Setup(verbose, logFile)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer closeLog()

			dir, err := validateRoot(args[0], log)
			if err != nil {
				return err
			}
			guard, err := fsys.NewGuard(dir, xdev)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			mgr := stats.NewManager()
			if err := mgr.Load(); err != nil {
				log.Debug().Err(err).Msg("could not load stats")
			}
			engine := &purge.Engine{Log: log, DryRun: dryRun, AssumeYes: yes, Stats: mgr}

			plan, err := purge.PlanCompleteObjects(dir, guard, log)
			if err != nil {
				return err
			}
			res, err := engine.ExecutePurge(plan, "Delete above files completely?")
			if err != nil {
				return err
			}
			if err := mgr.Save(); err != nil {
				log.Debug().Err(err).Msg("could not save stats")
			}
			logSummary(log, mgr, res)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report what would be done, delete nothing")
	cmd.Flags().BoolVar(&xdev, "xdev", false, "do not cross filesystem boundaries")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logs")
	cmd.Flags().StringVar(&logFile, "log", "", "mirror logs to this file")
	return cmd
}

func newSymlinksCmd() *cobra.Command {
	var (
		yes     bool
		dryRun  bool
		xdev    bool
		verbose bool
		logFile string
	)
	cmd := &cobra.Command{
		Use:           "symlinks <root>",
		Short:         "Delete every symbolic link inside the directory",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			log, closeLog, err := logging.Setup(verbose, logFile)
			if err != nil {
				return fmt.Errorf("open log file: %w", err)
			}
			defer closeLog()

			dir, err := validateRoot(args[0], log)
			if err != nil {
				return err
			}
			guard, err := fsys.NewGuard(dir, xdev)
			if err != nil {
				return &exitError{code: 2, err: err}
			}

			engine := &purge.Engine{Log: log, DryRun: dryRun, AssumeYes: yes}
			plan, err := purge.PlanSymlinks(dir, guard, log)
			if err != nil {
				return err
			}
			res, err := engine.ExecuteSymlinks(plan)
			if err != nil {
				return err
			}
			log.Info().
				Int("removed", res.RemovedPaths).
				Str("total_size", humanize.IBytes(uint64(res.FreedBytes))).
				Msg("symlink summary")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report what would be done, delete nothing")
	cmd.Flags().BoolVar(&xdev, "xdev", false, "do not cross filesystem boundaries")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug-level logs")
	cmd.Flags().StringVar(&logFile, "log", "", "mirror logs to this file")
	return cmd
}

// validateRoot checks the positional root argument: it must exist and be a
// directory, otherwise the process exits with code 2. The check follows
// symlinks, so a link to a directory is an acceptable root; traversal below
// it stays non-following.
func validateRoot(arg string, log zerolog.Logger) (string, error) {
	dir, err := filepath.Abs(arg)
	if err != nil {
		return "", &exitError{code: 2, err: err}
	}
	info, err := os.Stat(dir)
	if err != nil {
		log.Error().Str("dir", dir).Msg("directory does not exist")
		return "", &exitError{code: 2, err: err}
	}
	if !info.IsDir() {
		log.Error().Str("dir", dir).Msg("not a directory")
		return "", &exitError{code: 2, err: fmt.Errorf("not a directory: %s", dir)}
	}
	return dir, nil
}

func snapshotFromPlan(plan *purge.Plan) *snapshot.Snapshot {
	inodes := make(map[inode.Identity]struct{}, len(plan.Groups))
	for id := range plan.Groups {
		inodes[id] = struct{}{}
	}
	return &snapshot.Snapshot{
		TargetDir: plan.TargetDir,
		FSRoot:    plan.FSRoot,
		Inodes:    inodes,
		Records:   plan.Records,
		Hits:      plan.Groups,
	}
}

func logSummary(log zerolog.Logger, mgr *stats.Manager, res purge.Result) {
	log.Info().
		Int("inodes", res.Inodes).
		Int("paths_removed", res.RemovedPaths).
		Str("est_freed", humanize.IBytes(uint64(res.FreedBytes))).
		Str("freed_lifetime", humanize.IBytes(uint64(mgr.FreedLifetime()))).
		Msg("purge summary")
}
