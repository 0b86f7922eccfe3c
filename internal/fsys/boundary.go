// Package fsys decides where one filesystem ends and another begins.
package fsys

import (
	"path/filepath"
)

// Guard restricts traversal to the device a scan started on. The zero
// Guard allows everything.
type Guard struct {
	dev     uint64
	enabled bool
}

// NewGuard stats root without following symlinks and pins its device id.
// When restrict is false the returned guard allows all devices.
func NewGuard(root string, restrict bool) (Guard, error) {
	if !restrict {
		return Guard{}, nil
	}
	dev, err := DeviceOf(root)
	if err != nil {
		return Guard{}, err
	}
	return Guard{dev: dev, enabled: true}, nil
}

// Allows reports whether a candidate device id belongs to the guarded
// filesystem.
func (g Guard) Allows(dev uint64) bool {
	return !g.enabled || dev == g.dev
}

// Restricted reports whether boundary restriction is active.
func (g Guard) Restricted() bool {
	return g.enabled
}

// DetectRoot ascends from path while the parent directory stays on the same
// device and returns the highest ancestor still on it, which is effectively
// the mount point. All stats are non-following so a symlinked mount point
// cannot pull the walk onto another filesystem. DetectRoot of "/" is "/".
func DetectRoot(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	dev, err := DeviceOf(abs)
	if err != nil {
		return "", err
	}
	cur := abs
	for {
		parent := filepath.Dir(cur)
		if parent == cur {
			return cur, nil
		}
		parentDev, err := DeviceOf(parent)
		if err != nil || parentDev != dev {
			return cur, nil
		}
		cur = parent
	}
}
