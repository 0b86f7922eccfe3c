//go:build !windows

package fsys

import (
	"os"

	"golang.org/x/sys/unix"
)

// DeviceOf returns the device id of path without following symlinks.
func DeviceOf(path string) (uint64, error) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return 0, &os.PathError{Op: "lstat", Path: path, Err: err}
	}
	return uint64(st.Dev), nil
}
