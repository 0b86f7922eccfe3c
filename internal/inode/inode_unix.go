//go:build !windows

package inode

import (
	"io/fs"
	"syscall"
)

// FromFileInfo captures a Record from lstat-style file info. When the
// platform Stat_t is unavailable the record carries only the apparent size
// and a link count of 1, so callers degrade to apparent-size accounting.
func FromFileInfo(info fs.FileInfo) Record {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return Record{Size: info.Size(), Nlink: 1}
	}
	return Record{
		Identity: Identity{Dev: uint64(stat.Dev), Ino: uint64(stat.Ino)},
		Size:     int64(stat.Size),
		Blocks:   int64(stat.Blocks),
		Nlink:    uint64(stat.Nlink),
	}
}
