// Package inode identifies physical file objects and measures their disk usage.
package inode

// blockSize is the unit st_blocks is reported in. It is always 512-byte
// sectors regardless of the filesystem block size.
const blockSize = 512

// Identity names a physical file object by (device id, inode number).
// Two paths with equal identities are hardlinks to the same object.
// Identities are only stable for the lifetime of one scan; inode numbers
// are reused after deletion, so never cache them across processes without
// revalidation.
type Identity struct {
	Dev uint64
	Ino uint64
}

// Record is a point-in-time capture of an inode's metadata. It is a
// snapshot, not a live view.
type Record struct {
	Identity Identity
	Size     int64  // apparent size in bytes
	Blocks   int64  // allocated blocks in 512-byte units
	Nlink    uint64 // total hardlink count at capture time
}

// Usage returns allocated bytes (Blocks * 512) when block accounting is
// available, falling back to the apparent size.
func (r Record) Usage() int64 {
	if r.Blocks > 0 {
		return r.Blocks * blockSize
	}
	return r.Size
}

// Bytes returns the apparent size when apparent is set, else Usage.
func (r Record) Bytes(apparent bool) int64 {
	if apparent {
		return r.Size
	}
	return r.Usage()
}
