//go:build !windows

package hardlinkfilemap

import (
	"io/fs"
	"syscall"

	"github.com/pkg/errors"
)

// LinkInfo returns the unique file identifier (device + inode) and link count
// for an already stat'ed file. The path is only used on platforms whose
// FileInfo does not carry the identifier.
func LinkInfo(_ string, fi fs.FileInfo) (FileID, uint64, error) {
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return FileID{}, 0, errors.New("failed to get file identifier")
	}

	return FileID{
		Device: uint64(stat.Dev),
		Inode:  uint64(stat.Ino),
	}, uint64(stat.Nlink), nil
}

// BlockSize returns the preferred I/O block size of the file's filesystem.
func BlockSize(fi fs.FileInfo) int64 {
	stat, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return int64(stat.Blksize)
}
