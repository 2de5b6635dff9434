package hardlinkfilemap

import (
	"fmt"
)

// FileID represents a unique file identifier (device ID + inode number).
// Two paths with the same FileID are the same physical data.
type FileID struct {
	Device uint64 `json:"device"`
	Inode  uint64 `json:"inode"`
}

// String returns a string representation of the FileID.
func (f FileID) String() string {
	return fmt.Sprintf("%d:%d", f.Device, f.Inode)
}

// Equal checks if two FileIDs are equal.
func (f FileID) Equal(other FileID) bool {
	return f.Device == other.Device && f.Inode == other.Inode
}

// SameDevice reports whether a hardlink between the two files is possible.
func (f FileID) SameDevice(other FileID) bool {
	return f.Device == other.Device
}

// Index maps a FileID to the first record index seen with it.
type Index struct {
	hardlinkFileMap map[FileID]int
}
