package hardlinkfilemap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndex_AddAndRepresentative(t *testing.T) {
	idx := New()
	a := FileID{Device: 1, Inode: 10}
	b := FileID{Device: 1, Inode: 11}

	assert.True(t, idx.Add(a, 0))
	assert.True(t, idx.Add(b, 1))
	assert.False(t, idx.Add(a, 2))

	rep, ok := idx.Representative(a)
	require.True(t, ok)
	assert.Equal(t, 0, rep)
	rep, ok = idx.Representative(b)
	require.True(t, ok)
	assert.Equal(t, 1, rep)
	assert.Equal(t, 2, idx.Length())

	_, ok = idx.Representative(FileID{Device: 9, Inode: 9})
	assert.False(t, ok)
}

func TestDistinct(t *testing.T) {
	a := FileID{Device: 1, Inode: 1}
	b := FileID{Device: 2, Inode: 1}
	assert.Equal(t, 2, Distinct([]FileID{a, b, a}))
	assert.Equal(t, 0, Distinct(nil))
}

func TestFileID(t *testing.T) {
	a := FileID{Device: 3, Inode: 7}
	assert.Equal(t, "3:7", a.String())
	assert.True(t, a.Equal(FileID{Device: 3, Inode: 7}))
	assert.True(t, a.SameDevice(FileID{Device: 3, Inode: 8}))
	assert.False(t, a.SameDevice(FileID{Device: 4, Inode: 7}))
}

func TestLinkInfo_Hardlink(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src")
	dst := filepath.Join(dir, "dst")
	require.NoError(t, os.WriteFile(src, []byte("data"), 0o644))
	require.NoError(t, os.Link(src, dst))

	srcInfo, err := os.Lstat(src)
	require.NoError(t, err)
	dstInfo, err := os.Lstat(dst)
	require.NoError(t, err)

	srcID, srcLinks, err := LinkInfo(src, srcInfo)
	require.NoError(t, err)
	dstID, _, err := LinkInfo(dst, dstInfo)
	require.NoError(t, err)

	assert.Equal(t, srcID, dstID)
	assert.Equal(t, uint64(2), srcLinks)
}
