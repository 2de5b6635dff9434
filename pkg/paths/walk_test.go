package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/linkdupe/pkg/catalog"
)

func collect(t *testing.T, roots []string, opts Options) []catalog.Entry {
	t.Helper()
	var out []catalog.Entry
	for e, err := range Walk(roots, opts) {
		require.NoError(t, err)
		out = append(out, e)
	}
	return out
}

func pathsOf(entries []catalog.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

func tree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "sub/c.txt", "skip/d.txt", "sub/deep/e.bin"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(name), 0o644))
	}
	return dir
}

func TestWalk_SortedFiles(t *testing.T) {
	dir := tree(t)

	entries := collect(t, []string{dir}, Options{})
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "skip/d.txt"),
		filepath.Join(dir, "sub/c.txt"),
		filepath.Join(dir, "sub/deep/e.bin"),
	}, pathsOf(entries))

	for _, e := range entries {
		assert.NoError(t, e.Err)
		assert.True(t, e.Mode.IsRegular())
		assert.NotZero(t, e.ID.Inode, e.Path)
		assert.Equal(t, uint64(1), e.Links, e.Path)
		rel, err := filepath.Rel(dir, e.Path)
		require.NoError(t, err)
		assert.Equal(t, int64(len(rel)), e.Size, e.Path)
	}
}

func TestWalk_ExcludePaths(t *testing.T) {
	dir := tree(t)

	entries := collect(t, []string{dir}, Options{ExcludePaths: []string{`/skip$`, `\.bin$`}})
	assert.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "sub/c.txt"),
	}, pathsOf(entries))
}

func TestWalk_SymlinksAreNotFollowed(t *testing.T) {
	dir := tree(t)
	require.NoError(t, os.Symlink(filepath.Join(dir, "sub"), filepath.Join(dir, "link")))

	var link catalog.Entry
	for _, e := range collect(t, []string{dir}, Options{}) {
		assert.NotContains(t, e.Path, filepath.Join(dir, "link", "c.txt"))
		if e.Path == filepath.Join(dir, "link") {
			link = e
		}
	}
	require.Equal(t, filepath.Join(dir, "link"), link.Path)
	assert.NotZero(t, link.Mode&os.ModeSymlink)
}

func TestWalk_HardlinksShareID(t *testing.T) {
	dir := tree(t)
	require.NoError(t, os.Link(filepath.Join(dir, "a.txt"), filepath.Join(dir, "z.txt")))

	byPath := map[string]catalog.Entry{}
	for _, e := range collect(t, []string{dir}, Options{}) {
		byPath[filepath.Base(e.Path)] = e
	}
	assert.Equal(t, byPath["a.txt"].ID, byPath["z.txt"].ID)
	assert.Equal(t, uint64(2), byPath["z.txt"].Links)
}

func TestWalk_Errors(t *testing.T) {
	var errs int
	for _, err := range Walk([]string{filepath.Join(t.TempDir(), "missing")}, Options{}) {
		if err != nil {
			errs++
		}
	}
	assert.Equal(t, 1, errs)

	for _, err := range Walk([]string{t.TempDir()}, Options{ExcludePaths: []string{"("}}) {
		assert.ErrorContains(t, err, "compile exclude pattern")
	}
}
