package grouper

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/linkdupe/pkg/catalog"
	"github.com/autobrr/linkdupe/pkg/failure"
	"github.com/autobrr/linkdupe/pkg/hardlinkfilemap"
	"github.com/autobrr/linkdupe/pkg/hasher"
)

var epoch = time.Unix(1700000000, 0)

func rec(idx int, path string, inode, links uint64, mtime time.Time) catalog.FileRecord {
	return catalog.FileRecord{
		Index:   idx,
		Path:    path,
		Size:    100,
		ID:      hardlinkfilemap.FileID{Device: 1, Inode: inode},
		ModTime: mtime,
		Links:   links,
	}
}

func TestOrder_Compare(t *testing.T) {
	tests := []struct {
		name  string
		order Order
		a, b  catalog.FileRecord
		want  int
	}{
		{"more_links_wins", DefaultOrder, rec(0, "/z", 1, 3, epoch), rec(1, "/a", 2, 1, epoch), -1},
		{"older_wins", DefaultOrder, rec(0, "/z", 1, 1, epoch), rec(1, "/a", 2, 1, epoch.Add(time.Hour)), -1},
		{"path_tiebreak", DefaultOrder, rec(0, "/b", 1, 1, epoch), rec(1, "/a", 2, 1, epoch), 1},
		{"path_first", Order{ByPath}, rec(0, "/a", 1, 1, epoch), rec(1, "/b", 2, 9, epoch), -1},
		{"mtime_before_links", Order{ByModTime, ByLinks}, rec(0, "/a", 1, 1, epoch), rec(1, "/b", 2, 9, epoch.Add(time.Second)), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.order.Compare(tt.a, tt.b))
		})
	}
}

func TestParseOrder(t *testing.T) {
	order, err := ParseOrder(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOrder, order)

	order, err = ParseOrder([]string{"MTIME", "links"})
	require.NoError(t, err)
	assert.Equal(t, Order{ByModTime, ByLinks, ByPath}, order)

	_, err = ParseOrder([]string{"size"})
	assert.Error(t, err)
	_, err = ParseOrder([]string{"path", "path"})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	same := hasher.Digest{1}
	other := hasher.Digest{2}

	records := []catalog.FileRecord{
		rec(0, "/c.txt", 10, 1, epoch),
		rec(1, "/b.txt", 11, 1, epoch),
		rec(2, "/a.txt", 12, 1, epoch),
		// already linked pair, nothing to do
		rec(3, "/l1", 20, 2, epoch),
		rec(4, "/l2", 20, 2, epoch),
		// unique digest
		rec(5, "/u", 30, 1, epoch),
		// hashing failed, no digest
		rec(6, "/f", 40, 1, epoch),
	}
	digests := map[int]hasher.Digest{0: same, 1: same, 2: same, 3: other, 4: other, 5: {3}}

	groups, alreadyLinked := New(nil).Build(records, digests)
	require.Len(t, groups, 1)
	assert.Equal(t, 1, alreadyLinked)

	g := groups[0]
	assert.Equal(t, "/a.txt", g.Canonical.Path)
	assert.Equal(t, same, g.Digest)
	require.Len(t, g.Replaceable, 2)
	assert.Equal(t, "/b.txt", g.Replaceable[0].Path)
	assert.Equal(t, "/c.txt", g.Replaceable[1].Path)
	assert.Empty(t, g.Links())
}

func TestBuild_CanonicalLinksStayInMembers(t *testing.T) {
	d := hasher.Digest{9}
	records := []catalog.FileRecord{
		rec(0, "/x", 1, 1, epoch),
		rec(1, "/y1", 2, 2, epoch),
		rec(2, "/y2", 2, 2, epoch),
	}
	digests := map[int]hasher.Digest{0: d, 1: d, 2: d}

	groups, _ := New(DefaultOrder).Build(records, digests)
	require.Len(t, groups, 1)

	g := groups[0]
	assert.Equal(t, "/y1", g.Canonical.Path, "inode with more links is kept")
	require.Len(t, g.Replaceable, 1)
	assert.Equal(t, "/x", g.Replaceable[0].Path)
	require.Len(t, g.Links(), 1)
	assert.Equal(t, "/y2", g.Links()[0].Path)
}

func TestBuild_Deterministic(t *testing.T) {
	d := hasher.Digest{5}
	forward := []catalog.FileRecord{rec(0, "/q", 1, 1, epoch), rec(1, "/p", 2, 1, epoch), rec(2, "/r", 3, 1, epoch)}
	backward := []catalog.FileRecord{forward[2], forward[1], forward[0]}
	digests := map[int]hasher.Digest{0: d, 1: d, 2: d}

	g1, _ := New(nil).Build(forward, digests)
	g2, _ := New(nil).Build(backward, digests)
	require.Len(t, g1, 1)
	require.Len(t, g2, 1)
	assert.Equal(t, "/p", g1[0].Canonical.Path)
	assert.Equal(t, g1[0].Canonical, g2[0].Canonical)
	assert.Equal(t, g1[0].Replaceable, g2[0].Replaceable)
}

func TestVerify(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
		return p
	}

	a := write("a", "identical content")
	b := write("b", "identical content")
	c := write("c", "identical contenT")
	d := write("d", "identical content plus")

	assert.NoError(t, Verify(a, b))

	err := Verify(a, c)
	require.Error(t, err)
	assert.Equal(t, failure.KindDigestCollision, failure.KindOf(err))
	assert.ErrorIs(t, err, ErrContentMismatch)

	err = Verify(a, d)
	assert.Equal(t, failure.KindDigestCollision, failure.KindOf(err))

	err = Verify(a, filepath.Join(dir, "missing"))
	assert.Equal(t, failure.KindUnreadable, failure.KindOf(err))
}
