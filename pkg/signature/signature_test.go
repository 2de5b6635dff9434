package signature

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autobrr/linkdupe/pkg/failure"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSamplers_Ranges(t *testing.T) {
	tests := []struct {
		name    string
		sampler Sampler
		size    int64
		want    []Range
	}{
		{"prefix_small", Prefix{Window: 16}, 10, []Range{{0, 10}}},
		{"prefix_large", Prefix{Window: 16}, 100, []Range{{0, 16}}},
		{"prefix_default_window", Prefix{}, 1 << 20, []Range{{0, DefaultWindow}}},
		{"sparse_whole_file", Sparse{Window: 10, Samples: 3}, 30, []Range{{0, 30}}},
		{"sparse_three", Sparse{Window: 10, Samples: 3}, 100, []Range{{0, 10}, {45, 10}, {90, 10}}},
		{"sparse_min_two_samples", Sparse{Window: 10, Samples: 1}, 100, []Range{{0, 10}, {90, 10}}},
		{"adaptive_small", Adaptive{Window: 10, Samples: 3}, 25, []Range{{0, 10}}},
		{"adaptive_large", Adaptive{Window: 10, Samples: 3}, 100, []Range{{0, 10}, {45, 10}, {90, 10}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sampler.Ranges(tt.size))
		})
	}
}

func TestNewSampler(t *testing.T) {
	s, err := NewSampler("PREFIX", 64, 0)
	require.NoError(t, err)
	assert.Equal(t, Prefix{Window: 64}, s)

	s, err = NewSampler("", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "adaptive", s.Name())

	_, err = NewSampler("random", 0, 0)
	assert.Error(t, err)
}

func TestCompute(t *testing.T) {
	dir := t.TempDir()
	base := bytes.Repeat([]byte("abcdefgh"), 1024)
	tail := append([]byte(nil), base...)
	tail[len(tail)-1] = 'Z'

	a := writeFile(t, dir, "a", base)
	b := writeFile(t, dir, "b", base)
	c := writeFile(t, dir, "c", tail)
	size := int64(len(base))

	sparse := Sparse{Window: 512, Samples: 4}
	sigA, err := Compute(a, size, sparse)
	require.NoError(t, err)
	sigB, err := Compute(b, size, sparse)
	require.NoError(t, err)
	sigC, err := Compute(c, size, sparse)
	require.NoError(t, err)

	assert.Equal(t, sigA, sigB)
	assert.NotEqual(t, sigA, sigC, "sparse sampling reads the tail")

	prefA, err := Compute(a, size, Prefix{Window: 512})
	require.NoError(t, err)
	prefC, err := Compute(c, size, Prefix{Window: 512})
	require.NoError(t, err)
	assert.Equal(t, prefA, prefC, "prefix sampling cannot see the last byte")
}

func TestCompute_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Compute(filepath.Join(dir, "missing"), 10, Prefix{})
	assert.Equal(t, failure.KindUnreadable, failure.KindOf(err))

	shrunk := writeFile(t, dir, "shrunk", []byte("short"))
	_, err = Compute(shrunk, 100, Sparse{Window: 10, Samples: 2})
	assert.Equal(t, failure.KindUnreadable, failure.KindOf(err))
}

func TestPartition(t *testing.T) {
	sigs := map[int]Signature{0: 7, 1: 9, 2: 7, 3: 1, 4: 9}
	// 5 has no signature: it failed sampling
	got := Partition([]int{0, 1, 2, 3, 4, 5}, sigs)
	assert.Equal(t, [][]int{{0, 2}, {1, 4}}, got)
}
