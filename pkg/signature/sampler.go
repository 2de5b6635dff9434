package signature

import (
	"fmt"
	"strings"
)

const (
	DefaultWindow  = 4 * 1024
	DefaultSamples = 4
)

// Range is a byte window [Offset, Offset+Length) of a file.
type Range struct {
	Offset int64
	Length int64
}

// Sampler decides which parts of a file of a given size are read for its
// quick signature. Ranges must be deterministic for a size, sorted and
// non-overlapping.
type Sampler interface {
	Ranges(size int64) []Range
	Name() string
}

// Prefix reads only the leading window.
type Prefix struct {
	Window int64
}

func (p Prefix) Name() string {
	return "prefix"
}

func (p Prefix) Ranges(size int64) []Range {
	return []Range{{Offset: 0, Length: min(size, window(p.Window))}}
}

// Sparse reads the head, the tail and evenly spaced interior windows. Files
// that differ only near the end are pruned here instead of at full hashing.
type Sparse struct {
	Window  int64
	Samples int
}

func (s Sparse) Name() string {
	return "sparse"
}

func (s Sparse) Ranges(size int64) []Range {
	w := window(s.Window)
	samples := s.Samples
	if samples < 2 {
		samples = 2
	}

	if size <= w*int64(samples) {
		return []Range{{Offset: 0, Length: size}}
	}

	ranges := make([]Range, 0, samples)
	step := (size - w) / int64(samples-1)
	for i := 0; i < samples; i++ {
		off := int64(i) * step
		if i == samples-1 {
			off = size - w
		}
		ranges = append(ranges, Range{Offset: off, Length: w})
	}
	return ranges
}

// Adaptive reads a prefix for files that fit in a handful of windows and
// switches to sparse sampling beyond that.
type Adaptive struct {
	Window  int64
	Samples int
}

func (a Adaptive) Name() string {
	return "adaptive"
}

func (a Adaptive) Ranges(size int64) []Range {
	sparse := Sparse{Window: a.Window, Samples: a.Samples}
	if size <= window(a.Window)*int64(max(a.Samples, 2)) {
		return Prefix{Window: a.Window}.Ranges(size)
	}
	return sparse.Ranges(size)
}

// NewSampler resolves a configured strategy name.
func NewSampler(strategy string, win int64, samples int) (Sampler, error) {
	if samples <= 0 {
		samples = DefaultSamples
	}

	switch strings.ToLower(strategy) {
	case "prefix":
		return Prefix{Window: win}, nil
	case "sparse":
		return Sparse{Window: win, Samples: samples}, nil
	case "", "adaptive":
		return Adaptive{Window: win, Samples: samples}, nil
	default:
		return nil, fmt.Errorf("unknown signature strategy: %q", strategy)
	}
}

func window(w int64) int64 {
	if w <= 0 {
		return DefaultWindow
	}
	return w
}
