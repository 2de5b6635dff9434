package signature

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"

	"github.com/autobrr/linkdupe/pkg/failure"
)

// Signature is a cheap, non-authoritative fingerprint. Different signatures
// prove files differ; equal signatures prove nothing.
type Signature uint64

// Compute fingerprints the sampled ranges of the file at path. The size is
// mixed in so that samplers reading a short prefix still separate sizes.
func Compute(path string, size int64, sampler Sampler) (Signature, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, failure.Unreadable(path, err, "open for sampling")
	}
	defer file.Close()

	h := xxhash.New()

	var sizeBuf [8]byte
	binary.LittleEndian.PutUint64(sizeBuf[:], uint64(size))
	_, _ = h.Write(sizeBuf[:])

	var buf []byte
	for _, r := range sampler.Ranges(size) {
		if r.Length <= 0 {
			continue
		}
		if int64(cap(buf)) < r.Length {
			buf = make([]byte, r.Length)
		}
		chunk := buf[:r.Length]

		// a short read means the file shrank since it was catalogued
		if _, err := file.ReadAt(chunk, r.Offset); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return 0, failure.Unreadable(path, err, "read sample")
		}
		_, _ = h.Write(chunk)
	}

	return Signature(h.Sum64()), nil
}

// Partition splits indices into subsets sharing a signature, keeping
// ingestion order inside each subset and ordering subsets by their first
// member. Subsets of one are dropped.
func Partition(indices []int, sigs map[int]Signature) [][]int {
	pos := make(map[Signature]int)
	var subsets [][]int

	for _, idx := range indices {
		sig, ok := sigs[idx]
		if !ok {
			continue
		}
		p, exists := pos[sig]
		if !exists {
			p = len(subsets)
			pos[sig] = p
			subsets = append(subsets, nil)
		}
		subsets[p] = append(subsets[p], idx)
	}

	kept := subsets[:0]
	for _, s := range subsets {
		if len(s) > 1 {
			kept = append(kept, s)
		}
	}
	return kept
}
