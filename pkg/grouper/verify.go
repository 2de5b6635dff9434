package grouper

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"

	"github.com/autobrr/linkdupe/pkg/failure"
)

const compareChunk = 64 * 1024

// ErrContentMismatch marks two files whose digests matched but whose bytes
// differ.
var ErrContentMismatch = errors.New("content differs despite equal digest")

// Verify compares the two files byte by byte. A mismatch returns a
// digest_collision error; read failures return io_unreadable.
func Verify(canonical, candidate string) error {
	a, err := os.Open(canonical)
	if err != nil {
		return failure.Unreadable(canonical, err, "open for verification")
	}
	defer a.Close()

	b, err := os.Open(candidate)
	if err != nil {
		return failure.Unreadable(candidate, err, "open for verification")
	}
	defer b.Close()

	bufA := make([]byte, compareChunk)
	bufB := make([]byte, compareChunk)

	for {
		na, errA := io.ReadFull(a, bufA)
		nb, errB := io.ReadFull(b, bufB)

		if errA != nil && errA != io.EOF && errA != io.ErrUnexpectedEOF {
			return failure.Unreadable(canonical, errA, "read for verification")
		}
		if errB != nil && errB != io.EOF && errB != io.ErrUnexpectedEOF {
			return failure.Unreadable(candidate, errB, "read for verification")
		}

		if na != nb || !bytes.Equal(bufA[:na], bufB[:nb]) {
			return failure.New(failure.KindDigestCollision, candidate,
				errors.Wrapf(ErrContentMismatch, "compared against %q", canonical))
		}

		// both short or both empty: end of both files
		if errA != nil || errB != nil {
			return nil
		}
	}
}
