package hasher

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/autobrr/linkdupe/pkg/failure"
)

// blockSize is the read buffer used when streaming file content.
const blockSize = 128 * 1024

// Digest is a BLAKE3 digest of a file's full content.
type Digest [32]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ParseDigest parses the hex form produced by Digest.String.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(d) {
		return d, fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(d))
	}
	copy(d[:], decoded)
	return d, nil
}

var bufferPool = sync.Pool{
	New: func() any {
		b := make([]byte, blockSize)
		return &b
	},
}

// HashFile streams the file at path through BLAKE3. Memory use is constant
// regardless of file size.
func HashFile(path string) (Digest, error) {
	file, err := os.Open(path)
	if err != nil {
		return Digest{}, failure.Unreadable(path, err, "open for hashing")
	}
	defer file.Close()

	return HashReader(path, file)
}

func HashReader(path string, r io.Reader) (Digest, error) {
	h := blake3.New()

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)
	buf := *bufPtr

	// read loop instead of io.CopyBuffer: *os.File implements WriterTo, which
	// would bypass buf
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return Digest{}, failure.Unreadable(path, err, "hash content")
		}
	}

	var d Digest
	copy(d[:], h.Sum(nil))
	return d, nil
}
