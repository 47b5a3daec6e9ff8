// Package hashing computes the content fingerprints the indexing
// pipeline uses to decide whether a file needs re-chunking.
package hashing

import (
	"io"
	"os"

	"github.com/zeebo/blake3"
)

// BufferSize is the streaming read chunk size used while hashing.
const BufferSize = 64 * 1024

// HashFile streams path's contents through Blake3 without loading the
// whole file into memory, returning the 32-byte digest.
func HashFile(path string) ([32]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, err
	}
	defer f.Close()
	return HashReader(f)
}

// HashReader streams r through Blake3, returning the 32-byte digest.
func HashReader(r io.Reader) ([32]byte, error) {
	h := blake3.New()
	buf := make([]byte, BufferSize)
	if _, err := io.CopyBuffer(h, r, buf); err != nil {
		return [32]byte{}, err
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out, nil
}

// HashBytes hashes an in-memory byte slice directly, useful in tests and
// for already-loaded small files.
func HashBytes(b []byte) [32]byte {
	var out [32]byte
	sum := blake3.Sum256(b)
	copy(out[:], sum[:])
	return out
}
