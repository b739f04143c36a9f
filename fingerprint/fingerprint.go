// Package fingerprint computes the content identifiers used to deduplicate samples.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
)

// ChunkSize is the number of bytes fed to the digest per read.
const ChunkSize = 4096

// Sha256File returns the lowercase hex sha256 digest of the file at fpath. The file is read in
// ChunkSize pieces and never held in memory as a whole.
func Sha256File(fpath string) (string, error) {
	f, err := os.Open(fpath)
	if err != nil {
		return "", fmt.Errorf("opening %s for hashing: %w", fpath, err)
	}
	defer f.Close()

	digest, err := Sha256Reader(f)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", fpath, err)
	}
	return digest, nil
}

// Sha256Reader drains r and returns the lowercase hex sha256 digest of everything read.
func Sha256Reader(r io.Reader) (string, error) {
	hr := NewHashingReader(r)
	chunk := make([]byte, ChunkSize)
	for {
		_, err := hr.Read(chunk)
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return hr.Digest(), nil
}

// HashingReader passes reads through while feeding every byte read to a sha256 digest.
type HashingReader struct {
	r      io.Reader
	hasher hash.Hash
	read   int64
}

func NewHashingReader(r io.Reader) *HashingReader {
	return &HashingReader{r: r, hasher: sha256.New()}
}

func (h *HashingReader) Read(p []byte) (int, error) {
	n, err := h.r.Read(p)
	if n > 0 {
		h.hasher.Write(p[:n])
		h.read += int64(n)
	}
	return n, err
}

// Digest returns the lowercase hex digest of the bytes read so far.
func (h *HashingReader) Digest() string {
	return hex.EncodeToString(h.hasher.Sum(nil))
}

// BytesRead returns how many bytes have passed through the reader.
func (h *HashingReader) BytesRead() int64 {
	return h.read
}

// IsDigest reports whether s looks like a value produced by this package.
func IsDigest(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
