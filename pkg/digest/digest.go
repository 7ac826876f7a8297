// Package digest computes the content fingerprints md2tex uses for staleness checks.
package digest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
)

// Prefix tags every fingerprint with its algorithm.
const Prefix = "sha256:"

// ChunkSize is the read buffer used when streaming files.
const ChunkSize = 8192

// File returns the fingerprint of the file at path. Memory use is bounded by ChunkSize
// regardless of file size.
func File(path string) (string, error) {
	f, err := os.Open(path) // #nosec G304 -- caller-chosen source/artifact path
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	sum, err := Reader(f)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", path, err)
	}
	return sum, nil
}

// Reader fingerprints everything read from r, reading at most ChunkSize bytes at a time.
func Reader(r io.Reader) (string, error) {
	h := sha256.New()
	buf := make([]byte, ChunkSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}
	}
	return Prefix + hex.EncodeToString(h.Sum(nil)), nil
}

// Bytes fingerprints in-memory content.
func Bytes(b []byte) string {
	sum := sha256.Sum256(b)
	return Prefix + hex.EncodeToString(sum[:])
}
