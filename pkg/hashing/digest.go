package hashing

import (
	"encoding/hex"
	"io"
)

// Digest computes the hex-encoded checksum of r using the specified
// algorithm.
func Digest(algorithm Algorithm, r io.Reader) (string, error) {
	h := algorithm.Factory()()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
