// Package hashing provides the set of checksum algorithms an Entry's
// checksum may be computed with.
package hashing

import (
	"crypto/sha1"
	"crypto/sha256"
	"fmt"
	"hash"

	"github.com/zeebo/blake3"
)

// Algorithm identifies a checksum algorithm.
type Algorithm uint8

const (
	// AlgorithmDefault indicates that the engine's default algorithm
	// should be used. It is not a concrete algorithm and cannot be used
	// with Factory.
	AlgorithmDefault Algorithm = iota
	// AlgorithmSHA1 indicates SHA-1.
	AlgorithmSHA1
	// AlgorithmSHA256 indicates SHA-256.
	AlgorithmSHA256
	// AlgorithmBLAKE3 indicates BLAKE3, a fast, non-cryptographically-gated
	// option for large trees where SHA-1/SHA-256 throughput dominates
	// comparison time.
	AlgorithmBLAKE3
)

// IsDefault indicates whether the algorithm is AlgorithmDefault.
func (a Algorithm) IsDefault() bool {
	return a == AlgorithmDefault
}

// MarshalText implements encoding.TextMarshaler.
func (a Algorithm) MarshalText() ([]byte, error) {
	var result string
	switch a {
	case AlgorithmDefault:
	case AlgorithmSHA1:
		result = "sha1"
	case AlgorithmSHA256:
		result = "sha256"
	case AlgorithmBLAKE3:
		result = "blake3"
	default:
		result = "unknown"
	}
	return []byte(result), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Algorithm) UnmarshalText(textBytes []byte) error {
	switch string(textBytes) {
	case "", "default":
		*a = AlgorithmDefault
	case "sha1":
		*a = AlgorithmSHA1
	case "sha256":
		*a = AlgorithmSHA256
	case "blake3":
		*a = AlgorithmBLAKE3
	default:
		return fmt.Errorf("unknown hashing algorithm specification: %s", string(textBytes))
	}
	return nil
}

// Supported indicates whether the algorithm is a valid, non-default value.
func (a Algorithm) Supported() bool {
	switch a {
	case AlgorithmSHA1, AlgorithmSHA256, AlgorithmBLAKE3:
		return true
	default:
		return false
	}
}

// Description returns a human-readable description of the algorithm.
func (a Algorithm) Description() string {
	switch a {
	case AlgorithmDefault:
		return "Default"
	case AlgorithmSHA1:
		return "SHA-1"
	case AlgorithmSHA256:
		return "SHA-256"
	case AlgorithmBLAKE3:
		return "BLAKE3"
	default:
		return "Unknown"
	}
}

// Factory returns a constructor for the algorithm's hash.Hash
// implementation. It panics if invoked on a default or invalid value.
func (a Algorithm) Factory() func() hash.Hash {
	switch a {
	case AlgorithmSHA1:
		return sha1.New
	case AlgorithmSHA256:
		return sha256.New
	case AlgorithmBLAKE3:
		return func() hash.Hash { return blake3.New() }
	default:
		panic("default or unknown hashing algorithm")
	}
}
