// Package minhash provides MinHash signature engines for set similarity estimation.
//
// A MinHash signature compresses a set of integer shingles into a fixed-size
// vector of minimum hash values. The probability that two signatures agree at
// one position equals the Jaccard similarity of the underlying sets, so the
// fraction of agreeing positions estimates it with an expected error of
// O(1/sqrt(n)) for a signature of size n.
//
// Each engine draws n pairs of coefficients (a_i, b_i) from a seeded
// splitmix64 stream at construction and never changes them afterwards.
// Engines built from the same seed and size produce comparable signatures,
// and are safe for concurrent use.
package minhash

import (
	"errors"
	"fmt"
	"math"
)

// DefaultSeed is the coefficient seed shared by every producer whose signatures
// must be compared with each other.
const DefaultSeed int64 = -8814109245394854757

var (
	// ErrNonPositiveSize is returned when the signature size is not positive.
	ErrNonPositiveSize = errors.New("minhash: signature size must be positive")

	// ErrNonPositiveDictSize is returned when the dictionary size is not positive.
	ErrNonPositiveDictSize = errors.New("minhash: dictionary size must be positive")

	// ErrDictSizeOverflow is returned when dict*dict+dict does not fit in int64.
	ErrDictSizeOverflow = errors.New("minhash: dictionary size causes multiplication overflow")

	// ErrInvalidErrorRate is returned when a target estimation error is outside (0, 1].
	ErrInvalidErrorRate = errors.New("minhash: estimation error must be in (0, 1]")

	// ErrSizeMismatch is returned when signatures of different sizes are combined.
	ErrSizeMismatch = errors.New("minhash: signature sizes do not match")

	// ErrVectorSize is returned when a boolean vector does not match the dictionary size.
	ErrVectorSize = errors.New("minhash: vector length must equal dictionary size")

	// ErrNoSignatures is returned when a union is requested over zero signatures.
	ErrNoSignatures = errors.New("minhash: no signatures to union")

	// ErrInvalidData is returned when deserialization data is invalid.
	ErrInvalidData = errors.New("minhash: invalid serialized data")
)

// Engine computes 32-bit MinHash signatures.
type Engine interface {
	// Signature returns the signature of the given shingles. Order of the
	// input does not matter; the result has SignatureSize entries.
	Signature(shingles []int32) []int32

	// Hash applies the i-th hash function to one element.
	Hash(i int, x int32) int32

	// SignatureSize returns the number of hash functions.
	SignatureSize() int

	// Coefficients returns a copy of the (a, b) pairs.
	Coefficients() [][2]int64
}

// Engine64 computes 64-bit MinHash signatures.
type Engine64 interface {
	// Signature returns the signature of the given values.
	Signature(values []int64) []int64

	// SignatureOf returns the signature of the single-element set {x}.
	SignatureOf(x int64) []int64

	// Hash applies the i-th hash function to one element.
	Hash(i int, x int64) int64

	// SignatureSize returns the number of hash functions.
	SignatureSize() int

	// Coefficients returns a copy of the (a, b) pairs.
	Coefficients() [][2]int64
}

// SizeForError returns the signature size needed to estimate similarity with
// the given expected error: 1/error².
func SizeForError(errorRate float64) (int, error) {
	if errorRate <= 0 || errorRate > 1 || math.IsNaN(errorRate) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidErrorRate, errorRate)
	}

	return int(1 / (errorRate * errorRate)), nil
}

// ExpectedError returns the expected estimation error of a signature of size n.
func ExpectedError(n int) float64 {
	if n <= 0 {
		return 1
	}

	return 1 / math.Sqrt(float64(n))
}

func copyCoefficients(coefs [][2]int64) [][2]int64 {
	out := make([][2]int64, len(coefs))
	copy(out, coefs)

	return out
}

func checkSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("%w: %d", ErrNonPositiveSize, size)
	}

	return nil
}
