package minhash

import (
	"math"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/internal/hashutil"
)

// Simplified is a modulus-free 32-bit engine: h_i(x) = |a_i*x + b_i| with
// int32 wraparound. A result equal to math.MinInt32 maps to 0 because its
// absolute value is not representable.
type Simplified struct {
	coefs [][2]int32
}

// NewSimplified creates an engine with size hash functions.
func NewSimplified(size int, seed int64) (*Simplified, error) {
	err := checkSize(size)
	if err != nil {
		return nil, err
	}

	stream := hashutil.NewStream(seed)
	coefs := make([][2]int32, size)

	for i := range coefs {
		coefs[i][0] = stream.NextInt31()
		coefs[i][1] = stream.NextInt31()
	}

	return &Simplified{coefs: coefs}, nil
}

// NewSimplifiedForError creates an engine sized by SizeForError(errorRate).
func NewSimplifiedForError(errorRate float64, seed int64) (*Simplified, error) {
	size, err := SizeForError(errorRate)
	if err != nil {
		return nil, err
	}

	return NewSimplified(size, seed)
}

// Hash computes h_i(x).
func (s *Simplified) Hash(i int, x int32) int32 {
	ret := s.coefs[i][0]*x + s.coefs[i][1]
	if ret == math.MinInt32 {
		return 0
	}

	if ret < 0 {
		return -ret
	}

	return ret
}

// Signature returns the signature of the given shingles.
func (s *Simplified) Signature(shingles []int32) []int32 {
	sig := newSignature32(len(s.coefs))

	for _, x := range shingles {
		for i := range sig {
			sig[i] = min(sig[i], s.Hash(i, x))
		}
	}

	return sig
}

// SignatureSize returns the number of hash functions.
func (s *Simplified) SignatureSize() int {
	return len(s.coefs)
}

// Coefficients returns a copy of the (a, b) pairs widened to int64.
func (s *Simplified) Coefficients() [][2]int64 {
	out := make([][2]int64, len(s.coefs))
	for i, c := range s.coefs {
		out[i] = [2]int64{int64(c[0]), int64(c[1])}
	}

	return out
}
