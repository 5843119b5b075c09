package minhash

import (
	"fmt"
	"math"
	"slices"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/internal/hashutil"
)

// DictSized hashes elements of a dictionary of known size with
// h_i(x) = (a_i*x + b_i) mod dictSize.
type DictSized struct {
	coefs    [][2]int64
	dictSize int64
}

// NewDictSized creates an engine with size hash functions over a dictionary
// of dictSize elements. It rejects dictionary sizes for which
// dictSize*dictSize+dictSize would overflow int64.
func NewDictSized(size int, dictSize, seed int64) (*DictSized, error) {
	err := checkSize(size)
	if err != nil {
		return nil, err
	}

	if dictSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNonPositiveDictSize, dictSize)
	}

	if dictSize > (math.MaxInt64-dictSize)/dictSize {
		return nil, fmt.Errorf("%w: %d", ErrDictSizeOverflow, dictSize)
	}

	stream := hashutil.NewStream(seed)
	coefs := make([][2]int64, size)

	for i := range coefs {
		coefs[i][0] = stream.NextInt63n(dictSize)
		coefs[i][1] = stream.NextInt63n(dictSize)
	}

	return &DictSized{coefs: coefs, dictSize: dictSize}, nil
}

// NewDictSizedForError creates an engine sized by SizeForError(errorRate).
func NewDictSizedForError(errorRate float64, dictSize, seed int64) (*DictSized, error) {
	size, err := SizeForError(errorRate)
	if err != nil {
		return nil, err
	}

	return NewDictSized(size, dictSize, seed)
}

// Hash computes h_i(x) = (a_i*x + b_i) mod dictSize.
func (d *DictSized) Hash(i int, x int32) int32 {
	return int32((d.coefs[i][0]*int64(x) + d.coefs[i][1]) % d.dictSize) //nolint:gosec // bounded by dictSize.
}

// Signature returns the signature of the given shingles.
func (d *DictSized) Signature(shingles []int32) []int32 {
	sig := newSignature32(len(d.coefs))

	for _, x := range shingles {
		for i := range sig {
			sig[i] = min(sig[i], d.Hash(i, x))
		}
	}

	return sig
}

// SignatureOfSet returns the signature of a set of elements.
func (d *DictSized) SignatureOfSet(set map[int32]struct{}) []int32 {
	elems := make([]int32, 0, len(set))
	for x := range set {
		elems = append(elems, x)
	}

	slices.Sort(elems)

	return d.Signature(elems)
}

// SignatureOfVector returns the signature of a set given as a boolean vector:
// position r is in the set when vector[r] is true. The vector length must
// equal the dictionary size.
func (d *DictSized) SignatureOfVector(vector []bool) ([]int32, error) {
	if int64(len(vector)) != d.dictSize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrVectorSize, len(vector), d.dictSize)
	}

	elems := make([]int32, 0)

	for r, present := range vector {
		if present {
			elems = append(elems, int32(r)) //nolint:gosec // r < dictSize checked above.
		}
	}

	return d.Signature(elems), nil
}

// Similarity estimates the Jaccard similarity of two signatures produced by this engine.
func (d *DictSized) Similarity(sig1, sig2 []int32) (float64, error) {
	if len(sig1) != len(sig2) {
		return 0, fmt.Errorf("%w: %d != %d", ErrSizeMismatch, len(sig1), len(sig2))
	}

	if len(sig1) == 0 {
		return 0, nil
	}

	matches := 0

	for i := range sig1 {
		if sig1[i] == sig2[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(sig1)), nil
}

// ExpectedError returns the expected estimation error of this engine's signatures.
func (d *DictSized) ExpectedError() float64 {
	return ExpectedError(len(d.coefs))
}

// DictSize returns the dictionary size.
func (d *DictSized) DictSize() int64 {
	return d.dictSize
}

// SignatureSize returns the number of hash functions.
func (d *DictSized) SignatureSize() int {
	return len(d.coefs)
}

// Coefficients returns a copy of the (a, b) pairs.
func (d *DictSized) Coefficients() [][2]int64 {
	return copyCoefficients(d.coefs)
}

func newSignature32(size int) []int32 {
	sig := make([]int32, size)
	for i := range sig {
		sig[i] = math.MaxInt32
	}

	return sig
}
