// Package jaccard computes the Jaccard similarity |A∩B| / |A∪B| of sets,
// sorted arrays and MinHash signatures.
//
// Both-empty inputs have similarity 1.0 everywhere except IDs, which treats
// two empty ID lists as a caller error. The threshold variants return the
// exact similarity when it reaches the threshold and 0 otherwise; they only
// differ from the exact functions in how early they can give up.
package jaccard

import (
	"cmp"
	"errors"
	"fmt"
)

// MinWorthyLength is the input length below which the threshold variants
// fall back to the exact computation.
const MinWorthyLength = 20

// budgetEpsilon absorbs float rounding in len*(1-threshold).
const budgetEpsilon = 1e-9

var (
	// ErrLengthMismatch is returned when two signatures of different lengths are compared.
	ErrLengthMismatch = errors.New("jaccard: signature lengths differ")

	// ErrBothEmpty is returned by IDs when both ID lists are empty.
	ErrBothEmpty = errors.New("jaccard: both inputs are empty")
)

// Sets returns the similarity of two hash sets.
func Sets[T comparable](a, b map[T]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	if len(b) < len(a) {
		a, b = b, a
	}

	count := 0

	for x := range a {
		if _, ok := b[x]; ok {
			count++
		}
	}

	return ratio(count, len(a), len(b))
}

// Sorted returns the similarity of two ascending, duplicate-free slices.
func Sorted[T cmp.Ordered](a, b []T) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}

	return ratio(intersect(a, b), len(a), len(b))
}

// IDs is Sorted for document ID lists. Two empty lists are an error.
func IDs(a, b []int64) (float64, error) {
	if len(a) == 0 && len(b) == 0 {
		return 0, ErrBothEmpty
	}

	return ratio(intersect(a, b), len(a), len(b)), nil
}

// MinHash returns the fraction of positions at which two signatures agree.
func MinHash[T comparable](a, b []T) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}

	if len(a) == 0 {
		return 1, nil
	}

	matches := 0

	for i := range a {
		if a[i] == b[i] {
			matches++
		}
	}

	return float64(matches) / float64(len(a)), nil
}

// MinHashWithThreshold is MinHash that returns 0 as soon as more than
// len*(1-threshold) positions disagree.
func MinHashWithThreshold[T comparable](threshold float64, a, b []T) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}

	if len(a) == 0 {
		return 1, nil
	}

	budget := mismatchBudget(len(a), threshold)
	misses := 0

	for i := range a {
		if a[i] != b[i] {
			misses++
			if misses > budget {
				return 0, nil
			}
		}
	}

	return atLeast(float64(len(a)-misses)/float64(len(a)), threshold), nil
}

// SortedWithThreshold is Sorted that returns 0 as soon as either side has
// more than len*(1-threshold) unmatched elements. Inputs must be ascending
// and duplicate-free.
func SortedWithThreshold[T cmp.Ordered](threshold float64, a, b []T) float64 {
	switch {
	case len(a) == 0 && len(b) == 0:
		return 1
	case len(a) == 0 || len(b) == 0:
		return atLeast(0, threshold)
	case len(a) < MinWorthyLength || len(b) < MinWorthyLength:
		return atLeast(Sorted(a, b), threshold)
	}

	maxDif1 := mismatchBudget(len(a), threshold)
	maxDif2 := mismatchBudget(len(b), threshold)

	if outOfRange(a, b, maxDif1) || outOfRange(b, a, maxDif2) {
		return 0
	}

	count, dif1, dif2 := 0, 0, 0

	for i1, i2 := 0, 0; i1 < len(a) && i2 < len(b); {
		switch {
		case a[i1] < b[i2]:
			i1++
			dif1++

			if dif1 > maxDif1 {
				return 0
			}
		case b[i2] < a[i1]:
			i2++
			dif2++

			if dif2 > maxDif2 {
				return 0
			}
		default:
			count++
			i1++
			i2++
		}
	}

	return atLeast(ratio(count, len(a), len(b)), threshold)
}

// CountIntersect derives |A∩B| from |A|, |B| and their similarity.
func CountIntersect(count1, count2 int64, sim float64) int64 {
	return int64(float64(count1+count2) * sim / (1 + sim))
}

// CountUnion derives |A∪B| from |A|, |B| and their similarity.
func CountUnion(count1, count2 int64, sim float64) int64 {
	return int64(float64(count1+count2) / (1 + sim))
}

func intersect[T cmp.Ordered](a, b []T) int {
	count := 0

	for i1, i2 := 0, 0; i1 < len(a) && i2 < len(b); {
		switch {
		case a[i1] < b[i2]:
			i1++
		case b[i2] < a[i1]:
			i2++
		default:
			count++
			i1++
			i2++
		}
	}

	return count
}

func ratio(count, len1, len2 int) float64 {
	return float64(count) / float64(len1+len2-count)
}

func mismatchBudget(n int, threshold float64) int {
	return int(float64(n)*(1-threshold) + budgetEpsilon)
}

// outOfRange reports whether more than budget elements of s lie entirely
// above or below the value range of other. Those can never match.
func outOfRange[T cmp.Ordered](s, other []T, budget int) bool {
	if budget >= len(s) {
		return false
	}

	return s[len(s)-1-budget] > other[len(other)-1] || s[budget] < other[0]
}

func atLeast(sim, threshold float64) float64 {
	if sim < threshold {
		return 0
	}

	return sim
}
