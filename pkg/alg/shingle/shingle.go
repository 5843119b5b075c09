// Package shingle converts text into sets of integer-hashed n-grams.
//
// Two shinglers are provided: a character shingler that hashes every window
// of k characters, and a word shingler that hashes every run of k consecutive
// words. Both use the base-31 polynomial string hash over UTF-16 code units,
// so shingle values are stable across producers written in other languages
// that hash strings the same way.
package shingle

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"unicode/utf16"
)

// hashBase is the multiplier of the polynomial string hash.
const hashBase = 31

var (
	// ErrNonPositiveK is returned when the shingle size is not positive.
	ErrNonPositiveK = errors.New("shingle: k must be positive")

	// ErrNegativeStart is returned when a range starts before the beginning of the text.
	ErrNegativeStart = errors.New("shingle: range start must not be negative")

	// ErrRange is returned when a range ends past the text or before its start.
	ErrRange = errors.New("shingle: invalid range")
)

// Shingler turns text into integer shingles.
//
// Ranges are half-open [start, end) and measured in UTF-16 code units.
type Shingler interface {
	// ShingleSet returns the set of shingles of s.
	ShingleSet(s string) map[int32]struct{}

	// ShingleSetRange returns the set of shingles of s[start:end].
	ShingleSetRange(s string, start, end int) (map[int32]struct{}, error)

	// PositiveShingles returns the sorted, duplicate-free absolute values of
	// the shingles of s. Shingles equal to 0 or math.MinInt32 are dropped.
	PositiveShingles(s string) []int32

	// PositiveShinglesRange is PositiveShingles over s[start:end].
	PositiveShinglesRange(s string, start, end int) ([]int32, error)

	// K returns the shingle size.
	K() int
}

// HashString returns the base-31 polynomial hash of s over its UTF-16 code
// units with int32 wraparound.
func HashString(s string) int32 {
	return hashUnits(codeUnits(s))
}

func hashUnits(units []uint16) int32 {
	var h int32

	for _, u := range units {
		h = h*hashBase + int32(u)
	}

	return h
}

// Positive maps a shingle to its absolute value and reports whether it is
// usable as a set element. 0 and math.MinInt32 are not.
func Positive(h int32) (int32, bool) {
	if h == 0 || h == math.MinInt32 {
		return 0, false
	}

	if h < 0 {
		return -h, true
	}

	return h, true
}

func codeUnits(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func checkRange(start, end, length int) error {
	if start < 0 {
		return fmt.Errorf("%w: %d", ErrNegativeStart, start)
	}

	if end > length || end < start {
		return fmt.Errorf("%w: [%d, %d) of %d", ErrRange, start, end, length)
	}

	return nil
}

func positiveSorted(set map[int32]struct{}) []int32 {
	out := make([]int32, 0, len(set))

	for h := range set {
		if p, ok := Positive(h); ok {
			out = append(out, p)
		}
	}

	slices.Sort(out)

	return slices.Compact(out)
}
