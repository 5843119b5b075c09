package shingle

import "fmt"

// Char hashes every window of k consecutive characters. Text shorter than k
// is hashed whole as a single shingle.
type Char struct {
	k int
}

// NewChar creates a character shingler.
func NewChar(k int) (*Char, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNonPositiveK, k)
	}

	return &Char{k: k}, nil
}

// K returns the window size.
func (c *Char) K() int {
	return c.k
}

// ShingleSet returns the set of window hashes of s.
func (c *Char) ShingleSet(s string) map[int32]struct{} {
	units := codeUnits(s)

	return c.shingles(units, 0, len(units))
}

// ShingleSetRange returns the set of window hashes of s[start:end].
func (c *Char) ShingleSetRange(s string, start, end int) (map[int32]struct{}, error) {
	units := codeUnits(s)

	err := checkRange(start, end, len(units))
	if err != nil {
		return nil, err
	}

	return c.shingles(units, start, end), nil
}

// PositiveShingles returns the sorted positive window hashes of s.
func (c *Char) PositiveShingles(s string) []int32 {
	return positiveSorted(c.ShingleSet(s))
}

// PositiveShinglesRange returns the sorted positive window hashes of s[start:end].
func (c *Char) PositiveShinglesRange(s string, start, end int) ([]int32, error) {
	set, err := c.ShingleSetRange(s, start, end)
	if err != nil {
		return nil, err
	}

	return positiveSorted(set), nil
}

func (c *Char) shingles(units []uint16, start, end int) map[int32]struct{} {
	ret := make(map[int32]struct{})

	if end-start < c.k {
		ret[hashUnits(units[start:end])] = struct{}{}

		return ret
	}

	for i := start; i <= end-c.k; i++ {
		ret[hashUnits(units[i:i+c.k])] = struct{}{}
	}

	return ret
}
