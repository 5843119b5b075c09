package shingle

import "fmt"

// space is appended to every open word run at a word boundary.
const space = ' '

// stopSymbols separate words. Runs of them count as one boundary.
var stopSymbols = map[uint16]struct{}{
	' ': {}, '\t': {}, '\n': {}, '|': {}, '!': {}, '@': {}, '#': {}, '$': {},
	'.': {}, '%': {}, '\\': {}, '^': {}, '*': {}, ')': {}, '(': {}, '}': {},
	'{': {}, '+': {}, '=': {}, ']': {}, '[': {}, '?': {}, '/': {}, '&': {},
	'\'': {}, '"': {}, ',': {},
}

// Word hashes every run of k consecutive words. Words are separated by stop
// symbols and joined with a single space before hashing, so the shingle of
// "the, quick" equals HashString("the quick").
//
// k rolling hashes are kept in a ring. Each one starts at a different word
// and is emitted and cleared once k words have been appended to it. Text with
// fewer than k words produces no shingles.
type Word struct {
	k int
}

// NewWord creates a word shingler.
func NewWord(k int) (*Word, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNonPositiveK, k)
	}

	return &Word{k: k}, nil
}

// K returns the number of words per shingle.
func (w *Word) K() int {
	return w.k
}

// ShingleSet returns the set of word-run hashes of s.
func (w *Word) ShingleSet(s string) map[int32]struct{} {
	units := codeUnits(s)

	return w.shingles(units, 0, len(units))
}

// ShingleSetRange returns the set of word-run hashes of s[start:end].
func (w *Word) ShingleSetRange(s string, start, end int) (map[int32]struct{}, error) {
	units := codeUnits(s)

	err := checkRange(start, end, len(units))
	if err != nil {
		return nil, err
	}

	return w.shingles(units, start, end), nil
}

// PositiveShingles returns the sorted positive word-run hashes of s.
func (w *Word) PositiveShingles(s string) []int32 {
	return positiveSorted(w.ShingleSet(s))
}

// PositiveShinglesRange returns the sorted positive word-run hashes of s[start:end].
func (w *Word) PositiveShinglesRange(s string, start, end int) ([]int32, error) {
	set, err := w.ShingleSetRange(s, start, end)
	if err != nil {
		return nil, err
	}

	return positiveSorted(set), nil
}

// shingles runs the ring of rolling hashes. A zero slot is free.
func (w *Word) shingles(units []uint16, start, end int) map[int32]struct{} {
	ret := make(map[int32]struct{})
	track := make([]int32, w.k)
	cur := 0

	for _, ch := range units[start:end] {
		if _, stop := stopSymbols[ch]; stop {
			if track[cur] == 0 {
				continue
			}

			cur = (cur + 1) % w.k
			if track[cur] != 0 {
				ret[track[cur]] = struct{}{}
				track[cur] = 0
			}

			for i := range track {
				if track[i] != 0 {
					track[i] = track[i]*hashBase + space
				}
			}

			continue
		}

		track[cur] = track[cur]*hashBase + int32(ch)

		for i := (cur + 1) % w.k; i != cur; i = (i + 1) % w.k {
			if track[i] != 0 {
				track[i] = track[i]*hashBase + int32(ch)
			}
		}
	}

	if track[cur] != 0 {
		cur = (cur + 1) % w.k
		if track[cur] != 0 {
			ret[track[cur]] = struct{}{}
		}
	}

	return ret
}
