// Package dedup is the second pass of the LSH grouping protocol and the
// duplicate cluster extraction that follows it.
//
// A Grouper is seeded with the large buckets selected by a first pass over the
// corpus (lsh.BucketCounter or lsh.Bucket64Counter) and records, for every
// document put into it, which of those buckets the document lands in.
// ExtractDuplicateGroups then turns the recorded buckets into clusters of
// probable near-duplicates.
//
// Groupers are not safe for concurrent use. Signatures can be computed in
// parallel, but Put and extraction must run on one goroutine.
package dedup

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
)

const (
	// GroupSignatureSize is the MinHash size used to pre-filter big groups.
	GroupSignatureSize = 20

	// DefaultGroupSimilarity is the minimum Jaccard similarity of two big
	// groups' document lists for them to be linked as candidates.
	DefaultGroupSimilarity = 0.5

	// MinAppearance32 is the default minimum appearance for Grouper32.
	MinAppearance32 = 4

	// MinAppearance64 is the default minimum appearance for Grouper64.
	MinAppearance64 = 2

	// noiseMinStages is how many large buckets a document must hit before
	// noise reduction records it.
	noiseMinStages = 2

	// pairSize is the number of documents in a pair bucket.
	pairSize = 2
)

var (
	// ErrPairSize is returned when a pair is built from other than two IDs.
	ErrPairSize = errors.New("dedup: pair must have exactly two ids")

	// ErrStageMismatch is returned when large bucket sets do not match the packed stage count.
	ErrStageMismatch = errors.New("dedup: large bucket sets do not match packed stages")

	// ErrInvalidSimilarity is returned when the group similarity is outside (0, 1].
	ErrInvalidSimilarity = errors.New("dedup: group similarity must be in (0, 1]")
)

// Grouper records documents into pre-selected large buckets.
type Grouper interface {
	// Put records docID into every large bucket its LSH signature lands in
	// and reports whether it landed in any. Malformed signatures return false.
	Put(docID int64, lshSignature []int32) bool

	// BigGroupsAndPairs splits the recorded buckets into groups of more than
	// two documents and counted two-document pairs. Smaller buckets are dropped.
	BigGroupsAndPairs() ([]IDGroup, map[IDPair]int)

	// MinAppearance is the default appearance threshold for extraction.
	MinAppearance() int
}

// BucketKey identifies a bucket: the stage it belongs to and its value in
// that stage. Raw groupers use the 32-bit stage hash, packed groupers the
// 64-bit stage pair.
type BucketKey struct {
	Stage int
	Value int64
}

func compareKeys(a, b BucketKey) int {
	if c := cmp.Compare(a.Stage, b.Stage); c != 0 {
		return c
	}

	return cmp.Compare(a.Value, b.Value)
}

// IDGroup is a bucket holding more than two documents.
type IDGroup struct {
	Key BucketKey
	// IDs is ascending and duplicate-free.
	IDs []int64
}

// IDPair is an unordered pair of document IDs stored in ascending order.
type IDPair [2]int64

// NewIDPair builds a pair from exactly two IDs in any order.
func NewIDPair(ids []int64) (IDPair, error) {
	if len(ids) != pairSize {
		return IDPair{}, fmt.Errorf("%w: got %d", ErrPairSize, len(ids))
	}

	return makePair(ids[0], ids[1]), nil
}

func makePair(a, b int64) IDPair {
	if b < a {
		a, b = b, a
	}

	return IDPair{a, b}
}

// IDs returns the pair as a sorted slice.
func (p IDPair) IDs() []int64 {
	return []int64{p[0], p[1]}
}

func comparePairs(a, b IDPair) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}

	return cmp.Compare(a[1], b[1])
}

// bucketState tells a seeded bucket that nothing was recorded yet from one
// that holds documents.
type bucketState uint8

const (
	bucketEmpty bucketState = iota
	bucketOccupied
)

type bucket struct {
	state bucketState
	ids   []int64
}

// add appends id and reports whether the bucket was empty before.
func (b *bucket) add(id int64) bool {
	first := b.state == bucketEmpty
	b.state = bucketOccupied
	b.ids = append(b.ids, id)

	return first
}

// collect sorts the bucket and files it as a group or a pair.
func collect(key BucketKey, b *bucket, groups *[]IDGroup, pairs map[IDPair]int) {
	if b.state == bucketEmpty {
		return
	}

	ids := slices.Clone(b.ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	switch {
	case len(ids) > pairSize:
		*groups = append(*groups, IDGroup{Key: key, IDs: ids})
	case len(ids) == pairSize:
		pairs[makePair(ids[0], ids[1])]++
	}
}
