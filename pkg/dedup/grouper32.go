package dedup

import (
	"slices"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
)

// Grouper32 records documents by their raw 32-bit LSH signatures. It keeps
// one bucket per large bucket hash, so it suits corpora whose large bucket
// count fits in memory.
type Grouper32 struct {
	stages      int
	buckets     map[uint64]*bucket
	memberships int
}

// NewGrouper32 creates a grouper for signatures of the given stage count,
// seeded with the large bucket hashes from lsh.BucketCounter.LargeBuckets.
func NewGrouper32(stages int, largeBuckets []uint64) *Grouper32 {
	buckets := make(map[uint64]*bucket, len(largeBuckets))
	for _, h := range largeBuckets {
		buckets[h] = &bucket{}
	}

	return &Grouper32{stages: stages, buckets: buckets}
}

// Put records docID into its large buckets.
func (g *Grouper32) Put(docID int64, lshSignature []int32) bool {
	if len(lshSignature) != g.stages {
		return false
	}

	landed := false

	for stage, v := range lshSignature {
		b, ok := g.buckets[lsh.BucketHash(stage, v)]
		if !ok {
			continue
		}

		b.add(docID)
		g.memberships++
		landed = true
	}

	return landed
}

// BigGroupsAndPairs returns groups ordered by bucket key and counted pairs.
func (g *Grouper32) BigGroupsAndPairs() ([]IDGroup, map[IDPair]int) {
	var groups []IDGroup

	pairs := make(map[IDPair]int)

	hashes := make([]uint64, 0, len(g.buckets))
	for h := range g.buckets {
		hashes = append(hashes, h)
	}

	slices.Sort(hashes)

	for _, h := range hashes {
		key := BucketKey{Stage: lsh.StageOf(h), Value: int64(lsh.BucketOf(h))}
		collect(key, g.buckets[h], &groups, pairs)
	}

	return groups, pairs
}

// MinAppearance returns MinAppearance32.
func (g *Grouper32) MinAppearance() int {
	return MinAppearance32
}

// Memberships returns how many (document, bucket) entries were recorded.
func (g *Grouper32) Memberships() int {
	return g.memberships
}
