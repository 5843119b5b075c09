package dedup

import (
	"fmt"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/mapx"
)

// Grouper64 records documents by packed 64-bit signatures, one bucket map
// per packed stage. With noise reduction on, a document is recorded only if
// it lands in at least two large buckets.
type Grouper64 struct {
	conv           *lsh.Sig64Converter
	noiseReduction bool
	buckets        []map[int64]*bucket
	writtenGroups  int64
	memberships    int
}

// NewGrouper64 creates a packed grouper seeded with the per-stage large
// bucket values from lsh.Bucket64Counter.LargeBuckets.
func NewGrouper64(conv *lsh.Sig64Converter, largeBuckets [][]int64, noiseReduction bool) (*Grouper64, error) {
	if len(largeBuckets) != conv.Stage64Bit() {
		return nil, fmt.Errorf("%w: %d sets for %d stages", ErrStageMismatch, len(largeBuckets), conv.Stage64Bit())
	}

	buckets := make([]map[int64]*bucket, len(largeBuckets))

	for stage, values := range largeBuckets {
		buckets[stage] = make(map[int64]*bucket, len(values))
		for _, v := range values {
			buckets[stage][v] = &bucket{}
		}
	}

	return &Grouper64{conv: conv, noiseReduction: noiseReduction, buckets: buckets}, nil
}

// Put packs an LSH signature and records docID. Signatures shorter than the
// converter's reduced stage count return false.
func (g *Grouper64) Put(docID int64, lshSignature []int32) bool {
	if len(lshSignature) < g.conv.ReducedStages() {
		return false
	}

	return g.put(docID, g.conv.To64Bit(lshSignature))
}

// Put64 records docID by an already packed signature.
func (g *Grouper64) Put64(docID int64, packed []int64) bool {
	if len(packed) != len(g.buckets) {
		return false
	}

	return g.put(docID, packed)
}

func (g *Grouper64) put(docID int64, packed []int64) bool {
	if g.noiseReduction && !g.hitsEnoughStages(packed) {
		return false
	}

	landed := false

	for stage, v := range packed {
		b, ok := g.buckets[stage][v]
		if !ok {
			continue
		}

		if b.add(docID) {
			g.writtenGroups++
		}

		g.memberships++
		landed = true
	}

	return landed
}

func (g *Grouper64) hitsEnoughStages(packed []int64) bool {
	count := 0

	for stage, v := range packed {
		if _, ok := g.buckets[stage][v]; ok {
			count++
			if count >= noiseMinStages {
				return true
			}
		}
	}

	return false
}

// BigGroupsAndPairs returns groups ordered by stage and value, and counted pairs.
func (g *Grouper64) BigGroupsAndPairs() ([]IDGroup, map[IDPair]int) {
	var groups []IDGroup

	pairs := make(map[IDPair]int)

	for stage, m := range g.buckets {
		for _, v := range mapx.SortedKeys(m) {
			collect(BucketKey{Stage: stage, Value: v}, m[v], &groups, pairs)
		}
	}

	return groups, pairs
}

// MinAppearance returns MinAppearance64.
func (g *Grouper64) MinAppearance() int {
	return MinAppearance64
}

// WrittenGroups returns how many seeded buckets received their first document.
func (g *Grouper64) WrittenGroups() int64 {
	return g.writtenGroups
}

// Memberships returns how many (document, bucket) entries were recorded.
func (g *Grouper64) Memberships() int {
	return g.memberships
}

// NoiseReduction reports whether noise reduction is on.
func (g *Grouper64) NoiseReduction() bool {
	return g.noiseReduction
}
