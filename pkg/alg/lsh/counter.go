package lsh

import (
	"slices"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/mapx"
)

// BucketCounter counts per-stage bucket occupancy over a corpus of LSH
// signatures. It is the first pass of the grouping protocol and is not safe
// for concurrent use.
type BucketCounter struct {
	counts []map[int32]int
}

// NewBucketCounter creates a counter for signatures with the given stage count.
func NewBucketCounter(stages int) *BucketCounter {
	counts := make([]map[int32]int, stages)
	for i := range counts {
		counts[i] = make(map[int32]int)
	}

	return &BucketCounter{counts: counts}
}

// Put counts one signature. Signatures of the wrong length are ignored and
// reported as false.
func (b *BucketCounter) Put(lshSignature []int32) bool {
	if len(lshSignature) != len(b.counts) {
		return false
	}

	for stage, bucket := range lshSignature {
		b.counts[stage][bucket]++
	}

	return true
}

// LargeBuckets returns the sorted bucket hashes whose occupancy is at least minSize.
func (b *BucketCounter) LargeBuckets(minSize int) []uint64 {
	var out []uint64

	for stage, counts := range b.counts {
		for bucket, n := range counts {
			if n >= minSize {
				out = append(out, BucketHash(stage, bucket))
			}
		}
	}

	slices.Sort(out)

	return out
}

// Stages returns the stage count.
func (b *BucketCounter) Stages() int {
	return len(b.counts)
}

// Bucket64Counter is BucketCounter for packed 64-bit signatures. Bucket
// values are kept per packed stage rather than folded into one key.
type Bucket64Counter struct {
	conv   *Sig64Converter
	counts []map[int64]int
}

// NewBucket64Counter creates a counter for the packed signatures of conv.
func NewBucket64Counter(conv *Sig64Converter) *Bucket64Counter {
	counts := make([]map[int64]int, conv.Stage64Bit())
	for i := range counts {
		counts[i] = make(map[int64]int)
	}

	return &Bucket64Counter{conv: conv, counts: counts}
}

// Put packs and counts one LSH signature.
func (b *Bucket64Counter) Put(lshSignature []int32) bool {
	packed := b.conv.To64Bit(lshSignature)
	if packed == nil {
		return false
	}

	return b.Put64(packed)
}

// Put64 counts one packed signature.
func (b *Bucket64Counter) Put64(packed []int64) bool {
	if len(packed) != len(b.counts) {
		return false
	}

	for stage, bucket := range packed {
		b.counts[stage][bucket]++
	}

	return true
}

// LargeBuckets returns, per packed stage, the sorted bucket values whose
// occupancy is at least minSize.
func (b *Bucket64Counter) LargeBuckets(minSize int) [][]int64 {
	out := make([][]int64, len(b.counts))

	for stage, counts := range b.counts {
		for _, bucket := range mapx.SortedKeys(counts) {
			if counts[bucket] >= minSize {
				out[stage] = append(out[stage], bucket)
			}
		}
	}

	return out
}

// Converter returns the converter used by Put.
func (b *Bucket64Counter) Converter() *Sig64Converter {
	return b.conv
}
