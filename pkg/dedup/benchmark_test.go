package dedup

import (
	"math/rand/v2"
	"testing"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/lsh"
)

// Benchmark constants.
const (
	// benchStages is the LSH stage count for benchmarks.
	benchStages = 10

	// benchDocs is the corpus size for benchmarks.
	benchDocs = 5000
)

func BenchmarkExtractDuplicateGroups(b *testing.B) {
	docs := randomClusteredCorpus(rand.New(rand.NewPCG(1, 2)), benchStages, benchDocs)

	counter := lsh.NewBucketCounter(benchStages)
	for _, sig := range docs {
		counter.Put(sig)
	}

	large := counter.LargeBuckets(lsh.DefaultBucketMinSize)

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		g := NewGrouper32(benchStages, large)
		for id, sig := range docs {
			g.Put(id, sig)
		}

		_, err := ExtractDuplicateGroups(g, ExtractOptions{})
		if err != nil {
			b.Fatal(err)
		}
	}
}
