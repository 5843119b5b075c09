package minhash

import (
	"testing"
)

// Benchmark constants.
const (
	// benchSize is the signature size for benchmarks.
	benchSize = 200

	// benchShingles is the number of shingles per signature.
	benchShingles = 500
)

func benchShingleSet() []int32 {
	out := make([]int32, benchShingles)
	for i := range out {
		out[i] = int32(i*7919 + 13) //nolint:gosec // small test values.
	}

	return out
}

func BenchmarkSimplifiedSignature(b *testing.B) {
	engine, err := NewSimplified(benchSize, DefaultSeed)
	if err != nil {
		b.Fatal(err)
	}

	shingles := benchShingleSet()

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = engine.Signature(shingles)
	}
}

func BenchmarkDictSizedSignature(b *testing.B) {
	engine, err := NewDictSized(benchSize, 1<<20, DefaultSeed)
	if err != nil {
		b.Fatal(err)
	}

	shingles := benchShingleSet()

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = engine.Signature(shingles)
	}
}

func BenchmarkContinuable64Add(b *testing.B) {
	engine, err := NewSimplified64(benchSize, DefaultSeed)
	if err != nil {
		b.Fatal(err)
	}

	acc := NewContinuable64(engine)

	b.ReportAllocs()
	b.ResetTimer()

	for i := range b.N {
		acc.Add(int64(i))
	}
}
