package shingle

import (
	"strings"
	"testing"
)

// benchText is a paragraph-sized input for benchmarks.
var benchText = strings.Repeat("the quick brown fox jumps over the lazy dog, ", 40)

func BenchmarkWordPositiveShingles(b *testing.B) {
	w, err := NewWord(5)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = w.PositiveShingles(benchText)
	}
}

func BenchmarkCharPositiveShingles(b *testing.B) {
	c, err := NewChar(5)
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = c.PositiveShingles(benchText)
	}
}
