package lsh

import (
	"strings"
	"testing"
)

// benchText is a paragraph-sized input for benchmarks.
var benchText = strings.Repeat("lorem ipsum dolor sit amet consectetur adipiscing elit ", 20)

func BenchmarkComputerSignature(b *testing.B) {
	c, err := NewIndexDeduplication()
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = c.Signature(benchText)
	}
}

func BenchmarkTo64BitFull(b *testing.B) {
	conv, err := NewSig64Converter(DefaultStages, DefaultStages, NoReduction)
	if err != nil {
		b.Fatal(err)
	}

	sig := stageSignature(DefaultStages)

	b.ReportAllocs()
	b.ResetTimer()

	for range b.N {
		_ = conv.To64Bit(sig)
	}
}
