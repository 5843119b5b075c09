package cardinality_test

import (
	"testing"

	"github.com/Sumatoshi-tech/neardup/pkg/cardinality"
)

// BenchmarkAggregatorAdd measures one item fanned out to three keys with the
// default 2048-function engine.
func BenchmarkAggregatorAdd(b *testing.B) {
	agg, err := cardinality.NewDefaultAggregator[string]()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()

	for i := range b.N {
		agg.Add(int64(i), "a", "b", "c")
	}
}
