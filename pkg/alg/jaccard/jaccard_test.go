package jaccard

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test constants for Jaccard tests.
const (
	// floatDelta is the tolerance for exact similarity comparisons.
	floatDelta = 1e-12

	// parityTrials is the number of random input pairs in parity tests.
	parityTrials = 500
)

func setOf(values ...int) map[int]struct{} {
	out := make(map[int]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}

	return out
}

// randomPair builds two sorted unique slices drawn from a shared pool so that
// their overlap varies from disjoint to identical.
func randomPair(rng *rand.Rand) ([]int64, []int64) {
	poolSize := 1 + rng.IntN(80)
	pool := make([]int64, 0, poolSize)
	seen := make(map[int64]struct{}, poolSize)

	for len(pool) < poolSize {
		v := rng.Int64N(1 << 20)
		if _, ok := seen[v]; ok {
			continue
		}

		seen[v] = struct{}{}
		pool = append(pool, v)
	}

	keepA := rng.Float64()
	keepB := rng.Float64()

	var a, b []int64

	for _, v := range pool {
		if rng.Float64() < keepA {
			a = append(a, v)
		}

		if rng.Float64() < keepB {
			b = append(b, v)
		}
	}

	slices.Sort(a)
	slices.Sort(b)

	return a, b
}

// --- Exact Tests ---.

func TestSets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b map[int]struct{}
		want float64
	}{
		{name: "both empty", a: setOf(), b: setOf(), want: 1},
		{name: "one empty", a: setOf(1, 2), b: setOf(), want: 0},
		{name: "identical", a: setOf(1, 2, 3), b: setOf(3, 2, 1), want: 1},
		{name: "half", a: setOf(1, 2, 3), b: setOf(2, 3, 4), want: 0.5},
		{name: "disjoint", a: setOf(1), b: setOf(2), want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.InDelta(t, tt.want, Sets(tt.a, tt.b), floatDelta)
			assert.InDelta(t, tt.want, Sets(tt.b, tt.a), floatDelta)
		})
	}
}

func TestSorted(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, Sorted([]int32{}, []int32{}), floatDelta)
	assert.InDelta(t, 0.0, Sorted([]int32{1}, nil), floatDelta)
	assert.InDelta(t, 0.5, Sorted([]int32{1, 2, 3}, []int32{2, 3, 4}), floatDelta)
	assert.InDelta(t, 1.0/3, Sorted([]string{"a", "b"}, []string{"b", "c"}), floatDelta)
}

func TestIDs_BothEmptyIsError(t *testing.T) {
	t.Parallel()

	_, err := IDs(nil, []int64{})
	require.ErrorIs(t, err, ErrBothEmpty)

	sim, err := IDs([]int64{1, 2}, nil)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, floatDelta)

	sim, err = IDs([]int64{1, 2, 5, 9}, []int64{2, 5, 9, 11})
	require.NoError(t, err)
	assert.InDelta(t, 0.6, sim, floatDelta)
}

func TestExact_SymmetricAndReflexive(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))

	for range parityTrials {
		a, b := randomPair(rng)

		assert.InDelta(t, Sorted(a, b), Sorted(b, a), floatDelta)
		assert.InDelta(t, 1.0, Sorted(a, a), floatDelta)
	}
}

// --- MinHash Tests ---.

func TestMinHash(t *testing.T) {
	t.Parallel()

	sim, err := MinHash([]int32{1, 2, 3, 4}, []int32{1, 9, 3, 9})
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sim, floatDelta)

	sim, err = MinHash([]int64{}, []int64{})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, floatDelta)

	_, err = MinHash([]int64{1}, []int64{1, 2})
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestMinHashWithThreshold(t *testing.T) {
	t.Parallel()

	a := []int32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	b := []int32{1, 2, 3, 4, 5, 6, 7, 8, 0, 0}

	sim, err := MinHashWithThreshold(0.8, a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, sim, floatDelta)

	sim, err = MinHashWithThreshold(0.9, a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, floatDelta)

	_, err = MinHashWithThreshold(0.5, a, b[:3])
	require.ErrorIs(t, err, ErrLengthMismatch)
}

func TestMinHashWithThreshold_AgreesWithExact(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(3, 5))

	for range parityTrials {
		n := 1 + rng.IntN(64)
		a := make([]int32, n)
		b := make([]int32, n)
		agree := rng.Float64()

		for i := range a {
			a[i] = rng.Int32N(1000)
			b[i] = a[i]

			if rng.Float64() > agree {
				b[i] = a[i] + 1
			}
		}

		threshold := float64(rng.IntN(11)) / 10

		exact, err := MinHash(a, b)
		require.NoError(t, err)

		fast, err := MinHashWithThreshold(threshold, a, b)
		require.NoError(t, err)

		if exact >= threshold {
			assert.InDelta(t, exact, fast, floatDelta)
		} else {
			assert.Zero(t, fast)
		}
	}
}

// --- Threshold Tests ---.

func TestSortedWithThreshold_Edges(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 1.0, SortedWithThreshold(0.9, []int64{}, []int64{}), floatDelta)
	assert.Zero(t, SortedWithThreshold(0.5, []int64{1}, nil))
	assert.InDelta(t, 0.5, SortedWithThreshold(0.5, []int64{1, 2, 3}, []int64{2, 3, 4}), floatDelta)
	assert.Zero(t, SortedWithThreshold(0.6, []int64{1, 2, 3}, []int64{2, 3, 4}))
}

func TestSortedWithThreshold_RangePrecheck(t *testing.T) {
	t.Parallel()

	a := make([]int64, 40)
	b := make([]int64, 40)

	for i := range a {
		a[i] = int64(i)
		b[i] = int64(i + 30)
	}

	assert.Zero(t, SortedWithThreshold(0.5, a, b))
	assert.InDelta(t, Sorted(a, b), SortedWithThreshold(0, a, b), floatDelta)
}

func TestSortedWithThreshold_AgreesWithExact(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(19, 23))
	thresholds := []float64{0, 0.1, 0.25, 0.5, 0.7, 0.8, 0.95, 1}

	for range parityTrials {
		a, b := randomPair(rng)
		exact := Sorted(a, b)

		for _, threshold := range thresholds {
			fast := SortedWithThreshold(threshold, a, b)

			if exact >= threshold {
				assert.InDelta(t, exact, fast, floatDelta, "threshold %v, |a|=%d |b|=%d", threshold, len(a), len(b))
			} else {
				assert.Zero(t, fast, "threshold %v, |a|=%d |b|=%d", threshold, len(a), len(b))
			}
		}
	}
}

// --- Count Tests ---.

func TestCountIntersectAndUnion(t *testing.T) {
	t.Parallel()

	// |A|=|B|=100 with 50 shared elements: J = 50/150.
	sim := 50.0 / 150.0

	assert.Equal(t, int64(50), CountIntersect(100, 100, sim+floatDelta))
	assert.Equal(t, int64(150), CountUnion(100, 100, sim-floatDelta))
	assert.Equal(t, int64(0), CountIntersect(10, 20, 0))
	assert.Equal(t, int64(30), CountUnion(10, 20, 0))
}
