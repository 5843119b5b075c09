package cardinality_test

import (
	"fmt"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/hll"
	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
	"github.com/Sumatoshi-tech/neardup/pkg/cardinality"
)

const (
	testSignatureSize = 256
	testItems         = 10_000
	testOverlapShift  = testItems / 2

	// Loose bounds: MinHash error at 256 functions dominates.
	countTolerance     = 0.05
	intersectTolerance = 0.25

	concProducers = 8
	concItems     = 1000
)

func newEngine(t *testing.T) *minhash.Simplified64 {
	t.Helper()

	engine, err := minhash.NewSimplified64(testSignatureSize, minhash.DefaultSeed)
	require.NoError(t, err)

	return engine
}

func newHybrid(t *testing.T, engine minhash.Engine64) *cardinality.HybridLogHash {
	t.Helper()

	h, err := cardinality.New(engine, cardinality.DefaultPrecision)
	require.NoError(t, err)

	return h
}

func fill(h *cardinality.HybridLogHash, from, to int64) {
	for i := from; i < to; i++ {
		h.Add(i)
	}
}

func assertNear(t *testing.T, want, got, tolerance float64) {
	t.Helper()

	assert.LessOrEqual(t, math.Abs(got-want)/want, tolerance, "want %.0f got %.0f", want, got)
}

// --- HybridLogHash Tests ---.

func TestNew_Errors(t *testing.T) {
	t.Parallel()

	_, err := cardinality.New(nil, cardinality.DefaultPrecision)
	require.ErrorIs(t, err, cardinality.ErrNilEngine)

	_, err = cardinality.New(newEngine(t), 2)
	require.ErrorIs(t, err, hll.ErrPrecisionOutOfRange)
}

func TestHybrid_Empty(t *testing.T) {
	t.Parallel()

	h := newHybrid(t, newEngine(t))

	assert.Equal(t, uint64(0), h.Cardinality())
	assert.Len(t, h.Signature(), testSignatureSize)

	for _, v := range h.Signature() {
		assert.Equal(t, int64(math.MaxInt64), v)
	}
}

func TestHybrid_Cardinality(t *testing.T) {
	t.Parallel()

	h := newHybrid(t, newEngine(t))
	fill(h, 0, testItems)
	fill(h, 0, testItems)

	assertNear(t, testItems, float64(h.Cardinality()), countTolerance)
}

func TestHybrid_CacheRefreshesAfterAdd(t *testing.T) {
	t.Parallel()

	h := newHybrid(t, newEngine(t))
	h.Add(1)

	first := h.Cardinality()
	sig := h.Signature()

	fill(h, 2, testItems)

	assert.Greater(t, h.Cardinality(), first)
	assert.NotEqual(t, sig, h.Signature())
}

func TestHybrid_SignatureMatchesEngine(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	h := newHybrid(t, engine)

	values := []int64{3, 1, 4, 1, 5, 9, 2, 6}
	for _, v := range values {
		h.Add(v)
	}

	assert.Equal(t, engine.Signature(values), h.Signature())
}

func TestHybrid_AddWithSignature(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	a, b := newHybrid(t, engine), newHybrid(t, engine)

	for i := range int64(100) {
		a.Add(i)
		require.NoError(t, b.AddWithSignature(i, engine.SignatureOf(i)))
	}

	assert.Equal(t, a.Signature(), b.Signature())
	assert.Equal(t, a.Cardinality(), b.Cardinality())

	err := b.AddWithSignature(1, []int64{1, 2})
	require.ErrorIs(t, err, cardinality.ErrEngineMismatch)
}

func TestHybrid_CountUnionAndIntersect(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	a, b := newHybrid(t, engine), newHybrid(t, engine)

	fill(a, 0, testItems)
	fill(b, testOverlapShift, testItems+testOverlapShift)

	union, err := a.CountUnion(b)
	require.NoError(t, err)
	assertNear(t, testItems+testOverlapShift, float64(union), countTolerance)

	inter, err := a.CountIntersect(b)
	require.NoError(t, err)
	assertNear(t, testItems-testOverlapShift, float64(inter), intersectTolerance)

	// Neither side changed.
	assertNear(t, testItems, float64(a.Cardinality()), countTolerance)
	assertNear(t, testItems, float64(b.Cardinality()), countTolerance)
}

func TestHybrid_CountIntersect_Disjoint(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	a, b := newHybrid(t, engine), newHybrid(t, engine)

	fill(a, 0, testItems)
	fill(b, testItems, 2*testItems)

	inter, err := a.CountIntersect(b)
	require.NoError(t, err)
	assert.Less(t, inter, uint64(testItems/10))
}

func TestHybrid_Union(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	a, b, both := newHybrid(t, engine), newHybrid(t, engine), newHybrid(t, engine)

	fill(a, 0, testItems)
	fill(b, testOverlapShift, testItems+testOverlapShift)
	fill(both, 0, testItems+testOverlapShift)

	bBefore := b.Signature()

	require.NoError(t, a.Union(b))
	assert.Equal(t, both.Signature(), a.Signature())
	assert.Equal(t, both.Cardinality(), a.Cardinality())
	assert.Equal(t, bBefore, b.Signature())

	sig := a.Signature()
	require.NoError(t, a.Union(a))
	assert.Equal(t, sig, a.Signature())
}

func TestHybrid_Union_Mismatch(t *testing.T) {
	t.Parallel()

	small, err := minhash.NewSimplified64(8, minhash.DefaultSeed)
	require.NoError(t, err)

	a := newHybrid(t, newEngine(t))
	b := newHybrid(t, small)

	require.ErrorIs(t, a.Union(b), cardinality.ErrEngineMismatch)
	_, err = a.CountIntersect(b)
	require.Error(t, err)
}

func TestFromParts_RoundTrip(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	h := newHybrid(t, engine)
	fill(h, 0, testItems)

	restored, err := cardinality.FromParts(engine, h.Signature(), h.SketchBytes())
	require.NoError(t, err)
	assert.Equal(t, h.Signature(), restored.Signature())
	assert.Equal(t, h.Cardinality(), restored.Cardinality())
}

func TestFromParts_Errors(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)
	h := newHybrid(t, engine)

	_, err := cardinality.FromParts(nil, h.Signature(), h.SketchBytes())
	require.ErrorIs(t, err, cardinality.ErrNilEngine)

	_, err = cardinality.FromParts(engine, []int64{1}, h.SketchBytes())
	require.ErrorIs(t, err, cardinality.ErrEngineMismatch)

	_, err = cardinality.FromParts(engine, h.Signature(), []byte{1})
	require.ErrorIs(t, err, hll.ErrInvalidData)
}

// --- Aggregator Tests ---.

func TestNewAggregator_Errors(t *testing.T) {
	t.Parallel()

	_, err := cardinality.NewAggregator[string](nil, cardinality.DefaultPrecision)
	require.ErrorIs(t, err, cardinality.ErrNilEngine)

	_, err = cardinality.NewAggregator[string](newEngine(t), 30)
	require.ErrorIs(t, err, hll.ErrPrecisionOutOfRange)
}

func TestNewDefaultAggregator(t *testing.T) {
	t.Parallel()

	agg, err := cardinality.NewDefaultAggregator[int]()
	require.NoError(t, err)
	assert.Equal(t, cardinality.DefaultSignatureSize, agg.Engine().SignatureSize())
	assert.Zero(t, agg.Len())
}

func TestAggregator_AddKeys(t *testing.T) {
	t.Parallel()

	engine := newEngine(t)

	agg, err := cardinality.NewAggregator[string](engine, cardinality.DefaultPrecision)
	require.NoError(t, err)

	for i := range int64(testItems) {
		keys := []string{"all"}
		if i%2 == 0 {
			keys = append(keys, "even")
		}

		agg.Add(i, keys...)
	}

	agg.Add(1) // no keys, no-op

	assert.Equal(t, 2, agg.Len())

	all, ok := agg.Get("all")
	require.True(t, ok)
	assertNear(t, testItems, float64(all.Cardinality()), countTolerance)

	even, ok := agg.Get("even")
	require.True(t, ok)
	assertNear(t, testItems/2, float64(even.Cardinality()), countTolerance)

	inter, err := all.CountIntersect(even)
	require.NoError(t, err)
	assertNear(t, testItems/2, float64(inter), intersectTolerance)

	_, ok = agg.Get("odd")
	assert.False(t, ok)
}

func TestAggregator_Snapshot(t *testing.T) {
	t.Parallel()

	agg, err := cardinality.NewAggregator[int](newEngine(t), cardinality.DefaultPrecision)
	require.NoError(t, err)

	agg.Add(1, 10, 20)

	snap := agg.Snapshot()
	assert.Len(t, snap, 2)

	delete(snap, 10)

	assert.Equal(t, 2, agg.Len())
}

func TestAggregator_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	agg, err := cardinality.NewAggregator[string](newEngine(t), cardinality.DefaultPrecision)
	require.NoError(t, err)

	var wg sync.WaitGroup

	for p := range concProducers {
		wg.Add(1)

		go func(producer int) {
			defer wg.Done()

			for i := range concItems {
				item := int64(producer*concItems + i)
				agg.Add(item, "total", fmt.Sprintf("producer-%d", producer))
			}
		}(p)
	}

	wg.Wait()

	assert.Equal(t, concProducers+1, agg.Len())

	total, ok := agg.Get("total")
	require.True(t, ok)
	assertNear(t, concProducers*concItems, float64(total.Cardinality()), countTolerance)
}
