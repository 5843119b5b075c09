package lsh

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

// Test constants for LSH tests.
const (
	// testSeed is the coefficient seed for tests.
	testSeed int64 = 7

	// curveTrials is the number of random seeds in recall curve tests.
	curveTrials = 400

	// curveTolerance is the allowed gap between empirical and predicted recall.
	curveTolerance = 0.08
)

// overlappingSets returns two random sets sharing shared elements, each with
// exclusive extra elements.
func overlappingSets(rng *rand.Rand, shared, exclusive int) ([]int32, []int32) {
	seen := make(map[int32]struct{})
	pool := make([]int32, 0, shared+2*exclusive)

	for len(pool) < shared+2*exclusive {
		v := rng.Int32()
		if _, ok := seen[v]; ok || v == 0 {
			continue
		}

		seen[v] = struct{}{}
		pool = append(pool, v)
	}

	a := append([]int32{}, pool[:shared+exclusive]...)
	b := append(append([]int32{}, pool[:shared]...), pool[shared+exclusive:]...)

	return a, b
}

// --- Signature Size Tests ---.

func TestSignatureSize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		stages    int
		threshold float64
		want      int
	}{
		{name: "index deduplication", stages: 10, threshold: 0.95, want: 450},
		{name: "news topic model", stages: 10, threshold: 0.8, want: 110},
		{name: "exact", stages: 10, threshold: 1, want: ExactThresholdSignatureSize},
		{name: "single stage", stages: 1, threshold: 0.5, want: 1},
		{name: "low threshold", stages: 30, threshold: 0.3, want: 90},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := SignatureSize(tt.stages, tt.threshold)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSignatureSize_Invalid(t *testing.T) {
	t.Parallel()

	_, err := SignatureSize(0, 0.5)
	require.ErrorIs(t, err, ErrNonPositiveStages)

	_, err = SignatureSize(10, 0)
	require.ErrorIs(t, err, ErrInvalidThreshold)

	_, err = SignatureSize(10, 1.01)
	require.ErrorIs(t, err, ErrInvalidThreshold)
}

func TestNew_Invalid(t *testing.T) {
	t.Parallel()

	engine, err := minhash.NewSimplified(10, testSeed)
	require.NoError(t, err)

	_, err = New(0, engine)
	require.ErrorIs(t, err, ErrNonPositiveStages)

	_, err = New(2, nil)
	require.ErrorIs(t, err, ErrNilEngine)

	_, err = NewForThreshold(10, 0, testSeed, 0.5)
	require.ErrorIs(t, err, minhash.ErrNonPositiveDictSize)
}

func TestNewForThreshold_EngineSelection(t *testing.T) {
	t.Parallel()

	simplified, err := NewForThreshold(10, SimplifiedDictSize, testSeed, 0.8)
	require.NoError(t, err)
	assert.Equal(t, 110, simplified.SignatureSize())
	assert.Equal(t, 11, simplified.Rows())
	assert.IsType(t, &minhash.Simplified{}, simplified.engine)

	dict, err := NewForThreshold(10, 1<<20, testSeed, 0.8)
	require.NoError(t, err)
	assert.IsType(t, &minhash.DictSized{}, dict.engine)
	assert.Len(t, dict.Coefficients(), 110)
}

// --- Banding Tests ---.

func TestHashSignature_KnownValues(t *testing.T) {
	t.Parallel()

	got := HashSignature(2, []int32{1, 2, 3, 4})

	// 3*P fits in int32; 7*P wraps.
	assert.Equal(t, []int32{1300483311, -1260506237}, got)
}

func TestHashSignature_LastStageAbsorbsRemainder(t *testing.T) {
	t.Parallel()

	got := HashSignature(3, []int32{1, 1, 1, 1, 1})
	p := int32(LargePrime)

	assert.Equal(t, []int32{p, p, int32(3 * LargePrime)}, got)
}

func TestHashSignature_FewerRowsThanStages(t *testing.T) {
	t.Parallel()

	got := HashSignature(4, []int32{1, 1})
	p := int32(LargePrime)

	assert.Equal(t, []int32{p, p, 0, 0}, got)
}

func TestHashShingles_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := NewForThreshold(10, SimplifiedDictSize, DefaultSeed, 0.8)
	require.NoError(t, err)

	b, err := NewForThreshold(10, SimplifiedDictSize, DefaultSeed, 0.8)
	require.NoError(t, err)

	shingles := []int32{10, 20, 30, 40, 50}

	assert.Equal(t, a.HashShingles(shingles), b.HashShingles(shingles))
	assert.Len(t, a.HashShingles(shingles), 10)
	assert.Equal(t, a.HashSignature(a.Signature(shingles)), a.HashShingles(shingles))
}

// --- Recall Curve Tests ---.

func TestCandidateProbability(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.0, CandidateProbability(0, 3, 5), 1e-12)
	assert.InDelta(t, 1.0, CandidateProbability(1, 3, 5), 1e-12)
	assert.InDelta(t, 1-math.Pow(1-0.125, 5), CandidateProbability(0.5, 3, 5), 1e-12)
	assert.InDelta(t, math.Pow(0.1, 1.0/45), Threshold(45, 10), 1e-12)
	assert.Zero(t, Threshold(0, 10))
}

func TestBandingRecall_FollowsCurve(t *testing.T) {
	t.Parallel()

	const (
		rows  = 3
		bands = 5
	)

	tests := []struct {
		name      string
		shared    int
		exclusive int
	}{
		// J = 100 / 200.
		{name: "half", shared: 100, exclusive: 50},
		// J = 40 / 200.
		{name: "fifth", shared: 40, exclusive: 80},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			similarity := float64(tt.shared) / float64(tt.shared+2*tt.exclusive)
			rng := rand.New(rand.NewPCG(uint64(tt.shared), 99))
			hits := 0

			for trial := range curveTrials {
				engine, err := minhash.NewSimplified(rows*bands, int64(trial)*7919)
				require.NoError(t, err)

				l, err := New(bands, engine)
				require.NoError(t, err)

				a, b := overlappingSets(rng, tt.shared, tt.exclusive)
				ha, hb := l.HashShingles(a), l.HashShingles(b)

				for stage := range ha {
					if ha[stage] == hb[stage] {
						hits++

						break
					}
				}
			}

			empirical := float64(hits) / curveTrials
			assert.InDelta(t, CandidateProbability(similarity, rows, bands), empirical, curveTolerance)
		})
	}
}

// --- Bucket Hash Tests ---.

func TestBucketHash_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, stage := range []int{0, 1, 9, 44} {
		for _, bucket := range []int32{0, 1, -1, math.MaxInt32, math.MinInt32} {
			h := BucketHash(stage, bucket)

			assert.Equal(t, stage, StageOf(h))
			assert.Equal(t, bucket, BucketOf(h))
		}
	}
}

func TestBucketHash_StagesNeverCollide(t *testing.T) {
	t.Parallel()

	seen := make(map[uint64]struct{})

	for stage := range 10 {
		h := BucketHash(stage, -12345)
		_, dup := seen[h]
		require.False(t, dup)

		seen[h] = struct{}{}
	}
}

func TestCombine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, int64(1)<<32|2, Combine(1, 2))
	assert.Equal(t, int64(0xffffffff), Combine(0, -1))
	assert.Equal(t, int64(-1)<<32, Combine(-1, 0))
}

// --- Counter Tests ---.

func TestBucketCounter(t *testing.T) {
	t.Parallel()

	c := NewBucketCounter(2)

	assert.True(t, c.Put([]int32{5, -7}))
	assert.True(t, c.Put([]int32{5, 8}))
	assert.True(t, c.Put([]int32{6, -7}))
	assert.False(t, c.Put([]int32{1}))
	assert.False(t, c.Put(nil))
	assert.Equal(t, 2, c.Stages())

	got := c.LargeBuckets(DefaultBucketMinSize)
	assert.Equal(t, []uint64{BucketHash(0, 5), BucketHash(1, -7)}, got)

	assert.Len(t, c.LargeBuckets(1), 4)
	assert.Empty(t, c.LargeBuckets(3))
}

func TestBucket64Counter(t *testing.T) {
	t.Parallel()

	conv, err := NewSig64Converter(3, 3, NoReduction)
	require.NoError(t, err)

	c := NewBucket64Counter(conv)

	assert.True(t, c.Put([]int32{1, 2, 3}))
	assert.True(t, c.Put([]int32{1, 2, 4}))
	assert.False(t, c.Put([]int32{1, 2}))
	assert.False(t, c.Put64([]int64{1}))
	assert.Same(t, conv, c.Converter())

	got := c.LargeBuckets(2)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{Combine(1, 2)}, got[0])
	assert.Empty(t, got[1])
	assert.Empty(t, got[2])
}
