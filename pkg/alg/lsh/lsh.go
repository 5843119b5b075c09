// Package lsh implements Locality-Sensitive Hashing over MinHash signatures.
//
// A MinHash signature is cut into stages (bands) of consecutive rows and each
// stage is folded into one 32-bit hash. Two sets with Jaccard similarity s
// share at least one stage hash with probability 1-(1-s^R)^b for R rows per
// stage and b stages, an S-shaped curve whose midpoint is the threshold the
// index is built for. Stage hashes are the bucket keys of the two-pass
// grouping protocol (see BucketCounter and pkg/dedup).
//
// The banding follows Leskovec, Rajaraman & Ullman, "Mining of Massive
// Datasets" (2014), chapter 3.
package lsh

import (
	"errors"
	"fmt"
	"math"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/minhash"
)

const (
	// LargePrime multiplies every row value before it is summed into its stage.
	LargePrime int64 = 433494437

	// ExactThresholdSignatureSize is the signature size used when a threshold
	// of 1.0 is requested. No finite signature guarantees exact matches.
	ExactThresholdSignatureSize = 20

	// SimplifiedDictSize selects the modulus-free Simplified engine in
	// NewForThreshold instead of a dictionary-sized one.
	SimplifiedDictSize int64 = math.MaxInt32
)

var (
	// ErrNonPositiveStages is returned when the stage count is not positive.
	ErrNonPositiveStages = errors.New("lsh: stages must be positive")

	// ErrInvalidThreshold is returned when a similarity threshold is outside (0, 1].
	ErrInvalidThreshold = errors.New("lsh: threshold must be in (0, 1]")

	// ErrNilEngine is returned when no MinHash engine is supplied.
	ErrNilEngine = errors.New("lsh: minhash engine must not be nil")

	// ErrReducedStages is returned when a packed converter asks for more stages than exist.
	ErrReducedStages = errors.New("lsh: reduced stages exceed total stages")

	// ErrNoPackedStages is returned when a packed converter would produce no 64-bit stages.
	ErrNoPackedStages = errors.New("lsh: packed signature would be empty")
)

// MinHashLSH computes LSH signatures of shingle sets with a MinHash engine.
// It is safe for concurrent use.
type MinHashLSH struct {
	stages int
	engine minhash.Engine
}

// New creates an LSH over engine's signatures with the given number of stages.
func New(stages int, engine minhash.Engine) (*MinHashLSH, error) {
	if stages <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrNonPositiveStages, stages)
	}

	if engine == nil {
		return nil, ErrNilEngine
	}

	return &MinHashLSH{stages: stages, engine: engine}, nil
}

// NewForThreshold creates an LSH whose signature size is derived from the
// similarity threshold. A dictSize of SimplifiedDictSize selects the
// Simplified engine, any other value a DictSized engine.
func NewForThreshold(stages int, dictSize, seed int64, threshold float64) (*MinHashLSH, error) {
	size, err := SignatureSize(stages, threshold)
	if err != nil {
		return nil, err
	}

	var engine minhash.Engine

	if dictSize == SimplifiedDictSize {
		engine, err = minhash.NewSimplified(size, seed)
	} else {
		engine, err = minhash.NewDictSized(size, dictSize, seed)
	}

	if err != nil {
		return nil, fmt.Errorf("lsh: minhash engine: %w", err)
	}

	return New(stages, engine)
}

// SignatureSize returns the MinHash signature size for the given stages and
// threshold: ceil(ln(1/stages)/ln(threshold)) rows per stage, at least one.
func SignatureSize(stages int, threshold float64) (int, error) {
	if stages <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrNonPositiveStages, stages)
	}

	if threshold <= 0 || threshold > 1 || math.IsNaN(threshold) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidThreshold, threshold)
	}

	if threshold == 1 {
		return ExactThresholdSignatureSize, nil
	}

	rows := int(math.Ceil(math.Log(1/float64(stages)) / math.Log(threshold)))

	return max(rows, 1) * stages, nil
}

// CandidateProbability is the chance that two sets with similarity s share
// at least one of bands stages of rows rows each.
func CandidateProbability(s float64, rows, bands int) float64 {
	return 1 - math.Pow(1-math.Pow(s, float64(rows)), float64(bands))
}

// Threshold approximates the similarity at which the candidate probability
// crosses one half: (1/bands)^(1/rows).
func Threshold(rows, bands int) float64 {
	if rows <= 0 || bands <= 0 {
		return 0
	}

	return math.Pow(1/float64(bands), 1/float64(rows))
}

// HashSignature folds a MinHash signature into one hash per stage. Row i
// belongs to stage min(i/rows, stages-1), so the last stage absorbs the
// remainder. Each stage accumulates value*LargePrime truncated to 32 bits.
func (l *MinHashLSH) HashSignature(signature []int32) []int32 {
	return HashSignature(l.stages, signature)
}

// HashSignature is MinHashLSH.HashSignature without an engine.
func HashSignature(stages int, signature []int32) []int32 {
	hash := make([]int32, stages)

	rows := len(signature) / stages
	if rows == 0 {
		rows = 1
	}

	for i, v := range signature {
		stage := min(i/rows, stages-1)
		hash[stage] = int32(int64(hash[stage]) + int64(v)*LargePrime) //nolint:gosec // truncation is part of the hash.
	}

	return hash
}

// HashShingles returns the LSH signature of a sorted shingle set.
func (l *MinHashLSH) HashShingles(shingles []int32) []int32 {
	return l.HashSignature(l.engine.Signature(shingles))
}

// Signature returns the MinHash signature of a shingle set.
func (l *MinHashLSH) Signature(shingles []int32) []int32 {
	return l.engine.Signature(shingles)
}

// Stages returns the number of stages.
func (l *MinHashLSH) Stages() int {
	return l.stages
}

// Rows returns the number of MinHash rows per stage.
func (l *MinHashLSH) Rows() int {
	return max(l.engine.SignatureSize()/l.stages, 1)
}

// SignatureSize returns the MinHash signature size.
func (l *MinHashLSH) SignatureSize() int {
	return l.engine.SignatureSize()
}

// Coefficients returns a copy of the MinHash coefficients.
func (l *MinHashLSH) Coefficients() [][2]int64 {
	return l.engine.Coefficients()
}
