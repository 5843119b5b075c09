// Package hll provides a HyperLogLog cardinality estimator.
//
// HyperLogLog estimates the number of distinct elements in a multiset with a
// standard error of about 1.04/sqrt(2^p) using 2^p one-byte registers. The
// cardinality collaborator pairs one sketch with a MinHash signature per key
// so that union and intersection sizes can be estimated without the sets.
//
// The estimate uses the LogLog-Beta bias correction from Qin et al. (2016),
// which is accurate across all cardinality ranges without the empirical
// interpolation tables of HLL++.
package hll

import (
	"errors"
	"math"
	"math/bits"
	"sync"

	"github.com/Sumatoshi-tech/neardup/pkg/alg/internal/hashutil"
)

const (
	// DefaultPrecision is the precision used by the cardinality collaborator (4096 registers).
	DefaultPrecision = 12

	// minPrecision is the minimum allowed precision (2^4 = 16 registers).
	minPrecision = 4

	// maxPrecision is the maximum allowed precision (2^18 = 262144 registers).
	maxPrecision = 18

	// hashBits is the total number of bits in the hash output.
	hashBits = 64

	// precisionP5 is precision 5 for alpha constant lookup.
	precisionP5 = 5

	// precisionP6 is precision 6 for alpha constant lookup.
	precisionP6 = 6

	// alphaP4 is the alpha constant for 2^4 = 16 registers.
	alphaP4 = 0.673

	// alphaP5 is the alpha constant for 2^5 = 32 registers.
	alphaP5 = 0.697

	// alphaP6 is the alpha constant for 2^6 = 64 registers.
	alphaP6 = 0.709

	// alphaGenericNumerator is the numerator in the generic alpha formula.
	alphaGenericNumerator = 0.7213

	// alphaGenericDenominatorCoeff is the coefficient in the generic alpha denominator.
	alphaGenericDenominatorCoeff = 1.079

	// LogLog-Beta polynomial coefficients from Qin et al. (2016).
	betaC0 = -0.370393911
	betaC1 = 0.070471823
	betaC2 = 0.17393686
	betaC3 = 0.16339839
	betaC4 = -0.09237745
	betaC5 = 0.03738027
	betaC6 = -0.005384159
	betaC7 = 0.00042419
)

var (
	// ErrPrecisionOutOfRange is returned when precision is not in [4, 18].
	ErrPrecisionOutOfRange = errors.New("hll: precision must be in [4, 18]")

	// ErrPrecisionMismatch is returned when merging sketches with different precisions.
	ErrPrecisionMismatch = errors.New("hll: cannot merge sketches with different precisions")

	// ErrInvalidData is returned when a serialized sketch cannot be decoded.
	ErrInvalidData = errors.New("hll: invalid serialized sketch")
)

// Sketch is a thread-safe HyperLogLog cardinality estimator.
type Sketch struct {
	mu        sync.RWMutex
	registers []uint8
	precision uint8
}

// New creates a HyperLogLog sketch with the given precision p.
// Precision must be in [4, 18]. The sketch allocates 2^p registers (bytes).
func New(precision uint8) (*Sketch, error) {
	if precision < minPrecision || precision > maxPrecision {
		return nil, ErrPrecisionOutOfRange
	}

	return &Sketch{
		registers: make([]uint8, uint(1)<<precision),
		precision: precision,
	}, nil
}

// Add hashes data and records it.
func (s *Sketch) Add(data []byte) {
	s.AddHash(hashutil.Mix64(hashutil.FNV64a(data)))
}

// AddInt64 records a 64-bit value such as a document ID or fingerprint.
func (s *Sketch) AddInt64(v int64) {
	s.AddHash(hashutil.Mix64(uint64(v) + hashutil.GoldenGamma)) //nolint:gosec // bit pattern preserved.
}

// AddHash records an already well-mixed 64-bit hash. The top p bits select
// the register, the rest supply the leading-zero run.
func (s *Sketch) AddHash(hashVal uint64) {
	idx := hashVal >> (hashBits - s.precision)

	// When all remaining bits are zero, rho = 64-p+1 (maximum).
	remaining := hashBits - uint(s.precision)
	w := hashVal & ((uint64(1) << remaining) - 1)
	rho := uint8(remaining-uint(bits.Len64(w))) + 1 //nolint:gosec // rho <= 61.

	s.mu.Lock()

	if rho > s.registers[idx] {
		s.registers[idx] = rho
	}

	s.mu.Unlock()
}

// Count returns the estimated number of distinct elements.
func (s *Sketch) Count() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return estimate(s.registers, s.precision)
}

// Merge combines another sketch into this one by taking the element-wise
// maximum of registers. Both sketches must have the same precision.
func (s *Sketch) Merge(other *Sketch) error {
	if s.precision != other.precision {
		return ErrPrecisionMismatch
	}

	if s == other {
		return nil
	}

	other.mu.RLock()
	defer other.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, val := range other.registers {
		s.registers[i] = max(s.registers[i], val)
	}

	return nil
}

// Clone creates a deep copy of the sketch.
func (s *Sketch) Clone() *Sketch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := make([]uint8, len(s.registers))
	copy(regs, s.registers)

	return &Sketch{registers: regs, precision: s.precision}
}

// Reset clears all registers without reallocating.
func (s *Sketch) Reset() {
	s.mu.Lock()
	clear(s.registers)
	s.mu.Unlock()
}

// Precision returns the configured precision of the sketch.
func (s *Sketch) Precision() uint8 {
	return s.precision
}

// RegisterCount returns the number of registers (2^p).
func (s *Sketch) RegisterCount() uint {
	return uint(1) << s.precision
}

// estimate applies the LogLog-Beta formula: alpha * m * (m - ez) / (beta(ez) + sum).
func estimate(registers []uint8, precision uint8) uint64 {
	regCount := float64(len(registers))
	zeros := 0
	harmonicSum := 0.0

	for _, val := range registers {
		if val == 0 {
			zeros++
		}

		harmonicSum += math.Exp2(-float64(val))
	}

	ez := float64(zeros)
	if ez == regCount {
		return 0
	}

	est := alpha(precision) * regCount * (regCount - ez) / (betaCorrection(ez) + harmonicSum)

	return uint64(math.Round(est))
}

// alpha returns the alpha_m constant used in the HLL estimate formula.
// For m >= 128, alpha_m = 0.7213 / (1 + 1.079/m).
func alpha(precision uint8) float64 {
	switch precision {
	case minPrecision:
		return alphaP4
	case precisionP5:
		return alphaP5
	case precisionP6:
		return alphaP6
	default:
		return alphaGenericNumerator / (1 + alphaGenericDenominatorCoeff/float64(uint(1)<<precision))
	}
}

// betaCorrection computes the LogLog-Beta bias correction term.
func betaCorrection(zeroCount float64) float64 {
	zl := math.Log(zeroCount + 1)
	zl2 := zl * zl
	zl3 := zl2 * zl
	zl4 := zl3 * zl
	zl5 := zl4 * zl
	zl6 := zl5 * zl
	zl7 := zl6 * zl

	return betaC0*zeroCount +
		betaC1*zl +
		betaC2*zl2 +
		betaC3*zl3 +
		betaC4*zl4 +
		betaC5*zl5 +
		betaC6*zl6 +
		betaC7*zl7
}
